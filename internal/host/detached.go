package host

import (
	ferrors "git.home.luguber.info/inful/shelfkeeper/internal/foundation/errors"
)

// Detached is a Runtime for tooling that runs without a live host: there are
// no worlds and every owner is disconnected.
type Detached struct {
	directory Directory
	files     OwnerFiles
}

// NewDetached returns a runtime backed by an owner directory and file store.
func NewDetached(directory Directory, files OwnerFiles) *Detached {
	return &Detached{directory: directory, files: files}
}

func (d *Detached) World(name string) (World, error) {
	return nil, ferrors.Rejected(ferrors.ReasonWorldNotFound, "World not found: "+name).
		WithContext("detached", true).
		Build()
}

func (d *Detached) Worlds() []World { return nil }

func (d *Detached) Dispatch(ReplaceItem) error {
	return ferrors.RuntimeError("item replacement requires a live host").Build()
}

func (d *Detached) Owners() Directory { return d.directory }

func (d *Detached) OwnerFiles() OwnerFiles { return d.files }
