package host

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	ferrors "git.home.luguber.info/inful/shelfkeeper/internal/foundation/errors"
)

// PlayerDataStore keeps owner files as <dir>/<uuid>.dat.
type PlayerDataStore struct {
	dir string
}

// NewPlayerDataStore returns a store rooted at dir.
func NewPlayerDataStore(dir string) *PlayerDataStore {
	return &PlayerDataStore{dir: dir}
}

func (s *PlayerDataStore) path(id uuid.UUID) string {
	return filepath.Join(s.dir, id.String()+".dat")
}

// Read returns the raw file for id.
func (s *PlayerDataStore) Read(ctx context.Context, id uuid.UUID) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.path(id)
	// #nosec G304 -- path is built from a parsed UUID
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ferrors.Rejected(ferrors.ReasonOwnerNotFound, "Player data file not found").
			WithContext("path", path).
			Build()
	}
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "read owner file").
			WithContext("path", path).
			Retryable().
			Build()
	}
	return data, nil
}

// Write replaces the file for id atomically, keeping the previous version as <uuid>.dat_old.
func (s *PlayerDataStore) Write(ctx context.Context, id uuid.UUID, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.path(id)

	tmp, err := os.CreateTemp(s.dir, id.String()+".*.tmp")
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "create temp owner file").
			WithContext("path", s.dir).
			Retryable().
			Build()
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "write owner file").Retryable().Build()
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "close owner file").Retryable().Build()
	}

	if _, err := os.Stat(path); err == nil {
		_ = os.Rename(path, path+"_old")
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "replace owner file").
			WithContext("path", path).
			Retryable().
			Build()
	}
	return nil
}
