package registry

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/shelfkeeper/internal/foundation/errors"
)

// Document is the persisted registry.
type Document struct {
	InitialScanComplete bool     `yaml:"initial_scan_complete"`
	Bookshelves         []string `yaml:"bookshelves"`
}

// Store loads and saves the registry document.
type Store interface {
	Load() (Document, error)
	Save(doc Document) error
}

// FileStore keeps the document as a YAML file.
type FileStore struct {
	path string
}

// NewFileStore returns a store writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the document location.
func (s *FileStore) Path() string { return s.path }

// Load reads the document. A missing file yields an empty document.
func (s *FileStore) Load() (Document, error) {
	// #nosec G304 -- path comes from operator configuration
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Document{}, nil
	}
	if err != nil {
		return Document{}, ferrors.WrapError(err, ferrors.CategoryFileSystem, "read registry").
			WithContext("path", s.path).
			Build()
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, ferrors.WrapError(err, ferrors.CategoryFileSystem, "parse registry").
			WithContext("path", s.path).
			Build()
	}
	return doc, nil
}

// Save writes the document atomically.
func (s *FileStore) Save(doc Document) error {
	if doc.Bookshelves == nil {
		doc.Bookshelves = []string{}
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "encode registry").Build()
	}
	return writeAtomic(s.path, data)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "create registry directory").
			WithContext("path", dir).
			Build()
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "create temp file").
			WithContext("path", dir).
			Build()
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "write registry").Build()
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "close registry").Build()
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "replace registry").
			WithContext("path", path).
			Build()
	}
	return nil
}
