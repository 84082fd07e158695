package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/starford/notewatch/internal/vault"
)

// FileStore persists the record as a YAML document.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the YAML file at path. The file is
// created on first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads and decodes the data file. A missing or empty file yields nil.
func (f *FileStore) Load(_ context.Context) (Record, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("settings: read %s: %w", f.path, err)
	}
	var r Record
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("settings: parse %s: %w", f.path, err)
	}
	return r, nil
}

// Save encodes r and atomically replaces the data file.
func (f *FileStore) Save(_ context.Context, r Record) error {
	data, err := yaml.Marshal(map[string]any(r))
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}
	if err := vault.WriteFileAtomic(f.path, data); err != nil {
		return fmt.Errorf("settings: save %s: %w", f.path, err)
	}
	return nil
}

// Close is a no-op.
func (f *FileStore) Close() error { return nil }
