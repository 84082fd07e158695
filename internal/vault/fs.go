package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/notewatch/internal/apperr"
	"github.com/starford/notewatch/internal/checksum"
)

// RootFolder is how the vault root is named in folder listings.
const RootFolder = "/"

// TempPrefix prefixes the scratch files Write renames into place. Watchers
// skip them as hidden entries.
const TempPrefix = ".notewatch-tmp-"

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to vault directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("vault: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("vault: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute vault directory.
func (f *FS) Root() string {
	return f.root
}

// safePath resolves a vault path against the root and rejects any result
// that escapes it.
func (f *FS) safePath(rel string) (string, error) {
	rel = NormalizePath(rel)
	if rel == RootFolder {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("vault: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("vault: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("vault: path escapes vault root: %s", rel)
	}
	return abs, nil
}

// Exists reports whether a regular file exists at path.
func (f *FS) Exists(path string) (bool, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("vault: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return false, fmt.Errorf("vault: %s is a folder", path)
	}
	return true, nil
}

// Read returns the raw bytes of a vault file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("vault: read %s: %w", path, err)
	}
	return data, nil
}

// Create writes content to a file that must not exist yet. Missing parent
// folders are created.
func (f *FS) Create(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("vault: mkdir: %w", err)
	}
	file, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("vault: create %s: %w", path, apperr.ErrAlreadyExists)
		}
		return fmt.Errorf("vault: create %s: %w", path, err)
	}
	if _, err := file.Write(content); err != nil {
		_ = file.Close()
		return fmt.Errorf("vault: write %s: %w", path, err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return fmt.Errorf("vault: fsync: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("vault: close %s: %w", path, err)
	}
	return nil
}

// Write atomically writes content: tmp file → fsync → rename.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	return writeAtomic(abs, content, nil)
}

// WriteIf is Write guarded by version, the checksum of the content the
// caller read. The file is re-read after the temp file is synced and the
// rename is skipped with apperr.ErrConflict when it no longer matches.
func (f *FS) WriteIf(path string, content []byte, version string) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	return writeAtomic(abs, content, func() error {
		current, err := os.ReadFile(abs)
		if err != nil {
			return fmt.Errorf("vault: reread %s: %w", path, err)
		}
		if !checksum.Matches(current, version) {
			return fmt.Errorf("vault: %s changed since read: %w", path, apperr.ErrConflict)
		}
		return nil
	})
}

// IsFolder reports whether path names an existing folder in the vault.
func (f *FS) IsFolder(path string) bool {
	abs, err := f.safePath(path)
	if err != nil {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && info.IsDir()
}

// Folders walks the vault and returns every non-hidden folder as a
// slash-separated vault path. The root is reported as RootFolder.
func (f *FS) Folders() ([]string, error) {
	out := []string{RootFolder}
	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() || p == f.root {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		rel, err := filepath.Rel(f.root, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("vault: list folders: %w", err)
	}
	sort.Strings(out[1:])
	return out, nil
}

// writeAtomic replaces abs with content via a synced temp file in the same
// directory. A non-nil guard runs right before the rename and aborts it.
func writeAtomic(abs string, content []byte, guard func() error) error {
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("vault: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, TempPrefix+"*")
	if err != nil {
		return fmt.Errorf("vault: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("vault: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("vault: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("vault: close temp: %w", err)
	}
	if guard != nil {
		if err := guard(); err != nil {
			return err
		}
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("vault: rename: %w", err)
	}
	success = true
	return nil
}

// WriteFileAtomic is writeAtomic for paths outside any vault, such as the
// settings data file.
func WriteFileAtomic(path string, content []byte) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("vault: resolve path: %w", err)
	}
	return writeAtomic(abs, content, nil)
}
