// Package vault defines the document API notewatch uses against the watched
// note vault: existence checks, reads, exclusive creates and full rewrites.
package vault

// Provider is the interface for vault document operations. All paths are
// vault-relative and slash-separated.
type Provider interface {
	// Exists reports whether a regular file exists at path.
	Exists(path string) (bool, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Create writes content to a new file at path. It fails with
	// apperr.ErrAlreadyExists when the file is already present.
	Create(path string, content []byte) error
	// Write atomically replaces the content of the file at path.
	Write(path string, content []byte) error
	// WriteIf is Write that fails with apperr.ErrConflict, leaving the file
	// untouched, unless its current checksum still equals version.
	WriteIf(path string, content []byte, version string) error
	// IsFolder reports whether path names a folder inside the vault.
	IsFolder(path string) bool
	// Folders lists every non-hidden folder in the vault, root first.
	Folders() ([]string, error)
}

// Verify *FS satisfies Provider at compile time.
var _ Provider = (*FS)(nil)
