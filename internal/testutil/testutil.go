// Package testutil provides shared test helpers for vaults, loggers and notices.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/starford/notewatch/internal/vault"
)

// TestVault creates a temporary vault directory with a vault.FS over it.
// Each name in folders is created as a directory inside the vault.
func TestVault(t *testing.T, folders ...string) (string, *vault.FS) {
	t.Helper()
	vaultDir := t.TempDir()
	for _, f := range folders {
		if err := os.MkdirAll(filepath.Join(vaultDir, filepath.FromSlash(f)), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	fs, err := vault.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, fs
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// Notices records every notice it is given.
type Notices struct {
	mu    sync.Mutex
	texts []string
}

// Notify records text.
func (n *Notices) Notify(_ context.Context, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.texts = append(n.texts, text)
}

// Texts returns a copy of the recorded notices.
func (n *Notices) Texts() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.texts...)
}

// Reset drops the recorded notices.
func (n *Notices) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.texts = nil
}
