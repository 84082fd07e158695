// Package logwriter maintains the vault log document: newest entries first,
// directly below any leading metadata block.
package logwriter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"

	"github.com/starford/notewatch/internal/apperr"
	"github.com/starford/notewatch/internal/checksum"
	"github.com/starford/notewatch/internal/models"
	"github.com/starford/notewatch/internal/notify"
	"github.com/starford/notewatch/internal/parser"
	"github.com/starford/notewatch/internal/vault"
)

// FailureNotice is shown once for every entry that could not be written.
const FailureNotice = "Failed to log event. Check console for details."

// Writer inserts entries into the log document. It is safe for concurrent
// use; each insertion is a serialised read-modify-write.
type Writer struct {
	store    vault.Provider
	logPath  func() string
	notifier notify.Notifier
	logger   *slog.Logger

	mu sync.Mutex

	madeMu sync.Mutex
	made   map[string]struct{} // folders created for the log, not yet announced
}

// New returns a Writer. logPath is consulted on every append so that a
// changed log folder takes effect with the next entry.
func New(store vault.Provider, logPath func() string, notifier notify.Notifier, logger *slog.Logger) *Writer {
	return &Writer{
		store:    store,
		logPath:  logPath,
		notifier: notifier,
		logger:   logger,
		made:     make(map[string]struct{}),
	}
}

// Path returns the normalized vault path of the log document.
func (w *Writer) Path() string {
	return vault.NormalizePath(w.logPath())
}

// Append inserts message into the log document, creating the document when
// it does not exist yet.
func (w *Writer) Append(ctx context.Context, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	p := w.Path()
	exists, err := w.store.Exists(p)
	if err != nil {
		return fmt.Errorf("logwriter: stat %s: %w", p, err)
	}

	if !exists {
		made := w.missingFolders(p)
		w.remember(made)
		err := w.store.Create(p, []byte(message+"\n"))
		if errors.Is(err, apperr.ErrAlreadyExists) {
			// Someone else created it first; the next entry takes the
			// rewrite path.
			w.logger.Debug("logwriter: log created concurrently", slog.String("path", p))
			return nil
		}
		if err != nil {
			w.forget(made)
			return fmt.Errorf("logwriter: create %s: %w", p, err)
		}
		return nil
	}

	data, err := w.store.Read(p)
	if err != nil {
		return fmt.Errorf("logwriter: read %s: %w", p, err)
	}
	updated := Insert(string(data), message)

	if err := w.store.WriteIf(p, []byte(updated), checksum.Sum(data)); err != nil {
		return fmt.Errorf("logwriter: rewrite %s: %w", p, err)
	}
	return nil
}

// Owns reports whether ev was caused by the writer: any of its paths is the
// log document, or it is the creation of a folder Append made for the
// document. A folder is owned for a single create event only.
func (w *Writer) Owns(ev models.Event) bool {
	logPath := w.Path()
	for _, p := range ev.Paths() {
		if vault.NormalizePath(p) == logPath {
			return true
		}
	}
	if ev.Kind != models.KindCreate {
		return false
	}

	p := vault.NormalizePath(ev.Path)
	w.madeMu.Lock()
	defer w.madeMu.Unlock()
	if _, ok := w.made[p]; ok {
		delete(w.made, p)
		return true
	}
	return false
}

// missingFolders lists the ancestors of p that do not exist yet, deepest
// first.
func (w *Writer) missingFolders(p string) []string {
	var out []string
	for dir := path.Dir(p); dir != "." && dir != "/"; dir = path.Dir(dir) {
		if w.store.IsFolder(dir) {
			break
		}
		out = append(out, dir)
	}
	return out
}

func (w *Writer) remember(folders []string) {
	w.madeMu.Lock()
	defer w.madeMu.Unlock()
	for _, f := range folders {
		w.made[f] = struct{}{}
	}
}

func (w *Writer) forget(folders []string) {
	w.madeMu.Lock()
	defer w.madeMu.Unlock()
	for _, f := range folders {
		delete(w.made, f)
	}
}

// Record appends message and absorbs any failure: the error is logged and a
// single FailureNotice is shown. It never retries.
func (w *Writer) Record(ctx context.Context, message string) {
	if err := w.Append(ctx, message); err != nil {
		w.logger.Error("logwriter: failed to log event",
			slog.String("path", w.Path()),
			slog.String("error", err.Error()))
		w.notifier.Notify(ctx, FailureNotice)
	}
}

// Read returns the parsed log document, or apperr.ErrNotFound when it has
// not been created yet.
func (w *Writer) Read() (*parser.Document, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p := w.Path()
	exists, err := w.store.Exists(p)
	if err != nil {
		return nil, fmt.Errorf("logwriter: stat %s: %w", p, err)
	}
	if !exists {
		return nil, apperr.ErrNotFound
	}
	data, err := w.store.Read(p)
	if err != nil {
		return nil, fmt.Errorf("logwriter: read %s: %w", p, err)
	}
	return parser.Parse(data), nil
}

// Insert returns content with message inserted as a new line directly after
// the metadata block, or at the very top when there is none. The entry is
// followed by a blank line.
func Insert(content, message string) string {
	lines := strings.Split(content, "\n")
	n := parser.MetadataLen(lines)

	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:n]...)
	out = append(out, message+"\n")
	out = append(out, lines[n:]...)
	return strings.Join(out, "\n")
}
