package source

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/notewatch/internal/models"
)

// DefaultRenameWindow is how long a rename waits for the matching create
// before it is reported as a deletion.
const DefaultRenameWindow = 100 * time.Millisecond

// Watcher turns fsnotify events under a vault root into vault events and
// emits them from a single goroutine, in the order they were observed.
//
// fsnotify reports a move as Rename on the old path followed by Create on
// the new one. The two are paired into one rename event; a Rename with no
// Create inside the rename window (moved out of the vault) becomes a delete.
type Watcher struct {
	root         string
	out          Emitter
	logger       *slog.Logger
	renameWindow time.Duration
	now          func() time.Time

	pending    string // vault path of an unpaired rename
	pendingAt  time.Time
	pendingSeq uint64
}

// NewWatcher returns a Watcher for the vault at root that emits into out.
func NewWatcher(root string, out Emitter, logger *slog.Logger, renameWindow time.Duration) *Watcher {
	if renameWindow <= 0 {
		renameWindow = DefaultRenameWindow
	}
	return &Watcher{
		root:         root,
		out:          out,
		logger:       logger,
		renameWindow: renameWindow,
		now:          time.Now,
	}
}

// Run watches the vault until ctx is cancelled. New directories created at
// runtime are added to the watch list.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := addDirsRecursive(fw, w.root); err != nil {
		return err
	}

	w.logger.Info("watcher: started", slog.String("root", w.root))

	var renameTimer *time.Timer
	var renameCh <-chan time.Time
	stopRenameTimer := func() {
		if renameTimer != nil && !renameTimer.Stop() {
			select {
			case <-renameTimer.C:
			default:
			}
		}
	}
	armRenameTimer := func() {
		if renameTimer == nil {
			renameTimer = time.NewTimer(w.renameWindow)
			renameCh = renameTimer.C
			return
		}
		stopRenameTimer()
		renameTimer.Reset(w.renameWindow)
	}

	for {
		select {
		case <-ctx.Done():
			stopRenameTimer()
			w.logger.Info("watcher: stopped")
			return nil

		case <-renameCh:
			w.emit(ctx, w.flushPending()...)

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}

			if ev.Has(fsnotify.Create) {
				if info, statErr := os.Lstat(ev.Name); statErr == nil && info.IsDir() && !w.ignored(ev.Name) {
					if addErr := addDirsRecursive(fw, ev.Name); addErr != nil {
						w.logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					} else {
						w.logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
					}
				}
			}
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				// Harmless when the path was not a watched directory.
				_ = fw.Remove(ev.Name)
			}

			seq := w.pendingSeq
			w.emit(ctx, w.translate(ev)...)
			switch {
			case w.pending == "":
				stopRenameTimer()
			case w.pendingSeq != seq:
				armRenameTimer()
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// translate maps one fsnotify event to zero or more vault events, updating
// the pending-rename state.
func (w *Watcher) translate(ev fsnotify.Event) []models.Event {
	if w.ignored(ev.Name) {
		return nil
	}
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return nil
	}
	rel = filepath.ToSlash(rel)
	now := w.now()

	switch {
	case ev.Has(fsnotify.Create):
		if w.pending != "" {
			old := w.pending
			w.pending = ""
			return []models.Event{{Kind: models.KindRename, Path: rel, OldPath: old, At: now}}
		}
		return []models.Event{{Kind: models.KindCreate, Path: rel, At: now}}

	case ev.Has(fsnotify.Rename):
		out := w.flushPending()
		w.pending = rel
		w.pendingAt = now
		w.pendingSeq++
		return out

	case ev.Has(fsnotify.Remove):
		out := w.flushPending()
		return append(out, models.Event{Kind: models.KindDelete, Path: rel, At: now})

	case ev.Has(fsnotify.Write):
		if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
			return w.flushPending()
		}
		out := w.flushPending()
		return append(out, models.Event{Kind: models.KindModify, Path: rel, At: now})
	}

	// Chmod only.
	return nil
}

// flushPending reports an unpaired rename as a deletion.
func (w *Watcher) flushPending() []models.Event {
	if w.pending == "" {
		return nil
	}
	ev := models.Event{Kind: models.KindDelete, Path: w.pending, At: w.pendingAt}
	w.pending = ""
	return []models.Event{ev}
}

func (w *Watcher) emit(ctx context.Context, evs ...models.Event) {
	for _, ev := range evs {
		w.logger.Debug("watcher: event",
			slog.String("kind", string(ev.Kind)),
			slog.String("path", ev.Path),
			slog.String("old_path", ev.OldPath))
		w.out.Emit(ctx, ev)
	}
}

// ignored reports whether a path lies under a hidden entry (".obsidian",
// atomic-write temp files) or is an editor swap/backup file.
func (w *Watcher) ignored(absPath string) bool {
	rel, err := filepath.Rel(w.root, absPath)
	if err != nil {
		return true
	}
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(seg, ".") && seg != "." && seg != ".." {
			return true
		}
	}
	name := filepath.Base(absPath)
	return strings.HasSuffix(name, "~") || strings.HasSuffix(name, ".swp") || strings.HasSuffix(name, ".swx")
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the
// watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
