// Package notewatch owns the live settings and ties the settings store, the
// event router and the log writer together.
package notewatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/notewatch/internal/apperr"
	"github.com/starford/notewatch/internal/format"
	"github.com/starford/notewatch/internal/logwriter"
	"github.com/starford/notewatch/internal/models"
	"github.com/starford/notewatch/internal/notify"
	"github.com/starford/notewatch/internal/parser"
	"github.com/starford/notewatch/internal/router"
	"github.com/starford/notewatch/internal/settings"
	"github.com/starford/notewatch/internal/source"
	"github.com/starford/notewatch/internal/vault"
)

// UnloadNotice is shown when the controller stops.
const UnloadNotice = "Note Watch unloaded."

// Deps are the collaborators a Controller needs.
type Deps struct {
	Store     settings.Store
	Vault     vault.Provider
	Source    source.Source
	Formatter format.Formatter
	Notifier  notify.Notifier
	Logger    *slog.Logger
}

// Controller holds the single live Settings value. Every change is persisted
// and re-applies the router subscriptions before it returns.
type Controller struct {
	store    settings.Store
	vault    vault.Provider
	notifier notify.Notifier
	logger   *slog.Logger
	writer   *logwriter.Writer
	router   *router.Router

	mu      sync.RWMutex
	current settings.Settings
}

// New builds a Controller holding the default settings. Call Start to load
// the persisted ones and subscribe.
func New(d Deps) *Controller {
	c := &Controller{
		store:    d.Store,
		vault:    d.Vault,
		notifier: d.Notifier,
		logger:   d.Logger,
		current:  settings.Defaults(),
	}
	c.writer = logwriter.New(d.Vault, c.LogPath, d.Notifier, d.Logger)
	c.router = router.New(d.Source, d.Formatter, d.Notifier, c.writer, d.Logger)
	return c
}

// Start loads the persisted settings and subscribes accordingly.
func (c *Controller) Start(ctx context.Context) settings.Settings {
	s := settings.Load(ctx, c.store, c.logger)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = s
	c.router.Activate(s)
	c.logger.Info("notewatch: started",
		slog.Any("listening", c.router.Listening()),
		slog.Bool("log_events", s.LogEvents),
		slog.String("log_path", s.LogPath()))
	return s
}

// Stop detaches every handler.
func (c *Controller) Stop(ctx context.Context) {
	c.router.Deactivate()
	c.logger.Info("notewatch: stopped")
	c.notifier.Notify(ctx, UnloadNotice)
}

// Settings returns a copy of the live settings.
func (c *Controller) Settings() settings.Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// LogPath returns the vault path of the log document for the live settings.
func (c *Controller) LogPath() string {
	return c.Settings().LogPath()
}

// Owns reports whether ev was caused by the controller's own log writes.
// Such events are never announced.
func (c *Controller) Owns(ev models.Event) bool {
	return c.writer.Owns(ev)
}

// Listening returns the event kinds currently subscribed.
func (c *Controller) Listening() []models.Kind {
	return c.router.Listening()
}

// Save persists s and re-subscribes. When persisting fails the live
// settings are left unchanged.
func (c *Controller) Save(ctx context.Context, s settings.Settings) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked(ctx, s)
}

func (c *Controller) saveLocked(ctx context.Context, s settings.Settings) error {
	if err := c.store.Save(ctx, s.Record()); err != nil {
		return fmt.Errorf("notewatch: save settings: %w", err)
	}
	c.current = s
	c.router.Activate(s)
	c.logger.Debug("notewatch: settings saved", slog.Any("listening", c.router.Listening()))
	return nil
}

// Update applies fn to a copy of the live settings and saves the result.
// An error from fn aborts the update.
func (c *Controller) Update(ctx context.Context, fn func(*settings.Settings) error) (settings.Settings, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.current
	if err := fn(&next); err != nil {
		return c.current, err
	}
	if err := c.saveLocked(ctx, next); err != nil {
		return c.current, err
	}
	return next, nil
}

// Patch overlays a partial record on the live settings and saves it.
func (c *Controller) Patch(ctx context.Context, r settings.Record) (settings.Settings, error) {
	return c.Update(ctx, func(s *settings.Settings) error {
		return s.Apply(r)
	})
}

// SetLogDir points the log document at an existing vault folder.
func (c *Controller) SetLogDir(ctx context.Context, dir string) (settings.Settings, error) {
	dir = vault.NormalizePath(dir)
	if !c.vault.IsFolder(dir) {
		return c.Settings(), fmt.Errorf("notewatch: folder %q: %w", dir, apperr.ErrNotFound)
	}
	s, err := c.Update(ctx, func(s *settings.Settings) error {
		s.LogDir = dir
		return nil
	})
	if err != nil {
		return s, err
	}
	c.notifier.Notify(ctx, "Log directory set to: "+dir)
	return s, nil
}

// Folders lists vault folders for the log folder picker.
func (c *Controller) Folders(query string, limit int) ([]string, error) {
	return vault.FindFolders(c.vault, query, limit)
}

// ReadLog returns the parsed log document.
func (c *Controller) ReadLog() (*parser.Document, error) {
	return c.writer.Read()
}
