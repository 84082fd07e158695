// Package router attaches notification handlers to a vault event source
// according to the current settings.
package router

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/notewatch/internal/format"
	"github.com/starford/notewatch/internal/models"
	"github.com/starford/notewatch/internal/notify"
	"github.com/starford/notewatch/internal/settings"
	"github.com/starford/notewatch/internal/source"
)

// Sink persists formatted log lines.
type Sink interface {
	// Owns reports whether ev was caused by the sink itself: it touches the
	// log document or announces a folder the sink created for it.
	Owns(ev models.Event) bool
	// Record stores message, absorbing any failure.
	Record(ctx context.Context, message string)
}

// Router is either unsubscribed (no handlers attached) or subscribed to the
// kinds enabled in the settings it was last activated with.
type Router struct {
	src       source.Source
	formatter format.Formatter
	notifier  notify.Notifier
	sink      Sink
	logger    *slog.Logger
	now       func() time.Time

	mu        sync.Mutex
	ids       map[models.Kind]source.ListenerID
	logEvents bool
}

// New returns an unsubscribed Router.
func New(src source.Source, formatter format.Formatter, notifier notify.Notifier, sink Sink, logger *slog.Logger) *Router {
	return &Router{
		src:       src,
		formatter: formatter,
		notifier:  notifier,
		sink:      sink,
		logger:    logger,
		now:       time.Now,
		ids:       make(map[models.Kind]source.ListenerID),
	}
}

// Activate detaches every handler, then attaches one for each kind s
// enables. Calling it repeatedly converges on the same listener set.
func (r *Router) Activate(s settings.Settings) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.detachLocked()
	r.logEvents = s.LogEvents
	for _, kind := range models.Kinds {
		if s.Enabled(kind) {
			r.ids[kind] = r.src.On(kind, r.handle)
		}
	}
	r.logger.Debug("router: activated", slog.Any("kinds", r.listeningLocked()))
}

// Deactivate detaches every handler.
func (r *Router) Deactivate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detachLocked()
}

// Listening returns the kinds that currently have a handler attached.
func (r *Router) Listening() []models.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listeningLocked()
}

func (r *Router) listeningLocked() []models.Kind {
	out := []models.Kind{}
	for _, kind := range models.Kinds {
		if _, ok := r.ids[kind]; ok {
			out = append(out, kind)
		}
	}
	return out
}

func (r *Router) detachLocked() {
	for _, kind := range models.Kinds {
		// Off ignores ids it does not know.
		r.src.Off(kind, r.ids[kind])
		delete(r.ids, kind)
	}
}

func (r *Router) handle(ctx context.Context, ev models.Event) {
	if r.sink.Owns(ev) {
		return
	}

	at := ev.At
	if at.IsZero() {
		at = r.now()
	}
	message := r.formatter.Format(ev, at)
	r.logger.Info(message,
		slog.String("kind", string(ev.Kind)),
		slog.String("path", ev.Path))

	r.notifier.Notify(ctx, r.formatter.Notice(ev, at))

	r.mu.Lock()
	logEvents := r.logEvents
	r.mu.Unlock()
	if logEvents {
		r.sink.Record(ctx, message)
	}
}
