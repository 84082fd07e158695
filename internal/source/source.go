// Package source delivers vault file-lifecycle events to subscribed
// handlers.
package source

import (
	"context"
	"sync"

	"github.com/starford/notewatch/internal/models"
)

// Handler receives one event. Handlers run on the emitting goroutine and
// must finish before the next event is delivered.
type Handler func(ctx context.Context, ev models.Event)

// ListenerID identifies an attached handler.
type ListenerID uint64

// Source is a subscribable stream of vault events.
type Source interface {
	// On attaches h for events of kind.
	On(kind models.Kind, h Handler) ListenerID
	// Off detaches a handler. Unknown ids are ignored.
	Off(kind models.Kind, id ListenerID)
}

// Emitter accepts events produced by a watcher.
type Emitter interface {
	Emit(ctx context.Context, ev models.Event)
}

type listener struct {
	id ListenerID
	h  Handler
}

// Bus is an in-process Source. Events emitted on it are dispatched
// synchronously, in attach order, to the handlers of the event's kind.
type Bus struct {
	mu        sync.RWMutex
	next      ListenerID
	listeners map[models.Kind][]listener
}

var (
	_ Source  = (*Bus)(nil)
	_ Emitter = (*Bus)(nil)
)

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[models.Kind][]listener)}
}

// On attaches h for kind.
func (b *Bus) On(kind models.Kind, h Handler) ListenerID {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	b.listeners[kind] = append(b.listeners[kind], listener{id: b.next, h: h})
	return b.next
}

// Off detaches the handler with id from kind.
func (b *Bus) Off(kind models.Kind, id ListenerID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ls := b.listeners[kind]
	for i, l := range ls {
		if l.id == id {
			b.listeners[kind] = append(ls[:i:i], ls[i+1:]...)
			return
		}
	}
}

// Count returns how many handlers are attached for kind.
func (b *Bus) Count(kind models.Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[kind])
}

// Emit delivers ev to the handlers attached for its kind. The handler list
// is snapshotted first, so handlers may attach or detach freely.
func (b *Bus) Emit(ctx context.Context, ev models.Event) {
	b.mu.RLock()
	ls := append([]listener(nil), b.listeners[ev.Kind]...)
	b.mu.RUnlock()

	for _, l := range ls {
		l.h(ctx, ev)
	}
}

// Tee fans every event out to each Emitter in order.
type Tee []Emitter

// Emit forwards ev to every emitter.
func (t Tee) Emit(ctx context.Context, ev models.Event) {
	for _, e := range t {
		e.Emit(ctx, ev)
	}
}

// Filter forwards events to Next unless Drop reports true for them.
type Filter struct {
	Next Emitter
	Drop func(models.Event) bool
}

// Emit forwards ev to f.Next when f.Drop lets it through.
func (f Filter) Emit(ctx context.Context, ev models.Event) {
	if f.Drop != nil && f.Drop(ev) {
		return
	}
	f.Next.Emit(ctx, ev)
}
