// Package sse implements a Server-Sent Events broker that streams notices and
// vault events to connected clients.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/starford/notewatch/internal/models"
)

// Event types written on the stream.
const (
	TypeNotice = "notice"
	// TypeVaultPrefix is followed by the event kind, e.g. "vault.create".
	TypeVaultPrefix = "vault."
)

// DefaultClientBuffer is the number of messages queued per client before
// further messages to it are dropped.
const DefaultClientBuffer = 64

// Event represents an SSE event to broadcast. Type names the stream event:
// TypeNotice carries a NoticeData, and TypeVaultPrefix plus a kind (for
// example "vault.rename") carries the models.Event JSON with kind, path,
// old_path and at.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// NoticeData is the payload of a notice event.
type NoticeData struct {
	Text string `json:"text"`
}

// Broker manages SSE client connections and broadcasts events.
//
// A single internal loop goroutine owns the client set. Public methods talk
// to it through channels, so no mutexes are required.
type Broker struct {
	clientBuffer int

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker whose clients each queue up to clientBuffer
// messages. Non-positive values use DefaultClientBuffer.
func NewBroker(clientBuffer int) *Broker {
	if clientBuffer <= 0 {
		clientBuffer = DefaultClientBuffer
	}

	b := &Broker{
		clientBuffer:  clientBuffer,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))

		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Slow client; drop rather than stall the loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, b.clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// Notify publishes a notice event. It makes the broker a notify.Notifier.
func (b *Broker) Notify(_ context.Context, text string) {
	b.Publish(Event{Type: TypeNotice, Data: NoticeData{Text: text}})
}

// Emit publishes a raw vault event. It makes the broker a source.Emitter.
func (b *Broker) Emit(_ context.Context, ev models.Event) {
	b.Publish(Event{Type: TypeVaultPrefix + string(ev.Kind), Data: ev})
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
