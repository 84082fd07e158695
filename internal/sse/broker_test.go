package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/notewatch/internal/models"
	"github.com/starford/notewatch/internal/notify"
	"github.com/starford/notewatch/internal/source"
)

var (
	_ notify.Notifier = (*Broker)(nil)
	_ source.Emitter  = (*Broker)(nil)
)

func receive(t *testing.T, ch chan []byte) string {
	t.Helper()
	select {
	case msg := <-ch:
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
	return ""
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(0)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestNotify(t *testing.T) {
	b := NewBroker(0)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Notify(context.Background(), "New file added: a.md")

	want := "event: notice\ndata: {\"text\":\"New file added: a.md\"}\n\n"
	if got := receive(t, ch); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEmit(t *testing.T) {
	b := NewBroker(0)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Emit(context.Background(), models.Event{Kind: models.KindRename, Path: "b.md", OldPath: "a.md"})

	s := receive(t, ch)
	if !strings.HasPrefix(s, "event: vault.rename\n") {
		t.Errorf("missing event type in %q", s)
	}
	for _, want := range []string{`"kind":"rename"`, `"path":"b.md"`, `"old_path":"a.md"`, `"at":`} {
		if !strings.Contains(s, want) {
			t.Errorf("missing %s in %q", want, s)
		}
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(0)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Notify(context.Background(), "Log directory set to: Logs")
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: notice") || !strings.Contains(body, "Log directory set to: Logs") {
		t.Errorf("handler output missing notice: %q", body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(4)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for i := 0; i < 10; i++ {
		b.Notify(context.Background(), "x")
	}
	// The loop must stay responsive with a full client buffer.
	if b.ClientCount() != 1 {
		t.Fatal("broker stalled")
	}
	if n := len(ch); n > 4 {
		t.Errorf("queued %d messages, want at most 4", n)
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(0)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Safe no-ops after close.
	b.Notify(context.Background(), "late")
	b.Emit(context.Background(), models.Event{Kind: models.KindCreate, Path: "x.md"})
	b.Close()
}
