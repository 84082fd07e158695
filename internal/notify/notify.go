// Package notify delivers transient user notices.
package notify

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/fatih/color"
)

// Notifier shows a short message to the user.
type Notifier interface {
	Notify(ctx context.Context, text string)
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, text string)

// Notify calls f.
func (f Func) Notify(ctx context.Context, text string) { f(ctx, text) }

// Console writes notices to the structured operator log.
type Console struct {
	logger *slog.Logger
}

// NewConsole returns a Console notifier logging through logger.
func NewConsole(logger *slog.Logger) *Console {
	return &Console{logger: logger}
}

// Notify logs text at info level.
func (c *Console) Notify(ctx context.Context, text string) {
	c.logger.InfoContext(ctx, "notice", slog.String("text", text))
}

// Terminal prints notices as coloured lines, one per notice.
type Terminal struct {
	mu sync.Mutex
	w  io.Writer
	c  *color.Color
}

// NewTerminal returns a Terminal notifier writing to w.
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w, c: color.New(color.FgCyan, color.Bold)}
}

// Notify writes text followed by a newline.
func (t *Terminal) Notify(_ context.Context, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = t.c.Fprintln(t.w, text)
}

// Multi fans a notice out to every notifier in order.
type Multi []Notifier

// Notify forwards text to each notifier.
func (m Multi) Notify(ctx context.Context, text string) {
	for _, n := range m {
		n.Notify(ctx, text)
	}
}
