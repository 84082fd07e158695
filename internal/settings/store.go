package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Store persists the settings record.
type Store interface {
	// Load returns the persisted record, or nil when nothing was saved yet.
	Load(ctx context.Context) (Record, error)
	// Save replaces the persisted record.
	Save(ctx context.Context, r Record) error
	Close() error
}

// Load reads settings from store and overlays them on the defaults. It never
// fails: store errors and mistyped values are logged and the defaults win.
func Load(ctx context.Context, store Store, logger *slog.Logger) Settings {
	r, err := store.Load(ctx)
	if err != nil {
		logger.Warn("settings: load failed, using defaults", slog.String("error", err.Error()))
		return Defaults()
	}
	s, problems := FromRecord(r)
	for _, p := range problems {
		logger.Warn("settings: ignoring persisted value", slog.String("error", p.Error()))
	}
	return s
}

// Memory is an in-process Store, used when persistence is not wanted.
type Memory struct {
	mu  sync.Mutex
	rec Record
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Load returns a copy of the last saved record.
func (m *Memory) Load(_ context.Context) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rec == nil {
		return nil, nil
	}
	out := make(Record, len(m.rec))
	for k, v := range m.rec {
		out[k] = v
	}
	return out, nil
}

// Save stores a copy of r.
func (m *Memory) Save(_ context.Context, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = make(Record, len(r))
	for k, v := range r {
		m.rec[k] = v
	}
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

// encodeValue and decodeValue move single setting values through the
// string-typed columns and hash fields of the SQLite and Redis stores.
func encodeValue(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("settings: encode value: %w", err)
	}
	return string(b), nil
}

func decodeValue(raw string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("settings: decode value: %w", err)
	}
	return v, nil
}
