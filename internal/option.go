package internal

import (
	"log/slog"

	"github.com/starford/notewatch/internal/notify"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	logger    *slog.Logger
	notifiers []notify.Notifier
	version   string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogger replaces the default JSON logger on stdout.
func WithLogger(logger *slog.Logger) Option {
	return func(a *application) {
		a.logger = logger
	}
}

// WithNotifier adds a notice channel next to the configured ones.
func WithNotifier(n notify.Notifier) Option {
	return func(a *application) {
		a.notifiers = append(a.notifiers, n)
	}
}

// WithVersion sets the version reported to MCP clients.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}
