package api

import (
	"context"

	"github.com/starford/notewatch/internal/models"
	"github.com/starford/notewatch/internal/notewatch"
	"github.com/starford/notewatch/internal/parser"
	"github.com/starford/notewatch/internal/settings"
)

// Service is what the handlers need from the settings controller.
type Service interface {
	Settings() settings.Settings
	Save(ctx context.Context, s settings.Settings) error
	Patch(ctx context.Context, r settings.Record) (settings.Settings, error)
	SetLogDir(ctx context.Context, dir string) (settings.Settings, error)
	Folders(query string, limit int) ([]string, error)
	ReadLog() (*parser.Document, error)
	Listening() []models.Kind
	LogPath() string
}

var _ Service = (*notewatch.Controller)(nil)
