package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notewatch/internal/models"
)

// maxFolderLimit caps GET /folders?limit=.
const maxFolderLimit = 1000

// LogDirRequest is the request body for choosing the log folder.
type LogDirRequest struct {
	Path string `json:"path" example:"Logs/NoteWatch" validate:"required"`
}

// Validate validates the request.
func (r LogDirRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required),
	)
}

// FolderQuery holds the folder picker query parameters.
type FolderQuery struct {
	Q     string
	Limit int
}

// Validate validates the query.
func (q FolderQuery) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Limit, validation.Min(0), validation.Max(maxFolderLimit)),
	)
}

// FolderListResponse wraps the folder picker results.
type FolderListResponse struct {
	Folders []string `json:"folders" validate:"required"`
}

// LogResponse is the parsed log document.
type LogResponse struct {
	Path     string         `json:"path" example:"NoteWatchPlugin/note-watch.md" validate:"required"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Entries  []string       `json:"entries" validate:"required"`
}

// StatusResponse reports what the watcher is currently doing.
type StatusResponse struct {
	Listening []models.Kind `json:"listening" validate:"required"`
	LogEvents bool          `json:"logEvents"`
	LogPath   string        `json:"logPath" example:"NoteWatchPlugin/note-watch.md" validate:"required"`
}
