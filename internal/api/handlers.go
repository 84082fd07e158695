package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/starford/notewatch/internal/apperr"
	"github.com/starford/notewatch/internal/settings"
)

// maxBodyBytes bounds settings request bodies.
const maxBodyBytes = 64 << 10

// Handler holds API route handlers.
type Handler struct {
	svc Service
}

// NewHandler creates a new Handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// writeError maps domain errors to HTTP responses.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrInvalidSetting):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("conflict"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func decodeRecord(w http.ResponseWriter, r *http.Request) (settings.Record, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var rec settings.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil || rec == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return nil, false
	}
	return rec, true
}

// GetSettings handles GET /api/settings.
//
//	@Summary		Get the current settings
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	settings.Settings
//	@Security		BearerAuth
//	@Router			/settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Settings())
}

// PutSettings handles PUT /api/settings. Keys missing from the body take
// their default value.
//
//	@Summary		Replace the settings
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		settings.Settings	true	"Full settings record"
//	@Success		200		{object}	settings.Settings
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings [put]
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	rec, ok := decodeRecord(w, r)
	if !ok {
		return
	}
	s := settings.Defaults()
	if err := s.Apply(rec); err != nil {
		writeError(w, "put settings", err)
		return
	}
	if err := h.svc.Save(r.Context(), s); err != nil {
		writeError(w, "put settings", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// PatchSettings handles PATCH /api/settings.
//
//	@Summary		Change some settings
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		object	true	"Partial settings record"
//	@Success		200		{object}	settings.Settings
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings [patch]
func (h *Handler) PatchSettings(w http.ResponseWriter, r *http.Request) {
	rec, ok := decodeRecord(w, r)
	if !ok {
		return
	}
	s, err := h.svc.Patch(r.Context(), rec)
	if err != nil {
		writeError(w, "patch settings", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// SetLogDir handles PUT /api/settings/log-dir.
//
//	@Summary		Choose the folder the log document lives in
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		LogDirRequest	true	"Vault folder"
//	@Success		200		{object}	settings.Settings
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings/log-dir [put]
func (h *Handler) SetLogDir(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req LogDirRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	s, err := h.svc.SetLogDir(r.Context(), req.Path)
	if err != nil {
		writeError(w, "set log dir", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// ListFolders handles GET /api/folders.
//
//	@Summary		List vault folders for the log folder picker
//	@Tags			folders
//	@Produce		json
//	@Param			q		query		string	false	"Fuzzy filter"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	FolderListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/folders [get]
func (h *Handler) ListFolders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fq := FolderQuery{Q: q.Get("q")}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("limit must be an integer"))
			return
		}
		fq.Limit = n
	}
	if err := fq.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	folders, err := h.svc.Folders(fq.Q, fq.Limit)
	if err != nil {
		writeError(w, "list folders", err)
		return
	}
	if folders == nil {
		folders = []string{}
	}
	writeJSON(w, http.StatusOK, FolderListResponse{Folders: folders})
}

// GetLog handles GET /api/log.
//
//	@Summary		Read the log document
//	@Tags			log
//	@Produce		json
//	@Success		200	{object}	LogResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/log [get]
func (h *Handler) GetLog(w http.ResponseWriter, _ *http.Request) {
	doc, err := h.svc.ReadLog()
	if err != nil {
		writeError(w, "read log", err)
		return
	}
	entries := doc.Entries
	if entries == nil {
		entries = []string{}
	}
	writeJSON(w, http.StatusOK, LogResponse{
		Path:     h.svc.LogPath(),
		Metadata: doc.Metadata,
		Entries:  entries,
	})
}

// Status handles GET /api/status.
//
//	@Summary		Report subscribed event kinds and the log location
//	@Tags			status
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Security		BearerAuth
//	@Router			/status [get]
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Listening: h.svc.Listening(),
		LogEvents: h.svc.Settings().LogEvents,
		LogPath:   h.svc.LogPath(),
	})
}
