package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Settings panel.
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.PutSettings)
	r.Patch("/settings", h.PatchSettings)
	r.Put("/settings/log-dir", h.SetLogDir)

	// Folder picker.
	r.Get("/folders", h.ListFolders)

	r.Get("/log", h.GetLog)
	r.Get("/status", h.Status)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
