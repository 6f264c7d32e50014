package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/checkmark/internal/taskservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// events may be nil.
func NewRouter(svc *taskservice.Service, v *taskservice.View, events Publisher, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, v, events)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Task view and edits.
	r.Get("/tasks", h.ListTasks)
	r.Post("/tasks/refresh", h.Refresh)
	r.Post("/tasks/toggle", h.ToggleTask)
	r.Post("/tasks/date", h.ChangeDate)

	// Suggestions.
	r.Get("/categories", h.Categories)
	r.Get("/folders", h.Folders)

	// Global exclusions.
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.PutSettings)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
