package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starford/checkmark/internal/apperr"
	"github.com/starford/checkmark/internal/models"
	"github.com/starford/checkmark/internal/pipeline"
	"github.com/starford/checkmark/internal/settings"
	"github.com/starford/checkmark/internal/taskservice"
	"github.com/starford/checkmark/internal/view"
)

// Publisher receives change notifications for connected clients.
type Publisher interface {
	PublishScan(status any, categories []string)
	PublishTask(t models.Task)
}

// directives are the view block keys accepted as /tasks query parameters.
var directives = []string{"status", "sort", "search", "exclude-tags", "exclude-folders", "date", "from", "to"}

// Handler holds API route handlers.
type Handler struct {
	svc    *taskservice.Service
	view   *taskservice.View
	events Publisher
}

// NewHandler creates a new Handler.
func NewHandler(svc *taskservice.Service, v *taskservice.View, events Publisher) *Handler {
	return &Handler{svc: svc, view: v, events: events}
}

// ListTasks handles GET /api/tasks.
//
//	@Summary		Filtered and ordered task view
//	@Tags			tasks
//	@Produce		json
//	@Param			status		query		string	false	"Completion filter"	Enums(all, done, undone)
//	@Param			sort		query		string	false	"Ordering"	Enums(date, file)
//	@Param			search		query		string	false	"Substring of the task text"
//	@Param			category	query		[]string	false	"Category filter, repeatable"
//	@Param			date		query		string	false	"Relative range, e.g. next 2 weeks"
//	@Param			from		query		string	false	"Inclusive lower date bound"
//	@Param			to			query		string	false	"Inclusive upper date bound"
//	@Success		200			{object}	TaskListResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks [get]
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	b, err := blockFromQuery(h.view.Block(), r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	ts := h.view.TasksFor(b)
	writeJSON(w, http.StatusOK, h.listResponse(ts))
}

func (h *Handler) listResponse(ts []models.Task) TaskListResponse {
	return TaskListResponse{
		Tasks:      ts,
		Categories: h.view.Categories(),
		Summary:    pipeline.Summarize(ts),
		Scan:       h.view.Status(),
	}
}

// blockFromQuery applies query parameters on top of base.
func blockFromQuery(base view.Block, r *http.Request) (view.Block, error) {
	q := r.URL.Query()
	b := base.Clone()
	for _, key := range directives {
		if !q.Has(key) {
			continue
		}
		if !b.Set(key, q.Get(key)) {
			return b, errors.New("invalid value for " + key)
		}
	}
	if cats, ok := q["category"]; ok {
		b.Categories = nil
		for _, c := range cats {
			b.AddCategory(c)
		}
	}
	return b, nil
}

// Refresh handles POST /api/tasks/refresh.
//
//	@Summary		Rescan the vault
//	@Tags			tasks
//	@Produce		json
//	@Success		200	{object}	taskservice.Status
//	@Security		BearerAuth
//	@Router			/tasks/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	st, err := h.view.Refresh(r.Context())
	if err != nil {
		slog.Error("refresh failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if h.events != nil {
		h.events.PublishScan(st, h.view.Categories())
	}
	writeJSON(w, http.StatusOK, st)
}

// ToggleTask handles POST /api/tasks/toggle.
//
//	@Summary		Flip the done state of a task
//	@Tags			tasks
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TaskRef	true	"Task to toggle"
//	@Success		200		{object}	models.Task
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks/toggle [post]
func (h *Handler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	var req TaskRef
	if !decode(w, r, &req) {
		return
	}
	t, err := h.view.ToggleStatus(r.Context(), req.Path, req.Line)
	if err != nil {
		writeError(w, "toggle task failed", req.Path, err)
		return
	}
	if h.events != nil {
		h.events.PublishTask(t)
	}
	writeJSON(w, http.StatusOK, t)
}

// ChangeDate handles POST /api/tasks/date.
//
//	@Summary		Replace the date of a task
//	@Tags			tasks
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ChangeDateRequest	true	"Task and new date"
//	@Success		200		{object}	models.Task
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks/date [post]
func (h *Handler) ChangeDate(w http.ResponseWriter, r *http.Request) {
	var req ChangeDateRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := h.view.ChangeDate(r.Context(), req.Path, req.Line, req.Date)
	if err != nil {
		writeError(w, "change date failed", req.Path, err)
		return
	}
	if h.events != nil {
		h.events.PublishTask(t)
	}
	writeJSON(w, http.StatusOK, t)
}

// Categories handles GET /api/categories.
//
//	@Summary		Category suggestions
//	@Tags			suggestions
//	@Produce		json
//	@Param			q	query		string	false	"Substring filter"
//	@Success		200	{object}	SuggestionResponse
//	@Security		BearerAuth
//	@Router			/categories [get]
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	items := h.svc.SuggestCategories(r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, SuggestionResponse{Items: items})
}

// Folders handles GET /api/folders.
//
//	@Summary		Folder suggestions for exclusion rules
//	@Tags			suggestions
//	@Produce		json
//	@Param			q	query		string	false	"Substring filter"
//	@Success		200	{object}	SuggestionResponse
//	@Security		BearerAuth
//	@Router			/folders [get]
func (h *Handler) Folders(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.SuggestFolders(r.URL.Query().Get("q"))
	if err != nil {
		slog.Error("list folders failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, SuggestionResponse{Items: items})
}

// GetSettings handles GET /api/settings.
//
//	@Summary		Global exclusions
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	settings.Settings
//	@Security		BearerAuth
//	@Router			/settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Settings().Get())
}

// PutSettings handles PUT /api/settings and rescans with the new rules.
//
//	@Summary		Replace global exclusions
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SettingsRequest	true	"New exclusions"
//	@Success		200		{object}	settings.Settings
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings [put]
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if !decode(w, r, &req) {
		return
	}
	saved, err := h.svc.Settings().Update(func(s *settings.Settings) {
		s.ExcludedFolders = nil
		for _, f := range req.ExcludedFolders {
			s.AddExcludedFolder(f)
		}
		s.SetExcludedTags(strings.Join(req.ExcludedTags, "\n"))
	})
	if err != nil {
		slog.Error("save settings failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	st, err := h.view.Refresh(r.Context())
	if err != nil {
		slog.Error("refresh after settings change failed", slog.String("error", err.Error()))
	} else if h.events != nil {
		h.events.PublishScan(st, h.view.Categories())
	}
	writeJSON(w, http.StatusOK, saved)
}

// decode reads a JSON body into v and validates it when v implements
// validation.Validatable. It writes a 400 and returns false on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	if vv, ok := v.(interface{ Validate() error }); ok {
		if err := vv.Validate(); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return false
		}
	}
	return true
}

func writeError(w http.ResponseWriter, msg, path string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("task not found"))
	case errors.Is(err, apperr.ErrInvalidDate):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrStaleTask):
		writeJSON(w, http.StatusConflict, errorBody("task changed on disk"))
	default:
		slog.Error(msg, slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
