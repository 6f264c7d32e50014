package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/checkmark/internal/models"
	"github.com/starford/checkmark/internal/pipeline"
	"github.com/starford/checkmark/internal/taskservice"
)

// TaskRef identifies a task by document and zero-based line.
type TaskRef struct {
	Path string `json:"path" example:"projects/alpha.md" validate:"required"`
	Line int    `json:"line" example:"12" validate:"required"`
}

// Validate implements validation.Validatable.
func (r TaskRef) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required),
		validation.Field(&r.Line, validation.Min(0)),
	)
}

// ChangeDateRequest is the request body for changing a task date.
type ChangeDateRequest struct {
	TaskRef
	Date string `json:"date" example:"2024-06-15" validate:"required"`
}

// Validate implements validation.Validatable.
func (r ChangeDateRequest) Validate() error {
	if err := r.TaskRef.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Date, validation.Required),
	)
}

// SettingsRequest replaces the global exclusions.
type SettingsRequest struct {
	ExcludedFolders []string `json:"excludedFolders"`
	ExcludedTags    []string `json:"excludedTags"`
}

// TaskListResponse is the filtered view plus the data needed to render it.
type TaskListResponse struct {
	Tasks      []models.Task      `json:"tasks" validate:"required"`
	Categories []string           `json:"categories" validate:"required"`
	Summary    pipeline.Summary   `json:"summary" validate:"required"`
	Scan       taskservice.Status `json:"scan" validate:"required"`
}

// SuggestionResponse wraps category or folder suggestions.
type SuggestionResponse struct {
	Items []string `json:"items" validate:"required"`
}
