package domain

import (
	"strings"
	"time"
)

// DefaultProjectColor is applied when a project is created without a color.
const DefaultProjectColor = "#3498db"

// Project groups tasks under a name and a display color.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateProjectInput carries the accepted fields for creating a project.
type CreateProjectInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

func (in CreateProjectInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ValidationError{Field: "name", Reason: "must not be empty"}
	}
	return nil
}
