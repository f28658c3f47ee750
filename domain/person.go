package domain

import (
	"strings"
	"time"
)

// Person can be the primary assignee of a task and appear on any number of
// assignment ledgers. The email, when present, is unique across people.
type Person struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreatePersonInput carries the accepted fields for creating a person.
type CreatePersonInput struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

func (in CreatePersonInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ValidationError{Field: "name", Reason: "must not be empty"}
	}
	return nil
}
