package domain

import (
	"strings"
	"time"
)

// Priority of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Status of a task. Any status may transition to any other; there is no
// enforced workflow ordering.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// DueDateLayout is the wire format for task due dates.
const DueDateLayout = "2006-01-02"

// Task is a unit of work. ProjectID and AssignedTo are nullable references;
// the assignment ledger tracks additional people independently of AssignedTo.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Priority    Priority  `json:"priority"`
	Status      Status    `json:"status"`
	DueDate     *string   `json:"due_date"`
	ProjectID   *string   `json:"project_id"`
	AssignedTo  *string   `json:"assigned_to"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Assignment is one row of the task/person ledger. The (task, person) pair is
// unique.
type Assignment struct {
	TaskID     string    `json:"task_id"`
	PersonID   string    `json:"person_id"`
	AssignedAt time.Time `json:"assigned_at"`
}

// TaskView is the read model: a task enriched with display fields resolved at
// read time from the current project and person records. Assignees is never
// nil.
type TaskView struct {
	Task
	ProjectName  *string  `json:"project_name"`
	ProjectColor *string  `json:"project_color"`
	AssignedName *string  `json:"assigned_name"`
	Assignees    []Person `json:"assignees"`
}

// CreateTaskInput carries the accepted fields for creating a task. Assignees
// lists people to record on the ledger in the same unit of work as the task
// itself.
type CreateTaskInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	DueDate     *string  `json:"due_date"`
	ProjectID   *string  `json:"project_id"`
	AssignedTo  *string  `json:"assigned_to"`
	Assignees   []string `json:"assignees"`
}

// Validate checks required fields and applies defaults for omitted ones.
func (in *CreateTaskInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if !in.Priority.Valid() {
		return ValidationError{Field: "priority", Reason: "must be one of low, medium, high"}
	}
	if in.DueDate != nil {
		if _, err := time.Parse(DueDateLayout, *in.DueDate); err != nil {
			return ValidationError{Field: "due_date", Reason: "must be formatted as " + DueDateLayout}
		}
	}
	return nil
}

// TaskPatch is a partial update. Nil pointers mean "keep the stored value".
// The three nullable columns use Optional so an explicit null can clear them.
type TaskPatch struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Priority    *Priority        `json:"priority"`
	Status      *Status          `json:"status"`
	DueDate     Optional[string] `json:"due_date"`
	ProjectID   Optional[string] `json:"project_id"`
	AssignedTo  Optional[string] `json:"assigned_to"`
}

func (p TaskPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return ValidationError{Field: "priority", Reason: "must be one of low, medium, high"}
	}
	if p.Status != nil && !p.Status.Valid() {
		return ValidationError{Field: "status", Reason: "must be one of pending, in-progress, done"}
	}
	if p.DueDate.Set && p.DueDate.Value != nil {
		if _, err := time.Parse(DueDateLayout, *p.DueDate.Value); err != nil {
			return ValidationError{Field: "due_date", Reason: "must be formatted as " + DueDateLayout}
		}
	}
	return nil
}

// Apply merges the present fields into t, leaving the rest untouched.
// Timestamps are the repository's concern, not the patch's.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.DueDate.Set {
		t.DueDate = copyPtr(p.DueDate.Value)
	}
	if p.ProjectID.Set {
		t.ProjectID = copyPtr(p.ProjectID.Value)
	}
	if p.AssignedTo.Set {
		t.AssignedTo = copyPtr(p.AssignedTo.Value)
	}
}

func copyPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// TaskFilter narrows the task view query. Zero values mean "no constraint".
// PersonID matches either the primary assignee or ledger membership.
type TaskFilter struct {
	ProjectID string
	PersonID  string
	Status    Status
	Search    string
}

func (f TaskFilter) Empty() bool {
	return f == TaskFilter{}
}
