package storage

import (
	"context"
	"sync/atomic"
	"time"

	"taskflow/domain"
)

// Store is the single persistence contract for the task core. Every adapter
// must satisfy the same referential and transactional guarantees regardless
// of backing engine: cascades are issued by the deletion operations
// themselves, and CreateTask commits the task row and its ledger rows as one
// atomic unit of work.
type Store interface {
	CreateProject(ctx context.Context, in domain.CreateProjectInput) (domain.Project, error)
	GetProject(ctx context.Context, id string) (domain.Project, error)
	// ListProjects returns projects ordered by created_at descending.
	ListProjects(ctx context.Context) ([]domain.Project, error)
	// DeleteProject nulls task.project_id on every referencing task.
	DeleteProject(ctx context.Context, id string) error

	CreatePerson(ctx context.Context, in domain.CreatePersonInput) (domain.Person, error)
	GetPerson(ctx context.Context, id string) (domain.Person, error)
	// ListPeople returns people ordered by name ascending.
	ListPeople(ctx context.Context) ([]domain.Person, error)
	// DeletePerson removes the person's ledger rows and nulls
	// task.assigned_to on every referencing task.
	DeletePerson(ctx context.Context, id string) error

	CreateTask(ctx context.Context, in domain.CreateTaskInput) (domain.Task, error)
	GetTask(ctx context.Context, id string) (domain.Task, error)
	// UpdateTask merges only the fields present in the patch and always
	// bumps updated_at strictly above its previous value.
	UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error)
	// DeleteTask removes the task and all its ledger rows, returning the
	// deleted record.
	DeleteTask(ctx context.Context, id string) (domain.Task, error)

	// AddAssignee is idempotent: an already-present pair is a no-op.
	AddAssignee(ctx context.Context, taskID, personID string) error
	// RemoveAssignee is idempotent: a missing pair is not an error.
	RemoveAssignee(ctx context.Context, taskID, personID string) error
	// ListAssignees returns the linked people ordered by person id
	// ascending.
	ListAssignees(ctx context.Context, taskID string) ([]domain.Person, error)

	// FetchTasks builds the read model, ordered by created_at descending
	// with id descending as the tiebreak. Enrichment is resolved from the
	// current project/person records at read time.
	FetchTasks(ctx context.Context, filter domain.TaskFilter) ([]domain.TaskView, error)
}

var lastStamp int64

// nextTimestamp returns a wall-clock time strictly greater than any value it
// previously returned, so created_at/updated_at keep moving forward even when
// the clock stalls or runs backwards.
func nextTimestamp() time.Time {
	for {
		now := time.Now().UTC().UnixNano()
		last := atomic.LoadInt64(&lastStamp)
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&lastStamp, last, now) {
			return time.Unix(0, now).UTC()
		}
	}
}
