package api

import (
	"context"

	"taskflow/domain"
)

// Storage abstracts persistence for handlers.
type Storage interface {
	CreateProject(ctx context.Context, in domain.CreateProjectInput) (domain.Project, error)
	ListProjects(ctx context.Context) ([]domain.Project, error)
	DeleteProject(ctx context.Context, id string) error

	CreatePerson(ctx context.Context, in domain.CreatePersonInput) (domain.Person, error)
	ListPeople(ctx context.Context) ([]domain.Person, error)
	DeletePerson(ctx context.Context, id string) error

	CreateTask(ctx context.Context, in domain.CreateTaskInput) (domain.Task, error)
	UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error)
	DeleteTask(ctx context.Context, id string) (domain.Task, error)
	FetchTasks(ctx context.Context, filter domain.TaskFilter) ([]domain.TaskView, error)
}
