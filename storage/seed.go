package storage

import (
	"context"

	"taskflow/domain"
)

// SeedDemoData inserts a small demo dataset. It is a no-op unless the store
// holds no projects, people, and tasks.
func SeedDemoData(ctx context.Context, s Store) error {
	projects, err := s.ListProjects(ctx)
	if err != nil {
		return err
	}
	people, err := s.ListPeople(ctx)
	if err != nil {
		return err
	}
	views, err := s.FetchTasks(ctx, domain.TaskFilter{})
	if err != nil {
		return err
	}
	if len(projects) > 0 || len(people) > 0 || len(views) > 0 {
		return nil
	}

	projectInputs := []domain.CreateProjectInput{
		{Name: "Development", Description: "Software development tasks", Color: "#27ae60"},
		{Name: "Design", Description: "Design and UX/UI tasks", Color: "#e74c3c"},
		{Name: "Meetings", Description: "Meetings and planning", Color: "#f39c12"},
		{Name: "Personal", Description: "Personal and administrative tasks", Color: "#3498db"},
	}
	projectIDs := make([]string, 0, len(projectInputs))
	for _, in := range projectInputs {
		p, err := s.CreateProject(ctx, in)
		if err != nil {
			return err
		}
		projectIDs = append(projectIDs, p.ID)
	}

	personInputs := []domain.CreatePersonInput{
		{Name: "Alice Moreau", Email: "alice.moreau@example.com"},
		{Name: "Bruno Costa", Email: "bruno.costa@example.com"},
		{Name: "Carla Jensen", Email: "carla.jensen@example.com"},
		{Name: "Daniel Reyes", Email: "daniel.reyes@example.com"},
	}
	personIDs := make([]string, 0, len(personInputs))
	for _, in := range personInputs {
		p, err := s.CreatePerson(ctx, in)
		if err != nil {
			return err
		}
		personIDs = append(personIDs, p.ID)
	}

	taskInputs := []domain.CreateTaskInput{
		{
			Title:       "Implement the authentication flow",
			Description: "Login and account registration",
			Priority:    domain.PriorityHigh,
			ProjectID:   &projectIDs[0],
			AssignedTo:  &personIDs[0],
			Assignees:   []string{personIDs[0], personIDs[1]},
		},
		{
			Title:       "Design the dashboard",
			Description: "Main interface layout",
			Priority:    domain.PriorityMedium,
			ProjectID:   &projectIDs[1],
			AssignedTo:  &personIDs[1],
		},
		{
			Title:       "Weekly planning meeting",
			Description: "Goals and tasks for the week",
			Priority:    domain.PriorityLow,
			ProjectID:   &projectIDs[2],
			AssignedTo:  &personIDs[2],
		},
		{
			Title:       "Update the documentation",
			Description: "Bring the project docs up to date",
			Priority:    domain.PriorityMedium,
			ProjectID:   &projectIDs[0],
			AssignedTo:  &personIDs[3],
		},
	}
	for _, in := range taskInputs {
		if _, err := s.CreateTask(ctx, in); err != nil {
			return err
		}
	}
	return nil
}
