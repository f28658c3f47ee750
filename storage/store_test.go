package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"taskflow/domain"
)

// The contract suite runs against every adapter so the referential and
// transactional guarantees are verified once, regardless of backing engine.

func TestSQLiteStoreContract(t *testing.T) {
	testStoreContract(t, func(t *testing.T) Store {
		s, err := NewSQLite(filepath.Join(t.TempDir(), "taskflow.db"))
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestMemoryStoreContract(t *testing.T) {
	testStoreContract(t, func(t *testing.T) Store { return NewMemory() })
}

func ptr[T any](v T) *T { return &v }

func mustCreateProject(t *testing.T, s Store, name string) domain.Project {
	t.Helper()
	p, err := s.CreateProject(context.Background(), domain.CreateProjectInput{Name: name})
	if err != nil {
		t.Fatalf("create project %s: %v", name, err)
	}
	return p
}

func mustCreatePerson(t *testing.T, s Store, name, email string) domain.Person {
	t.Helper()
	p, err := s.CreatePerson(context.Background(), domain.CreatePersonInput{Name: name, Email: email})
	if err != nil {
		t.Fatalf("create person %s: %v", name, err)
	}
	return p
}

func mustCreateTask(t *testing.T, s Store, in domain.CreateTaskInput) domain.Task {
	t.Helper()
	task, err := s.CreateTask(context.Background(), in)
	if err != nil {
		t.Fatalf("create task %s: %v", in.Title, err)
	}
	return task
}

func testStoreContract(t *testing.T, newStore func(*testing.T) Store) {
	ctx := context.Background()

	t.Run("CreateTaskRoundTrip", func(t *testing.T) {
		s := newStore(t)
		created := mustCreateTask(t, s, domain.CreateTaskInput{Title: "A", Priority: domain.PriorityHigh})

		got, err := s.GetTask(ctx, created.ID)
		if err != nil {
			t.Fatalf("get task: %v", err)
		}
		if got.Title != "A" || got.Priority != domain.PriorityHigh {
			t.Fatalf("round trip mismatch: %+v", got)
		}
		if got.Status != domain.StatusPending {
			t.Fatalf("expected default status pending, got %q", got.Status)
		}
		if !got.CreatedAt.Equal(got.UpdatedAt) {
			t.Fatalf("expected created_at == updated_at, got %v / %v", got.CreatedAt, got.UpdatedAt)
		}
	})

	t.Run("CreateTaskDefaultColorAndProject", func(t *testing.T) {
		s := newStore(t)
		p := mustCreateProject(t, s, "Dev")
		if p.Color != domain.DefaultProjectColor {
			t.Fatalf("expected default color, got %q", p.Color)
		}
		task := mustCreateTask(t, s, domain.CreateTaskInput{Title: "A", ProjectID: &p.ID})

		views, err := s.FetchTasks(ctx, domain.TaskFilter{})
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if len(views) != 1 || views[0].ID != task.ID {
			t.Fatalf("unexpected views: %+v", views)
		}
		if views[0].ProjectName == nil || *views[0].ProjectName != "Dev" {
			t.Fatalf("expected project name enrichment, got %+v", views[0])
		}
		if views[0].ProjectColor == nil || *views[0].ProjectColor != domain.DefaultProjectColor {
			t.Fatalf("expected project color enrichment, got %+v", views[0])
		}
		if views[0].Assignees == nil || len(views[0].Assignees) != 0 {
			t.Fatalf("expected empty non-nil assignees, got %#v", views[0].Assignees)
		}
	})

	t.Run("GetByID", func(t *testing.T) {
		s := newStore(t)
		project := mustCreateProject(t, s, "Dev")
		person := mustCreatePerson(t, s, "Ann", "ann@example.com")

		gotProject, err := s.GetProject(ctx, project.ID)
		if err != nil || gotProject.Name != "Dev" {
			t.Fatalf("get project: %v %+v", err, gotProject)
		}
		gotPerson, err := s.GetPerson(ctx, person.ID)
		if err != nil || gotPerson.Email != "ann@example.com" {
			t.Fatalf("get person: %v %+v", err, gotPerson)
		}

		var nerr domain.NotFoundError
		if _, err := s.GetProject(ctx, "missing"); !errors.As(err, &nerr) {
			t.Fatalf("expected project NotFoundError, got %v", err)
		}
		if _, err := s.GetPerson(ctx, "missing"); !errors.As(err, &nerr) {
			t.Fatalf("expected person NotFoundError, got %v", err)
		}
	})

	t.Run("CreateTaskMissingTitle", func(t *testing.T) {
		s := newStore(t)
		_, err := s.CreateTask(ctx, domain.CreateTaskInput{Title: ""})
		var verr domain.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("CreateTaskUnknownProject", func(t *testing.T) {
		s := newStore(t)
		_, err := s.CreateTask(ctx, domain.CreateTaskInput{Title: "A", ProjectID: ptr("missing")})
		var nerr domain.NotFoundError
		if !errors.As(err, &nerr) || nerr.Entity != "project" {
			t.Fatalf("expected project NotFoundError, got %v", err)
		}
	})

	t.Run("CreateAtomicity", func(t *testing.T) {
		s := newStore(t)
		valid := mustCreatePerson(t, s, "Ann", "")

		_, err := s.CreateTask(ctx, domain.CreateTaskInput{
			Title:     "A",
			Assignees: []string{valid.ID, "missing"},
		})
		var nerr domain.NotFoundError
		if !errors.As(err, &nerr) {
			t.Fatalf("expected NotFoundError, got %v", err)
		}

		views, err := s.FetchTasks(ctx, domain.TaskFilter{})
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if len(views) != 0 {
			t.Fatalf("expected no persisted task after rollback, got %d", len(views))
		}
	})

	t.Run("LedgerUniqueness", func(t *testing.T) {
		s := newStore(t)
		person := mustCreatePerson(t, s, "Ann", "")
		task := mustCreateTask(t, s, domain.CreateTaskInput{Title: "A", Assignees: []string{person.ID}})

		if err := s.AddAssignee(ctx, task.ID, person.ID); err != nil {
			t.Fatalf("re-adding an assignee must be a no-op, got %v", err)
		}
		assignees, err := s.ListAssignees(ctx, task.ID)
		if err != nil {
			t.Fatalf("list assignees: %v", err)
		}
		if len(assignees) != 1 || assignees[0].ID != person.ID {
			t.Fatalf("expected exactly one ledger row, got %+v", assignees)
		}
	})

	t.Run("AddAssigneeUnknownIDs", func(t *testing.T) {
		s := newStore(t)
		person := mustCreatePerson(t, s, "Ann", "")
		task := mustCreateTask(t, s, domain.CreateTaskInput{Title: "A"})

		var nerr domain.NotFoundError
		if err := s.AddAssignee(ctx, "missing", person.ID); !errors.As(err, &nerr) {
			t.Fatalf("expected task NotFoundError, got %v", err)
		}
		if err := s.AddAssignee(ctx, task.ID, "missing"); !errors.As(err, &nerr) {
			t.Fatalf("expected person NotFoundError, got %v", err)
		}
	})

	t.Run("RemoveAssigneeIdempotent", func(t *testing.T) {
		s := newStore(t)
		person := mustCreatePerson(t, s, "Ann", "")
		task := mustCreateTask(t, s, domain.CreateTaskInput{Title: "A", Assignees: []string{person.ID}})

		if err := s.RemoveAssignee(ctx, task.ID, person.ID); err != nil {
			t.Fatalf("remove assignee: %v", err)
		}
		if err := s.RemoveAssignee(ctx, task.ID, person.ID); err != nil {
			t.Fatalf("removing an absent pair must not fail, got %v", err)
		}
	})

	t.Run("AssigneeOrdering", func(t *testing.T) {
		s := newStore(t)
		a := mustCreatePerson(t, s, "Ann", "")
		b := mustCreatePerson(t, s, "Bob", "")
		task := mustCreateTask(t, s, domain.CreateTaskInput{Title: "A", Assignees: []string{b.ID, a.ID}})

		assignees, err := s.ListAssignees(ctx, task.ID)
		if err != nil {
			t.Fatalf("list assignees: %v", err)
		}
		if len(assignees) != 2 {
			t.Fatalf("expected two assignees, got %d", len(assignees))
		}
		if assignees[0].ID > assignees[1].ID {
			t.Fatalf("expected person id ascending order, got %s then %s", assignees[0].ID, assignees[1].ID)
		}
	})

	t.Run("CascadeOnTaskDelete", func(t *testing.T) {
		s := newStore(t)
		person := mustCreatePerson(t, s, "Ann", "")
		task := mustCreateTask(t, s, domain.CreateTaskInput{Title: "A", Assignees: []string{person.ID}})

		deleted, err := s.DeleteTask(ctx, task.ID)
		if err != nil {
			t.Fatalf("delete task: %v", err)
		}
		if deleted.ID != task.ID || deleted.Title != "A" {
			t.Fatalf("expected deleted record back, got %+v", deleted)
		}
		assignees, err := s.ListAssignees(ctx, task.ID)
		if err != nil {
			t.Fatalf("list assignees: %v", err)
		}
		if len(assignees) != 0 {
			t.Fatalf("expected ledger cascade, got %+v", assignees)
		}

		var nerr domain.NotFoundError
		if _, err := s.DeleteTask(ctx, task.ID); !errors.As(err, &nerr) {
			t.Fatalf("expected NotFoundError on double delete, got %v", err)
		}
	})

	t.Run("ReferentialNullingOnProjectDelete", func(t *testing.T) {
		s := newStore(t)
		project := mustCreateProject(t, s, "Dev")
		task := mustCreateTask(t, s, domain.CreateTaskInput{Title: "A", ProjectID: &project.ID})

		if err := s.DeleteProject(ctx, project.ID); err != nil {
			t.Fatalf("delete project: %v", err)
		}
		got, err := s.GetTask(ctx, task.ID)
		if err != nil {
			t.Fatalf("get task: %v", err)
		}
		if got.ProjectID != nil {
			t.Fatalf("expected project_id nulled, got %v", *got.ProjectID)
		}
		views, err := s.FetchTasks(ctx, domain.TaskFilter{})
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if views[0].ProjectName != nil {
			t.Fatalf("expected project_name null, got %v", *views[0].ProjectName)
		}
	})

	t.Run("ReferentialNullingOnPersonDelete", func(t *testing.T) {
		s := newStore(t)
		person := mustCreatePerson(t, s, "Ann", "")
		task := mustCreateTask(t, s, domain.CreateTaskInput{
			Title:      "A",
			AssignedTo: &person.ID,
			Assignees:  []string{person.ID},
		})

		if err := s.DeletePerson(ctx, person.ID); err != nil {
			t.Fatalf("delete person: %v", err)
		}
		got, err := s.GetTask(ctx, task.ID)
		if err != nil {
			t.Fatalf("get task: %v", err)
		}
		if got.AssignedTo != nil {
			t.Fatalf("expected assigned_to nulled, got %v", *got.AssignedTo)
		}
		assignees, err := s.ListAssignees(ctx, task.ID)
		if err != nil {
			t.Fatalf("list assignees: %v", err)
		}
		if len(assignees) != 0 {
			t.Fatalf("expected ledger rows removed, got %+v", assignees)
		}
	})

	t.Run("Ordering", func(t *testing.T) {
		s := newStore(t)
		t1 := mustCreateTask(t, s, domain.CreateTaskInput{Title: "first"})
		t2 := mustCreateTask(t, s, domain.CreateTaskInput{Title: "second"})
		t3 := mustCreateTask(t, s, domain.CreateTaskInput{Title: "third"})

		views, err := s.FetchTasks(ctx, domain.TaskFilter{})
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if len(views) != 3 {
			t.Fatalf("expected three tasks, got %d", len(views))
		}
		want := []string{t3.ID, t2.ID, t1.ID}
		for i, id := range want {
			if views[i].ID != id {
				t.Fatalf("expected newest-first order %v, got %s at %d", want, views[i].ID, i)
			}
		}
	})

	t.Run("PartialUpdateMerge", func(t *testing.T) {
		s := newStore(t)
		task := mustCreateTask(t, s, domain.CreateTaskInput{Title: "A", Priority: domain.PriorityHigh})

		updated, err := s.UpdateTask(ctx, task.ID, domain.TaskPatch{Status: ptr(domain.StatusDone)})
		if err != nil {
			t.Fatalf("update task: %v", err)
		}
		if updated.Title != "A" || updated.Priority != domain.PriorityHigh {
			t.Fatalf("expected untouched fields preserved, got %+v", updated)
		}
		if updated.Status != domain.StatusDone {
			t.Fatalf("expected status done, got %q", updated.Status)
		}
		if !updated.UpdatedAt.After(task.UpdatedAt) {
			t.Fatalf("expected updated_at to move forward: %v -> %v", task.UpdatedAt, updated.UpdatedAt)
		}
		if !updated.CreatedAt.Equal(task.CreatedAt) {
			t.Fatalf("created_at must be immutable: %v -> %v", task.CreatedAt, updated.CreatedAt)
		}
	})

	t.Run("UpdateClearsReferenceOnNull", func(t *testing.T) {
		s := newStore(t)
		project := mustCreateProject(t, s, "Dev")
		task := mustCreateTask(t, s, domain.CreateTaskInput{Title: "A", ProjectID: &project.ID})

		updated, err := s.UpdateTask(ctx, task.ID, domain.TaskPatch{
			ProjectID: domain.Optional[string]{Set: true, Value: nil},
		})
		if err != nil {
			t.Fatalf("update task: %v", err)
		}
		if updated.ProjectID != nil {
			t.Fatal("expected project_id cleared by explicit null")
		}
	})

	t.Run("UpdateUnknownIDs", func(t *testing.T) {
		s := newStore(t)
		task := mustCreateTask(t, s, domain.CreateTaskInput{Title: "A"})

		var nerr domain.NotFoundError
		if _, err := s.UpdateTask(ctx, "missing", domain.TaskPatch{}); !errors.As(err, &nerr) {
			t.Fatalf("expected task NotFoundError, got %v", err)
		}
		_, err := s.UpdateTask(ctx, task.ID, domain.TaskPatch{
			AssignedTo: domain.Optional[string]{Set: true, Value: ptr("missing")},
		})
		if !errors.As(err, &nerr) || nerr.Entity != "person" {
			t.Fatalf("expected person NotFoundError, got %v", err)
		}
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		s := newStore(t)
		mustCreatePerson(t, s, "Ann", "ann@example.com")

		_, err := s.CreatePerson(ctx, domain.CreatePersonInput{Name: "Other", Email: "ann@example.com"})
		var cerr domain.ConflictError
		if !errors.As(err, &cerr) || cerr.Field != "email" {
			t.Fatalf("expected email ConflictError, got %v", err)
		}

		// Absent emails never conflict with each other.
		mustCreatePerson(t, s, "NoMail1", "")
		mustCreatePerson(t, s, "NoMail2", "")
	})

	t.Run("Filters", func(t *testing.T) {
		s := newStore(t)
		dev := mustCreateProject(t, s, "Dev")
		ann := mustCreatePerson(t, s, "Ann", "")
		bob := mustCreatePerson(t, s, "Bob", "")

		inDev := mustCreateTask(t, s, domain.CreateTaskInput{Title: "Ship release", ProjectID: &dev.ID, AssignedTo: &ann.ID})
		onLedger := mustCreateTask(t, s, domain.CreateTaskInput{Title: "Review DOCS", Assignees: []string{bob.ID}})
		mustCreateTask(t, s, domain.CreateTaskInput{Title: "Unrelated"})
		if _, err := s.UpdateTask(ctx, onLedger.ID, domain.TaskPatch{Status: ptr(domain.StatusDone)}); err != nil {
			t.Fatalf("update: %v", err)
		}

		cases := []struct {
			name   string
			filter domain.TaskFilter
			want   []string
		}{
			{"by project", domain.TaskFilter{ProjectID: dev.ID}, []string{inDev.ID}},
			{"by primary person", domain.TaskFilter{PersonID: ann.ID}, []string{inDev.ID}},
			{"by ledger person", domain.TaskFilter{PersonID: bob.ID}, []string{onLedger.ID}},
			{"by status", domain.TaskFilter{Status: domain.StatusDone}, []string{onLedger.ID}},
			{"by search", domain.TaskFilter{Search: "docs"}, []string{onLedger.ID}},
			{"no match", domain.TaskFilter{Search: "nothing here"}, nil},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				views, err := s.FetchTasks(ctx, tc.filter)
				if err != nil {
					t.Fatalf("fetch: %v", err)
				}
				if len(views) != len(tc.want) {
					t.Fatalf("expected %d results, got %+v", len(tc.want), views)
				}
				for i, id := range tc.want {
					if views[i].ID != id {
						t.Fatalf("expected %s at %d, got %s", id, i, views[i].ID)
					}
				}
			})
		}
	})

	t.Run("ListPeopleOrder", func(t *testing.T) {
		s := newStore(t)
		mustCreatePerson(t, s, "Zoe", "")
		mustCreatePerson(t, s, "Ann", "")

		people, err := s.ListPeople(ctx)
		if err != nil {
			t.Fatalf("list people: %v", err)
		}
		if len(people) != 2 || people[0].Name != "Ann" || people[1].Name != "Zoe" {
			t.Fatalf("expected name-ascending order, got %+v", people)
		}
	})

	t.Run("ListProjectsOrder", func(t *testing.T) {
		s := newStore(t)
		mustCreateProject(t, s, "older")
		newer := mustCreateProject(t, s, "newer")

		projects, err := s.ListProjects(ctx)
		if err != nil {
			t.Fatalf("list projects: %v", err)
		}
		if len(projects) != 2 || projects[0].ID != newer.ID {
			t.Fatalf("expected newest-first order, got %+v", projects)
		}
	})

	t.Run("SeedDemoDataOnlyWhenEmpty", func(t *testing.T) {
		s := newStore(t)
		if err := SeedDemoData(ctx, s); err != nil {
			t.Fatalf("seed: %v", err)
		}
		views, err := s.FetchTasks(ctx, domain.TaskFilter{})
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if len(views) == 0 {
			t.Fatal("expected seeded tasks")
		}
		if err := SeedDemoData(ctx, s); err != nil {
			t.Fatalf("second seed: %v", err)
		}
		again, err := s.FetchTasks(ctx, domain.TaskFilter{})
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if len(again) != len(views) {
			t.Fatalf("expected seeding to be idempotent, got %d then %d", len(views), len(again))
		}
	})
}
