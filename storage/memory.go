package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskflow/domain"
)

// Memory is an in-process Store adapter. It honors the same contract as the
// relational adapter: writers are serialized by the mutex, and CreateTask
// stages its validation before touching any state so a failed create leaves
// no trace.
type Memory struct {
	mu          sync.RWMutex
	projects    map[string]domain.Project
	people      map[string]domain.Person
	tasks       map[string]domain.Task
	assignments map[string]map[string]time.Time // task id -> person id -> assigned_at
}

func NewMemory() *Memory {
	return &Memory{
		projects:    make(map[string]domain.Project),
		people:      make(map[string]domain.Person),
		tasks:       make(map[string]domain.Task),
		assignments: make(map[string]map[string]time.Time),
	}
}

func (m *Memory) CreateProject(ctx context.Context, in domain.CreateProjectInput) (domain.Project, error) {
	if err := in.Validate(); err != nil {
		return domain.Project{}, err
	}
	p := domain.Project{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		Color:       in.Color,
		CreatedAt:   nextTimestamp(),
	}
	if p.Color == "" {
		p.Color = domain.DefaultProjectColor
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = p
	return p, nil
}

func (m *Memory) GetProject(ctx context.Context, id string) (domain.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return domain.Project{}, domain.NotFoundError{Entity: "project", ID: id}
	}
	return p, nil
}

func (m *Memory) ListProjects(ctx context.Context) ([]domain.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	projects := make([]domain.Project, 0, len(m.projects))
	for _, p := range m.projects {
		projects = append(projects, p)
	}
	sort.Slice(projects, func(i, j int) bool {
		if !projects[i].CreatedAt.Equal(projects[j].CreatedAt) {
			return projects[i].CreatedAt.After(projects[j].CreatedAt)
		}
		return projects[i].ID > projects[j].ID
	})
	return projects, nil
}

func (m *Memory) DeleteProject(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return domain.NotFoundError{Entity: "project", ID: id}
	}
	for tid, t := range m.tasks {
		if t.ProjectID != nil && *t.ProjectID == id {
			t.ProjectID = nil
			m.tasks[tid] = t
		}
	}
	delete(m.projects, id)
	return nil
}

func (m *Memory) CreatePerson(ctx context.Context, in domain.CreatePersonInput) (domain.Person, error) {
	if err := in.Validate(); err != nil {
		return domain.Person{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if in.Email != "" {
		for _, existing := range m.people {
			if existing.Email == in.Email {
				return domain.Person{}, domain.ConflictError{Field: "email", Value: in.Email}
			}
		}
	}
	p := domain.Person{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Email:     in.Email,
		AvatarURL: in.AvatarURL,
		CreatedAt: nextTimestamp(),
	}
	m.people[p.ID] = p
	return p, nil
}

func (m *Memory) GetPerson(ctx context.Context, id string) (domain.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.people[id]
	if !ok {
		return domain.Person{}, domain.NotFoundError{Entity: "person", ID: id}
	}
	return p, nil
}

func (m *Memory) ListPeople(ctx context.Context) ([]domain.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	people := make([]domain.Person, 0, len(m.people))
	for _, p := range m.people {
		people = append(people, p)
	}
	sort.Slice(people, func(i, j int) bool {
		if people[i].Name != people[j].Name {
			return people[i].Name < people[j].Name
		}
		return people[i].ID < people[j].ID
	})
	return people, nil
}

func (m *Memory) DeletePerson(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.people[id]; !ok {
		return domain.NotFoundError{Entity: "person", ID: id}
	}
	for _, set := range m.assignments {
		delete(set, id)
	}
	for tid, t := range m.tasks {
		if t.AssignedTo != nil && *t.AssignedTo == id {
			t.AssignedTo = nil
			m.tasks[tid] = t
		}
	}
	delete(m.people, id)
	return nil
}

func (m *Memory) CreateTask(ctx context.Context, in domain.CreateTaskInput) (domain.Task, error) {
	if err := in.Validate(); err != nil {
		return domain.Task{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	// Resolve every reference before mutating anything; this is the staged
	// commit that keeps a failed create invisible.
	if in.ProjectID != nil {
		if _, ok := m.projects[*in.ProjectID]; !ok {
			return domain.Task{}, domain.NotFoundError{Entity: "project", ID: *in.ProjectID}
		}
	}
	if in.AssignedTo != nil {
		if _, ok := m.people[*in.AssignedTo]; !ok {
			return domain.Task{}, domain.NotFoundError{Entity: "person", ID: *in.AssignedTo}
		}
	}
	for _, personID := range in.Assignees {
		if _, ok := m.people[personID]; !ok {
			return domain.Task{}, domain.NotFoundError{Entity: "person", ID: personID}
		}
	}

	now := nextTimestamp()
	t := domain.Task{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		Status:      domain.StatusPending,
		DueDate:     clonePtr(in.DueDate),
		ProjectID:   clonePtr(in.ProjectID),
		AssignedTo:  clonePtr(in.AssignedTo),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.tasks[t.ID] = t
	if len(in.Assignees) > 0 {
		set := make(map[string]time.Time, len(in.Assignees))
		for _, personID := range in.Assignees {
			set[personID] = now
		}
		m.assignments[t.ID] = set
	}
	return cloneTask(t), nil
}

func (m *Memory) GetTask(ctx context.Context, id string) (domain.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return domain.Task{}, domain.NotFoundError{Entity: "task", ID: id}
	}
	return cloneTask(t), nil
}

func (m *Memory) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
	if err := patch.Validate(); err != nil {
		return domain.Task{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return domain.Task{}, domain.NotFoundError{Entity: "task", ID: id}
	}
	patch.Apply(&t)
	if patch.ProjectID.Set && t.ProjectID != nil {
		if _, ok := m.projects[*t.ProjectID]; !ok {
			return domain.Task{}, domain.NotFoundError{Entity: "project", ID: *t.ProjectID}
		}
	}
	if patch.AssignedTo.Set && t.AssignedTo != nil {
		if _, ok := m.people[*t.AssignedTo]; !ok {
			return domain.Task{}, domain.NotFoundError{Entity: "person", ID: *t.AssignedTo}
		}
	}
	t.UpdatedAt = nextTimestamp()
	m.tasks[id] = t
	return cloneTask(t), nil
}

func (m *Memory) DeleteTask(ctx context.Context, id string) (domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return domain.Task{}, domain.NotFoundError{Entity: "task", ID: id}
	}
	delete(m.tasks, id)
	delete(m.assignments, id)
	return cloneTask(t), nil
}

func (m *Memory) AddAssignee(ctx context.Context, taskID, personID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[taskID]; !ok {
		return domain.NotFoundError{Entity: "task", ID: taskID}
	}
	if _, ok := m.people[personID]; !ok {
		return domain.NotFoundError{Entity: "person", ID: personID}
	}
	set, ok := m.assignments[taskID]
	if !ok {
		set = make(map[string]time.Time)
		m.assignments[taskID] = set
	}
	if _, exists := set[personID]; !exists {
		set[personID] = nextTimestamp()
	}
	return nil
}

func (m *Memory) RemoveAssignee(ctx context.Context, taskID, personID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.assignments[taskID], personID)
	return nil
}

func (m *Memory) ListAssignees(ctx context.Context, taskID string) ([]domain.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.assigneesLocked(taskID), nil
}

func (m *Memory) assigneesLocked(taskID string) []domain.Person {
	people := []domain.Person{}
	for personID := range m.assignments[taskID] {
		if p, ok := m.people[personID]; ok {
			people = append(people, p)
		}
	}
	sort.Slice(people, func(i, j int) bool { return people[i].ID < people[j].ID })
	return people
}

func (m *Memory) FetchTasks(ctx context.Context, filter domain.TaskFilter) ([]domain.TaskView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	views := []domain.TaskView{}
	for _, t := range m.tasks {
		if !m.matchesLocked(t, filter) {
			continue
		}
		v := domain.TaskView{Task: cloneTask(t), Assignees: m.assigneesLocked(t.ID)}
		if t.ProjectID != nil {
			if p, ok := m.projects[*t.ProjectID]; ok {
				name, color := p.Name, p.Color
				v.ProjectName = &name
				v.ProjectColor = &color
			}
		}
		if t.AssignedTo != nil {
			if p, ok := m.people[*t.AssignedTo]; ok {
				name := p.Name
				v.AssignedName = &name
			}
		}
		views = append(views, v)
	}
	sort.Slice(views, func(i, j int) bool {
		if !views[i].CreatedAt.Equal(views[j].CreatedAt) {
			return views[i].CreatedAt.After(views[j].CreatedAt)
		}
		return views[i].ID > views[j].ID
	})
	return views, nil
}

func (m *Memory) matchesLocked(t domain.Task, f domain.TaskFilter) bool {
	if f.ProjectID != "" && (t.ProjectID == nil || *t.ProjectID != f.ProjectID) {
		return false
	}
	if f.PersonID != "" {
		primary := t.AssignedTo != nil && *t.AssignedTo == f.PersonID
		_, onLedger := m.assignments[t.ID][f.PersonID]
		if !primary && !onLedger {
			return false
		}
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Title), q) && !strings.Contains(strings.ToLower(t.Description), q) {
			return false
		}
	}
	return true
}

func cloneTask(t domain.Task) domain.Task {
	t.DueDate = clonePtr(t.DueDate)
	t.ProjectID = clonePtr(t.ProjectID)
	t.AssignedTo = clonePtr(t.AssignedTo)
	return t
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
