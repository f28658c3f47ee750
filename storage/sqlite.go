package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"strings"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"

	"taskflow/domain"
)

//go:embed schema.sql
var schema string

// SQLite is the relational Store adapter. Foreign keys are enabled as a
// backstop, but every cascade the contract requires is issued explicitly so
// the behavior does not depend on the engine's constraint handling.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if necessary) the database at path and applies
// the schema.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func rowExists(ctx context.Context, q querier, table, entity, id string) error {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFoundError{Entity: entity, ID: id}
	}
	return err
}

func (s *SQLite) CreateProject(ctx context.Context, in domain.CreateProjectInput) (domain.Project, error) {
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
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, description, color, created_at) VALUES (?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.Description, p.Color, p.CreatedAt)
	if err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

func (s *SQLite) GetProject(ctx context.Context, id string) (domain.Project, error) {
	var p domain.Project
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, color, created_at FROM projects WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.Description, &p.Color, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Project{}, domain.NotFoundError{Entity: "project", ID: id}
	}
	if err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

func (s *SQLite) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, color, created_at FROM projects ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := []domain.Project{}
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Color, &p.CreatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *SQLite) DeleteProject(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := rowExists(ctx, tx, "projects", "project", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE tasks SET project_id = NULL WHERE project_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLite) CreatePerson(ctx context.Context, in domain.CreatePersonInput) (domain.Person, error) {
	if err := in.Validate(); err != nil {
		return domain.Person{}, err
	}
	p := domain.Person{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Email:     in.Email,
		AvatarURL: in.AvatarURL,
		CreatedAt: nextTimestamp(),
	}
	var email sql.NullString
	if p.Email != "" {
		email = sql.NullString{String: p.Email, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO people (id, name, email, avatar_url, created_at) VALUES (?, ?, ?, ?, ?)
	`, p.ID, p.Name, email, p.AvatarURL, p.CreatedAt)
	if err != nil {
		var sqlErr sqlite3.Error
		if errors.As(err, &sqlErr) && sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return domain.Person{}, domain.ConflictError{Field: "email", Value: p.Email}
		}
		return domain.Person{}, err
	}
	return p, nil
}

func (s *SQLite) GetPerson(ctx context.Context, id string) (domain.Person, error) {
	return getPerson(ctx, s.db, id)
}

func getPerson(ctx context.Context, q querier, id string) (domain.Person, error) {
	var (
		p     domain.Person
		email sql.NullString
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, name, email, avatar_url, created_at FROM people WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &email, &p.AvatarURL, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Person{}, domain.NotFoundError{Entity: "person", ID: id}
	}
	if err != nil {
		return domain.Person{}, err
	}
	p.Email = email.String
	return p, nil
}

func (s *SQLite) ListPeople(ctx context.Context) ([]domain.Person, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, avatar_url, created_at FROM people ORDER BY name ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPeople(rows)
}

func scanPeople(rows *sql.Rows) ([]domain.Person, error) {
	people := []domain.Person{}
	for rows.Next() {
		var (
			p     domain.Person
			email sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Name, &email, &p.AvatarURL, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Email = email.String
		people = append(people, p)
	}
	return people, rows.Err()
}

func (s *SQLite) DeletePerson(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := rowExists(ctx, tx, "people", "person", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM task_assignees WHERE person_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE tasks SET assigned_to = NULL WHERE assigned_to = ?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM people WHERE id = ?", id); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateTask inserts the task row and every requested ledger row in one
// transaction. Any failure rolls the whole unit back: observers never see a
// task with a partially applied assignee set.
func (s *SQLite) CreateTask(ctx context.Context, in domain.CreateTaskInput) (domain.Task, error) {
	if err := in.Validate(); err != nil {
		return domain.Task{}, err
	}
	now := nextTimestamp()
	t := domain.Task{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		Status:      domain.StatusPending,
		DueDate:     in.DueDate,
		ProjectID:   in.ProjectID,
		AssignedTo:  in.AssignedTo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	if t.ProjectID != nil {
		if err := rowExists(ctx, tx, "projects", "project", *t.ProjectID); err != nil {
			return domain.Task{}, err
		}
	}
	if t.AssignedTo != nil {
		if err := rowExists(ctx, tx, "people", "person", *t.AssignedTo); err != nil {
			return domain.Task{}, err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tasks (id, title, description, priority, status, due_date, project_id, assigned_to, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Title, t.Description, t.Priority, t.Status, nullable(t.DueDate), nullable(t.ProjectID), nullable(t.AssignedTo), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return domain.Task{}, domain.TransactionError{Op: "create task", Err: err}
	}

	for _, personID := range in.Assignees {
		if err := rowExists(ctx, tx, "people", "person", personID); err != nil {
			return domain.Task{}, err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO task_assignees (task_id, person_id, assigned_at) VALUES (?, ?, ?)
		`, t.ID, personID, now)
		if err != nil {
			return domain.Task{}, domain.TransactionError{Op: "create task", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Task{}, domain.TransactionError{Op: "create task", Err: err}
	}
	return t, nil
}

const taskColumns = "id, title, description, priority, status, due_date, project_id, assigned_to, created_at, updated_at"

func scanTask(row *sql.Row) (domain.Task, error) {
	var (
		t                              domain.Task
		dueDate, projectID, assignedTo sql.NullString
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Priority, &t.Status, &dueDate, &projectID, &assignedTo, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return domain.Task{}, err
	}
	t.DueDate = fromNullable(dueDate)
	t.ProjectID = fromNullable(projectID)
	t.AssignedTo = fromNullable(assignedTo)
	return t, nil
}

func getTask(ctx context.Context, q querier, id string) (domain.Task, error) {
	t, err := scanTask(q.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, domain.NotFoundError{Entity: "task", ID: id}
	}
	return t, err
}

func (s *SQLite) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return getTask(ctx, s.db, id)
}

func (s *SQLite) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
	if err := patch.Validate(); err != nil {
		return domain.Task{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	t, err := getTask(ctx, tx, id)
	if err != nil {
		return domain.Task{}, err
	}
	patch.Apply(&t)
	if patch.ProjectID.Set && t.ProjectID != nil {
		if err := rowExists(ctx, tx, "projects", "project", *t.ProjectID); err != nil {
			return domain.Task{}, err
		}
	}
	if patch.AssignedTo.Set && t.AssignedTo != nil {
		if err := rowExists(ctx, tx, "people", "person", *t.AssignedTo); err != nil {
			return domain.Task{}, err
		}
	}
	t.UpdatedAt = nextTimestamp()

	_, err = tx.ExecContext(ctx, `
		UPDATE tasks SET title = ?, description = ?, priority = ?, status = ?, due_date = ?, project_id = ?, assigned_to = ?, updated_at = ?
		WHERE id = ?
	`, t.Title, t.Description, t.Priority, t.Status, nullable(t.DueDate), nullable(t.ProjectID), nullable(t.AssignedTo), t.UpdatedAt, t.ID)
	if err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

func (s *SQLite) DeleteTask(ctx context.Context, id string) (domain.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	t, err := getTask(ctx, tx, id)
	if err != nil {
		return domain.Task{}, err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM task_assignees WHERE task_id = ?", id); err != nil {
		return domain.Task{}, err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

func (s *SQLite) AddAssignee(ctx context.Context, taskID, personID string) error {
	if err := rowExists(ctx, s.db, "tasks", "task", taskID); err != nil {
		return err
	}
	if err := rowExists(ctx, s.db, "people", "person", personID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO task_assignees (task_id, person_id, assigned_at) VALUES (?, ?, ?)
	`, taskID, personID, nextTimestamp())
	return err
}

func (s *SQLite) RemoveAssignee(ctx context.Context, taskID, personID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM task_assignees WHERE task_id = ? AND person_id = ?", taskID, personID)
	return err
}

func (s *SQLite) ListAssignees(ctx context.Context, taskID string) ([]domain.Person, error) {
	return listAssignees(ctx, s.db, taskID)
}

func listAssignees(ctx context.Context, db *sql.DB, taskID string) ([]domain.Person, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT p.id, p.name, p.email, p.avatar_url, p.created_at
		FROM people p
		JOIN task_assignees ta ON p.id = ta.person_id
		WHERE ta.task_id = ?
		ORDER BY p.id ASC
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPeople(rows)
}

func (s *SQLite) FetchTasks(ctx context.Context, filter domain.TaskFilter) ([]domain.TaskView, error) {
	query := `
		SELECT t.id, t.title, t.description, t.priority, t.status, t.due_date, t.project_id, t.assigned_to, t.created_at, t.updated_at,
		       p.name, p.color, per.name
		FROM tasks t
		LEFT JOIN projects p ON t.project_id = p.id
		LEFT JOIN people per ON t.assigned_to = per.id
	`
	var (
		conds []string
		args  []any
	)
	if filter.ProjectID != "" {
		conds = append(conds, "t.project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.PersonID != "" {
		conds = append(conds, "(t.assigned_to = ? OR t.id IN (SELECT task_id FROM task_assignees WHERE person_id = ?))")
		args = append(args, filter.PersonID, filter.PersonID)
	}
	if filter.Status != "" {
		conds = append(conds, "t.status = ?")
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		conds = append(conds, "(t.title LIKE ? OR t.description LIKE ?)")
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY t.created_at DESC, t.id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	views := []domain.TaskView{}
	for rows.Next() {
		var (
			v                                       domain.TaskView
			dueDate, projectID, assignedTo          sql.NullString
			projectName, projectColor, assignedName sql.NullString
		)
		err := rows.Scan(&v.ID, &v.Title, &v.Description, &v.Priority, &v.Status, &dueDate, &projectID, &assignedTo, &v.CreatedAt, &v.UpdatedAt,
			&projectName, &projectColor, &assignedName)
		if err != nil {
			return nil, err
		}
		v.DueDate = fromNullable(dueDate)
		v.ProjectID = fromNullable(projectID)
		v.AssignedTo = fromNullable(assignedTo)
		v.ProjectName = fromNullable(projectName)
		v.ProjectColor = fromNullable(projectColor)
		v.AssignedName = fromNullable(assignedName)
		v.Assignees = []domain.Person{}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range views {
		assignees, err := listAssignees(ctx, s.db, views[i].ID)
		if err != nil {
			return nil, err
		}
		views[i].Assignees = assignees
	}
	return views, nil
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
