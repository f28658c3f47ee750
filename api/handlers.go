package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"taskflow/domain"
)

const requestBodyMaxSize = 1 << 20

var tracer = otel.Tracer("taskflow/api")

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store Storage, logger *log.Logger) {
	e.GET("/api/tasks", listTasks(store, logger))
	e.POST("/api/tasks", createTask(store))
	e.PUT("/api/tasks/:id", updateTask(store))
	e.DELETE("/api/tasks/:id", deleteTask(store))

	e.GET("/api/projects", listProjects(store))
	e.POST("/api/projects", createProject(store))
	e.DELETE("/api/projects/:id", deleteProject(store))

	e.GET("/api/people", listPeople(store))
	e.POST("/api/people", createPerson(store))
	e.DELETE("/api/people/:id", deletePerson(store))

	e.GET("/health", health())
}

type errorResponse struct {
	Error string `json:"error"`
}

// httpError maps the storage error taxonomy onto response statuses. Anything
// outside the taxonomy, TransactionError included, is a server error.
func httpError(c echo.Context, err error) error {
	var (
		verr domain.ValidationError
		nerr domain.NotFoundError
		cerr domain.ConflictError
	)
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: verr.Error()})
	case errors.As(err, &nerr):
		return c.JSON(http.StatusNotFound, errorResponse{Error: nerr.Error()})
	case errors.As(err, &cerr):
		return c.JSON(http.StatusConflict, errorResponse{Error: cerr.Error()})
	default:
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func decodeBody(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, requestBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func listTasks(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx, span := tracer.Start(c.Request().Context(), "tasks.list")
		defer span.End()

		metrics := newListRequestMetrics(logger)
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		filter := domain.TaskFilter{
			ProjectID: c.QueryParam("project_id"),
			PersonID:  c.QueryParam("person_id"),
			Status:    domain.Status(c.QueryParam("status")),
			Search:    c.QueryParam("q"),
		}
		if filter.Status != "" && !filter.Status.Valid() {
			metrics.SetErrorStage("invalid_status")
			err = c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid status filter"})
			return err
		}
		metrics.SetFiltered(!filter.Empty())

		fetchStart := time.Now()
		views, fetchErr := store.FetchTasks(ctx, filter)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			span.RecordError(fetchErr)
			metrics.SetErrorStage("storage")
			err = httpError(c, fetchErr)
			return err
		}
		metrics.SetTasksReturned(len(views))

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, views)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func createTask(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "tasks.create")
		defer span.End()

		var in domain.CreateTaskInput
		if err := decodeBody(c, &in); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		task, err := store.CreateTask(ctx, in)
		if err != nil {
			span.RecordError(err)
			return httpError(c, err)
		}
		return c.JSON(http.StatusCreated, task)
	}
}

func updateTask(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "tasks.update")
		defer span.End()

		var patch domain.TaskPatch
		if err := decodeBody(c, &patch); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		task, err := store.UpdateTask(ctx, c.Param("id"), patch)
		if err != nil {
			span.RecordError(err)
			return httpError(c, err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

type deleteTaskResponse struct {
	Message string      `json:"message"`
	Task    domain.Task `json:"task"`
}

func deleteTask(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "tasks.delete")
		defer span.End()

		task, err := store.DeleteTask(ctx, c.Param("id"))
		if err != nil {
			span.RecordError(err)
			return httpError(c, err)
		}
		return c.JSON(http.StatusOK, deleteTaskResponse{Message: "task deleted", Task: task})
	}
}

func listProjects(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "projects.list")
		defer span.End()

		projects, err := store.ListProjects(ctx)
		if err != nil {
			span.RecordError(err)
			return httpError(c, err)
		}
		return c.JSON(http.StatusOK, projects)
	}
}

func createProject(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "projects.create")
		defer span.End()

		var in domain.CreateProjectInput
		if err := decodeBody(c, &in); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		project, err := store.CreateProject(ctx, in)
		if err != nil {
			span.RecordError(err)
			return httpError(c, err)
		}
		return c.JSON(http.StatusCreated, project)
	}
}

func deleteProject(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "projects.delete")
		defer span.End()

		if err := store.DeleteProject(ctx, c.Param("id")); err != nil {
			span.RecordError(err)
			return httpError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]string{"message": "project deleted"})
	}
}

func listPeople(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "people.list")
		defer span.End()

		people, err := store.ListPeople(ctx)
		if err != nil {
			span.RecordError(err)
			return httpError(c, err)
		}
		return c.JSON(http.StatusOK, people)
	}
}

func createPerson(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "people.create")
		defer span.End()

		var in domain.CreatePersonInput
		if err := decodeBody(c, &in); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		person, err := store.CreatePerson(ctx, in)
		if err != nil {
			span.RecordError(err)
			return httpError(c, err)
		}
		return c.JSON(http.StatusCreated, person)
	}
}

func deletePerson(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "people.delete")
		defer span.End()

		if err := store.DeletePerson(ctx, c.Param("id")); err != nil {
			span.RecordError(err)
			return httpError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]string{"message": "person deleted"})
	}
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func health() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, healthResponse{Status: "ok", Timestamp: time.Now().UTC()})
	}
}
