package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"taskflow/domain"
)

type stubStore struct {
	Store
	fetchTasksFn func(ctx context.Context, filter domain.TaskFilter) ([]domain.TaskView, error)
	createTaskFn func(ctx context.Context, in domain.CreateTaskInput) (domain.Task, error)
}

func (s *stubStore) FetchTasks(ctx context.Context, filter domain.TaskFilter) ([]domain.TaskView, error) {
	if s.fetchTasksFn == nil {
		return nil, errors.New("unexpected FetchTasks call")
	}
	return s.fetchTasksFn(ctx, filter)
}

func (s *stubStore) CreateTask(ctx context.Context, in domain.CreateTaskInput) (domain.Task, error) {
	if s.createTaskFn == nil {
		return domain.Task{}, errors.New("unexpected CreateTask call")
	}
	return s.createTaskFn(ctx, in)
}

func newCacheRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func demoViews() []domain.TaskView {
	return []domain.TaskView{{
		Task:      domain.Task{ID: "t1", Title: "Write code", Priority: domain.PriorityMedium, Status: domain.StatusPending},
		Assignees: []domain.Person{},
	}}
}

func TestCacheFetchTasksMissThenHit(t *testing.T) {
	client := newCacheRedis(t)
	ctx := context.Background()

	var calls int
	cache := NewCache(&stubStore{
		fetchTasksFn: func(ctx context.Context, filter domain.TaskFilter) ([]domain.TaskView, error) {
			calls++
			return demoViews(), nil
		},
	}, client, time.Minute)

	views, err := cache.FetchTasks(ctx, domain.TaskFilter{})
	if err != nil {
		t.Fatalf("fetch tasks: %v", err)
	}
	if len(views) != 1 || views[0].ID != "t1" {
		t.Fatalf("unexpected views: %+v", views)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call to backend, got %d", calls)
	}

	cached, err := cache.FetchTasks(ctx, domain.TaskFilter{})
	if err != nil {
		t.Fatalf("fetch cached tasks: %v", err)
	}
	if len(cached) != 1 || cached[0].ID != "t1" || cached[0].Title != "Write code" {
		t.Fatalf("unexpected cached views: %+v", cached)
	}
	if cached[0].Assignees == nil {
		t.Fatal("expected non-nil assignees after cache round trip")
	}
	if calls != 1 {
		t.Fatalf("expected cached fetch to avoid backend, calls=%d", calls)
	}
}

func TestCacheFilteredFetchBypassesCache(t *testing.T) {
	client := newCacheRedis(t)
	ctx := context.Background()

	var calls int
	cache := NewCache(&stubStore{
		fetchTasksFn: func(ctx context.Context, filter domain.TaskFilter) ([]domain.TaskView, error) {
			calls++
			return demoViews(), nil
		},
	}, client, time.Minute)

	filter := domain.TaskFilter{Status: domain.StatusDone}
	for i := 0; i < 2; i++ {
		if _, err := cache.FetchTasks(ctx, filter); err != nil {
			t.Fatalf("fetch: %v", err)
		}
	}
	if calls != 2 {
		t.Fatalf("expected filtered fetches to bypass the cache, calls=%d", calls)
	}
}

func TestCacheEvictsOnWrite(t *testing.T) {
	client := newCacheRedis(t)
	ctx := context.Background()

	var calls int
	cache := NewCache(&stubStore{
		fetchTasksFn: func(ctx context.Context, filter domain.TaskFilter) ([]domain.TaskView, error) {
			calls++
			return demoViews(), nil
		},
		createTaskFn: func(ctx context.Context, in domain.CreateTaskInput) (domain.Task, error) {
			return domain.Task{ID: "t2", Title: in.Title}, nil
		},
	}, client, time.Minute)

	if _, err := cache.FetchTasks(ctx, domain.TaskFilter{}); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if _, err := cache.CreateTask(ctx, domain.CreateTaskInput{Title: "B"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := cache.FetchTasks(ctx, domain.TaskFilter{}); err != nil {
		t.Fatalf("fetch after write: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected write to evict the cached view, calls=%d", calls)
	}
}

func TestCacheNilClientPassthrough(t *testing.T) {
	ctx := context.Background()

	var calls int
	cache := NewCache(&stubStore{
		fetchTasksFn: func(ctx context.Context, filter domain.TaskFilter) ([]domain.TaskView, error) {
			calls++
			return demoViews(), nil
		},
	}, nil, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := cache.FetchTasks(ctx, domain.TaskFilter{}); err != nil {
			t.Fatalf("fetch: %v", err)
		}
	}
	if calls != 2 {
		t.Fatalf("expected every fetch to reach the backend without redis, calls=%d", calls)
	}
}

func TestCacheWriteThroughOnMemoryStore(t *testing.T) {
	client := newCacheRedis(t)
	ctx := context.Background()
	cache := NewCache(NewMemory(), client, time.Minute)

	if _, err := cache.FetchTasks(ctx, domain.TaskFilter{}); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	task, err := cache.CreateTask(ctx, domain.CreateTaskInput{Title: "A"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	views, err := cache.FetchTasks(ctx, domain.TaskFilter{})
	if err != nil {
		t.Fatalf("fetch after create: %v", err)
	}
	if len(views) != 1 || views[0].ID != task.ID {
		t.Fatalf("expected fresh view after eviction, got %+v", views)
	}
}
