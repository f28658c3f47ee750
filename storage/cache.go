package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"taskflow/domain"
)

const viewsCacheKey = "taskflow:views"

// Cache wraps a Store with Redis-backed caching of the unfiltered task view.
// Filtered queries always go to the backing store; any write that can alter
// the view evicts the cached copy. Creating a project or person cannot change
// an existing view, so those writes pass through untouched.
type Cache struct {
	base  Store
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching Store wrapper using the provided Redis client
// and TTL.
func NewCache(base Store, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) FetchTasks(ctx context.Context, filter domain.TaskFilter) ([]domain.TaskView, error) {
	if !filter.Empty() {
		return c.base.FetchTasks(ctx, filter)
	}
	if views, ok := c.loadViews(ctx); ok {
		return views, nil
	}
	views, err := c.base.FetchTasks(ctx, filter)
	if err != nil {
		return nil, err
	}
	c.storeViews(ctx, views)
	return views, nil
}

func (c *Cache) CreateTask(ctx context.Context, in domain.CreateTaskInput) (domain.Task, error) {
	t, err := c.base.CreateTask(ctx, in)
	if err != nil {
		return domain.Task{}, err
	}
	c.evict(ctx)
	return t, nil
}

func (c *Cache) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
	t, err := c.base.UpdateTask(ctx, id, patch)
	if err != nil {
		return domain.Task{}, err
	}
	c.evict(ctx)
	return t, nil
}

func (c *Cache) DeleteTask(ctx context.Context, id string) (domain.Task, error) {
	t, err := c.base.DeleteTask(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	c.evict(ctx)
	return t, nil
}

func (c *Cache) AddAssignee(ctx context.Context, taskID, personID string) error {
	if err := c.base.AddAssignee(ctx, taskID, personID); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *Cache) RemoveAssignee(ctx context.Context, taskID, personID string) error {
	if err := c.base.RemoveAssignee(ctx, taskID, personID); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *Cache) DeleteProject(ctx context.Context, id string) error {
	if err := c.base.DeleteProject(ctx, id); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *Cache) DeletePerson(ctx context.Context, id string) error {
	if err := c.base.DeletePerson(ctx, id); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *Cache) CreateProject(ctx context.Context, in domain.CreateProjectInput) (domain.Project, error) {
	return c.base.CreateProject(ctx, in)
}

func (c *Cache) GetProject(ctx context.Context, id string) (domain.Project, error) {
	return c.base.GetProject(ctx, id)
}

func (c *Cache) ListProjects(ctx context.Context) ([]domain.Project, error) {
	return c.base.ListProjects(ctx)
}

func (c *Cache) CreatePerson(ctx context.Context, in domain.CreatePersonInput) (domain.Person, error) {
	return c.base.CreatePerson(ctx, in)
}

func (c *Cache) GetPerson(ctx context.Context, id string) (domain.Person, error) {
	return c.base.GetPerson(ctx, id)
}

func (c *Cache) ListPeople(ctx context.Context) ([]domain.Person, error) {
	return c.base.ListPeople(ctx)
}

func (c *Cache) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return c.base.GetTask(ctx, id)
}

func (c *Cache) ListAssignees(ctx context.Context, taskID string) ([]domain.Person, error) {
	return c.base.ListAssignees(ctx, taskID)
}

func (c *Cache) loadViews(ctx context.Context) ([]domain.TaskView, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, viewsCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing store without failing.
			_ = c.redis.Del(ctx, viewsCacheKey).Err()
		}
		return nil, false
	}
	var views []domain.TaskView
	if err := json.Unmarshal(data, &views); err != nil {
		_ = c.redis.Del(ctx, viewsCacheKey).Err()
		return nil, false
	}
	if views == nil {
		views = []domain.TaskView{}
	}
	return views, true
}

func (c *Cache) storeViews(ctx context.Context, views []domain.TaskView) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(views)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, viewsCacheKey, data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, viewsCacheKey).Result()
}
