package storage

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskboard/domain"
)

// Cache wraps a Repository with Redis-backed caching of the task list.
type Cache struct {
	base  domain.Repository
	redis *redis.Client
	ttl   time.Duration
	board string
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
func NewCache(base domain.Repository, client *redis.Client, board string, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base repository is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl, board: board}
}

func (c *Cache) List(ctx context.Context) ([]domain.Task, error) {
	if tasks, ok := c.loadTasksFromCache(ctx); ok {
		return tasks, nil
	}

	gen, genOK := c.generation(ctx)
	tasks, err := c.base.List(ctx)
	if err != nil {
		return nil, err
	}

	if genOK {
		c.storeTasks(ctx, tasks, gen)
	}
	return tasks, nil
}

// Get is served from the cached list when it is present.
func (c *Cache) Get(ctx context.Context, id string) (domain.Task, error) {
	if tasks, ok := c.loadTasksFromCache(ctx); ok {
		if i := indexOf(tasks, id); i != -1 {
			return tasks[i], nil
		}
	}
	return c.base.Get(ctx, id)
}

func (c *Cache) Create(ctx context.Context, d domain.Draft) (domain.Task, error) {
	t, err := c.base.Create(ctx, d)
	if err != nil {
		return domain.Task{}, err
	}
	c.evict(ctx)
	return t, nil
}

func (c *Cache) Update(ctx context.Context, id string, p domain.Patch) (domain.Task, error) {
	t, err := c.base.Update(ctx, id, p)
	if err != nil {
		return domain.Task{}, err
	}
	c.evict(ctx)
	return t, nil
}

func (c *Cache) Delete(ctx context.Context, id string) error {
	if err := c.base.Delete(ctx, id); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *Cache) Reorder(ctx context.Context, status domain.Status, ids []string) ([]domain.Task, error) {
	tasks, err := c.base.Reorder(ctx, status, ids)
	if err != nil {
		return nil, err
	}
	c.evict(ctx)
	return tasks, nil
}

func (c *Cache) loadTasksFromCache(ctx context.Context) ([]domain.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, tasksCacheKey(c.board)).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing store without failing.
			log.WithError(err).Debug("task cache read failed")
			_ = c.redis.Del(ctx, tasksCacheKey(c.board)).Err()
		}
		return nil, false
	}
	var tasks []domain.Task
	if err := sonic.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, tasksCacheKey(c.board)).Err()
		return nil, false
	}
	return tasks, true
}

// generation reads the mutation counter of the board. A list read from the
// backing store may only be cached while the counter is unchanged.
func (c *Cache) generation(ctx context.Context) (int64, bool) {
	if c.redis == nil || c.ttl == 0 {
		return 0, false
	}
	gen, err := c.redis.Get(ctx, generationKey(c.board)).Int64()
	if err == redis.Nil {
		return 0, true
	}
	if err != nil {
		log.WithError(err).Debug("task cache generation read failed")
		return 0, false
	}
	return gen, true
}

// storeTasks caches tasks unless a mutation bumped the generation since gen
// was read.
func (c *Cache) storeTasks(ctx context.Context, tasks []domain.Task, gen int64) {
	data, err := sonic.Marshal(tasks)
	if err != nil {
		return
	}
	genKey := generationKey(c.board)
	err = c.redis.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		if cur != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, tasksCacheKey(c.board), data, c.ttl)
			return nil
		})
		return err
	}, genKey)
	if err != nil {
		log.WithError(err).Debug("task cache store skipped")
	}
}

// evict bumps the generation and drops the cached list in one transaction.
func (c *Cache) evict(ctx context.Context) {
	if c.redis == nil {
		return
	}
	_, err := c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(c.board))
		pipe.Del(ctx, tasksCacheKey(c.board))
		return nil
	})
	if err != nil {
		log.WithError(err).Warn("task cache eviction failed")
	}
}

func tasksCacheKey(board string) string {
	return "tasks:" + board
}

func generationKey(board string) string {
	return tasksCacheKey(board) + ":gen"
}
