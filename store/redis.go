// ABOUTME: Redis-backed workflow repository: one JSON string per workflow plus a sorted-set index.
// ABOUTME: The index is scored by update time so List returns newest first without scanning keys.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/2389-research/nodewire/workflow"
	"github.com/redis/go-redis/v9"
)

const (
	workflowPrefix = "workflow:"
	workflowIndex  = "workflows"
)

// RedisRepository persists workflows in Redis.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

// OpenRedis connects to the Redis instance at redisURL and pings it.
func OpenRedis(ctx context.Context, redisURL string) (*RedisRepository, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis backend requires a redis URL")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisRepository{client: client}, nil
}

// WithKeyPrefix namespaces every key, so tests and tenants can share an
// instance.
func (r *RedisRepository) WithKeyPrefix(prefix string) *RedisRepository {
	r.prefix = prefix
	return r
}

func (r *RedisRepository) key(id string) string {
	return r.prefix + workflowPrefix + id
}

func (r *RedisRepository) indexKey() string {
	return r.prefix + workflowIndex
}

// Close closes the client.
func (r *RedisRepository) Close() error {
	return r.client.Close()
}

// Create stores a new workflow and indexes it.
func (r *RedisRepository) Create(ctx context.Context, g *workflow.Graph) (Workflow, error) {
	w := newRecord(g, time.Now().UTC())
	data, err := json.Marshal(w)
	if err != nil {
		return Workflow{}, fmt.Errorf("marshal workflow: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(w.ID), data, 0)
		pipe.ZAdd(ctx, r.indexKey(), redis.Z{Score: float64(w.UpdatedAt.UnixNano()), Member: w.ID})
		return nil
	})
	if err != nil {
		return Workflow{}, fmt.Errorf("store workflow: %w", err)
	}
	return w, nil
}

// Get loads one workflow.
func (r *RedisRepository) Get(ctx context.Context, id string) (Workflow, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Workflow{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Workflow{}, fmt.Errorf("get workflow: %w", err)
	}

	var w Workflow
	if err := json.Unmarshal(data, &w); err != nil {
		return Workflow{}, fmt.Errorf("decode workflow %s: %w", id, err)
	}
	w.Nodes = nonNil(w.Nodes)
	w.Edges = nonNilEdges(w.Edges)
	return w, nil
}

// List returns summaries newest first. Index entries whose record vanished
// are skipped.
func (r *RedisRepository) List(ctx context.Context) ([]Summary, error) {
	ids, err := r.client.ZRevRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list workflow ids: %w", err)
	}

	summaries := make([]Summary, 0, len(ids))
	for _, id := range ids {
		w, err := r.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summarize(w))
	}
	return summaries, nil
}

// Delete removes a workflow and its index entry.
func (r *RedisRepository) Delete(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, r.key(id))
		pipe.ZRem(ctx, r.indexKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	if del.Val() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
