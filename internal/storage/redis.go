package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "binbuddy:"

// RedisBackend stores records as JSON in Redis lists so several server
// instances can share one moderation history.
//
//	binbuddy:behavior:<user>  per-user records, append order
//	binbuddy:incidents        all records, append order
//	binbuddy:unanswered       unanswered questions, append order
type RedisBackend struct {
	client *redis.Client
}

// OpenRedis connects to the server at url (redis://...) and verifies it
// responds.
func OpenRedis(ctx context.Context, url string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return NewRedisBackend(client), nil
}

// NewRedisBackend wraps an existing client.
func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func behaviorKey(userID string) string { return redisPrefix + "behavior:" + userID }

const (
	incidentsKey  = redisPrefix + "incidents"
	unansweredKey = redisPrefix + "unanswered"
)

func (r *RedisBackend) AppendBehavior(ctx context.Context, rec BehaviorRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling behavior record: %w", err)
	}
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, behaviorKey(rec.UserID), data)
		p.RPush(ctx, incidentsKey, data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("appending behavior record: %w", err)
	}
	return nil
}

func (r *RedisBackend) BehaviorFor(ctx context.Context, userID string) ([]BehaviorRecord, error) {
	items, err := r.client.LRange(ctx, behaviorKey(userID), 0, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("loading behavior for %s: %w", userID, err)
	}
	return decodeAll[BehaviorRecord](items)
}

func (r *RedisBackend) ListBehavior(ctx context.Context, limit int) ([]BehaviorRecord, error) {
	items, err := r.tail(ctx, incidentsKey, limit)
	if err != nil {
		return nil, err
	}
	recs, err := decodeAll[BehaviorRecord](items)
	if err != nil {
		return nil, err
	}
	return newestFirst(recs, 0), nil
}

func (r *RedisBackend) AppendUnanswered(ctx context.Context, q UnansweredQuestion) error {
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshaling unanswered question: %w", err)
	}
	return r.client.RPush(ctx, unansweredKey, data).Err()
}

func (r *RedisBackend) ListUnanswered(ctx context.Context, limit int) ([]UnansweredQuestion, error) {
	items, err := r.tail(ctx, unansweredKey, limit)
	if err != nil {
		return nil, err
	}
	qs, err := decodeAll[UnansweredQuestion](items)
	if err != nil {
		return nil, err
	}
	return newestFirst(qs, 0), nil
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}

// tail returns the last limit items of a list in append order.
func (r *RedisBackend) tail(ctx context.Context, key string, limit int) ([]string, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}
	items, err := r.client.LRange(ctx, key, start, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return items, nil
}

func decodeAll[T any](items []string) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, it := range items {
		var v T
		if err := json.Unmarshal([]byte(it), &v); err != nil {
			return nil, fmt.Errorf("decoding %T: %w", v, err)
		}
		out = append(out, v)
	}
	return out, nil
}
