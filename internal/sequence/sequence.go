// Package sequence hands out per-restaurant order numbers. Numbers start at
// 1, strictly increase and are never reused, even when the order that took
// one is later cancelled.
package sequence

import (
	"context"
	"fmt"

	"github.com/dinepos/api/internal/apperr"
	"github.com/dinepos/api/internal/docstore"
	"github.com/redis/go-redis/v9"
)

// Sequencer is satisfied by *Store and *Redis.
type Sequencer interface {
	Next(ctx context.Context, restaurantID string) (int64, error)
}

// CounterPath is the counter document of a restaurant.
func CounterPath(restaurantID string) string {
	return docstore.Join("restaurants", restaurantID, "metadata", "orderCounter")
}

const counterField = "current"

// Store keeps the counter in the document store and relies on its atomic
// Increment.
type Store struct {
	docs docstore.Store
}

func NewStore(docs docstore.Store) *Store {
	return &Store{docs: docs}
}

func (s *Store) Next(ctx context.Context, restaurantID string) (int64, error) {
	n, err := s.docs.Increment(ctx, CounterPath(restaurantID), counterField, 1)
	if err != nil {
		return 0, fmt.Errorf("next order number: %w", err)
	}
	return n, nil
}

// Redis keeps counters as plain Redis integers under the counter path.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// DialRedis parses a redis:// URL and checks the server answers.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (r *Redis) Next(ctx context.Context, restaurantID string) (int64, error) {
	n, err := r.client.Incr(ctx, CounterPath(restaurantID)).Result()
	if err != nil {
		return 0, apperr.Backend(fmt.Errorf("next order number: %w", err))
	}
	return n, nil
}
