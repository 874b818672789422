package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on Redis. The indexing guard uses SET NX so
// two concurrent backfill triggers for the same user cannot both win.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func fullKey(userID string) string     { return "user:full_indexed:" + userID }
func indexingKey(userID string) string { return "user:indexing:" + userID }
func urlsKey(userID string) string     { return "user:urls:" + userID }
func errURLsKey(userID string) string  { return "user:error_urls:" + userID }

func (s *RedisStore) flag(ctx context.Context, key string) (bool, error) {
	_, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return true, nil
}

func (s *RedisStore) IsFullyIndexed(ctx context.Context, userID string) (bool, error) {
	return s.flag(ctx, fullKey(userID))
}

func (s *RedisStore) IsIndexing(ctx context.Context, userID string) (bool, error) {
	return s.flag(ctx, indexingKey(userID))
}

func (s *RedisStore) TryMarkIndexing(ctx context.Context, userID string) (bool, error) {
	ok, err := s.client.SetNX(ctx, indexingKey(userID), "1", 0).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", indexingKey(userID), err)
	}
	return ok, nil
}

func (s *RedisStore) MarkFullyIndexed(ctx context.Context, userID string) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, fullKey(userID), "1", 0)
	pipe.Del(ctx, indexingKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis mark fully indexed: %w", err)
	}
	return nil
}

func (s *RedisStore) ClearIndexing(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, indexingKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis clear indexing: %w", err)
	}
	return nil
}

func (s *RedisStore) AddURL(ctx context.Context, userID, url string) (int64, error) {
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, urlsKey(userID), url)
	card := pipe.SCard(ctx, urlsKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis add url: %w", err)
	}
	return card.Val(), nil
}

func (s *RedisStore) URLCount(ctx context.Context, userID string) (int64, error) {
	n, err := s.client.SCard(ctx, urlsKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis url count: %w", err)
	}
	return n, nil
}

func (s *RedisStore) URLExists(ctx context.Context, userID, url string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, urlsKey(userID), url).Result()
	if err != nil {
		return false, fmt.Errorf("redis url exists: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) AddErrorURL(ctx context.Context, userID, url string) error {
	if err := s.client.SAdd(ctx, errURLsKey(userID), url).Err(); err != nil {
		return fmt.Errorf("redis add error url: %w", err)
	}
	return nil
}
