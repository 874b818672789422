// Package history exposes a user's historical chat/search items to the
// backfill job. The chat layer writes them; this service only reads.
package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Item is one historical entry to re-ingest.
type Item struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Source lists a user's full history.
type Source interface {
	List(ctx context.Context, userID string) ([]Item, error)
}

// RedisSource reads history items from the per-user Redis list written by
// the chat layer.
type RedisSource struct {
	client *redis.Client
}

// NewRedisSource wraps an existing Redis client.
func NewRedisSource(client *redis.Client) *RedisSource {
	return &RedisSource{client: client}
}

func historyKey(userID string) string { return "user:history:" + userID }

// List returns every history item for the user, oldest first. Entries that
// fail to parse are skipped; one malformed entry must not sink the backfill.
func (s *RedisSource) List(ctx context.Context, userID string) ([]Item, error) {
	raw, err := s.client.LRange(ctx, historyKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis history list: %w", err)
	}
	items := make([]Item, 0, len(raw))
	for _, entry := range raw {
		var item Item
		if err := json.Unmarshal([]byte(entry), &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}
