package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// SeenStore marks notification IDs in Redis so restarts and parallel
// instances do not answer the same post twice.
type SeenStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSeenStore(client *redis.Client, ttl time.Duration) *SeenStore {
	return &SeenStore{client: client, ttl: ttl}
}

func (s *SeenStore) MarkSeen(ctx context.Context, id string) (bool, error) {
	return s.client.SetNX(ctx, s.key(id), "1", s.ttl).Result()
}

func (s *SeenStore) key(id string) string {
	return "quiz:seen:" + id
}
