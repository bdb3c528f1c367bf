package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisStore implements Store on a Redis hash per session scope.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func scopeKey(scope Scope) string {
	return fmt.Sprintf("shared_memory:%s:%s", scope.UserID, scope.SessionID)
}

// Put implements Store.
func (s *redisStore) Put(ctx context.Context, scope Scope, key, value string) error {
	hashKey := scopeKey(scope)
	if err := s.client.HSet(ctx, hashKey, key, value).Err(); err != nil {
		return fmt.Errorf("failed to write memory entry: %w", err)
	}
	// Refresh TTL on write so active sessions don't expire mid-conversation.
	return s.client.Expire(ctx, hashKey, s.ttl).Err()
}

// Get implements Store.
func (s *redisStore) Get(ctx context.Context, scope Scope, key string) (string, bool, error) {
	value, err := s.client.HGet(ctx, scopeKey(scope), key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read memory entry: %w", err)
	}
	return value, true, nil
}

// List implements Store.
func (s *redisStore) List(ctx context.Context, scope Scope) (map[string]string, error) {
	entries, err := s.client.HGetAll(ctx, scopeKey(scope)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list memory entries: %w", err)
	}
	return entries, nil
}

// Purge implements Store.
func (s *redisStore) Purge(ctx context.Context, scope Scope) error {
	return s.client.Del(ctx, scopeKey(scope)).Err()
}

// Close implements Store.
func (s *redisStore) Close() error {
	return s.client.Close()
}
