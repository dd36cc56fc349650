package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore keeps one JSON document per user under session:<userID>.
type RedisStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	return &RedisStore{redis: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, userID string) (Context, error) {
	data, err := s.redis.Get(ctx, sessionKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Context{}, ErrNotFound
		}
		return Context{}, fmt.Errorf("session: failed to load: %w", err)
	}

	var sc Context
	if err := json.Unmarshal(data, &sc); err != nil {
		return Context{}, fmt.Errorf("session: failed to decode: %w", err)
	}
	return sc, nil
}

func (s *RedisStore) Set(ctx context.Context, sc Context) error {
	if sc.UserID == "" {
		return errors.New("session: user id is required")
	}
	data, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("session: failed to encode: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(sc.UserID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("session: failed to persist: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, userID string) error {
	if err := s.redis.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("session: failed to clear: %w", err)
	}
	return nil
}

func sessionKey(userID string) string {
	return fmt.Sprintf("session:%s", userID)
}
