// Package redis keeps per-user preferences in one Redis hash per user.
package redis

import (
	"context"
	"errors"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "prefs:"

type PreferencesStore struct {
	client *redis.Client
}

func NewPreferencesStore(client *redis.Client) *PreferencesStore {
	return &PreferencesStore{client: client}
}

func hashKey(userID string) string {
	return keyPrefix + userID
}

func (s *PreferencesStore) Get(ctx context.Context, userID, key string) (string, bool, error) {
	value, err := s.client.HGet(ctx, hashKey(userID), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *PreferencesStore) Set(ctx context.Context, userID, key, value string) error {
	return s.client.HSet(ctx, hashKey(userID), key, value).Err()
}

func (s *PreferencesStore) Delete(ctx context.Context, userID, key string) error {
	return s.client.HDel(ctx, hashKey(userID), key).Err()
}

func (s *PreferencesStore) All(ctx context.Context, userID string) (map[string]string, error) {
	return s.client.HGetAll(ctx, hashKey(userID)).Result()
}
