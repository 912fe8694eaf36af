package store

import (
	"context"
	"errors"
	"strconv"
	"time"
)

type userOptions struct {
	Lang string `json:"lang,omitempty"`
}

// RedisUserStore keeps per-user chat preferences with a sliding TTL.
type RedisUserStore struct {
	client *RedisClient
	ttl    time.Duration
}

func NewRedisUserStore(redisClient *RedisClient, ttlHours int) *RedisUserStore {
	ttl := time.Duration(ttlHours) * time.Hour
	if ttlHours <= 0 {
		ttl = 30 * 24 * time.Hour
	}

	return &RedisUserStore{
		client: redisClient,
		ttl:    ttl,
	}
}

func (s *RedisUserStore) optionsKey(userID int64) string {
	return s.client.generateKey("user_options", strconv.FormatInt(userID, 10))
}

func (s *RedisUserStore) GetLang(ctx context.Context, userID int64) (string, error) {
	var opts userOptions
	if err := s.client.Get(ctx, s.optionsKey(userID), &opts); err != nil {
		if errors.Is(err, errKeyNotFound) {
			return "", nil
		}
		return "", err
	}
	return opts.Lang, nil
}

func (s *RedisUserStore) SetLang(ctx context.Context, userID int64, lang string) error {
	return s.client.Set(ctx, s.optionsKey(userID), userOptions{Lang: lang}, s.ttl)
}

func (s *RedisUserStore) ClearLang(ctx context.Context, userID int64) error {
	return s.client.Del(ctx, s.optionsKey(userID))
}
