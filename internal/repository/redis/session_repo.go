package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrTokenNotFound    = errors.New("token not found")
	ErrRedisUnavailable = errors.New("redis unavailable")
)

const UserTokenPrefix = "login:user:token"

// SessionRepository 每个用户只保留一个有效 access token
type SessionRepository struct {
	Client *redis.Client
	TTL    time.Duration
}

func (r *SessionRepository) key(userID uint64) string {
	return fmt.Sprintf("%s:%d", UserTokenPrefix, userID)
}

func (r *SessionRepository) Save(ctx context.Context, userID uint64, token string) error {
	if err := r.Client.Set(ctx, r.key(userID), token, r.TTL).Err(); err != nil {
		return ErrRedisUnavailable
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, userID uint64) (string, error) {
	token, err := r.Client.Get(ctx, r.key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", ErrRedisUnavailable
	}
	return token, nil
}

// Extend 校验通过后续期
func (r *SessionRepository) Extend(ctx context.Context, userID uint64) error {
	return r.Client.Expire(ctx, r.key(userID), r.TTL).Err()
}

func (r *SessionRepository) Delete(ctx context.Context, userID uint64) error {
	return r.Client.Del(ctx, r.key(userID)).Err()
}
