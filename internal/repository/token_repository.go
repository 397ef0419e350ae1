package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// TokenBlacklist 记录已登出的 access token。
type TokenBlacklist interface {
	Add(ctx context.Context, token string, ttl time.Duration) error
	Contains(ctx context.Context, token string) (bool, error)
}

type redisTokenBlacklist struct {
	redisClient *redis.Client
}

// NewTokenBlacklist 创建基于 Redis 的 token 黑名单。
func NewTokenBlacklist(redisClient *redis.Client) TokenBlacklist {
	return &redisTokenBlacklist{redisClient: redisClient}
}

func blacklistKey(token string) string {
	return "blacklist:" + token
}

// Add 将 token 加入黑名单，过期时间为 token 的剩余有效期。
func (r *redisTokenBlacklist) Add(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.redisClient.Set(ctx, blacklistKey(token), "true", ttl).Err(); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	return nil
}

// Contains 判断 token 是否已被拉黑。
func (r *redisTokenBlacklist) Contains(ctx context.Context, token string) (bool, error) {
	n, err := r.redisClient.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return n > 0, nil
}
