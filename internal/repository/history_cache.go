package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"launchgpt-go/internal/model"
)

// HistoryCache 缓存每个用户最近的聊天记录列表。
//
// 每个用户有一个代数 (generation)，缓存按代数分键保存。写库之后调用 Invalidate
// 使代数加一；读库之前取得的代数在写库后已经过期，用它写入的列表不会再被读到。
type HistoryCache interface {
	Generation(ctx context.Context, userID uint) (int64, error)
	Get(ctx context.Context, userID uint, gen int64) ([]model.ChatRecord, bool, error)
	Set(ctx context.Context, userID uint, gen int64, records []model.ChatRecord) error
	Invalidate(ctx context.Context, userID uint) error
}

type redisHistoryCache struct {
	redisClient *redis.Client
	ttl         time.Duration
}

// NewHistoryCache 创建基于 Redis 的 HistoryCache。
func NewHistoryCache(redisClient *redis.Client, ttl time.Duration) HistoryCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &redisHistoryCache{redisClient: redisClient, ttl: ttl}
}

// HistoryKey 返回用户某一代历史缓存的键。
func HistoryKey(userID uint, gen int64) string {
	return fmt.Sprintf("chat:history:%d:%d", userID, gen)
}

// GenerationKey 返回用户历史缓存代数的键。
func GenerationKey(userID uint) string {
	return fmt.Sprintf("chat:history:gen:%d", userID)
}

// Generation 返回当前代数，键不存在时为 0。
func (r *redisHistoryCache) Generation(ctx context.Context, userID uint) (int64, error) {
	gen, err := r.redisClient.Get(ctx, GenerationKey(userID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get chat history generation: %w", err)
	}
	return gen, nil
}

// Get 读取指定代数的缓存，未命中时返回 ok == false。
func (r *redisHistoryCache) Get(ctx context.Context, userID uint, gen int64) ([]model.ChatRecord, bool, error) {
	data, err := r.redisClient.Get(ctx, HistoryKey(userID, gen)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get chat history cache: %w", err)
	}
	var records []model.ChatRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal chat history cache: %w", err)
	}
	return records, true, nil
}

// Set 以指定代数写入缓存并设置过期时间。过期代数写入的键不会再被读取，随 TTL 清理。
func (r *redisHistoryCache) Set(ctx context.Context, userID uint, gen int64, records []model.ChatRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal chat history cache: %w", err)
	}
	if err := r.redisClient.Set(ctx, HistoryKey(userID, gen), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set chat history cache: %w", err)
	}
	return nil
}

// Invalidate 使用户的代数加一，之前的缓存全部失效。
func (r *redisHistoryCache) Invalidate(ctx context.Context, userID uint) error {
	if err := r.redisClient.Incr(ctx, GenerationKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate chat history cache: %w", err)
	}
	return nil
}
