package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"comerge/internal/pkg/config"
	"comerge/internal/pkg/logger"
)

// keyPrefix 是全部缓存键的命名空间，避免和同一 Redis 上的其他应用冲突。
const keyPrefix = "comerge:"

// Cache 是读多写少的旁路缓存。
// 它不在正确性路径上: 任何 Redis 故障都按 miss 处理，写路径的失效是尽力而为。
type Cache struct {
	client *redis.Client
	group  singleflight.Group
}

// New 创建缓存实例。cfg.Enabled 为 false 时返回降级实例，
// 所有读操作 miss、写操作为 no-op，调用方无需判空。
func New(cfg config.RedisConfig) *Cache {
	if !cfg.Enabled {
		return &Cache{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Cache{client: client}
}

func makeKey(key string) string {
	return keyPrefix + key
}

// Get 读取并反序列化缓存值到 dest，命中返回 true。
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) bool {
	if c.client == nil {
		return false
	}
	data, err := c.client.Get(ctx, makeKey(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache get failed")
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache value corrupted, treating as miss")
		return false
	}
	return true
}

// Set 序列化并写入缓存，失败只记日志。
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if c.client == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache marshal failed")
		return
	}
	if err := c.client.Set(ctx, makeKey(key), data, ttl).Err(); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

// Delete 删除指定键，失败只记日志。
func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if c.client == nil || len(keys) == 0 {
		return
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = makeKey(k)
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Strs("keys", keys).Msg("cache delete failed")
	}
}

// GetOrSet 实现 read-through: miss 时调用 load 回源并写缓存。
// 同一个键的并发 miss 通过 singleflight 合并为一次回源。
// 回源失败时错误原样返回，缓存故障时直接回源。
func (c *Cache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration,
	load func(ctx context.Context) (interface{}, error)) error {

	if c.Get(ctx, key, dest) {
		return nil
	}

	value, err, _ := c.group.Do(key, func() (interface{}, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if v != nil {
			c.Set(ctx, key, v, ttl)
		}
		return v, nil
	})
	if err != nil {
		return err
	}

	// 借道 JSON 把回源结果复制进 dest，与缓存命中路径保持同一套编解码
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// DeleteByPrefix 删除命名空间下指定前缀的全部键。
// Redis 没有真正的通配删除，这里用 SCAN 分批发现再删除，仍然是尽力而为。
func (c *Cache) DeleteByPrefix(ctx context.Context, prefix string) {
	if c.client == nil {
		return
	}
	pattern := makeKey(prefix) + "*"
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("prefix", prefix).Msg("cache scan failed")
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				logger.Ctx(ctx).Warn().Err(err).Str("prefix", prefix).Msg("cache prefix delete failed")
				return
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}

// Close 关闭底层连接。
func (c *Cache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
