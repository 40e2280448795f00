package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"PrepBot/backend/go/internal/config"
	"PrepBot/backend/go/pkg/util"

	"github.com/go-redis/redis/v8"
)

// VectorCache 缓存文本对应的嵌入向量。
type VectorCache interface {
	// Get 返回缓存的向量; 未命中时 ok 为 false。
	Get(ctx context.Context, key string) (vec []float32, ok bool, err error)
	// Set 写入向量。
	Set(ctx context.Context, key string, vec []float32) error
}

// Key 根据模型名称和文本生成缓存键。不同模型的向量不能混用。
func Key(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// New 根据配置创建缓存实现。
//
// 参数:
//
//	cfg: 缓存配置。
//	rdb: Redis 客户端, 仅在 provider 为 "redis" 时需要。
//
// 返回值:
//
//	VectorCache: 缓存实例; provider 为 "none" 时返回 nil。
//	error: 配置无效时返回错误。
func New(cfg config.CacheConfig, rdb *redis.Client) (VectorCache, error) {
	ttl := config.Duration(cfg.TTL, 0)
	switch cfg.Provider {
	case "none", "":
		return nil, nil
	case "lru":
		return NewMemory(cfg.Capacity, ttl)
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("redis 缓存需要 Redis 客户端")
		}
		return NewRedis(rdb, cfg.KeyPrefix, ttl), nil
	default:
		return nil, fmt.Errorf("不支持的缓存提供商: %s", cfg.Provider)
	}
}

// Memory 是基于进程内 LRU 的缓存。
type Memory struct {
	lru *util.LRUCache[string, []float32]
}

// NewMemory 创建一个进程内缓存。
func NewMemory(capacity int, ttl time.Duration) (*Memory, error) {
	lru, err := util.NewLRU[string, []float32](util.CacheConfig{Capacity: capacity, TTL: ttl})
	if err != nil {
		return nil, err
	}
	return &Memory{lru: lru}, nil
}

// Get 返回缓存向量的副本。
func (m *Memory) Get(_ context.Context, key string) ([]float32, bool, error) {
	vec, ok := m.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	return append([]float32(nil), vec...), true, nil
}

// Set 保存向量的副本, 调用方之后修改切片不会影响缓存。
func (m *Memory) Set(_ context.Context, key string, vec []float32) error {
	m.lru.Put(key, append([]float32(nil), vec...))
	return nil
}

var (
	_ VectorCache = (*Memory)(nil)
	_ VectorCache = (*Redis)(nil)
)
