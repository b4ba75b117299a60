// Package cache 提供本地内存缓存以及面向定价结果的去重缓存.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss 表示键不存在或已过期.
var ErrCacheMiss = errors.New("cache miss")

// Cache 是字节级缓存的最小接口.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// Options 描述缓存容量与过期策略.
type Options struct {
	TTL    time.Duration // 全局过期时间
	MaxMB  int           // 最大内存占用 (MB)，0 表示不限制
	Shards int           // 分片数，必须为 2 的幂
}
