package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
)

// BigCache 使用 allegro/bigcache 实现 Cache. 所有键共享同一个 TTL.
type BigCache struct {
	cache *bigcache.BigCache
}

// NewBigCache 创建并返回一个新的 BigCache 实例。
func NewBigCache(opts Options) (*BigCache, error) {
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Minute
	}
	config := bigcache.DefaultConfig(opts.TTL)
	config.HardMaxCacheSize = opts.MaxMB
	if opts.Shards > 0 {
		config.Shards = opts.Shards
	}
	config.CleanWindow = opts.TTL / 2
	config.MaxEntrySize = 64
	config.Verbose = false

	cache, err := bigcache.New(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("init bigcache failed: %w", err)
	}

	return &BigCache{cache: cache}, nil
}

// Get 读取原始字节，未命中时返回 ErrCacheMiss.
func (c *BigCache) Get(_ context.Context, key string) ([]byte, error) {
	data, err := c.cache.Get(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, ErrCacheMiss
	}
	return data, err
}

// Set 写入原始字节.
func (c *BigCache) Set(_ context.Context, key string, value []byte) error {
	return c.cache.Set(key, value)
}

// Delete 删除一个或多个键，键不存在不视为错误.
func (c *BigCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		if err := c.cache.Delete(key); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
			return err
		}
	}
	return nil
}

// Len 返回当前条目数.
func (c *BigCache) Len() int {
	return c.cache.Len()
}

// Reset 清空全部条目.
func (c *BigCache) Reset() error {
	return c.cache.Reset()
}

// Close 关闭 BigCache 实例，释放其占用的资源。
func (c *BigCache) Close() error {
	return c.cache.Close()
}
