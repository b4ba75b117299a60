package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"log/slog"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/wyfcoding/lookback/metrics"
	"golang.org/x/sync/singleflight"
)

// PriceCache 缓存确定性的定价结果. 相同的键并发请求时只计算一次.
type PriceCache struct {
	store  Cache
	group  singleflight.Group
	logger *slog.Logger
	hits   prometheus.Counter
	misses prometheus.Counter
}

// NewPriceCache 基于任意 Cache 构造价格缓存，m 为 nil 时不采集指标.
func NewPriceCache(store Cache, m *metrics.Metrics, logger *slog.Logger) *PriceCache {
	if logger == nil {
		logger = slog.Default()
	}
	pc := &PriceCache{store: store, logger: logger}
	if m != nil {
		pc.hits = m.NewCounter(&prometheus.CounterOpts{
			Name: "lookback_price_cache_hits_total",
			Help: "Number of price lookups served from cache",
		})
		pc.misses = m.NewCounter(&prometheus.CounterOpts{
			Name: "lookback_price_cache_misses_total",
			Help: "Number of price lookups that ran a simulation",
		})
	}
	return pc
}

// GetOrCompute 返回 key 对应的价格；未命中时调用 compute 并写回缓存.
// compute 的错误原样返回且不缓存. hit 表示结果来自缓存.
func (c *PriceCache) GetOrCompute(ctx context.Context, key string, compute func() (float64, error)) (price float64, hit bool, err error) {
	if v, ok := c.lookup(ctx, key); ok {
		c.observe(true)
		return v, true, nil
	}

	res, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.lookup(ctx, key); ok {
			return v, nil
		}
		v, err := compute()
		if err != nil {
			return 0.0, err
		}
		if setErr := c.store.Set(ctx, key, encodeFloat(v)); setErr != nil {
			c.logger.WarnContext(ctx, "price cache write failed", "key", key, "error", setErr)
		}
		return v, nil
	})
	c.observe(false)
	if err != nil {
		return 0, false, err
	}
	return res.(float64), false, nil
}

// Invalidate 删除指定键.
func (c *PriceCache) Invalidate(ctx context.Context, keys ...string) error {
	return c.store.Delete(ctx, keys...)
}

// Close 关闭底层存储.
func (c *PriceCache) Close() error {
	return c.store.Close()
}

func (c *PriceCache) lookup(ctx context.Context, key string) (float64, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.logger.WarnContext(ctx, "price cache read failed", "key", key, "error", err)
		}
		return 0, false
	}
	v, ok := decodeFloat(data)
	return v, ok
}

func (c *PriceCache) observe(hit bool) {
	switch {
	case hit && c.hits != nil:
		c.hits.Inc()
	case !hit && c.misses != nil:
		c.misses.Inc()
	}
}

func encodeFloat(v float64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	return b[:]
}

func decodeFloat(b []byte) (float64, bool) {
	if len(b) != 8 {
		return 0, false
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), true
}
