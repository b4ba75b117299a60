package lookback

import (
	"context"
	"fmt"
	"math"

	"github.com/wyfcoding/lookback/cache"
)

// CachedPricer 缓存确定性的蒙特卡洛结果. 键包含影响结果的全部输入，
// 因此命中与重新计算得到的值逐位相同.
type CachedPricer struct {
	next  *MonteCarlo
	cache *cache.PriceCache
}

// NewCachedPricer 包装一个 MonteCarlo 定价器.
func NewCachedPricer(next *MonteCarlo, c *cache.PriceCache) *CachedPricer {
	return &CachedPricer{next: next, cache: c}
}

// Price 实现 Pricer. 参数错误不会进入缓存.
func (p *CachedPricer) Price(ctx context.Context, s, sigma, r, t float64, n int) (float64, error) {
	if err := checkPriceArgs(s, sigma, r, t, n); err != nil {
		return 0, err
	}
	price, _, err := p.cache.GetOrCompute(ctx, p.key(s, sigma, r, t, n), func() (float64, error) {
		return p.next.Price(ctx, s, sigma, r, t, n)
	})
	return price, err
}

func (p *CachedPricer) key(s, sigma, r, t float64, n int) string {
	return fmt.Sprintf("%c:%x:%x:%x:%x:%d:%x:%d",
		byte(p.next.Kind),
		math.Float64bits(s), math.Float64bits(sigma), math.Float64bits(r), math.Float64bits(t),
		n, p.next.Seed, p.next.Workers)
}
