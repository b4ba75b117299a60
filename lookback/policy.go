package lookback

import (
	"math"

	"github.com/wyfcoding/lookback/config"
)

// SamplePolicy 决定一次有限差分探测使用的路径数. step 为实际的扰动量.
type SamplePolicy interface {
	Paths(step float64) int
}

// PowerLaw 按 Coefficient * step^-Exponent 取路径数，并夹取到 [MinPaths, MaxPaths].
// Exponent 为 4 时截断误差与统计误差同阶.
type PowerLaw struct {
	Coefficient float64
	Exponent    float64
	MinPaths    int
	MaxPaths    int
}

// DefaultPolicy 返回 1·step⁻⁴，夹取到 [10 000, 20 000 000].
func DefaultPolicy() PowerLaw {
	return PowerLaw{Coefficient: 1, Exponent: 4, MinPaths: 10_000, MaxPaths: 20_000_000}
}

// Paths 实现 SamplePolicy.
func (p PowerLaw) Paths(step float64) int {
	n := p.Coefficient * math.Pow(math.Abs(step), -p.Exponent)
	switch {
	case math.IsNaN(n) || n >= float64(p.MaxPaths):
		return max(p.MaxPaths, 1)
	case n <= float64(p.MinPaths):
		return max(p.MinPaths, 1)
	}
	return int(math.Round(n))
}

// Fixed 对所有探测使用相同的路径数.
type Fixed struct {
	N int
}

// Paths 实现 SamplePolicy.
func (f Fixed) Paths(float64) int {
	return max(f.N, 1)
}

// PolicyFromConfig 根据配置构造路径数策略.
func PolicyFromConfig(cfg config.GreeksConfig) SamplePolicy {
	if cfg.Policy == "fixed" {
		return Fixed{N: cfg.FixedPaths}
	}
	return PowerLaw{
		Coefficient: cfg.Coefficient,
		Exponent:    cfg.Exponent,
		MinPaths:    cfg.MinPaths,
		MaxPaths:    cfg.MaxPaths,
	}
}
