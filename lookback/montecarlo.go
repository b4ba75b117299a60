package lookback

import (
	"context"
	"math"

	"github.com/wyfcoding/lookback/algorithm/sim"
	"github.com/wyfcoding/lookback/config"
	"github.com/wyfcoding/lookback/xerrors"
)

// DefaultSeed 是全局随机种子的默认值，工作单元的随机流由它与序号派生.
const DefaultSeed = config.DefaultSeed

// Pricer 返回折现后的期权价格估计.
type Pricer interface {
	Price(ctx context.Context, s, sigma, r, t float64, n int) (float64, error)
}

// Estimate 是带标准误差的价格估计. Paths 为对偶抽样的对数.
type Estimate struct {
	Price  float64
	StdErr float64
	Paths  int
}

// MonteCarlo 是蒙特卡洛定价器. 对固定的 (n, Workers, Seed) 结果逐位可复现.
type MonteCarlo struct {
	Kind     OptionKind
	Seed     uint64
	Workers  int
	Executor sim.Executor
}

// Price 实现 Pricer.
func (m *MonteCarlo) Price(ctx context.Context, s, sigma, r, t float64, n int) (float64, error) {
	est, err := m.Estimate(ctx, s, sigma, r, t, n)
	return est.Price, err
}

// Estimate 执行 n 次对偶抽样，返回价格与标准误差.
// s == 0 时标的退化为 0，价格恰为 0。
func (m *MonteCarlo) Estimate(ctx context.Context, s, sigma, r, t float64, n int) (Estimate, error) {
	if err := checkPriceArgs(s, sigma, r, t, n); err != nil {
		return Estimate{}, err
	}
	if s == 0 {
		return Estimate{Paths: n}, nil
	}

	kernel := m.kernel(s, sigma, r, t)
	total, err := sim.Reduce(ctx, m.Executor, n, m.Workers, m.Seed, kernel)
	if err != nil {
		return Estimate{}, err
	}

	discount := math.Exp(-r * t)
	nf := float64(n)
	mean := total.Sum / (2 * nf)
	est := Estimate{Price: discount * mean, Paths: n}
	if n > 1 {
		variance := (total.SumSq/nf - mean*mean) * nf / (nf - 1)
		if variance > 0 {
			est.StdErr = discount * math.Sqrt(variance/nf)
		}
	}
	return est, nil
}

// kernel 返回单个工作单元的抽样循环. 每次抽样依次消耗 Z、U1、U2：
// U1 给 ln S + μT - σ√T·Z 分支抽取极值，U2 给 ln S + μT + σ√T·Z 分支.
func (m *MonteCarlo) kernel(s, sigma, r, t float64) sim.Kernel {
	logS := math.Log(s)
	drift := (r - 0.5*sigma*sigma) * t
	vol := sigma * math.Sqrt(t)
	bridge := 2 * sigma * sigma * t
	sign := -1.0
	if m.Kind == Put {
		sign = 1.0
	}

	extremum := func(end, u float64) float64 {
		d := end - logS
		rad := d*d - bridge*math.Log(1-u)
		if rad < 0 {
			rad = 0
		}
		return math.Exp(0.5*(logS+end) + sign*0.5*math.Sqrt(rad))
	}
	payoff := func(end, u float64) float64 {
		if sign < 0 {
			return math.Exp(end) - extremum(end, u)
		}
		return extremum(end, u) - math.Exp(end)
	}

	return func(stream *sim.Stream, count int) sim.Partial {
		var p sim.Partial
		for range count {
			z := stream.Normal()
			u1 := stream.Uniform()
			u2 := stream.Uniform()

			pair := payoff(logS+drift-vol*z, u1) + payoff(logS+drift+vol*z, u2)
			p.Sum += pair
			p.SumSq += 0.25 * pair * pair
			p.Count++
		}
		return p
	}
}

func checkPriceArgs(s, sigma, r, t float64, n int) error {
	switch {
	case n <= 0:
		return xerrors.ErrInvalidPathCount.WithDetail("N=%d", n)
	case !(s >= 0) || math.IsInf(s, 0):
		return xerrors.ErrInvalidPriceArgument.WithDetail("S=%g", s)
	case !(sigma > 0) || math.IsInf(sigma, 0):
		return xerrors.ErrInvalidPriceArgument.WithDetail("sigma=%g", sigma)
	case !(r >= 0) || math.IsInf(r, 0):
		return xerrors.ErrInvalidPriceArgument.WithDetail("r=%g", r)
	case !(t >= 0) || math.IsInf(t, 0):
		return xerrors.ErrInvalidPriceArgument.WithDetail("T=%g", t)
	}
	return nil
}
