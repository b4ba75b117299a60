package lookback

import (
	"context"
	"math"

	"github.com/wyfcoding/lookback/xerrors"
)

// DefaultMaxGraphPoints 是单条曲线允许的采样点数上限.
const DefaultMaxGraphPoints = 10_000

// Graph 是按现货采样的曲线，X 与 Y 等长. Points 是完整曲线的点数，
// 按 limit 截取时可能大于 Len.
type Graph struct {
	X      []float64
	Y      []float64
	Points int
}

// Len 返回已计算的采样点数.
func (g Graph) Len() int { return len(g.X) }

// GraphPoints 返回步长 dx 下满足 i·dx < 2 的采样点数. maxPoints > 0 时，
// 点数超过 maxPoints 返回 ErrTooManyGraphPoints.
func GraphPoints(dx float64, maxPoints int) (int, error) {
	if !(dx > 0) || math.IsInf(dx, 1) {
		return 0, xerrors.ErrInvalidGraphStep.WithDetail("dx=%g", dx)
	}
	// 先在浮点域比较，避免极小 dx 转换为 int 时溢出.
	if maxPoints > 0 && 2/dx > float64(maxPoints) {
		return 0, xerrors.ErrTooManyGraphPoints.WithDetail("dx=%g exceeds %d points", dx, maxPoints)
	}
	n := int(math.Ceil(2 / dx))
	for n > 1 && float64(n-1)*dx >= 2 {
		n--
	}
	for float64(n)*dx < 2 {
		n++
	}
	if maxPoints > 0 && n > maxPoints {
		return 0, xerrors.ErrTooManyGraphPoints.WithDetail("dx=%g exceeds %d points", dx, maxPoints)
	}
	return n, nil
}

// GraphSpots 返回采样现货 0, dx·S0, 2dx·S0, ...，不含 2·S0. limit > 0 时只返回前 limit 个.
func GraphSpots(spot, dx float64, limit int) ([]float64, error) {
	n, err := GraphPoints(dx, 0)
	if err != nil {
		return nil, err
	}
	if limit > 0 && limit < n {
		n = limit
	}
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i) * dx * spot
	}
	return xs, nil
}

// GraphPoints 返回步长 dx 下的曲线点数，受引擎的点数上限约束，不做定价.
func (e *Engine) GraphPoints(dx float64) (int, error) {
	return GraphPoints(dx, e.maxGraphPoints)
}

// GraphPrice 在各采样现货处以默认路径数定价. limit > 0 时只计算前 limit 个点.
func (e *Engine) GraphPrice(ctx context.Context, dx float64, limit int) (Graph, error) {
	c := e.contract
	return e.graph(ctx, dx, limit, func(s float64) (float64, error) {
		return e.price(ctx, s, c.sigma, c.rate, c.ttm, e.defaultPaths)
	})
}

// GraphDelta 在各采样现货处计算 Delta. limit > 0 时只计算前 limit 个点.
func (e *Engine) GraphDelta(ctx context.Context, dx float64, limit int) (Graph, error) {
	return e.graph(ctx, dx, limit, func(s float64) (float64, error) {
		return e.Delta(ctx, s)
	})
}

func (e *Engine) graph(ctx context.Context, dx float64, limit int, f func(s float64) (float64, error)) (Graph, error) {
	n, err := e.GraphPoints(dx)
	if err != nil {
		return Graph{}, err
	}
	xs, err := GraphSpots(e.contract.spot, dx, limit)
	if err != nil {
		return Graph{}, err
	}
	ys := make([]float64, len(xs))
	for i, x := range xs {
		if err := ctx.Err(); err != nil {
			return Graph{}, err
		}
		if ys[i], err = f(x); err != nil {
			return Graph{}, err
		}
	}
	return Graph{X: xs, Y: ys, Points: n}, nil
}
