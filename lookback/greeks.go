package lookback

import (
	"context"

	"github.com/wyfcoding/lookback/tracing"
)

// 期限方向的扰动量（年）. 临近到期时换用更短的步长.
const (
	ThetaStep           = 3.0 / 365.0
	NearExpiryThetaStep = 0.5 / 365.0
	NearExpiryTTM       = 4.0 / 365.0
)

// Delta 在现货 s 处以步长 2h 做中心差分. s-2h < 0 时改用前向差分.
func (e *Engine) Delta(ctx context.Context, s float64) (float64, error) {
	ctx, span := tracing.StartSpan(ctx, "lookback.Delta", tracing.GreekKey.String("delta"))
	defer span.End()
	e.instr.observeGreek("delta")

	c := e.contract
	step := 2 * c.step
	n := e.policy.Paths(step)

	up, err := e.price(ctx, s+step, c.sigma, c.rate, c.ttm, n)
	if err != nil {
		return 0, err
	}
	if s-step < 0 {
		mid, err := e.price(ctx, s, c.sigma, c.rate, c.ttm, n)
		if err != nil {
			return 0, err
		}
		return (up - mid) / step, nil
	}
	down, err := e.price(ctx, s-step, c.sigma, c.rate, c.ttm, n)
	if err != nil {
		return 0, err
	}
	return (up - down) / (2 * step), nil
}

// Gamma 在 S0 处以步长 2h 做二阶中心差分. S0 < 2h 时改用前向二阶差分.
func (e *Engine) Gamma(ctx context.Context) (float64, error) {
	ctx, span := tracing.StartSpan(ctx, "lookback.Gamma", tracing.GreekKey.String("gamma"))
	defer span.End()
	e.instr.observeGreek("gamma")

	c := e.contract
	step := 2 * c.step
	n := e.policy.Paths(step)

	points := [3]float64{c.spot - step, c.spot, c.spot + step}
	if c.spot < step {
		points = [3]float64{c.spot, c.spot + step, c.spot + 2*step}
	}
	var p [3]float64
	for i, s := range points {
		v, err := e.price(ctx, s, c.sigma, c.rate, c.ttm, n)
		if err != nil {
			return 0, err
		}
		p[i] = v
	}
	return (p[0] + p[2] - 2*p[1]) / (step * step), nil
}

// Vega 以步长 h 对波动率做中心差分，按 1 个百分点缩放. sigma-h <= 0 时改用前向差分.
func (e *Engine) Vega(ctx context.Context) (float64, error) {
	ctx, span := tracing.StartSpan(ctx, "lookback.Vega", tracing.GreekKey.String("vega"))
	defer span.End()
	e.instr.observeGreek("vega")

	c := e.contract
	h := c.step
	n := e.policy.Paths(h)

	up, err := e.price(ctx, c.spot, c.sigma+h, c.rate, c.ttm, n)
	if err != nil {
		return 0, err
	}
	if c.sigma-h <= 0 {
		mid, err := e.price(ctx, c.spot, c.sigma, c.rate, c.ttm, n)
		if err != nil {
			return 0, err
		}
		return 0.01 * (up - mid) / h, nil
	}
	down, err := e.price(ctx, c.spot, c.sigma-h, c.rate, c.ttm, n)
	if err != nil {
		return 0, err
	}
	return 0.01 * (up - down) / (2 * h), nil
}

// Rho 以步长 h 对利率做中心差分，按 1 个百分点缩放.
// h 大于利率时向下扰动会得到负利率，此时改用前向差分（经验规则）.
func (e *Engine) Rho(ctx context.Context) (float64, error) {
	ctx, span := tracing.StartSpan(ctx, "lookback.Rho", tracing.GreekKey.String("rho"))
	defer span.End()
	e.instr.observeGreek("rho")

	c := e.contract
	h := c.step
	n := e.policy.Paths(h)

	up, err := e.price(ctx, c.spot, c.sigma, c.rate+h, c.ttm, n)
	if err != nil {
		return 0, err
	}
	if h > c.rate {
		mid, err := e.price(ctx, c.spot, c.sigma, c.rate, c.ttm, n)
		if err != nil {
			return 0, err
		}
		return 0.01 * (up - mid) / h, nil
	}
	down, err := e.price(ctx, c.spot, c.sigma, c.rate-h, c.ttm, n)
	if err != nil {
		return 0, err
	}
	return 0.01 * (up - down) / (2 * h), nil
}

// Theta 返回 (P(T-d) - P(T+d)) / 2d，即价格随时间流逝的变化率（每年）.
// d 默认为 3 天，T <= 4 天时为半天；T-d < 0 时改用 (P(T) - P(T+d)) / d.
func (e *Engine) Theta(ctx context.Context) (float64, error) {
	ctx, span := tracing.StartSpan(ctx, "lookback.Theta", tracing.GreekKey.String("theta"))
	defer span.End()
	e.instr.observeGreek("theta")

	c := e.contract
	d := ThetaStep
	if c.ttm <= NearExpiryTTM {
		d = NearExpiryThetaStep
	}
	n := e.policy.Paths(d)

	later, err := e.price(ctx, c.spot, c.sigma, c.rate, c.ttm+d, n)
	if err != nil {
		return 0, err
	}
	if c.ttm-d < 0 {
		now, err := e.price(ctx, c.spot, c.sigma, c.rate, c.ttm, n)
		if err != nil {
			return 0, err
		}
		return (now - later) / d, nil
	}
	earlier, err := e.price(ctx, c.spot, c.sigma, c.rate, c.ttm-d, n)
	if err != nil {
		return 0, err
	}
	return (earlier - later) / (2 * d), nil
}
