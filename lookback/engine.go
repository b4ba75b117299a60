package lookback

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/wyfcoding/lookback/algorithm/sim"
	"github.com/wyfcoding/lookback/cache"
	"github.com/wyfcoding/lookback/metrics"
	"github.com/wyfcoding/lookback/tracing"
	"github.com/wyfcoding/lookback/xerrors"
)

// DefaultPaths 是未指定路径数时单次定价使用的抽样对数.
const DefaultPaths = 5_000_000

// DefaultMaxPaths 是 Price 与 Estimate 接受的路径数上限.
const DefaultMaxPaths = 50_000_000

// Engine 持有一份合约与抽样配置，提供定价、希腊值与作图。可被多个 goroutine 并发使用.
type Engine struct {
	contract     Contract
	mc           *MonteCarlo
	pricer       Pricer
	policy       SamplePolicy
	defaultPaths   int
	maxPaths       int
	maxGraphPoints int
	logger         *slog.Logger
	instr          *instruments
}

type engineOptions struct {
	seed         uint64
	workers      int
	executor     sim.Executor
	policy       SamplePolicy
	defaultPaths   int
	maxPaths       int
	maxGraphPoints int
	logger         *slog.Logger
	metrics        *metrics.Metrics
	cache          *cache.PriceCache
}

// Option 定义引擎配置选项.
type Option func(*engineOptions)

// WithSeed 设置全局随机种子.
func WithSeed(seed uint64) Option {
	return func(o *engineOptions) { o.seed = seed }
}

// WithWorkers 设置并行工作单元数，<= 0 表示 GOMAXPROCS.
// 结果只依赖工作单元数而不依赖实际并发度.
func WithWorkers(n int) Option {
	return func(o *engineOptions) { o.workers = n }
}

// WithExecutor 设置并行执行器，默认 sim.GoExecutor.
func WithExecutor(exec sim.Executor) Option {
	return func(o *engineOptions) { o.executor = exec }
}

// WithPolicy 设置希腊值的路径数策略.
func WithPolicy(p SamplePolicy) Option {
	return func(o *engineOptions) { o.policy = p }
}

// WithDefaultPaths 设置 Value、作图与报告使用的路径数.
func WithDefaultPaths(n int) Option {
	return func(o *engineOptions) { o.defaultPaths = n }
}

// WithMaxPaths 设置调用方传入路径数的上限，<= 0 表示 DefaultMaxPaths.
// 希腊值按策略计算的路径数不受此限制.
func WithMaxPaths(n int) Option {
	return func(o *engineOptions) { o.maxPaths = n }
}

// WithMaxGraphPoints 设置单条曲线的采样点数上限，<= 0 表示 DefaultMaxGraphPoints.
func WithMaxGraphPoints(n int) Option {
	return func(o *engineOptions) { o.maxGraphPoints = n }
}

// WithLogger 设置日志记录器.
func WithLogger(l *slog.Logger) Option {
	return func(o *engineOptions) { o.logger = l }
}

// WithMetrics 注入指标采集器.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *engineOptions) { o.metrics = m }
}

// WithCache 为定价结果加一层缓存.
func WithCache(c *cache.PriceCache) Option {
	return func(o *engineOptions) { o.cache = c }
}

// NewEngine 基于已校验的合约创建引擎.
func NewEngine(c Contract, opts ...Option) *Engine {
	o := &engineOptions{
		seed:           DefaultSeed,
		policy:         DefaultPolicy(),
		defaultPaths:   DefaultPaths,
		maxPaths:       DefaultMaxPaths,
		maxGraphPoints: DefaultMaxGraphPoints,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.workers <= 0 {
		o.workers = runtime.GOMAXPROCS(0)
	}
	if o.executor == nil {
		o.executor = sim.GoExecutor{}
	}
	if o.defaultPaths <= 0 {
		o.defaultPaths = DefaultPaths
	}
	if o.maxPaths <= 0 {
		o.maxPaths = DefaultMaxPaths
	}
	if o.maxGraphPoints <= 0 {
		o.maxGraphPoints = DefaultMaxGraphPoints
	}

	mc := &MonteCarlo{
		Kind:     c.Kind(),
		Seed:     o.seed,
		Workers:  o.workers,
		Executor: o.executor,
	}
	var pricer Pricer = mc
	if o.cache != nil {
		pricer = NewCachedPricer(mc, o.cache)
	}

	return &Engine{
		contract:       c,
		mc:             mc,
		pricer:         pricer,
		policy:         o.policy,
		defaultPaths:   o.defaultPaths,
		maxPaths:       o.maxPaths,
		maxGraphPoints: o.maxGraphPoints,
		logger:         o.logger,
		instr:          newInstruments(o.metrics),
	}
}

// Contract 返回引擎持有的合约.
func (e *Engine) Contract() Contract { return e.contract }

// Workers 返回工作单元数.
func (e *Engine) Workers() int { return e.mc.Workers }

// Seed 返回全局随机种子.
func (e *Engine) Seed() uint64 { return e.mc.Seed }

// DefaultPaths 返回默认路径数.
func (e *Engine) DefaultPaths() int { return e.defaultPaths }

// MaxPaths 返回调用方路径数上限.
func (e *Engine) MaxPaths() int { return e.maxPaths }

// MaxGraphPoints 返回单条曲线的采样点数上限.
func (e *Engine) MaxGraphPoints() int { return e.maxGraphPoints }

// Price 以合约的期权方向对任意 (S, sigma, r, T) 定价，n 为对偶抽样对数.
// n 超过 MaxPaths 时返回 ErrTooManyPaths.
func (e *Engine) Price(ctx context.Context, s, sigma, r, t float64, n int) (float64, error) {
	if n > e.maxPaths {
		return 0, xerrors.ErrTooManyPaths.WithDetail("N=%d exceeds %d", n, e.maxPaths)
	}
	return e.price(ctx, s, sigma, r, t, n)
}

func (e *Engine) price(ctx context.Context, s, sigma, r, t float64, n int) (float64, error) {
	ctx, span := tracing.StartSpan(ctx, "lookback.Price",
		tracing.PriceAttrs(e.contract.Kind().String(), s, sigma, r, t, n)...)
	defer span.End()

	start := time.Now()
	price, err := e.pricer.Price(ctx, s, sigma, r, t, n)
	elapsed := time.Since(start)
	if err != nil {
		tracing.SetError(ctx, err)
		return 0, err
	}

	e.instr.observePrice(e.contract.Kind(), n, elapsed)
	e.logger.DebugContext(ctx, "lookback priced",
		"kind", e.contract.Kind().String(),
		"spot", s, "sigma", sigma, "rate", r, "ttm", t,
		"paths", n, "workers", e.mc.Workers,
		"price", price, "elapsed", elapsed)
	return price, nil
}

// Value 以合约参数与默认路径数定价.
func (e *Engine) Value(ctx context.Context) (float64, error) {
	c := e.contract
	return e.price(ctx, c.spot, c.sigma, c.rate, c.ttm, e.defaultPaths)
}

// Estimate 以合约参数定价并返回标准误差，不经过缓存.
func (e *Engine) Estimate(ctx context.Context, n int) (Estimate, error) {
	if n > e.maxPaths {
		return Estimate{}, xerrors.ErrTooManyPaths.WithDetail("N=%d exceeds %d", n, e.maxPaths)
	}
	c := e.contract
	return e.mc.Estimate(ctx, c.spot, c.sigma, c.rate, c.ttm, n)
}

// Analytic 返回合约的连续监测闭式解.
func (e *Engine) Analytic() (float64, error) {
	c := e.contract
	return AnalyticPrice(c.kind, c.spot, c.sigma, c.rate, c.ttm)
}
