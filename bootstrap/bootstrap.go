// Package bootstrap 按配置装配定价服务的基础设施：日志、追踪、指标、执行器、价格缓存与句柄注册表。
package bootstrap

import (
	"context"
	"errors"
	"runtime"

	"github.com/wyfcoding/lookback/algorithm/sim"
	"github.com/wyfcoding/lookback/app"
	"github.com/wyfcoding/lookback/bridge"
	"github.com/wyfcoding/lookback/cache"
	"github.com/wyfcoding/lookback/config"
	"github.com/wyfcoding/lookback/health"
	"github.com/wyfcoding/lookback/idgen"
	"github.com/wyfcoding/lookback/logging"
	"github.com/wyfcoding/lookback/lookback"
	"github.com/wyfcoding/lookback/metrics"
	"github.com/wyfcoding/lookback/tracing"
	"github.com/wyfcoding/lookback/worker"
)

// ErrPoolStopped 表示模拟执行池已停止。
var ErrPoolStopped = errors.New("simulation pool stopped")

// Stack 持有装配好的组件，Close 以注册的相反顺序释放它们。
type Stack struct {
	Config    *config.Config
	Logger    *logging.Logger
	Metrics   *metrics.Metrics
	IDs       idgen.Generator
	Executor  sim.Executor
	Pool      *worker.Pool      // Executor 为 goroutine 时为 nil
	Cache     *cache.PriceCache // 未启用缓存时为 nil
	Registry  *bridge.Registry
	Health    *health.Health
	Lifecycle *app.Lifecycle

	engineOpts []lookback.Option
}

// New 按配置装配组件。任何一步失败都会释放已创建的组件。
func New(cfg *config.Config, serviceName string) (*Stack, error) {
	logger := logging.InitLogger(logging.Config{
		Service:    serviceName,
		Module:     "bootstrap",
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		Console:    cfg.Log.Console,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	s := &Stack{
		Config:    cfg,
		Logger:    logger,
		Lifecycle: app.NewLifecycle(logger.Logger),
		Health:    health.New(0),
	}
	if err := s.build(serviceName); err != nil {
		_ = s.Close(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Stack) build(serviceName string) error {
	cfg := s.Config

	shutdownTracer, err := tracing.InitTracer(cfg.Tracing)
	if err != nil {
		return err
	}
	s.Lifecycle.OnStop("tracer", shutdownTracer)

	s.Metrics = metrics.NewMetrics(serviceName)
	s.Metrics.RegisterBuildInfo(serviceName, cfg.Version)

	if s.IDs, err = idgen.NewGenerator(cfg.Snowflake); err != nil {
		return err
	}

	s.Executor = sim.GoExecutor{}
	if cfg.Engine.Executor == "pool" {
		size := cfg.Engine.PoolSize
		if size <= 0 {
			size = runtime.GOMAXPROCS(0)
		}
		s.Pool = worker.NewPool(
			worker.WithName("simulation"),
			worker.WithSize(size),
			worker.WithQueueSize(cfg.Engine.PoolQueue),
			worker.WithLogger(s.Logger.WithModule("worker").Logger),
			worker.WithMetrics(s.Metrics),
		)
		s.Executor = s.Pool
		pool := s.Pool
		s.Lifecycle.OnStop("worker_pool", func(context.Context) error {
			pool.Stop()
			return nil
		})
		s.Health.Register("executor", func(context.Context) error {
			if pool.Closed() {
				return ErrPoolStopped
			}
			return nil
		})
	}

	if cfg.Cache.Enabled {
		store, err := cache.NewBigCache(cache.Options{
			TTL:    cfg.Cache.TTL,
			MaxMB:  cfg.Cache.MaxMB,
			Shards: cfg.Cache.Shards,
		})
		if err != nil {
			return err
		}
		s.Cache = cache.NewPriceCache(store, s.Metrics, s.Logger.WithModule("cache").Logger)
		pc := s.Cache
		s.Lifecycle.OnStop("price_cache", func(context.Context) error { return pc.Close() })
	}

	s.engineOpts = []lookback.Option{
		lookback.WithSeed(cfg.Engine.Seed),
		lookback.WithWorkers(cfg.Engine.Workers),
		lookback.WithExecutor(s.Executor),
		lookback.WithPolicy(lookback.PolicyFromConfig(cfg.Greeks)),
		lookback.WithDefaultPaths(cfg.Engine.DefaultPaths),
		lookback.WithMaxPaths(cfg.Engine.MaxPaths),
		lookback.WithMaxGraphPoints(cfg.Engine.MaxGraphPoints),
		lookback.WithLogger(s.Logger.WithModule("engine").Logger),
		lookback.WithMetrics(s.Metrics),
	}
	if s.Cache != nil {
		s.engineOpts = append(s.engineOpts, lookback.WithCache(s.Cache))
	}

	s.Registry = bridge.NewRegistry(s.IDs, s.Logger.WithModule("bridge").Logger, s.engineOpts...)

	s.Logger.Info("pricing stack ready",
		"executor", cfg.Engine.Executor,
		"workers", cfg.Engine.Workers,
		"default_paths", cfg.Engine.DefaultPaths,
		"max_paths", cfg.Engine.MaxPaths,
		"greeks_policy", cfg.Greeks.Policy,
		"cache", cfg.Cache.Enabled,
	)
	return nil
}

// EngineOptions 返回按配置生成的引擎选项。
func (s *Stack) EngineOptions() []lookback.Option {
	return append([]lookback.Option(nil), s.engineOpts...)
}

// NewEngine 以配置的引擎选项为合约创建引擎，不经过注册表。
func (s *Stack) NewEngine(c lookback.Contract) *lookback.Engine {
	return lookback.NewEngine(c, s.engineOpts...)
}

// Close 按相反顺序释放组件。
func (s *Stack) Close(ctx context.Context) error {
	return s.Lifecycle.Stop(ctx)
}
