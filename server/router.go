package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/lookback/config"
	"github.com/wyfcoding/lookback/idgen"
	"github.com/wyfcoding/lookback/limiter"
	"github.com/wyfcoding/lookback/metrics"
	"github.com/wyfcoding/lookback/middleware"
)

// RouterOptions 描述路由装配所需的依赖。
type RouterOptions struct {
	Server      config.ServerConfig
	ServiceName string
	Tracing     bool             // 是否挂载 otelgin 中间件
	Metrics     *metrics.Metrics // 为 nil 时不采集 HTTP 指标
	MetricsPath string           // 非空时在业务端口上暴露指标接口
	Quotes      http.Handler     // 非 nil 时挂载 /v1/quotes 推送接口
	IDs         idgen.Generator
	Logger      *slog.Logger
}

// Limits 持有可热更新的限流器。
type Limits struct {
	Rate        *limiter.DynamicLimiter
	Concurrency *limiter.DynamicConcurrencyLimiter
}

// NewLimits 按配置创建限流器。
func NewLimits(cfg config.ServerConfig) *Limits {
	return &Limits{
		Rate:        limiter.NewDynamicKeyedLimiter(cfg.RateLimit.Rate, cfg.RateLimit.Burst),
		Concurrency: limiter.NewDynamicSemaphoreLimiter(cfg.MaxConcurrent),
	}
}

// Apply 用新配置替换限流参数，供配置热更新回调使用。
func (l *Limits) Apply(cfg config.ServerConfig) {
	l.Rate.UpdateKeyed(cfg.RateLimit.Rate, cfg.RateLimit.Burst)
	l.Concurrency.UpdateSemaphore(cfg.MaxConcurrent)
}

// NewRouter 装配中间件与全部路由。健康检查与指标接口不经过限流。
func NewRouter(h *Handler, limits *Limits, opts RouterOptions) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ids := opts.IDs
	if ids == nil {
		ids = new(idgen.Sequence)
	}
	if limits == nil {
		limits = NewLimits(opts.Server)
	}

	mws := []gin.HandlerFunc{middleware.Recovery(logger)}
	if opts.Tracing {
		mws = append(mws, middleware.TracingMiddleware(opts.ServiceName), middleware.TraceIDHeader())
	}
	mws = append(mws,
		middleware.RequestID(ids),
		middleware.Logger(logger),
		middleware.HTTPMetrics(opts.Metrics, middleware.MetricsOptions{SkipPaths: []string{"/health", opts.MetricsPath}}),
	)
	r := NewDefaultGinEngine(opts.Server.Mode, mws...)

	r.GET("/health", h.Health)
	if opts.Metrics != nil && opts.MetricsPath != "" {
		r.GET(opts.MetricsPath, gin.WrapH(opts.Metrics.Handler()))
	}

	v1 := r.Group("/v1",
		middleware.RateLimit(limits.Rate),
		middleware.MaxBodyBytes(opts.Server.MaxBodyBytes),
	)
	v1.GET("/yearfraction", h.YearFraction)
	if opts.Quotes != nil {
		v1.GET("/quotes", gin.WrapH(opts.Quotes))
	}

	contracts := v1.Group("/contracts")
	contracts.POST("", h.CreateContract)
	contracts.GET("/:id", h.GetContract)
	contracts.DELETE("/:id", h.DeleteContract)

	// 定价类接口是 CPU 密集型，额外受并发上限约束。
	priced := contracts.Group("/:id", middleware.ConcurrencyLimit(limits.Concurrency, opts.Server.ConcurrencyWait))
	priced.GET("/price", h.Price)
	priced.GET("/greeks", h.Greeks)
	priced.GET("/greeks/:name", h.Greek)
	priced.GET("/graph/:kind", h.Graph)

	return r
}
