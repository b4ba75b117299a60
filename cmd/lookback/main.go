// Command lookback 为浮动行权价回望期权定价。
//
// 默认模式输出一份价格与希腊值报告；-serve 启动 HTTP 定价服务。
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/wyfcoding/lookback/app"
	"github.com/wyfcoding/lookback/bootstrap"
	"github.com/wyfcoding/lookback/bridge"
	"github.com/wyfcoding/lookback/config"
	"github.com/wyfcoding/lookback/datetime"
	"github.com/wyfcoding/lookback/lookback"
	"github.com/wyfcoding/lookback/server"
)

const serviceName = "lookback"

type options struct {
	configPath string
	serve      bool

	valueDate  string
	maturity   string
	spot       float64
	sigma      float64
	rate       float64
	kind       string
	step       float64
	convention string
	paths      int
	analytic   bool
}

func parseFlags(args []string) (*options, error) {
	o := new(options)
	fs := flag.NewFlagSet(serviceName, flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "", "path to TOML config file (defaults and APP_ env only when empty)")
	fs.BoolVar(&o.serve, "serve", false, "run the HTTP pricing service instead of printing a report")

	fs.StringVar(&o.valueDate, "value-date", "01-01-2022", "value date, dd-mm-yyyy")
	fs.StringVar(&o.maturity, "maturity", "01-01-2030", "maturity date, dd-mm-yyyy")
	fs.Float64Var(&o.spot, "spot", 100, "initial underlying price S0")
	fs.Float64Var(&o.sigma, "sigma", 0.2, "volatility")
	fs.Float64Var(&o.rate, "rate", 0.05, "risk-free rate")
	fs.StringVar(&o.kind, "kind", "c", "option kind: c (call) or p (put)")
	fs.Float64Var(&o.step, "h", 0.01, "finite-difference step")
	fs.StringVar(&o.convention, "convention", "4", "day count: code 0..4 or name such as ACT/365F")
	fs.IntVar(&o.paths, "paths", 0, "draws for price and graphs (0 uses engine.default_paths)")
	fs.BoolVar(&o.analytic, "analytic", false, "also print the closed-form price")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return o, nil
}

func main() {
	o, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if err := run(o); err != nil {
		fmt.Fprintln(os.Stderr, "lookback:", err)
		os.Exit(1)
	}
}

func run(o *options) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.paths > 0 {
		cfg.Engine.DefaultPaths = o.paths
		cfg.Engine.MaxPaths = max(cfg.Engine.MaxPaths, o.paths)
	}

	stack, err := bootstrap.New(cfg, serviceName)
	if err != nil {
		return err
	}

	if o.serve {
		return serve(o, stack)
	}
	defer stack.Close(context.Background())
	return report(os.Stdout, o, stack)
}

func contractSpec(o *options) (lookback.ContractSpec, error) {
	value, err := datetime.ParseDate(o.valueDate)
	if err != nil {
		return lookback.ContractSpec{}, err
	}
	maturity, err := datetime.ParseDate(o.maturity)
	if err != nil {
		return lookback.ContractSpec{}, err
	}
	var dc datetime.DayCount
	if code, convErr := strconv.Atoi(o.convention); convErr == nil {
		dc, err = bridge.ConventionFromCode(code)
	} else {
		dc, err = datetime.ParseDayCount(o.convention)
	}
	if err != nil {
		return lookback.ContractSpec{}, err
	}
	// 无法识别的类型保留为零值，由合约校验报告。
	kind, _ := lookback.ParseOptionKind(o.kind)
	return lookback.ContractSpec{
		Spot:         o.spot,
		ValueDate:    value,
		MaturityDate: maturity,
		Sigma:        o.sigma,
		Rate:         o.rate,
		Kind:         kind,
		Step:         o.step,
		Convention:   dc,
	}, nil
}

func report(w io.Writer, o *options, stack *bootstrap.Stack) error {
	spec, err := contractSpec(o)
	if err != nil {
		return err
	}
	contract, err := lookback.NewContract(spec)
	if err != nil {
		return err
	}
	engine := stack.NewEngine(contract)

	r, err := engine.Report(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Option: %s, S0=%g, sigma=%g, r=%g, %s -> %s (%s)\n",
		contract.Kind(), contract.Spot(), contract.Sigma(), contract.Rate(),
		contract.ValueDate(), contract.MaturityDate(), contract.Convention())
	fmt.Fprintf(w, "TTM: %s\n", r.TTM)
	fmt.Fprint(w, r.String())

	if o.analytic {
		exact, err := engine.Analytic()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Closed form: %.6f\n", exact)
	}
	return nil
}

func serve(o *options, stack *bootstrap.Stack) error {
	cfg := stack.Config
	logger := stack.Logger

	limits := server.NewLimits(cfg.Server)
	config.RegisterReloadHook(func(next *config.Config) {
		limits.Apply(next.Server)
		logger.Info("server limits reloaded", "rate", next.Server.RateLimit.Rate, "max_concurrent", next.Server.MaxConcurrent)
	})
	if o.configPath != "" {
		config.Watch(cfg)
	}

	var opts []app.Option

	metricsPath := ""
	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port != "" {
			stop := stack.Metrics.ExposeHTTP(":"+cfg.Metrics.Port, cfg.Metrics.Path)
			opts = append(opts, app.WithCleanup(stop))
		} else {
			metricsPath = cfg.Metrics.Path
		}
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	hub := server.NewQuoteHub(logger.WithModule("quotes").Logger)
	go hub.Run(hubCtx)
	opts = append(opts, app.WithCleanup(stopHub))
	stack.Health.Detail("quote_clients", func() any { return hub.Len() })

	handler := server.NewHandler(stack.Registry, stack.Health, logger.WithModule("http").Logger).PublishTo(hub)
	router := server.NewRouter(handler, limits, server.RouterOptions{
		Server:      cfg.Server,
		ServiceName: cfg.Tracing.ServiceName,
		Tracing:     cfg.Tracing.Enabled,
		Metrics:     stack.Metrics,
		MetricsPath: metricsPath,
		Quotes:      hub,
		IDs:         stack.IDs,
		Logger:      logger.WithModule("http").Logger,
	})
	srv := server.NewGinServer(router, cfg.Server, logger.Logger)

	// 清理按注册顺序执行，定价组件最后释放。
	opts = append(opts, app.WithServer(srv), app.WithCleanup(func() {
		if err := stack.Close(context.Background()); err != nil {
			logger.Error("failed to release pricing stack", "error", err)
		}
	}))
	return app.New(serviceName, logger.Logger, opts...).Run()
}
