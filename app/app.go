// Package app 提供了应用程序的生命周期管理：启动服务器、监听退出信号并按序释放资源。
package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wyfcoding/lookback/server"
)

// App 是应用程序的核心容器，负责管理服务器与清理函数。
type App struct {
	name   string
	logger *slog.Logger
	opts   options
}

// New 创建一个新的应用程序实例。
func New(name string, logger *slog.Logger, opts ...Option) *App {
	o := options{shutdownTimeout: 10 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &App{name: name, logger: logger, opts: o}
}

// Run 启动应用程序并阻塞，直到收到 SIGINT 或 SIGTERM。
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext 启动所有服务器，ctx 结束或任一服务器失败时优雅关闭并执行清理。
// 返回第一个服务器启动错误或关闭错误。
func (a *App) RunContext(ctx context.Context) error {
	a.logger.Info("Application starting", "name", a.name, "pid", os.Getpid())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, len(a.opts.servers))
	for _, srv := range a.opts.servers {
		go func(s server.Server) {
			if err := s.Start(ctx); err != nil {
				a.logger.Error("server failed", "error", err)
				errs <- err
				cancel()
			}
		}(srv)
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errs:
	}
	a.logger.Info("shutting down application", "name", a.name)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.opts.shutdownTimeout)
	defer shutdownCancel()

	for _, srv := range a.opts.servers {
		if err := srv.Stop(shutdownCtx); err != nil {
			a.logger.Error("server failed to stop", "error", err)
			if runErr == nil {
				runErr = err
			}
		}
	}

	for _, cleanup := range a.opts.cleanups {
		cleanup()
	}

	a.logger.Info("application shut down", "name", a.name)
	return runErr
}
