package app

import (
	"context"
	"log/slog"
	"sync"
)

// Hook 定义了生命周期钩子，包含启动和停止逻辑
type Hook struct {
	Name    string
	OnStart func(ctx context.Context) error
	OnStop  func(ctx context.Context) error
}

// Lifecycle 管理多个组件的生命周期，停止顺序与注册顺序相反
type Lifecycle struct {
	logger *slog.Logger
	hooks  []Hook
	mu     sync.Mutex
}

// NewLifecycle 创建一个新的生命周期管理器
func NewLifecycle(logger *slog.Logger) *Lifecycle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lifecycle{logger: logger}
}

// Append 添加一个生命周期钩子
func (l *Lifecycle) Append(hook Hook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, hook)
}

// OnStop 是只注册停止逻辑的快捷方式
func (l *Lifecycle) OnStop(name string, fn func(ctx context.Context) error) {
	l.Append(Hook{Name: name, OnStop: fn})
}

// Start 按顺序启动所有组件，遇到第一个错误即返回
func (l *Lifecycle) Start(ctx context.Context) error {
	l.mu.Lock()
	hooks := append([]Hook(nil), l.hooks...)
	l.mu.Unlock()

	for _, hook := range hooks {
		if hook.OnStart == nil {
			continue
		}
		l.logger.Info("Lifecycle: starting component", "name", hook.Name)
		if err := hook.OnStart(ctx); err != nil {
			l.logger.Error("Lifecycle: failed to start component", "name", hook.Name, "error", err)
			return err
		}
	}
	return nil
}

// Stop 以相反的顺序停止所有组件，返回第一个错误，其余组件仍会被停止
func (l *Lifecycle) Stop(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for i := len(l.hooks) - 1; i >= 0; i-- {
		hook := l.hooks[i]
		if hook.OnStop == nil {
			continue
		}
		l.logger.Info("Lifecycle: stopping component", "name", hook.Name)
		if err := hook.OnStop(ctx); err != nil {
			l.logger.Error("Lifecycle: failed to stop component", "name", hook.Name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	l.hooks = nil
	return firstErr
}
