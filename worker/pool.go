// Package worker 提供常驻的 goroutine 池，可作为蒙特卡洛归约的执行器在多次定价之间复用.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/wyfcoding/lookback/async"
	"github.com/wyfcoding/lookback/metrics"
	"github.com/wyfcoding/lookback/xerrors"
)

var (
	ErrPoolClosed  = errors.New("worker pool is closed")
	ErrPoolFull    = errors.New("worker pool is full")
	ErrTaskTimeout = errors.New("task submission timeout")
)

// Task 是 worker 执行的任务函数。
type Task func(ctx context.Context)

// Pool 是一个通用的 worker 池。
type Pool struct {
	tasks   chan Task
	quit    chan struct{}
	options *poolOptions
	metrics *workerMetrics
	wg      sync.WaitGroup
	sendMu  sync.RWMutex // 保护 tasks 通道的关闭
	closed  int32
	active  int32
}

type workerMetrics struct {
	activeWorkers prometheus.Gauge
	queueLength   prometheus.Gauge
	tasksTotal    prometheus.Counter
}

type poolOptions struct {
	Logger       *slog.Logger
	PanicHandler func(any)
	Metrics      *metrics.Metrics
	Name         string
	Size         int
	QueueSize    int
}

// Option 定义配置选项。
type Option func(*poolOptions)

// WithName 设置池名称。
func WithName(name string) Option {
	return func(o *poolOptions) {
		o.Name = name
	}
}

// WithSize 设置 worker 数量。
func WithSize(size int) Option {
	return func(o *poolOptions) {
		o.Size = size
	}
}

// WithQueueSize 设置任务队列大小。
func WithQueueSize(size int) Option {
	return func(o *poolOptions) {
		o.QueueSize = size
	}
}

// WithPanicHandler 设置 Panic 处理回调。
func WithPanicHandler(handler func(any)) Option {
	return func(o *poolOptions) {
		o.PanicHandler = handler
	}
}

// WithLogger 设置日志记录器。
func WithLogger(logger *slog.Logger) Option {
	return func(o *poolOptions) {
		o.Logger = logger
	}
}

// WithMetrics 注入指标采集器.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *poolOptions) {
		o.Metrics = m
	}
}

// NewPool 创建一个新的 worker 池。
func NewPool(opts ...Option) *Pool {
	options := &poolOptions{
		Name:      "simulation",
		Size:      10,
		QueueSize: 100,
		Logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.Size < 1 {
		options.Size = 1
	}
	if options.QueueSize < 0 {
		options.QueueSize = 0
	}

	p := &Pool{
		tasks:   make(chan Task, options.QueueSize),
		quit:    make(chan struct{}),
		options: options,
	}

	if options.Metrics != nil {
		labels := prometheus.Labels{"pool": options.Name}
		p.metrics = &workerMetrics{
			activeWorkers: options.Metrics.NewGauge(&prometheus.GaugeOpts{
				Name:        "worker_pool_active_workers",
				Help:        "Number of active workers in the pool",
				ConstLabels: labels,
			}),
			queueLength: options.Metrics.NewGauge(&prometheus.GaugeOpts{
				Name:        "worker_pool_queue_length",
				Help:        "Current length of the task queue",
				ConstLabels: labels,
			}),
			tasksTotal: options.Metrics.NewCounter(&prometheus.CounterOpts{
				Name:        "worker_pool_tasks_total",
				Help:        "Number of tasks executed by the pool",
				ConstLabels: labels,
			}),
		}
	}

	p.start()
	return p
}

func (p *Pool) start() {
	p.options.Logger.Info("Worker pool starting", "name", p.options.Name, "size", p.options.Size)
	for range p.options.Size {
		p.wg.Add(1)
		atomic.AddInt32(&p.active, 1)
		if p.metrics != nil {
			p.metrics.activeWorkers.Inc()
		}
		async.SafeGo(func() {
			defer p.wg.Done()
			defer atomic.AddInt32(&p.active, -1)
			if p.metrics != nil {
				defer p.metrics.activeWorkers.Dec()
			}
			p.runWorker()
		})
	}
}

func (p *Pool) runWorker() {
	for {
		if p.metrics != nil {
			p.metrics.queueLength.Set(float64(len(p.tasks)))
		}
		select {
		case task := <-p.tasks:
			p.executeTask(task)
		case <-p.quit:
			p.drain()
			return
		}
	}
}

// drain 执行退出时仍在队列中的任务，保证已提交的任务不会丢失。
func (p *Pool) drain() {
	for {
		select {
		case task := <-p.tasks:
			p.executeTask(task)
		default:
			return
		}
	}
}

func (p *Pool) executeTask(task Task) {
	defer func() {
		if r := recover(); r != nil {
			if p.options.PanicHandler != nil {
				p.options.PanicHandler(r)
			} else {
				p.options.Logger.Error("Worker task panic recovered", "pool", p.options.Name, "panic", r)
			}
		}
	}()
	if p.metrics != nil {
		p.metrics.tasksTotal.Inc()
	}
	task(context.Background())
}

// Submit 提交一个任务。如果队列已满，则阻塞直到有空位或池被关闭。
func (p *Pool) Submit(task Task) error {
	p.sendMu.RLock()
	defer p.sendMu.RUnlock()
	if atomic.LoadInt32(&p.closed) == 1 {
		return ErrPoolClosed
	}

	select {
	case p.tasks <- task:
		return nil
	case <-p.quit:
		return ErrPoolClosed
	}
}

// SubmitWithTimeout 提交一个带超时的任务。
func (p *Pool) SubmitWithTimeout(task Task, timeout time.Duration) error {
	p.sendMu.RLock()
	defer p.sendMu.RUnlock()
	if atomic.LoadInt32(&p.closed) == 1 {
		return ErrPoolClosed
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case p.tasks <- task:
		return nil
	case <-timer.C:
		return ErrTaskTimeout
	case <-p.quit:
		return ErrPoolClosed
	}
}

// TrySubmit 尝试提交一个任务。如果队列已满，立即返回 ErrPoolFull。
func (p *Pool) TrySubmit(task Task) error {
	p.sendMu.RLock()
	defer p.sendMu.RUnlock()
	if atomic.LoadInt32(&p.closed) == 1 {
		return ErrPoolClosed
	}

	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrPoolFull
	}
}

// Execute 实现 sim.Executor：把 tasks 个任务提交到池中并等待全部完成.
// 任务 panic 时返回 ErrSimulationPanic；池关闭时返回 ErrPoolClosed，已提交的任务仍会执行完毕.
func (p *Pool) Execute(ctx context.Context, tasks int, fn func(ctx context.Context, i int)) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		panicked any
	)

	for i := range tasks {
		wg.Add(1)
		err := p.Submit(func(context.Context) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					if panicked == nil {
						panicked = r
					}
					mu.Unlock()
				}
			}()
			fn(ctx, i)
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return err
		}
	}
	wg.Wait()

	if panicked != nil {
		return xerrors.ErrSimulationPanic.WithDetail("%v", panicked)
	}
	return nil
}

// Size 返回 worker 数量。
func (p *Pool) Size() int {
	return p.options.Size
}

// Active 返回当前存活的 worker 数量。
func (p *Pool) Active() int {
	return int(atomic.LoadInt32(&p.active))
}

// Closed 报告池是否已停止。
func (p *Pool) Closed() bool {
	return atomic.LoadInt32(&p.closed) == 1
}

// Stop 停止 worker 池，等待队列中的任务执行完毕。
func (p *Pool) Stop() {
	if !atomic.CompareAndSwapInt32(&p.closed, 0, 1) {
		return
	}
	close(p.quit)
	p.wg.Wait()

	p.sendMu.Lock()
	p.drain()
	close(p.tasks)
	p.sendMu.Unlock()

	p.options.Logger.Info("Worker pool stopped", "name", p.options.Name)
}
