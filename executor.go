package msgbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ExecutorFunc is an Adapter that lets a plain function satisfy Executor.
// Close is a no-op.
type ExecutorFunc func(task func()) error

func (f ExecutorFunc) Execute(task func()) error { return f(task) }

func (f ExecutorFunc) Close(context.Context) error { return nil }

// ExecutorFactory constructs executors from a config blob.
type ExecutorFactory func(cfg map[string]any) (Executor, error)

const (
	ExecutorPool   = "pool"
	ExecutorInline = "inline"
)

var (
	executorRegistryMu sync.RWMutex
	executorRegistry   = map[string]ExecutorFactory{
		ExecutorPool: func(cfg map[string]any) (Executor, error) {
			return NewPoolExecutor(PoolConfigFromMap(cfg)), nil
		},
		ExecutorInline: func(map[string]any) (Executor, error) {
			return NewInlineExecutor(), nil
		},
	}
)

// RegisterExecutor registers an executor adapter.
func RegisterExecutor(name string, factory ExecutorFactory) error {
	if name == "" {
		return errors.New("executor name must not be empty")
	}
	if factory == nil {
		return errors.New("executor factory must not be nil")
	}
	executorRegistryMu.Lock()
	executorRegistry[name] = factory
	executorRegistryMu.Unlock()
	return nil
}

// NewExecutor constructs an executor by name with config.
func NewExecutor(name string, cfg map[string]any) (Executor, error) {
	executorRegistryMu.RLock()
	f, ok := executorRegistry[name]
	executorRegistryMu.RUnlock()
	if !ok {
		return nil, ErrUnknownExecutor{name: name}
	}
	return f(cfg)
}

// PoolConfig controls the built-in worker pool executor.
type PoolConfig struct {
	// Workers is the number of goroutines running tasks (default: 4).
	Workers int
	// QueueSize is the task buffer; tasks beyond it are dropped (default: 1024).
	QueueSize int
	// ShutdownTimeout bounds Close when ctx has no deadline (default: 5s).
	ShutdownTimeout time.Duration
}

// PoolConfigFromMap reads "workers", "queue_size" and "shutdown_timeout".
func PoolConfigFromMap(cfg map[string]any) PoolConfig {
	return PoolConfig{
		Workers:         MapInt(cfg, "workers", 4),
		QueueSize:       MapInt(cfg, "queue_size", 1024),
		ShutdownTimeout: MapDuration(cfg, "shutdown_timeout", 5*time.Second),
	}
}

func (c PoolConfig) toMap() map[string]any {
	return map[string]any{
		"workers":          c.Workers,
		"queue_size":       c.QueueSize,
		"shutdown_timeout": c.ShutdownTimeout,
	}
}

// PoolExecutor runs tasks on a fixed worker pool. Execute never blocks;
// when the queue is full the task is dropped and ErrExecutorQueueFull returned.
type PoolExecutor struct {
	cfg PoolConfig
	q   *workQueue[func()]
}

// ErrExecutorQueueFull is returned by PoolExecutor.Execute when the queue is saturated.
var ErrExecutorQueueFull = errors.New("msgbus: executor queue is full")

// NewPoolExecutor starts the workers. Zero or negative sizes take their defaults.
func NewPoolExecutor(cfg PoolConfig) *PoolExecutor {
	if cfg.Workers < 1 {
		cfg.Workers = 4
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1024
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	return &PoolExecutor{
		cfg: cfg,
		q:   newWorkQueue(context.Background(), cfg.Workers, cfg.QueueSize, func(task func()) { task() }),
	}
}

func (p *PoolExecutor) Execute(task func()) error {
	if p.q.closed.Load() {
		return ErrExecutorClosed
	}
	if !p.q.offer(task) {
		if p.q.closed.Load() {
			return ErrExecutorClosed
		}
		return ErrExecutorQueueFull
	}
	return nil
}

// Close drains queued tasks. It waits until ctx is done, or ShutdownTimeout
// when ctx carries no deadline.
func (p *PoolExecutor) Close(ctx context.Context) error {
	timeout := p.cfg.ShutdownTimeout
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}
	if !p.q.close(timeout) {
		return ErrExecutorShutdownTimeout
	}
	return nil
}

func (p *PoolExecutor) Stats() PoolStats { return p.q.stats() }

// InlineExecutor runs each task on the calling goroutine.
type InlineExecutor struct {
	closed atomic.Bool
}

func NewInlineExecutor() *InlineExecutor { return &InlineExecutor{} }

func (e *InlineExecutor) Execute(task func()) error {
	if e.closed.Load() {
		return ErrExecutorClosed
	}
	task()
	return nil
}

func (e *InlineExecutor) Close(context.Context) error {
	e.closed.Store(true)
	return nil
}

// MapInt reads an integer option, accepting the numeric kinds produced by
// YAML and JSON decoders.
func MapInt(cfg map[string]any, key string, def int) int {
	switch v := cfg[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// MapDuration reads a duration given as time.Duration, a string like "5s" or nanoseconds.
func MapDuration(cfg map[string]any, key string, def time.Duration) time.Duration {
	switch v := cfg[key].(type) {
	case time.Duration:
		return v
	case string:
		if p, err := time.ParseDuration(v); err == nil {
			return p
		}
	case int:
		return time.Duration(v)
	case int64:
		return time.Duration(v)
	case float64:
		return time.Duration(v)
	}
	return def
}

// MapBool reads a boolean option.
func MapBool(cfg map[string]any, key string, def bool) bool {
	if v, ok := cfg[key].(bool); ok {
		return v
	}
	return def
}

func executorName(e Executor) string {
	switch e.(type) {
	case *PoolExecutor:
		return ExecutorPool
	case *InlineExecutor:
		return ExecutorInline
	}
	return fmt.Sprintf("%T", e)
}
