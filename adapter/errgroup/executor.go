// Package errgroup provides a msgbus Executor backed by golang.org/x/sync/errgroup.
//
// Unlike the built-in pool it has no queue: each task gets its own goroutine,
// bounded by Limit. When the limit is reached Execute either blocks or rejects,
// depending on Blocking.
package errgroup

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	syncerrgroup "golang.org/x/sync/errgroup"

	"github.com/trickstertwo/msgbus"
)

const ExecutorName = "errgroup"

func init() {
	if err := msgbus.RegisterExecutor(ExecutorName, func(cfg map[string]any) (msgbus.Executor, error) {
		return NewExecutor(ConfigFromMap(cfg)), nil
	}); err != nil {
		panic(fmt.Errorf("msgbus/errgroup: failed to register executor: %w", err))
	}
}

// Config controls the errgroup executor.
type Config struct {
	// Limit is the maximum number of tasks in flight (default: 16, negative = unbounded).
	Limit int
	// Blocking makes Execute wait for a free slot instead of rejecting (default: false).
	Blocking bool
	// ShutdownTimeout bounds Close when ctx has no deadline (default: 5s).
	ShutdownTimeout time.Duration
}

func ConfigFromMap(cfg map[string]any) Config {
	return Config{
		Limit:           msgbus.MapInt(cfg, "limit", 16),
		Blocking:        msgbus.MapBool(cfg, "blocking", false),
		ShutdownTimeout: msgbus.MapDuration(cfg, "shutdown_timeout", 5*time.Second),
	}
}

func (c Config) toMap() map[string]any {
	return map[string]any{
		"limit":            c.Limit,
		"blocking":         c.Blocking,
		"shutdown_timeout": c.ShutdownTimeout,
	}
}

// Executor runs every task on its own goroutine inside an errgroup.Group.
// In-flight tasks are bounded by a slot semaphore rather than the group's own
// limit, so a blocked Execute can be released by Close.
type Executor struct {
	cfg   Config
	g     syncerrgroup.Group
	slots chan struct{} // nil when unbounded
	done  chan struct{}

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once

	started  atomic.Uint64
	rejected atomic.Uint64
	panicked atomic.Uint64
}

var _ msgbus.Executor = (*Executor)(nil)

func NewExecutor(cfg Config) *Executor {
	if cfg.Limit == 0 {
		cfg.Limit = 16
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	e := &Executor{cfg: cfg, done: make(chan struct{})}
	if cfg.Limit > 0 {
		e.slots = make(chan struct{}, cfg.Limit)
	}
	return e
}

func (e *Executor) Execute(task func()) error {
	if err := e.acquire(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		e.release()
		return msgbus.ErrExecutorClosed
	}
	e.started.Add(1)
	e.g.Go(func() error {
		defer e.release()
		defer func() {
			if r := recover(); r != nil {
				e.panicked.Add(1)
			}
		}()
		task()
		return nil
	})
	return nil
}

// acquire takes a slot, waiting for one when Blocking until Close is called.
func (e *Executor) acquire() error {
	select {
	case <-e.done:
		return msgbus.ErrExecutorClosed
	default:
	}
	if e.slots == nil {
		return nil
	}
	if !e.cfg.Blocking {
		select {
		case e.slots <- struct{}{}:
			return nil
		default:
			e.rejected.Add(1)
			return msgbus.ErrExecutorQueueFull
		}
	}
	select {
	case e.slots <- struct{}{}:
		return nil
	case <-e.done:
		return msgbus.ErrExecutorClosed
	}
}

func (e *Executor) release() {
	if e.slots != nil {
		<-e.slots
	}
}

// Close rejects new tasks, releases callers waiting for a slot and waits for
// the running ones until ctx is done, or ShutdownTimeout when ctx carries no
// deadline.
func (e *Executor) Close(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.ShutdownTimeout)
		defer cancel()
	}

	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()
		close(e.done)
	})

	drained := make(chan struct{})
	go func() {
		_ = e.g.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return msgbus.ErrExecutorShutdownTimeout
	}
}

// Stats reports task counters since construction.
type Stats struct {
	Started  uint64
	Rejected uint64
	Panicked uint64
}

func (e *Executor) Stats() Stats {
	return Stats{
		Started:  e.started.Load(),
		Rejected: e.rejected.Load(),
		Panicked: e.panicked.Load(),
	}
}
