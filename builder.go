package msgbus

import (
	"context"
	"time"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// BusBuilder constructs Bus instances (Builder pattern).
type BusBuilder struct {
	executorName string
	executorCfg  map[string]any
	executorInst Executor

	senderName string
	senderInst Sender

	middlewares     []Middleware
	observers       []Observer
	logger          *xlog.Logger
	clock           xclock.Clock
	listenerTimeout time.Duration

	observerWorkers int
	observerBuffer  int
}

// NewBusBuilder returns a new builder with sensible defaults: the "pool"
// executor, the propagating sender and synchronous observers.
func NewBusBuilder() *BusBuilder {
	return &BusBuilder{
		executorName: ExecutorPool,
		senderName:   SenderPropagating,
	}
}

// WithConfig applies a file configuration on top of the current settings.
func (bb *BusBuilder) WithConfig(cfg Config) *BusBuilder {
	if cfg.DefaultSender != "" {
		bb.senderName = cfg.DefaultSender
		bb.senderInst = nil
	}
	if cfg.Executor.Name != "" {
		bb.WithExecutor(cfg.Executor.Name, cfg.Executor.Options)
	}
	if cfg.ListenerTimeout > 0 {
		bb.listenerTimeout = cfg.ListenerTimeout
	}
	if cfg.ObserverPool.Workers > 0 {
		bb.WithObserverPool(cfg.ObserverPool.Workers, cfg.ObserverPool.BufferSize)
	}
	return bb
}

// WithExecutor selects a registered executor by name.
func (bb *BusBuilder) WithExecutor(name string, cfg map[string]any) *BusBuilder {
	bb.executorName = name
	bb.executorCfg = cfg
	bb.executorInst = nil
	return bb
}

// WithPoolExecutor configures the built-in worker pool executor.
func (bb *BusBuilder) WithPoolExecutor(cfg PoolConfig) *BusBuilder {
	return bb.WithExecutor(ExecutorPool, cfg.toMap())
}

// WithExecutorInstance accepts a ready Executor (e.g., from an adapter).
func (bb *BusBuilder) WithExecutorInstance(e Executor) *BusBuilder {
	bb.executorInst = e
	return bb
}

// WithSender selects the built-in default sender by name.
func (bb *BusBuilder) WithSender(name string) *BusBuilder {
	bb.senderName = name
	bb.senderInst = nil
	return bb
}

// WithSenderInstance sets the default sender used by Send, SendSilently and SendAsync.
func (bb *BusBuilder) WithSenderInstance(s Sender) *BusBuilder {
	bb.senderInst = s
	return bb
}

func (bb *BusBuilder) WithMiddleware(mw ...Middleware) *BusBuilder {
	if len(mw) == 0 {
		return bb
	}
	bb.middlewares = append(bb.middlewares, mw...)
	return bb
}

// WithListenerTimeout bounds each listener invocation (see TimeoutMiddleware).
func (bb *BusBuilder) WithListenerTimeout(d time.Duration) *BusBuilder {
	if d > 0 {
		bb.listenerTimeout = d
	}
	return bb
}

func (bb *BusBuilder) WithObserver(obs ...Observer) *BusBuilder {
	for _, o := range obs {
		if o != nil {
			bb.observers = append(bb.observers, o)
		}
	}
	return bb
}

// WithObserverPool makes observer notification asynchronous.
func (bb *BusBuilder) WithObserverPool(workers, bufferSize int) *BusBuilder {
	bb.observerWorkers = workers
	bb.observerBuffer = bufferSize
	return bb
}

func (bb *BusBuilder) WithLogger(l *xlog.Logger) *BusBuilder {
	bb.logger = l
	return bb
}

func (bb *BusBuilder) WithClock(c xclock.Clock) *BusBuilder {
	bb.clock = c
	return bb
}

func (bb *BusBuilder) Build() (*Bus, error) {
	var err error

	sender := bb.senderInst
	if sender == nil {
		sender, err = SenderByName(bb.senderName)
		if err != nil {
			return nil, err
		}
	}

	exec := bb.executorInst
	if exec == nil {
		exec, err = NewExecutor(bb.executorName, bb.executorCfg)
		if err != nil {
			return nil, err
		}
	}

	clk := bb.clock
	if clk == nil {
		clk = xclock.Default()
	}
	lg := bb.logger
	if lg == nil {
		lg = xlog.Default()
	}

	mws := bb.middlewares
	if bb.listenerTimeout > 0 {
		// Innermost, so retries get a fresh budget per attempt.
		mws = append(append([]Middleware(nil), mws...), TimeoutMiddleware(bb.listenerTimeout))
	}

	b := &Bus{
		registry:    NewRegistry(),
		executor:    exec,
		sender:      sender,
		clock:       clk,
		logger:      lg,
		middlewares: mws,
		metrics:     &busMetrics{},
	}
	b.registry.notify = b.notify

	if bb.observerWorkers > 0 {
		b.observerPool = NewObserverPool(context.Background(), bb.observerWorkers, bb.observerBuffer)
	}

	// Attach logging observer first for dependable telemetry unless already supplied externally.
	hasLoggingObserver := false
	for _, o := range bb.observers {
		if _, ok := o.(LoggingObserver); ok {
			hasLoggingObserver = true
			break
		}
	}
	if !hasLoggingObserver {
		b.AddObserver(LoggingObserver{Logger: lg})
	}
	for _, o := range bb.observers {
		b.AddObserver(o)
	}

	lg.Debug().Str("executor", executorName(exec)).Msg("msgbus: bus built")
	return b, nil
}

// New constructs a Bus via Builder and returns a close func for convenience.
func New(init func(b *BusBuilder)) (*Bus, func() error, error) {
	b := NewBusBuilder()
	if init != nil {
		init(b)
	}
	bus, err := b.Build()
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() error { return bus.Close(context.Background()) }
	return bus, closeFn, nil
}
