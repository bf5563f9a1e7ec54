package errgroup

import (
	"fmt"
	"time"

	"github.com/trickstertwo/msgbus"
	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// Use builds a Bus whose async sends run on the errgroup executor and sets it
// as the default.
//
// Example:
//
//	bus := errgroup.Use(errgroup.Config{
//	    Limit:    8,
//	    Blocking: true,
//	},
//	    errgroup.WithLogger(logger),
//	    errgroup.WithSender(msgbus.SenderContinueOnFailure),
//	)
//
// The returned bus is installed as the process-wide default.
func Use(cfg Config, opts ...Option) *msgbus.Bus {
	bb := msgbus.NewBusBuilder().
		WithExecutor(ExecutorName, cfg.toMap())

	for _, o := range opts {
		if o != nil {
			o(bb)
		}
	}

	bus, err := bb.Build()
	if err != nil {
		panic(fmt.Errorf("errgroup.Use: %w", err))
	}

	msgbus.SetDefault(bus)
	return bus
}

// Option configures the msgbus.Bus when calling Use.
type Option func(*msgbus.BusBuilder)

// WithLogger injects a custom xlog logger.
func WithLogger(l *xlog.Logger) Option {
	return func(b *msgbus.BusBuilder) { b.WithLogger(l) }
}

// WithClock injects a custom xclock clock.
func WithClock(c xclock.Clock) Option {
	return func(b *msgbus.BusBuilder) { b.WithClock(c) }
}

// WithSender selects the default sender by name (default: "propagating").
func WithSender(name string) Option {
	return func(b *msgbus.BusBuilder) { b.WithSender(name) }
}

// WithMiddleware adds listener middlewares (retry, timeout, etc).
func WithMiddleware(mw ...msgbus.Middleware) Option {
	return func(b *msgbus.BusBuilder) { b.WithMiddleware(mw...) }
}

// WithListenerTimeout bounds every listener invocation.
func WithListenerTimeout(d time.Duration) Option {
	return func(b *msgbus.BusBuilder) { b.WithListenerTimeout(d) }
}

// WithObserver attaches observers for lifecycle events.
func WithObserver(obs ...msgbus.Observer) Option {
	return func(b *msgbus.BusBuilder) { b.WithObserver(obs...) }
}

// WithObserverPool configures async observer pool for non-blocking notifications.
func WithObserverPool(workers, bufferSize int) Option {
	return func(b *msgbus.BusBuilder) { b.WithObserverPool(workers, bufferSize) }
}
