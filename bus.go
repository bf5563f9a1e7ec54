package msgbus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// Bus is the central Facade owning the destination registry and the three send modes.
//
// Registration is serialized by the registry lock; sends read a snapshot of
// the destination list and never block registration. Synchronous and silent
// sends run on the caller goroutine; asynchronous sends are handed to the Executor.
type Bus struct {
	registry     *Registry
	executor     Executor
	sender       Sender
	clock        xclock.Clock
	logger       *xlog.Logger
	middlewares  []Middleware
	observerPool *ObserverPool
	observersMu  sync.RWMutex
	observers    []Observer
	metrics      *busMetrics
	closed       atomic.Bool
	closeOnce    sync.Once
}

// busMetrics uses lock-free atomics for telemetry.
type busMetrics struct {
	sentCount           atomic.Uint64
	deliveredCount      atomic.Uint64
	listenerErrorCount  atomic.Uint64
	noListenersCount    atomic.Uint64
	failedCount         atomic.Uint64
	swallowedCount      atomic.Uint64
	asyncSubmittedCount atomic.Uint64
	asyncRejectedCount  atomic.Uint64
	processingNs        atomic.Int64
}

// Registry exposes the destination registry backing the bus.
func (b *Bus) Registry() *Registry { return b.registry }

// Register adds listener at priority to each destination.
// Panics on an empty destination list, an empty destination, an invalid
// priority or a nil or non-comparable listener.
func (b *Bus) Register(priority Priority, listener Listener, destinations ...string) {
	b.registry.Register(priority, listener, destinations...)
}

// RegisterDefault registers listener at PriorityNormal.
func (b *Bus) RegisterDefault(listener Listener, destinations ...string) {
	b.registry.Register(PriorityNormal, listener, destinations...)
}

// Unregister removes listener from each destination; unknown pairs are ignored.
func (b *Bus) Unregister(listener Listener, destinations ...string) {
	b.registry.Unregister(listener, destinations...)
}

// Listeners returns the listeners of destination in invocation order.
func (b *Bus) Listeners(destination string) []Listener {
	return b.registry.Listeners(destination)
}

// Send delivers msg with the bus default sender.
func (b *Bus) Send(ctx context.Context, msg *Message) error {
	return b.SendWith(ctx, msg, b.sender)
}

// SendTo sends a payload-less message with ActionAny to destination.
func (b *Bus) SendTo(ctx context.Context, destination string) error {
	return b.Send(ctx, ForDestination(destination))
}

// SendWith delivers msg to the listeners of its destination using sender.
//
// It returns ErrEmptyDestination for a message without destination and a
// *DeliveryError when sender reports a failure. A destination without
// listeners is not an error; it is reported to observers as NoListeners.
func (b *Bus) SendWith(ctx context.Context, msg *Message, sender Sender) error {
	if msg == nil {
		panic("msgbus: message must not be nil")
	}
	if sender == nil {
		panic("msgbus: sender must not be nil")
	}

	b.metrics.sentCount.Add(1)
	dest := msg.Destination()
	if dest == "" {
		b.metrics.failedCount.Add(1)
		return ErrEmptyDestination
	}

	entries := b.registry.snapshot(dest)
	if len(entries) == 0 {
		b.metrics.noListenersCount.Add(1)
		b.notify(messageEvent(NoListeners, msg))
		return nil
	}

	listeners := make([]Listener, len(entries))
	for i, e := range entries {
		listeners[i] = b.invocation(dest, e.listener)
	}

	dctx := InjectAll(ctx, b.logger, b.clock, b.reportFailure)
	b.notify(messageEvent(SendStart, msg))
	start := b.clock.Now()

	err := dispatch(dctx, sender, msg, listeners)

	duration := b.clock.Since(start)
	b.recordProcessingTime(duration.Nanoseconds())

	done := messageEvent(SendDone, msg)
	done.Duration = duration
	done.Err = err
	b.notify(done)

	if err == nil {
		return nil
	}
	b.metrics.failedCount.Add(1)
	derr := &DeliveryError{Message: msg, Err: err}
	failed := messageEvent(DeliveryFailed, msg)
	failed.Err = derr
	b.notify(failed)
	return derr
}

// dispatch runs the sender, turning a panic inside a custom sender into an error.
func dispatch(ctx context.Context, sender Sender, msg *Message, listeners []Listener) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return sender.Send(ctx, msg, listeners)
}

// invocation wraps one registered listener for a single send. The registered
// value is untouched so identity-based unregistration keeps working.
func (b *Bus) invocation(dest string, l Listener) Listener {
	// Always enable panic recovery first for dependability.
	inner := Chain(RecoveryMiddleware()(l), b.middlewares...)
	return listenerFunc(func(ctx context.Context, msg *Message) error {
		b.metrics.deliveredCount.Add(1)
		if err := inner.Receive(ctx, msg); err != nil {
			b.metrics.listenerErrorCount.Add(1)
			return &ListenerError{Destination: dest, Listener: describe(l), Err: err}
		}
		return nil
	})
}

// reportFailure receives failures absorbed by a sender.
func (b *Bus) reportFailure(msg *Message, err error) {
	e := messageEvent(ListenerFailed, msg)
	e.Err = err
	var le *ListenerError
	if errors.As(err, &le) {
		e.Listener = le.Listener
	}
	b.notify(e)
}

// SendSilently is Send with every error absorbed and reported to observers.
func (b *Bus) SendSilently(ctx context.Context, msg *Message) {
	b.SendSilentlyWith(ctx, msg, b.sender)
}

// SendSilentlyTo is SendTo with every error absorbed.
func (b *Bus) SendSilentlyTo(ctx context.Context, destination string) {
	b.SendSilently(ctx, ForDestination(destination))
}

// SendSilentlyWith is SendWith with every error absorbed and reported to observers.
func (b *Bus) SendSilentlyWith(ctx context.Context, msg *Message, sender Sender) {
	if err := b.SendWith(ctx, msg, sender); err != nil {
		b.metrics.swallowedCount.Add(1)
		e := messageEvent(Swallowed, msg)
		e.Err = err
		b.notify(e)
	}
}

// SendAsync schedules a silent send with the default sender and returns immediately.
func (b *Bus) SendAsync(ctx context.Context, msg *Message) {
	b.SendAsyncWith(ctx, msg, b.sender)
}

// SendAsyncTo schedules a silent send of a payload-less message to destination.
func (b *Bus) SendAsyncTo(ctx context.Context, destination string) {
	b.SendAsync(ctx, ForDestination(destination))
}

// SendAsyncWith schedules SendSilentlyWith on the executor. The task keeps the
// values of ctx but not its cancellation. Two async sends carry no ordering
// guarantee beyond what the executor provides.
func (b *Bus) SendAsyncWith(ctx context.Context, msg *Message, sender Sender) {
	if msg == nil {
		panic("msgbus: message must not be nil")
	}
	if sender == nil {
		panic("msgbus: sender must not be nil")
	}

	actx := context.WithoutCancel(ctx)
	err := b.executor.Execute(func() {
		b.SendSilentlyWith(actx, msg, sender)
	})
	if err != nil {
		b.metrics.asyncRejectedCount.Add(1)
		e := messageEvent(AsyncRejected, msg)
		e.Err = err
		b.notify(e)
		return
	}
	b.metrics.asyncSubmittedCount.Add(1)
	b.notify(messageEvent(AsyncSubmitted, msg))
}

// GetMetrics returns current bus metrics.
func (b *Bus) GetMetrics() Metrics {
	m := Metrics{
		Sent:                b.metrics.sentCount.Load(),
		Delivered:           b.metrics.deliveredCount.Load(),
		ListenerErrors:      b.metrics.listenerErrorCount.Load(),
		NoListeners:         b.metrics.noListenersCount.Load(),
		Failed:              b.metrics.failedCount.Load(),
		Swallowed:           b.metrics.swallowedCount.Load(),
		AsyncSubmitted:      b.metrics.asyncSubmittedCount.Load(),
		AsyncRejected:       b.metrics.asyncRejectedCount.Load(),
		AvgProcessingTimeMs: float64(b.metrics.processingNs.Load()) / 1e6,
	}
	if b.observerPool != nil {
		m.EventsDropped = b.observerPool.Stats().Dropped
	}
	return m
}

// Health reports "unhealthy" once closed and "degraded" when more than 5% of sends failed.
func (b *Bus) Health(ctx context.Context) HealthStatus {
	if b.closed.Load() {
		return HealthStatus{
			Status:    "unhealthy",
			Timestamp: b.clock.Now(),
			Message:   "bus is closed",
		}
	}

	metrics := b.GetMetrics()
	status := "healthy"
	if metrics.Failed > 0 && metrics.Sent > 0 {
		errorRate := float64(metrics.Failed) / float64(metrics.Sent)
		if errorRate > 0.05 {
			status = "degraded"
		}
	}

	return HealthStatus{
		Status:    status,
		Metrics:   metrics,
		Timestamp: b.clock.Now(),
	}
}

// Close stops async delivery: the executor is drained, then the observer pool.
// Synchronous sends and registration keep working, with observers notified on
// the caller goroutine; async sends are rejected.
// Close is idempotent.
func (b *Bus) Close(ctx context.Context) error {
	var closeErr error

	b.closeOnce.Do(func() {
		b.closed.Store(true)

		if err := b.executor.Close(ctx); err != nil {
			b.logger.Warn().Err(err).Msg("msgbus: executor shutdown failed")
			closeErr = err
		}

		if b.observerPool != nil {
			if err := b.observerPool.Close(5 * time.Second); err != nil {
				b.logger.Warn().Err(err).Msg("msgbus: observer pool shutdown timeout")
				closeErr = errors.Join(closeErr, err)
			}
		}
	})

	return closeErr
}

// AddObserver registers an observer (thread-safe).
// Without an observer pool observers run synchronously on the goroutine that
// caused the event, after the registry lock is released.
func (b *Bus) AddObserver(obs Observer) {
	if obs == nil {
		return
	}
	b.observersMu.Lock()
	b.observers = append(b.observers, obs)
	b.observersMu.Unlock()
}

// RemoveObserver removes an observer. Observers of non-comparable types cannot be removed.
func (b *Bus) RemoveObserver(obs Observer) {
	if obs == nil {
		return
	}
	b.observersMu.Lock()
	defer b.observersMu.Unlock()

	for i, o := range b.observers {
		if sameObserver(o, obs) {
			b.observers = append(b.observers[:i], b.observers[i+1:]...)
			break
		}
	}
}

func sameObserver(a, b Observer) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}

// notify hands e to the observers, through the pool when one is configured
// and still open, synchronously otherwise.
func (b *Bus) notify(e Event) {
	b.observersMu.RLock()
	if len(b.observers) == 0 {
		b.observersMu.RUnlock()
		return
	}
	observers := make([]Observer, len(b.observers))
	copy(observers, b.observers)
	b.observersMu.RUnlock()

	// A closed pool no longer accepts events; sends after Close still report.
	if b.observerPool != nil && b.observerPool.Notify(e, observers) {
		return
	}
	e.observers = observers
	dispatchEvent(&e)
}

// recordProcessingTime records send duration as an exponential moving average.
func (b *Bus) recordProcessingTime(ns int64) {
	const alpha = 0.2
	current := b.metrics.processingNs.Load()
	if current == 0 {
		b.metrics.processingNs.Store(ns)
		return
	}
	newAvg := int64(float64(ns)*alpha + float64(current)*(1-alpha))
	b.metrics.processingNs.Store(newAvg)
}
