// Package msgbus is an in-process publish/subscribe message bus.
//
// Components register Listeners against named destinations with a Priority and
// receive Messages in priority order. A Sender decides how a failing listener
// affects the rest of the list, and each send runs in one of three modes:
// synchronous (errors returned), silent (errors logged) or asynchronous
// (handed to an Executor, errors logged).
//
//	bus, closeFn, err := msgbus.New(nil)
//	if err != nil {
//	    return err
//	}
//	defer closeFn()
//
//	bus.Register(msgbus.PriorityHigh, audit, "com.example.SYSTEM_SHUT_DOWN")
//	err = bus.Send(ctx, msgbus.ForDestination("com.example.SYSTEM_SHUT_DOWN"))
package msgbus

import (
	"context"
)

// Listener receives messages for the destinations it is registered on.
// Its dynamic type must be comparable: registration identity is interface equality.
type Listener interface {
	Receive(ctx context.Context, msg *Message) error
}

// Middleware composes processing concerns around a listener invocation.
type Middleware func(next Listener) Listener

// Sender is the Strategy deciding how one message reaches an ordered listener list.
type Sender interface {
	Send(ctx context.Context, msg *Message, listeners []Listener) error
}

// Executor runs units of work for asynchronous sends.
type Executor interface {
	// Execute schedules task. It returns ErrExecutorClosed once Close was called.
	Execute(task func()) error
	// Close stops accepting work and waits for queued tasks until ctx is done.
	Close(ctx context.Context) error
}

// Registrar is the registration half of the bus.
type Registrar interface {
	Register(priority Priority, listener Listener, destinations ...string)
	Unregister(listener Listener, destinations ...string)
}

// Observer receives bus lifecycle events. Implementations should be non-blocking.
type Observer interface {
	OnEvent(e Event)
}

// HealthChecker provides health status for monitoring.
type HealthChecker interface {
	Health(ctx context.Context) HealthStatus
}

// API represents the complete msgbus surface.
type API interface {
	Registrar
	Send(ctx context.Context, msg *Message) error
	SendWith(ctx context.Context, msg *Message, sender Sender) error
	SendSilently(ctx context.Context, msg *Message)
	SendSilentlyWith(ctx context.Context, msg *Message, sender Sender)
	SendAsync(ctx context.Context, msg *Message)
	SendAsyncWith(ctx context.Context, msg *Message, sender Sender)
	Close(ctx context.Context) error
	GetMetrics() Metrics
	Health(ctx context.Context) HealthStatus
	AddObserver(obs Observer)
	RemoveObserver(obs Observer)
}

var (
	_ API           = (*Bus)(nil)
	_ HealthChecker = (*Bus)(nil)
	_ Registrar     = (*Registry)(nil)
)
