package msgbus

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyDestination is returned when a message without destination is sent.
	ErrEmptyDestination = errors.New("msgbus: message destination must not be empty")
	// ErrDeliveryFailed is matched by every *DeliveryError.
	ErrDeliveryFailed = errors.New("msgbus: delivery failed")
	// ErrListenerPanic is matched by listener errors produced from a recovered panic.
	ErrListenerPanic = errors.New("msgbus: listener panicked")

	ErrExecutorClosed              = errors.New("msgbus: executor is closed")
	ErrExecutorShutdownTimeout     = errors.New("msgbus: executor shutdown timeout")
	ErrObserverPoolShutdownTimeout = errors.New("msgbus: observer pool shutdown timeout")
)

type ErrUnknownExecutor struct{ name string }

func (e ErrUnknownExecutor) Error() string { return fmt.Sprintf("unknown executor: %s", e.name) }

// DeliveryError reports that a sender surfaced a listener failure.
type DeliveryError struct {
	Message *Message
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("msgbus: failed to send %s: %v", e.Message, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

func (e *DeliveryError) Is(target error) bool { return target == ErrDeliveryFailed }

// ListenerError wraps the failure of a single listener invocation.
type ListenerError struct {
	Destination string
	Listener    string
	Err         error
}

func (e *ListenerError) Error() string {
	return fmt.Sprintf("listener %s on %q: %v", e.Listener, e.Destination, e.Err)
}

func (e *ListenerError) Unwrap() error { return e.Err }

// panicError carries a recovered panic value.
type panicError struct {
	value any
}

func (e *panicError) Error() string { return fmt.Sprintf("panic recovered: %v", e.value) }

func (e *panicError) Is(target error) bool { return target == ErrListenerPanic }
