package msgbus

import (
	"context"
	"fmt"
)

// SenderFunc is an Adapter that lets a plain function satisfy Sender.
type SenderFunc func(ctx context.Context, msg *Message, listeners []Listener) error

func (f SenderFunc) Send(ctx context.Context, msg *Message, listeners []Listener) error {
	return f(ctx, msg, listeners)
}

const (
	SenderPropagating       = "propagating"
	SenderContinueOnFailure = "continue_on_failure"
)

var (
	propagating       Sender = SenderFunc(sendPropagating)
	continueOnFailure Sender = SenderFunc(sendContinueOnFailure)
)

// Propagating invokes listeners in order and returns the first failure;
// listeners after the failing one are not invoked. It is the bus default.
func Propagating() Sender { return propagating }

// ContinueOnFailure invokes every listener in order; Send itself always succeeds.
// Failures go to the FailureReporter of ctx, or to the context logger when
// there is none.
func ContinueOnFailure() Sender { return continueOnFailure }

// SenderByName resolves the built-in senders by configuration name.
func SenderByName(name string) (Sender, error) {
	switch name {
	case SenderPropagating, "":
		return propagating, nil
	case SenderContinueOnFailure:
		return continueOnFailure, nil
	}
	return nil, fmt.Errorf("unknown sender %q", name)
}

func sendPropagating(ctx context.Context, msg *Message, listeners []Listener) error {
	for _, l := range listeners {
		if err := l.Receive(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func sendContinueOnFailure(ctx context.Context, msg *Message, listeners []Listener) error {
	for _, l := range listeners {
		err := l.Receive(ctx, msg)
		if err == nil || ReportFailure(ctx, msg, err) {
			continue
		}
		if lg, ok := LoggerFromContext(ctx); ok {
			lg.Error().Err(err).Str("destination", msg.Destination()).Msg("msgbus: listener failed, continuing")
		}
	}
	return nil
}
