// Package otelmw traces listener invocations with OpenTelemetry.
package otelmw

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/trickstertwo/msgbus"
)

const instrumentationName = "github.com/trickstertwo/msgbus/adapter/otelmw"

// Span attribute keys.
const (
	DestinationKey = "msgbus.destination"
	ActionKey      = "msgbus.action"
	MessageIDKey   = "msgbus.message_id"
)

type options struct {
	provider trace.TracerProvider
}

type Option func(*options)

// WithTracerProvider overrides the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.provider = tp }
}

// Middleware starts one consumer span per listener invocation. A listener
// error is recorded on the span and sets its status to Error.
func Middleware(opts ...Option) msgbus.Middleware {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.provider == nil {
		o.provider = otel.GetTracerProvider()
	}
	tracer := o.provider.Tracer(instrumentationName)

	return func(next msgbus.Listener) msgbus.Listener {
		return receiver(func(ctx context.Context, msg *msgbus.Message) error {
			ctx, span := tracer.Start(ctx, "msgbus.receive "+msg.Destination(),
				trace.WithSpanKind(trace.SpanKindConsumer),
				trace.WithAttributes(
					attribute.String(DestinationKey, msg.Destination()),
					attribute.String(ActionKey, msg.Action()),
					attribute.String(MessageIDKey, msg.ID()),
				),
			)
			defer span.End()

			err := next.Receive(ctx, msg)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return err
		})
	}
}

type receiver func(ctx context.Context, msg *msgbus.Message) error

func (f receiver) Receive(ctx context.Context, msg *msgbus.Message) error { return f(ctx, msg) }
