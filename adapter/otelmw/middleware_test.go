package otelmw

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/trickstertwo/msgbus"
)

func setup(t *testing.T) (*msgbus.Bus, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	bus, err := msgbus.NewBusBuilder().
		WithExecutor(msgbus.ExecutorInline, nil).
		WithMiddleware(Middleware(WithTracerProvider(tp))).
		Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close(context.Background()) })
	return bus, exporter
}

func attrs(s tracetest.SpanStub) map[attribute.Key]string {
	out := map[attribute.Key]string{}
	for _, kv := range s.Attributes {
		out[kv.Key] = kv.Value.AsString()
	}
	return out
}

func TestMiddleware_SpanPerListener(t *testing.T) {
	bus, exporter := setup(t)

	var sawSpan bool
	bus.Register(msgbus.PriorityHigh, msgbus.Func("a", func(ctx context.Context, _ *msgbus.Message) error {
		sawSpan = trace.SpanFromContext(ctx).SpanContext().IsValid()
		return nil
	}), "test.TRACED")
	bus.Register(msgbus.PriorityLow, msgbus.Func("b", func(context.Context, *msgbus.Message) error { return nil }), "test.TRACED")

	msg := msgbus.ForAction("test.TRACED", "start")
	require.NoError(t, bus.Send(context.Background(), msg))

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.True(t, sawSpan)

	s := spans[0]
	assert.Equal(t, "msgbus.receive test.TRACED", s.Name)
	assert.Equal(t, trace.SpanKindConsumer, s.SpanKind)
	a := attrs(s)
	assert.Equal(t, "test.TRACED", a[DestinationKey])
	assert.Equal(t, "start", a[ActionKey])
	assert.Equal(t, msg.ID(), a[MessageIDKey])
	assert.Equal(t, codes.Unset, s.Status.Code)
}

func TestMiddleware_RecordsError(t *testing.T) {
	bus, exporter := setup(t)

	boom := errors.New("boom")
	bus.Register(msgbus.PriorityNormal, msgbus.Func("bad", func(context.Context, *msgbus.Message) error {
		return boom
	}), "test.FAILING")

	err := bus.Send(context.Background(), msgbus.ForDestination("test.FAILING"))
	require.ErrorIs(t, err, boom)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "boom", spans[0].Status.Description)
	require.NotEmpty(t, spans[0].Events)
	assert.Equal(t, "exception", spans[0].Events[0].Name)
}
