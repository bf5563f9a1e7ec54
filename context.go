package msgbus

import (
	"context"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// ctxKey is the base for all context keys in msgbus (prevents collisions).
type ctxKey string

const (
	loggerCtxKey   ctxKey = "msgbus:logger"
	clockCtxKey    ctxKey = "msgbus:clock"
	reporterCtxKey ctxKey = "msgbus:reporter"
)

// FailureReporter records a listener failure that a Sender chose not to propagate.
type FailureReporter func(msg *Message, err error)

func injectLogger(ctx context.Context, l *xlog.Logger) context.Context {
	if l == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerCtxKey, l)
}

// LoggerFromContext returns the bus logger attached to a dispatch context.
func LoggerFromContext(ctx context.Context) (*xlog.Logger, bool) {
	if v := ctx.Value(loggerCtxKey); v != nil {
		if l, ok := v.(*xlog.Logger); ok && l != nil {
			return l, true
		}
	}
	return nil, false
}

func injectClock(ctx context.Context, c xclock.Clock) context.Context {
	if c == nil {
		return ctx
	}
	return context.WithValue(ctx, clockCtxKey, c)
}

func ClockFromContext(ctx context.Context) (xclock.Clock, bool) {
	if v := ctx.Value(clockCtxKey); v != nil {
		if c, ok := v.(xclock.Clock); ok && c != nil {
			return c, true
		}
	}
	return nil, false
}

// WithFailureReporter attaches r so ContinueOnFailure senders can record swallowed failures.
func WithFailureReporter(ctx context.Context, r FailureReporter) context.Context {
	if r == nil {
		return ctx
	}
	return context.WithValue(ctx, reporterCtxKey, r)
}

// ReportFailure hands err to the reporter attached to ctx. It reports false
// when ctx carries no reporter.
func ReportFailure(ctx context.Context, msg *Message, err error) bool {
	r, ok := ctx.Value(reporterCtxKey).(FailureReporter)
	if !ok || r == nil {
		return false
	}
	r(msg, err)
	return true
}

// InjectAll is a convenience helper to inject all standard dependencies.
func InjectAll(ctx context.Context, logger *xlog.Logger, clock xclock.Clock, reporter FailureReporter) context.Context {
	ctx = injectLogger(ctx, logger)
	ctx = injectClock(ctx, clock)
	ctx = WithFailureReporter(ctx, reporter)
	return ctx
}
