package msgbus

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// RetryConfig controls how often a failing listener is invoked again.
type RetryConfig struct {
	// MaxAttempts is the total number of invocations, the first one included.
	MaxAttempts int
	// Backoff returns the pause after the given failed attempt; nil means no pause.
	Backoff func(attempt int) time.Duration
	// RetryIf selects retryable errors; nil retries every error.
	// Recovered panics are never retried.
	RetryIf func(err error) bool
	// Jitter adds a random [0, Jitter) delay to each pause.
	Jitter time.Duration
}

func (c RetryConfig) pause(attempt int) time.Duration {
	if c.Backoff == nil {
		return 0
	}
	d := c.Backoff(attempt)
	if c.Jitter > 0 {
		d += rand.N(c.Jitter)
	}
	return d
}

func (c RetryConfig) retryable(err error) bool {
	if errors.Is(err, ErrListenerPanic) {
		return false
	}
	return c.RetryIf == nil || c.RetryIf(err)
}

// RetryMiddleware re-invokes a failing listener up to MaxAttempts times.
// It gives up early once ctx is done, returning the last listener error.
func RetryMiddleware(cfg RetryConfig) Middleware {
	attempts := max(1, cfg.MaxAttempts)
	return func(next Listener) Listener {
		return listenerFunc(func(ctx context.Context, msg *Message) error {
			err := next.Receive(ctx, msg)
			for attempt := 1; err != nil && attempt < attempts; attempt++ {
				if ctx.Err() != nil || !cfg.retryable(err) || !sleep(ctx, cfg.pause(attempt)) {
					break
				}
				err = next.Receive(ctx, msg)
			}
			return err
		})
	}
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// TimeoutMiddleware bounds the time a send waits for a listener. The listener
// runs on its own goroutine with a context that expires after d; once it
// expires the send moves on with an error wrapping context.DeadlineExceeded,
// while the listener keeps running until it observes its context.
func TimeoutMiddleware(d time.Duration) Middleware {
	if d <= 0 {
		return func(next Listener) Listener { return next }
	}
	return func(next Listener) Listener {
		guarded := RecoveryMiddleware()(next)
		return listenerFunc(func(ctx context.Context, msg *Message) error {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			result := make(chan error, 1)
			go func() { result <- guarded.Receive(ctx, msg) }()

			select {
			case err := <-result:
				return err
			case <-ctx.Done():
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return fmt.Errorf("msgbus: listener exceeded %v: %w", d, ctx.Err())
				}
				return ctx.Err()
			}
		})
	}
}

// RecoveryMiddleware converts listener panics into errors matching ErrListenerPanic.
func RecoveryMiddleware() Middleware {
	return func(next Listener) Listener {
		return listenerFunc(func(ctx context.Context, msg *Message) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &panicError{value: r}
				}
			}()
			return next.Receive(ctx, msg)
		})
	}
}

// Chain composes middlewares around a listener in order.
func Chain(l Listener, mws ...Middleware) Listener {
	if len(mws) == 0 {
		return l
	}
	wrapped := l
	// Apply in reverse so that first middleware wraps last.
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		wrapped = mws[i](wrapped)
	}
	return wrapped
}
