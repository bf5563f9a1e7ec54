package msgbus

import (
	"context"
	"fmt"
	"reflect"

	"github.com/google/uuid"
)

// FuncListener adapts a function into a Listener with pointer identity.
// Two FuncListeners wrapping the same function are still distinct listeners.
type FuncListener struct {
	name string
	fn   func(ctx context.Context, msg *Message) error
}

// Func wraps fn. An empty name is replaced by a generated one.
func Func(name string, fn func(ctx context.Context, msg *Message) error) *FuncListener {
	if fn == nil {
		panic("msgbus: Func called with nil function")
	}
	if name == "" {
		name = "func-" + uuid.NewString()[:8]
	}
	return &FuncListener{name: name, fn: fn}
}

func (f *FuncListener) Receive(ctx context.Context, msg *Message) error {
	return f.fn(ctx, msg)
}

func (f *FuncListener) String() string { return f.name }

// listenerFunc is used internally to wrap invocations; it is never registered.
type listenerFunc func(ctx context.Context, msg *Message) error

func (f listenerFunc) Receive(ctx context.Context, msg *Message) error { return f(ctx, msg) }

// describe names a listener for logs and errors.
func describe(l Listener) string {
	if s, ok := l.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", l)
}

func mustBeComparable(l Listener) {
	if l == nil {
		panic("msgbus: listener must not be nil")
	}
	if t := reflect.TypeOf(l); !t.Comparable() {
		panic(fmt.Sprintf("msgbus: listener type %s is not comparable; register a pointer or use Func", t))
	}
}
