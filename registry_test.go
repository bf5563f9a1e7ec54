package msgbus

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(ls []Listener) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = describe(l)
	}
	return out
}

func TestRegistry_PriorityOrderAndFIFO(t *testing.T) {
	r := NewRegistry()
	var c callLog

	r.Register(PriorityLow, c.listener("low", nil), "d")
	r.Register(PriorityNormal, c.listener("normal-1", nil), "d")
	r.Register(PriorityHigher, c.listener("higher", nil), "d")
	r.Register(PriorityVerification, c.listener("verify", nil), "d")
	r.Register(PriorityNormal, c.listener("normal-2", nil), "d")
	r.Register(PriorityHigh, c.listener("high", nil), "d")
	r.Register(PriorityNormal, c.listener("normal-3", nil), "d")

	assert.Equal(t,
		[]string{"higher", "high", "normal-1", "normal-2", "normal-3", "low", "verify"},
		names(r.Listeners("d")))
}

func TestRegistry_DuplicateKeepsOriginalPriority(t *testing.T) {
	r := NewRegistry()
	var c callLog
	a := c.listener("a", nil)
	b := c.listener("b", nil)

	r.Register(PriorityLow, a, "d")
	r.Register(PriorityNormal, b, "d")
	r.Register(PriorityHigher, a, "d")

	assert.Equal(t, []string{"b", "a"}, names(r.Listeners("d")))
	p, ok := r.PriorityOf("d", a)
	require.True(t, ok)
	assert.Equal(t, PriorityLow, p)
	assert.Equal(t, 2, r.Count("d"))
}

func TestRegistry_MultipleDestinations(t *testing.T) {
	r := NewRegistry()
	var c callLog
	a := c.listener("a", nil)

	r.Register(PriorityNormal, a, "x", "y", "x")
	assert.Equal(t, 1, r.Count("x"))
	assert.Equal(t, 1, r.Count("y"))
	assert.Equal(t, []string{"x", "y"}, r.Destinations())

	r.Unregister(a, "x")
	assert.Equal(t, 0, r.Count("x"))
	assert.Equal(t, 1, r.Count("y"))
	// Emptied destinations are kept.
	assert.Equal(t, []string{"x", "y"}, r.Destinations())
}

func TestRegistry_UnregisterAbsentIsNoop(t *testing.T) {
	r := NewRegistry()
	var c callLog
	a := c.listener("a", nil)
	b := c.listener("b", nil)

	r.Register(PriorityNormal, a, "d")
	r.Unregister(b, "d")
	r.Unregister(a, "unknown")
	assert.Equal(t, []string{"a"}, names(r.Listeners("d")))
	assert.Nil(t, r.Listeners("unknown"))

	_, ok := r.PriorityOf("d", b)
	assert.False(t, ok)
}

func TestRegistry_SnapshotIsStable(t *testing.T) {
	r := NewRegistry()
	var c callLog
	r.Register(PriorityNormal, c.listener("a", nil), "d")

	snap := r.Listeners("d")
	r.Register(PriorityHigh, c.listener("b", nil), "d")

	assert.Len(t, snap, 1)
	assert.Len(t, r.Listeners("d"), 2)
}

func TestRegistry_PreconditionsPanic(t *testing.T) {
	r := NewRegistry()
	var c callLog
	l := c.listener("a", nil)

	assert.Panics(t, func() { r.Register(PriorityNormal, nil, "d") })
	assert.Panics(t, func() { r.Register(PriorityNormal, l) })
	assert.Panics(t, func() { r.Register(PriorityNormal, l, "") })
	assert.Panics(t, func() { r.Register(Priority(3), l, "d") })
	assert.Panics(t, func() { r.Unregister(nil, "d") })
}

type sliceListener []string

func (sliceListener) Receive(context.Context, *Message) error { return nil }

func TestRegistry_NonComparableListenerPanics(t *testing.T) {
	r := NewRegistry()
	assert.Panics(t, func() { r.Register(PriorityNormal, sliceListener{"x"}, "d") })
}

type valueListener struct{ id int }

func (valueListener) Receive(context.Context, *Message) error { return nil }

func TestRegistry_ValueListenerIdentity(t *testing.T) {
	r := NewRegistry()

	// Comparable value types are identified by value.
	r.Register(PriorityNormal, valueListener{1}, "d")
	r.Register(PriorityHigh, valueListener{1}, "d")
	r.Register(PriorityHigh, valueListener{2}, "d")
	assert.Equal(t, 2, r.Count("d"))

	r.Unregister(valueListener{1}, "d")
	assert.Equal(t, []Listener{valueListener{2}}, r.Listeners("d"))
}

func TestRegistry_EmitsEvents(t *testing.T) {
	r := NewRegistry()
	var got []EventType
	r.notify = func(e Event) { got = append(got, e.Type) }

	var c callLog
	a := c.listener("a", nil)
	r.Register(PriorityNormal, a, "d")
	r.Register(PriorityNormal, a, "d")
	r.Unregister(a, "d")
	r.Unregister(a, "d")

	assert.Equal(t, []EventType{Registered, Duplicate, Unregistered}, got)
}

func TestRegistry_ConcurrentRegistration(t *testing.T) {
	for round := 0; round < 50; round++ {
		r := NewRegistry()
		var c callLog
		high := c.listener("high", nil)
		low := c.listener("low", nil)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); r.Register(PriorityLow, low, "d") }()
		go func() { defer wg.Done(); r.Register(PriorityHigh, high, "d") }()
		wg.Wait()

		require.Equal(t, []string{"high", "low"}, names(r.Listeners("d")))
	}
}

func TestRegistry_ConcurrentReadsDuringMutation(t *testing.T) {
	r := NewRegistry()
	var c callLog
	listeners := make([]*FuncListener, 32)
	for i := range listeners {
		listeners[i] = c.listener("l", nil)
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			ls := r.Listeners("d")
			for _, l := range ls {
				assert.NotNil(t, l)
			}
		}
	}()

	for i, l := range listeners {
		r.Register(Priorities[i%len(Priorities)], l, "d")
	}
	for _, l := range listeners[:16] {
		r.Unregister(l, "d")
	}
	close(stop)
	wg.Wait()

	assert.Equal(t, 16, r.Count("d"))
}
