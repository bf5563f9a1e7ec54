package msgbus

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// callLog records the order in which listeners were invoked.
type callLog struct {
	mu    sync.Mutex
	names []string
}

func (c *callLog) listener(name string, err error) *FuncListener {
	return Func(name, func(context.Context, *Message) error {
		c.mu.Lock()
		c.names = append(c.names, name)
		c.mu.Unlock()
		return err
	})
}

func (c *callLog) calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.names...)
}

// eventLog is a synchronous observer collecting events.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) OnEvent(e Event) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) ofType(t EventType) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Event
	for _, e := range l.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func newTestBus(t *testing.T, init func(b *BusBuilder)) (*Bus, *eventLog) {
	t.Helper()
	events := &eventLog{}
	b := NewBusBuilder().
		WithExecutor(ExecutorInline, nil).
		WithObserver(events)
	if init != nil {
		init(b)
	}
	bus, err := b.Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close(context.Background()) })
	return bus, events
}
