package msgbus

import (
	"context"
	"fmt"
	"sync"
)

var (
	defaultBus   *Bus
	defaultBusMu sync.Mutex
)

// Default returns the process-wide singleton Bus, building it on first use.
func Default() *Bus {
	defaultBusMu.Lock()
	defer defaultBusMu.Unlock()

	if defaultBus != nil {
		return defaultBus
	}

	bus, err := NewBusBuilder().Build()
	if err != nil {
		panic(fmt.Sprintf("msgbus: failed to initialize default bus: %v", err))
	}
	defaultBus = bus
	return defaultBus
}

// SetDefault replaces the process-wide default Bus.
func SetDefault(b *Bus) {
	if b == nil {
		panic("msgbus: SetDefault called with nil Bus")
	}
	defaultBusMu.Lock()
	defaultBus = b
	defaultBusMu.Unlock()
}

// Register is the Facade using the default bus.
func Register(priority Priority, listener Listener, destinations ...string) {
	Default().Register(priority, listener, destinations...)
}

// Unregister is the Facade using the default bus.
func Unregister(listener Listener, destinations ...string) {
	Default().Unregister(listener, destinations...)
}

// Send is the Facade using the default bus.
func Send(ctx context.Context, msg *Message) error {
	return Default().Send(ctx, msg)
}

// SendSilently is the Facade using the default bus.
func SendSilently(ctx context.Context, msg *Message) {
	Default().SendSilently(ctx, msg)
}

// SendAsync is the Facade using the default bus.
func SendAsync(ctx context.Context, msg *Message) {
	Default().SendAsync(ctx, msg)
}
