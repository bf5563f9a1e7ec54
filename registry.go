package msgbus

import (
	"slices"
	"sort"
	"sync"
	"sync/atomic"
)

// Registry maps destinations to listener lists ordered by descending priority.
//
// Mutations (Register, Unregister, including their multi-destination forms)
// are serialized by a single registry-wide mutex. Each destination publishes
// an immutable snapshot of its list, replaced on every mutation, so readers
// never lock and an in-flight dispatch keeps iterating the list it started with.
type Registry struct {
	mu      sync.Mutex
	buckets sync.Map // string -> *bucket, never deleted

	// notify receives registration events after mu is released.
	notify func(Event)
}

type bucket struct {
	entries atomic.Pointer[[]entry]
}

// entry pairs a listener with its registered priority. Two entries are the
// same registration when their listeners are equal, whatever the priority.
type entry struct {
	listener Listener
	priority Priority
}

func (b *bucket) load() []entry {
	if p := b.entries.Load(); p != nil {
		return *p
	}
	return nil
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds listener to every destination at priority. A listener already
// present on a destination is left untouched, keeping its original priority
// and position. All destinations are updated under one critical section.
func (r *Registry) Register(priority Priority, listener Listener, destinations ...string) {
	mustBeComparable(listener)
	if !priority.Valid() {
		panic("msgbus: invalid priority " + priority.String())
	}
	mustHaveDestinations(destinations)

	name := describe(listener)
	events := make([]Event, 0, len(destinations))

	r.mu.Lock()
	for _, dest := range destinations {
		b := r.ensureBucket(dest)
		current := b.load()
		if indexOf(current, listener) >= 0 {
			events = append(events, Event{Type: Duplicate, Destination: dest, Listener: name, Priority: priority})
			continue
		}
		next := insertByPriority(current, entry{listener: listener, priority: priority})
		b.entries.Store(&next)
		events = append(events, Event{Type: Registered, Destination: dest, Listener: name, Priority: priority})
	}
	r.mu.Unlock()

	r.emit(events)
}

// Unregister removes listener from every destination; absent listeners are ignored.
func (r *Registry) Unregister(listener Listener, destinations ...string) {
	mustBeComparable(listener)

	var events []Event

	r.mu.Lock()
	for _, dest := range destinations {
		v, ok := r.buckets.Load(dest)
		if !ok {
			continue
		}
		b := v.(*bucket)
		current := b.load()
		i := indexOf(current, listener)
		if i < 0 {
			continue
		}
		next := slices.Delete(slices.Clone(current), i, i+1)
		b.entries.Store(&next)
		events = append(events, Event{Type: Unregistered, Destination: dest, Listener: describe(listener), Priority: current[i].priority})
	}
	r.mu.Unlock()

	r.emit(events)
}

// Listeners returns the listeners of destination in invocation order.
// The returned slice is owned by the caller.
func (r *Registry) Listeners(destination string) []Listener {
	entries := r.snapshot(destination)
	if len(entries) == 0 {
		return nil
	}
	out := make([]Listener, len(entries))
	for i, e := range entries {
		out[i] = e.listener
	}
	return out
}

// PriorityOf returns the priority listener was registered with on destination.
func (r *Registry) PriorityOf(destination string, listener Listener) (Priority, bool) {
	entries := r.snapshot(destination)
	if i := indexOf(entries, listener); i >= 0 {
		return entries[i].priority, true
	}
	return PriorityNormal, false
}

// Count returns the number of listeners on destination.
func (r *Registry) Count(destination string) int {
	return len(r.snapshot(destination))
}

// Destinations returns every destination that ever had a registration, sorted.
// Destinations whose listeners were all removed are still reported.
func (r *Registry) Destinations() []string {
	var out []string
	r.buckets.Range(func(k, _ any) bool {
		out = append(out, k.(string))
		return true
	})
	sort.Strings(out)
	return out
}

func (r *Registry) snapshot(destination string) []entry {
	v, ok := r.buckets.Load(destination)
	if !ok {
		return nil
	}
	return v.(*bucket).load()
}

func (r *Registry) ensureBucket(destination string) *bucket {
	if v, ok := r.buckets.Load(destination); ok {
		return v.(*bucket)
	}
	b := &bucket{}
	r.buckets.Store(destination, b)
	return b
}

func (r *Registry) emit(events []Event) {
	if r.notify == nil {
		return
	}
	for _, e := range events {
		r.notify(e)
	}
}

// insertByPriority returns a new list with e placed after every entry of
// higher or equal priority and before the first entry of strictly lower
// priority, so equal priorities keep registration order.
func insertByPriority(entries []entry, e entry) []entry {
	idx := len(entries)
	for i, existing := range entries {
		if e.priority.IsHigherThan(existing.priority) {
			idx = i
			break
		}
	}
	next := make([]entry, 0, len(entries)+1)
	next = append(next, entries[:idx]...)
	next = append(next, e)
	next = append(next, entries[idx:]...)
	return next
}

func indexOf(entries []entry, listener Listener) int {
	for i, e := range entries {
		if e.listener == listener {
			return i
		}
	}
	return -1
}

func mustHaveDestinations(destinations []string) {
	if len(destinations) == 0 {
		panic("msgbus: at least one destination is required")
	}
	for _, d := range destinations {
		if d == "" {
			panic("msgbus: destination must not be empty")
		}
	}
}
