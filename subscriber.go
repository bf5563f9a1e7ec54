package msgbus

import (
	"context"
	"fmt"
	"sync"

	"github.com/trickstertwo/xlog"
)

// Route declares one subscription of a component: which destination, which
// action (ActionAny for all), at which priority, handled by which function.
type Route struct {
	Destination string
	Action      string
	Priority    Priority
	Handle      func(ctx context.Context, msg *Message) error
}

// route is the registered listener of a Route; its pointer is its identity.
type route struct {
	owner string
	Route
}

func (r *route) Receive(ctx context.Context, msg *Message) error {
	if r.Action != ActionAny && !msg.IsSameAction(r.Action) {
		return nil
	}
	return r.Handle(ctx, msg)
}

func (r *route) String() string {
	if r.Action == ActionAny {
		return r.owner + "->" + r.Destination
	}
	return r.owner + "->" + r.Destination + "#" + r.Action
}

// Subscriber is a component's static subscription table. Start registers
// every route, Stop unregisters them; both are idempotent.
//
//	sub := msgbus.NewSubscriber("shutdown-guard",
//	    msgbus.Route{Destination: SystemShutDown, Priority: msgbus.PriorityHigh, Handle: guard.onShutdown},
//	)
//	sub.Start(bus)
//	defer sub.Stop(bus)
type Subscriber struct {
	name   string
	routes []*route
	manual bool
	logger *xlog.Logger

	mu      sync.Mutex
	started bool
}

// NewSubscriber validates the table eagerly: a route without destination or
// handler, or with an unknown priority, panics.
func NewSubscriber(name string, routes ...Route) *Subscriber {
	s := &Subscriber{name: name}
	for i, r := range routes {
		if r.Destination == "" {
			panic(fmt.Sprintf("msgbus: subscriber %q route %d has no destination", name, i))
		}
		if r.Handle == nil {
			panic(fmt.Sprintf("msgbus: subscriber %q route %d has no handler", name, i))
		}
		if !r.Priority.Valid() {
			panic(fmt.Sprintf("msgbus: subscriber %q route %d has invalid priority %s", name, i, r.Priority))
		}
		s.routes = append(s.routes, &route{owner: name, Route: r})
	}
	return s
}

// Manual marks a component that registers its listeners by hand, silencing
// the missing-subscription warning.
func (s *Subscriber) Manual() *Subscriber {
	s.manual = true
	return s
}

func (s *Subscriber) WithLogger(l *xlog.Logger) *Subscriber {
	s.logger = l
	return s
}

func (s *Subscriber) Name() string { return s.name }

// Routes returns a copy of the declared table.
func (s *Subscriber) Routes() []Route {
	out := make([]Route, len(s.routes))
	for i, r := range s.routes {
		out[i] = r.Route
	}
	return out
}

// Start registers every route on r.
func (s *Subscriber) Start(r Registrar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	if len(s.routes) == 0 {
		if !s.manual {
			s.log().Warn().Str("subscriber", s.name).Msg("msgbus: component declares no subscriptions; mark it Manual if it registers by hand")
		}
		return
	}
	for _, rt := range s.routes {
		r.Register(rt.Priority, rt, rt.Destination)
	}
}

// Stop unregisters every route from r.
func (s *Subscriber) Stop(r Registrar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.started = false
	for _, rt := range s.routes {
		r.Unregister(rt, rt.Destination)
	}
}

func (s *Subscriber) log() *xlog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return xlog.Default()
}
