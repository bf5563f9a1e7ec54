package msgbus

import (
	"github.com/trickstertwo/xlog"
)

// ObserverFunc is an Adapter that lets a plain function satisfy Observer.
type ObserverFunc func(e Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }

// LoggingObserver is an Adapter that emits bus events via xlog.
type LoggingObserver struct {
	Logger *xlog.Logger
}

func (o LoggingObserver) OnEvent(e Event) {
	if o.Logger == nil {
		return
	}
	ev := o.Logger.With(
		xlog.Str("type", string(e.Type)),
		xlog.Str("destination", e.Destination),
		xlog.Str("action", e.Action),
		xlog.Str("message_id", e.MessageID),
		xlog.Str("listener", e.Listener),
	)
	switch e.Type {
	case NoListeners:
		ev.Warn().Msg("msgbus: no listeners for destination")
	case ListenerFailed:
		ev.Warn().Err(e.Err).Msg("msgbus: listener failed")
	case Swallowed:
		ev.Error().Err(e.Err).Msg("msgbus: failed to deliver message")
	case AsyncRejected:
		ev.Error().Err(e.Err).Msg("msgbus: async send rejected")
	case Duplicate:
		ev.Debug().Msg("msgbus: attempt to add duplicate listener")
	default:
		if e.Duration > 0 {
			ev = ev.With(xlog.Dur("duration", e.Duration))
		}
		ev.Debug().Msg("msgbus event")
	}
}
