package msgbus

import (
	"time"
)

// EventType enumerates internal lifecycle events for Observer pattern.
type EventType string

const (
	Registered     EventType = "registered"
	Unregistered   EventType = "unregistered"
	Duplicate      EventType = "duplicate"
	SendStart      EventType = "send_start"
	SendDone       EventType = "send_done"
	NoListeners    EventType = "no_listeners"
	ListenerFailed EventType = "listener_failed"
	DeliveryFailed EventType = "delivery_failed"
	Swallowed      EventType = "swallowed"
	AsyncSubmitted EventType = "async_submitted"
	AsyncRejected  EventType = "async_rejected"
)

// Event carries telemetry for observers.
type Event struct {
	Type        EventType
	Destination string
	Action      string
	MessageID   string
	Listener    string
	Priority    Priority
	Duration    time.Duration
	Err         error

	// Internal: attached for async dispatch
	observers []Observer
}

// messageEvent pre-fills the message fields of an event.
func messageEvent(t EventType, msg *Message) Event {
	return Event{
		Type:        t,
		Destination: msg.Destination(),
		Action:      msg.Action(),
		MessageID:   msg.ID(),
	}
}
