package msgbus

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// ActionAny is the default action; listeners treat it as "no sub-classifier".
const ActionAny = ""

const destinationUnknown = "<unknown>"

// Message is the immutable value delivered to listeners.
// Equality covers destination and action only; the payload and ID are ignored.
type Message struct {
	id          string
	destination string
	action      string
	data        Data
}

// MessageKey is the comparable identity of a Message, usable as a map key.
type MessageKey struct {
	Destination string
	Action      string
}

// NewMessage builds a message. The data is copied, later changes to it are not seen.
func NewMessage(destination, action string, data Data) *Message {
	return &Message{
		id:          uuid.NewString(),
		destination: destination,
		action:      action,
		data:        data.Clone(),
	}
}

// ForDestination builds a message with ActionAny and no payload.
func ForDestination(destination string) *Message {
	return NewMessage(destination, ActionAny, nil)
}

// ForAction builds a message for a destination and action with no payload.
func ForAction(destination, action string) *Message {
	return NewMessage(destination, action, nil)
}

// EmptyMessage returns a placeholder message with an unknown destination.
func EmptyMessage() *Message {
	return NewMessage(destinationUnknown, ActionAny, nil)
}

// ID is a random identifier used for log and trace correlation.
func (m *Message) ID() string { return m.id }

func (m *Message) Destination() string { return m.destination }

func (m *Message) Action() string { return m.action }

// Data returns a copy of the payload.
func (m *Message) Data() Data { return m.data.Clone() }

// Key returns the (destination, action) identity of m.
func (m *Message) Key() MessageKey {
	return MessageKey{Destination: m.destination, Action: m.action}
}

// Equal reports whether m and other share destination and action.
func (m *Message) Equal(other *Message) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.Key() == other.Key()
}

func (m *Message) IsSameDestination(destination string) bool {
	return m.destination == destination
}

// IsSameAction reports whether the message action equals any of values.
func (m *Message) IsSameAction(values ...string) bool {
	return slices.Contains(values, m.action)
}

func (m *Message) IsSameDestinationAndAction(destination string, actions ...string) bool {
	return m.IsSameDestination(destination) && m.IsSameAction(actions...)
}

func (m *Message) String() string {
	return fmt.Sprintf("Message{destination=%q, action=%q}", m.destination, m.action)
}
