package msgbus

import (
	"fmt"
	"strings"
)

// Priority ranks listeners within a destination. Higher ranks are invoked first.
type Priority int

const (
	PriorityHigher       Priority = 20
	PriorityHigh         Priority = 10
	PriorityNormal       Priority = 0
	PriorityLow          Priority = -10
	PriorityVerification Priority = -100
)

// Priorities lists every level from highest to lowest rank.
var Priorities = []Priority{
	PriorityHigher,
	PriorityHigh,
	PriorityNormal,
	PriorityLow,
	PriorityVerification,
}

// IsHigherThan reports whether p ranks strictly above other.
func (p Priority) IsHigherThan(other Priority) bool {
	return p > other
}

// Rank returns the integer rank of p.
func (p Priority) Rank() int { return int(p) }

// Valid reports whether p is one of the five defined levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigher, PriorityHigh, PriorityNormal, PriorityLow, PriorityVerification:
		return true
	}
	return false
}

func (p Priority) String() string {
	switch p {
	case PriorityHigher:
		return "higher"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	case PriorityVerification:
		return "verification"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// ParsePriority resolves a level by name, case-insensitively.
// An empty name resolves to PriorityNormal.
func ParsePriority(name string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "higher":
		return PriorityHigher, nil
	case "high":
		return PriorityHigh, nil
	case "normal", "":
		return PriorityNormal, nil
	case "low":
		return PriorityLow, nil
	case "verification":
		return PriorityVerification, nil
	}
	return PriorityNormal, fmt.Errorf("unknown priority %q", name)
}
