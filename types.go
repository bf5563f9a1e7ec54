package msgbus

import (
	"time"
)

// PoolStats returns telemetry about a worker pool.
type PoolStats struct {
	Dropped      uint64 // Items dropped due to full buffer
	Processed    uint64 // Items successfully processed
	ActiveEvents int    // Current queue depth
	Workers      int    // Number of worker goroutines
	BufferSize   int    // Channel capacity
}

// Metrics defines observable telemetry for the bus.
type Metrics struct {
	Sent                uint64 // Send calls, including those rejected for an empty destination
	Delivered           uint64 // Listener invocations
	ListenerErrors      uint64 // Listener invocations that failed
	NoListeners         uint64 // Sends to a destination without listeners
	Failed              uint64 // Sends that ended in an error
	Swallowed           uint64 // Errors absorbed by silent and async sends
	AsyncSubmitted      uint64
	AsyncRejected       uint64
	EventsDropped       uint64
	AvgProcessingTimeMs float64
}

// HealthStatus reports bus health.
type HealthStatus struct {
	Status    string // "healthy", "degraded", "unhealthy"
	Metrics   Metrics
	Timestamp time.Time
	Message   string
}
