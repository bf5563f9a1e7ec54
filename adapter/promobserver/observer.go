// Package promobserver exports msgbus lifecycle events as Prometheus metrics.
package promobserver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/trickstertwo/msgbus"
)

// Observer counts bus events per type and destination and records the
// duration of every completed send.
type Observer struct {
	events       *prometheus.CounterVec
	failures     *prometheus.CounterVec
	sendDuration *prometheus.HistogramVec
}

var _ msgbus.Observer = (*Observer)(nil)

// New registers the collectors on reg. A nil reg uses prometheus.DefaultRegisterer.
// namespace prefixes every metric name ("msgbus" when empty).
func New(reg prometheus.Registerer, namespace string) *Observer {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "msgbus"
	}
	f := promauto.With(reg)

	return &Observer{
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Total number of bus lifecycle events by type and destination",
		}, []string{"type", "destination"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listener_failures_total",
			Help:      "Total number of listener failures by destination and listener",
		}, []string{"destination", "listener"}),
		sendDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "send_duration_seconds",
			Help:      "Duration of synchronous deliveries by destination",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"destination"}),
	}
}

func (o *Observer) OnEvent(e msgbus.Event) {
	dest := e.Destination
	if dest == "" {
		dest = "unknown"
	}
	o.events.WithLabelValues(string(e.Type), dest).Inc()

	switch e.Type {
	case msgbus.ListenerFailed:
		listener := e.Listener
		if listener == "" {
			listener = "unknown"
		}
		o.failures.WithLabelValues(dest, listener).Inc()
	case msgbus.SendDone:
		o.sendDuration.WithLabelValues(dest).Observe(e.Duration.Seconds())
	}
}
