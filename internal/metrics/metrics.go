// Package metrics defines the monitoring-event sink every storage operation
// reports through. The consumer of the event stream is outside the core; the
// shipped Prometheus emitter covers the common case and Noop is the default.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Field is one key/value attribute attached to an emitted event.
type Field struct {
	Key   string
	Value any
}

// Latency records the wall-clock duration of the operation.
func Latency(d time.Duration) Field {
	return Field{Key: "latency_ns", Value: d.Nanoseconds()}
}

// Bytes records the payload size of the operation.
func Bytes(n int) Field {
	return Field{Key: "bytes", Value: n}
}

// ID records the artifact identifier the operation targeted.
func ID(id string) Field {
	return Field{Key: "id", Value: id}
}

// Position records the log position the operation targeted.
func Position(p int64) Field {
	return Field{Key: "position", Value: p}
}

// MessageID records the message id carried by the operation.
func MessageID(id int64) Field {
	return Field{Key: "message_id", Value: id}
}

// Emitter receives one event per storage operation. Implementations must be
// safe for concurrent use.
type Emitter interface {
	Emit(event string, fields ...Field)
}

// Noop discards every event. It is the default emitter when none is
// configured.
type Noop struct{}

// Emit implements Emitter.
func (Noop) Emit(string, ...Field) {}

// Prometheus counts operations and observes their latency per event name.
type Prometheus struct {
	ops     *prometheus.CounterVec
	latency *prometheus.HistogramVec
	bytes   *prometheus.HistogramVec
}

// NewPrometheus registers the coordlog collectors with reg and returns the
// emitter. Passing prometheus.DefaultRegisterer is the usual choice for a
// process-wide scrape endpoint.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coordlog_operations_total",
			Help: "Storage operations performed, by event name.",
		}, []string{"event"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coordlog_operation_latency_seconds",
			Help:    "Storage operation latency, by event name.",
			Buckets: prometheus.DefBuckets,
		}, []string{"event"}),
		bytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coordlog_operation_bytes",
			Help:    "Payload bytes moved per storage operation, by event name.",
			Buckets: prometheus.ExponentialBuckets(64, 4, 10),
		}, []string{"event"}),
	}
	reg.MustRegister(p.ops, p.latency, p.bytes)
	return p
}

// Emit implements Emitter.
func (p *Prometheus) Emit(event string, fields ...Field) {
	p.ops.WithLabelValues(event).Inc()
	for _, f := range fields {
		switch f.Key {
		case "latency_ns":
			if ns, ok := f.Value.(int64); ok {
				p.latency.WithLabelValues(event).Observe(float64(ns) / 1e9)
			}
		case "bytes":
			if n, ok := f.Value.(int); ok {
				p.bytes.WithLabelValues(event).Observe(float64(n))
			}
		}
	}
}
