// Package telemetry wires fleetcore's logging, tracing, and metrics,
// following the split goa-ai's runtime/agent/telemetry package uses:
// goa.design/clue/log for structured logs, OTel for request-shaped
// tracing/histograms, and — new here, since an operator watching a
// running fleet wants current counts rather than request traces — a
// github.com/prometheus/client_golang gauge set for locks,
// reservations, missions, and coordinator violations in flight.
package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"goa.design/clue/log"

	"github.com/fleettools/fleetcore/internal/event"
)

// Telemetry is the facade internal packages take a dependency on: one
// value threading logging, tracing, and operator gauges through a
// project's lifetime.
type Telemetry interface {
	Logger
	// StartSpan opens a span named name and returns a func that ends it.
	StartSpan(ctx context.Context, name string) func()
	// RecordAppendLatency records how long one eventstore.Append call took.
	RecordAppendLatency(ctx context.Context, t event.Type, d time.Duration)
	// Gauges exposes the operator-facing Prometheus gauge set.
	Gauges() *Gauges
}

// Logger is the structured logging surface, shaped like goa-ai's
// runtime telemetry.Logger so call sites read the same way.
type Logger interface {
	Debug(ctx context.Context, msg string, keyvals ...any)
	Info(ctx context.Context, msg string, keyvals ...any)
	Warn(ctx context.Context, msg string, keyvals ...any)
	Error(ctx context.Context, msg string, err error, keyvals ...any)
}

// Gauges are the operator-visible current-state metrics. Every field
// is safe to use from multiple goroutines (prometheus.Gauge already is).
type Gauges struct {
	ActiveLocks        prometheus.Gauge
	ActiveReservations prometheus.Gauge
	ActiveMissions     prometheus.Gauge
	ActiveSorties      prometheus.Gauge
	Violations         prometheus.Counter
}

// NewGauges registers the gauge set with reg. Pass
// prometheus.NewRegistry() in tests to avoid collisions with the
// global default registerer.
func NewGauges(reg prometheus.Registerer) *Gauges {
	g := &Gauges{
		ActiveLocks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fleet", Name: "active_locks", Help: "Locks currently held.",
		}),
		ActiveReservations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fleet", Name: "active_reservations", Help: "File reservations currently held.",
		}),
		ActiveMissions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fleet", Name: "active_missions", Help: "Missions currently in progress.",
		}),
		ActiveSorties: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fleet", Name: "active_sorties", Help: "Sorties currently in progress.",
		}),
		Violations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fleet", Name: "coordinator_violations_total", Help: "Invalid state transitions rejected by a projection handler.",
		}),
	}
	reg.MustRegister(g.ActiveLocks, g.ActiveReservations, g.ActiveMissions, g.ActiveSorties, g.Violations)
	return g
}

type clue struct {
	tracer  trace.Tracer
	latency metric.Float64Histogram
	gauges  *Gauges
}

// New builds a Telemetry backed by goa.design/clue/log and the global
// OTel providers, registering its Prometheus gauges with reg.
func New(reg prometheus.Registerer) Telemetry {
	meter := otel.Meter("github.com/fleettools/fleetcore")
	hist, _ := meter.Float64Histogram("fleet_append_latency_seconds")
	return &clue{
		tracer:  otel.Tracer("github.com/fleettools/fleetcore"),
		latency: hist,
		gauges:  NewGauges(reg),
	}
}

// NoOp returns a Telemetry whose logging, tracing, and metrics calls
// are all inert, registering its gauges against a private registry so
// tests and library callers never touch the global one.
func NoOp() Telemetry {
	return New(prometheus.NewRegistry())
}

func (c *clue) Debug(ctx context.Context, msg string, keyvals ...any) {
	log.Debug(ctx, fielders(msg, keyvals)...)
}

func (c *clue) Info(ctx context.Context, msg string, keyvals ...any) {
	log.Info(ctx, fielders(msg, keyvals)...)
}

func (c *clue) Warn(ctx context.Context, msg string, keyvals ...any) {
	log.Warn(ctx, fielders(msg, keyvals)...)
}

func (c *clue) Error(ctx context.Context, msg string, err error, keyvals ...any) {
	log.Error(ctx, err, fielders(msg, keyvals)...)
}

func (c *clue) StartSpan(ctx context.Context, name string) func() {
	_, span := c.tracer.Start(ctx, name)
	return span.End
}

func (c *clue) RecordAppendLatency(ctx context.Context, t event.Type, d time.Duration) {
	if c.latency == nil {
		return
	}
	c.latency.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("event_type", string(t))))
}

func (c *clue) Gauges() *Gauges {
	return c.gauges
}

func fielders(msg string, keyvals []any) []log.Fielder {
	fielders := []log.Fielder{log.KV{K: "msg", V: msg}}
	for i := 0; i+1 < len(keyvals); i += 2 {
		k, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		fielders = append(fielders, log.KV{K: k, V: keyvals[i+1]})
	}
	return fielders
}
