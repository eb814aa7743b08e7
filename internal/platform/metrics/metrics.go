package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the process-level Prometheus metrics: command traffic,
// sessions and event delivery.
type Metrics struct {
	CommandsTotal    *prometheus.CounterVec
	CommandDuration  *prometheus.HistogramVec
	ActiveSessions   prometheus.Gauge
	EventsEnqueued   prometheus.Counter
	EventsDelivered  prometheus.Counter
	WaitEvents       *prometheus.CounterVec
	AuditDropped     prometheus.Counter
	AuditSkipped     prometheus.Counter
	ConnectionsTotal prometheus.Counter
}

// New creates and registers all Prometheus metrics with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates and registers all Prometheus metrics with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CommandsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cargotrack_commands_total",
			Help: "Commands processed, by verb and result (ok, err)",
		}, []string{"verb", "result"}),
		CommandDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cargotrack_command_duration_seconds",
			Help:    "Time spent handling a command, including lock wait",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}, []string{"verb"}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "cargotrack_active_sessions",
			Help: "Sessions currently connected",
		}),
		EventsEnqueued: f.NewCounter(prometheus.CounterOpts{
			Name: "cargotrack_events_enqueued_total",
			Help: "Tracker events queued for delivery to a session",
		}),
		EventsDelivered: f.NewCounter(prometheus.CounterOpts{
			Name: "cargotrack_events_delivered_total",
			Help: "Tracker events written to a session connection",
		}),
		WaitEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cargotrack_wait_events_total",
			Help: "WAIT_EVENTS outcomes (event, timeout, closed)",
		}, []string{"outcome"}),
		AuditDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "cargotrack_audit_events_dropped_total",
			Help: "Audit events dropped because the audit buffer was full",
		}),
		AuditSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "cargotrack_audit_events_skipped_total",
			Help: "Audit events not sent to the remote store while its circuit was open",
		}),
		ConnectionsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "cargotrack_connections_total",
			Help: "Connections accepted by the command listener",
		}),
	}
}

// ObserveCommand records the outcome and duration of one command.
// Call with time.Now() at the start of the command.
func (m *Metrics) ObserveCommand(verb string, ok bool, start time.Time) {
	result := "ok"
	if !ok {
		result = "err"
	}
	m.CommandsTotal.WithLabelValues(verb, result).Inc()
	m.CommandDuration.WithLabelValues(verb).Observe(time.Since(start).Seconds())
}

func (m *Metrics) SessionOpened() {
	m.ActiveSessions.Inc()
	m.ConnectionsTotal.Inc()
}

func (m *Metrics) SessionClosed() {
	m.ActiveSessions.Dec()
}

func (m *Metrics) IncrementEventsEnqueued() {
	m.EventsEnqueued.Inc()
}

func (m *Metrics) IncrementEventsDelivered() {
	m.EventsDelivered.Inc()
}

// IncrementWaitOutcome records how a WAIT_EVENTS call ended.
func (m *Metrics) IncrementWaitOutcome(outcome string) {
	m.WaitEvents.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementAuditDropped() {
	m.AuditDropped.Inc()
}

func (m *Metrics) IncrementAuditSkipped() {
	m.AuditSkipped.Inc()
}
