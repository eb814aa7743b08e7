package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the cargo model.
// Tracks entity creation, subscriber failures and snapshot durations.
type Metrics struct {
	ItemsCreated       prometheus.Counter
	ContainersCreated  prometheus.Counter
	ItemsDeleted       prometheus.Counter
	SubscriberFailures *prometheus.CounterVec
	SnapshotDuration   *prometheus.HistogramVec
	SnapshotFailures   *prometheus.CounterVec
	SnapshotSkipped    prometheus.Counter
	ModelSize          *prometheus.GaugeVec
}

// New registers the cargo metrics with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the cargo metrics with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ItemsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "cargotrack_items_created_total",
			Help: "Total number of cargo items created",
		}),
		ContainersCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "cargotrack_containers_created_total",
			Help: "Total number of containers created",
		}),
		ItemsDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "cargotrack_items_deleted_total",
			Help: "Total number of cargo items deleted",
		}),
		SubscriberFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cargotrack_subscriber_failures_total",
			Help: "Subscriber notifications that returned an error or panicked, by source kind",
		}, []string{"kind"}),
		SnapshotDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cargotrack_snapshot_duration_seconds",
			Help:    "Duration of snapshot save and restore operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"op"}),
		SnapshotFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cargotrack_snapshot_failures_total",
			Help: "Snapshot save or restore operations that failed",
		}, []string{"op"}),
		SnapshotSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "cargotrack_snapshot_records_skipped_total",
			Help: "Malformed snapshot records skipped during restore",
		}),
		ModelSize: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cargotrack_model_entities",
			Help: "Entities currently held in the model, by kind",
		}, []string{"kind"}),
	}
}

func (m *Metrics) IncrementItemsCreated() {
	m.ItemsCreated.Inc()
}

func (m *Metrics) IncrementContainersCreated() {
	m.ContainersCreated.Inc()
}

func (m *Metrics) IncrementItemsDeleted() {
	m.ItemsDeleted.Inc()
}

// IncrementSubscriberFailure records a failed notification from a source of the given kind.
func (m *Metrics) IncrementSubscriberFailure(kind string) {
	m.SubscriberFailures.WithLabelValues(kind).Inc()
}

// ObserveSnapshot records the duration of a "save" or "restore".
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveSnapshot(op string, start time.Time) {
	m.SnapshotDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementSnapshotFailure(op string) {
	m.SnapshotFailures.WithLabelValues(op).Inc()
}

func (m *Metrics) AddSnapshotSkipped(n int) {
	m.SnapshotSkipped.Add(float64(n))
}

// SetModelSize publishes the current number of items and containers.
func (m *Metrics) SetModelSize(items, containers int) {
	m.ModelSize.WithLabelValues("item").Set(float64(items))
	m.ModelSize.WithLabelValues("container").Set(float64(containers))
}
