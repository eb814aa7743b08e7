package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.IncrementItemsCreated()
	m.IncrementItemsCreated()
	m.IncrementSubscriberFailure("container")
	m.IncrementSnapshotFailure("save")
	m.AddSnapshotSkipped(3)
	m.SetModelSize(5, 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ItemsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SubscriberFailures.WithLabelValues("container")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotFailures.WithLabelValues("save")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SnapshotSkipped))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.ModelSize.WithLabelValues("item")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ModelSize.WithLabelValues("container")))
}
