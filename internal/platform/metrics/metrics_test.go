package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	t.Run("sessions", func(t *testing.T) {
		m.SessionOpened()
		m.SessionOpened()
		m.SessionClosed()
		assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveSessions))
		assert.Equal(t, 2.0, testutil.ToFloat64(m.ConnectionsTotal))
	})

	t.Run("commands by result", func(t *testing.T) {
		m.ObserveCommand("LOAD", true, time.Now())
		m.ObserveCommand("LOAD", false, time.Now())
		m.ObserveCommand("LOAD", false, time.Now())
		assert.Equal(t, 1.0, testutil.ToFloat64(m.CommandsTotal.WithLabelValues("LOAD", "ok")))
		assert.Equal(t, 2.0, testutil.ToFloat64(m.CommandsTotal.WithLabelValues("LOAD", "err")))
	})

	t.Run("audit", func(t *testing.T) {
		m.IncrementAuditDropped()
		m.IncrementAuditSkipped()
		m.IncrementAuditSkipped()
		assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditDropped))
		assert.Equal(t, 2.0, testutil.ToFloat64(m.AuditSkipped))
	})
}
