package rtmetrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.MessagesDispatchedTotal.WithLabelValues("realm-1", "Synchronous").Inc()
	m.PendingQueueDepth.WithLabelValues("realm-1").Set(3)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	var found bool
	for _, f := range families {
		if f.GetName() == "agentrt_messages_dispatched_total" {
			found = true
			require.Len(t, f.Metric, 1)
			assert.Equal(t, float64(1), f.Metric[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found)
}

func TestReadHostStatsReturnsPlausibleValues(t *testing.T) {
	stats, err := ReadHostStats()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.MemTotalMB, uint64(0))
	assert.GreaterOrEqual(t, stats.CPUPercent, float64(0))
}
