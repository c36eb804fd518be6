// Package rtmetrics provides Prometheus metrics for the scheduler's
// per-tick activity and the System.HostStats() script-facing call,
// grounded on an infrastructure/metrics-style layout: one struct of
// pre-registered collector fields, labelled per dimension, exposed
// through a constructor that registers everything against a
// caller-supplied Registerer.
package rtmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Metrics holds the runtime's Prometheus collectors, labelled by realm
// name where a metric is realm-scoped.
type Metrics struct {
	MessagesDispatchedTotal *prometheus.CounterVec
	MessagesFailedTotal     *prometheus.CounterVec
	MessageDispatchDuration *prometheus.HistogramVec

	PendingQueueDepth *prometheus.GaugeVec
	ActiveQueueDepth  *prometheus.GaugeVec
	TimerCount        *prometheus.GaugeVec

	ObjectsLive *prometheus.GaugeVec

	UpdateTickDuration prometheus.Histogram
}

// New creates a Metrics instance registered against registerer (pass
// prometheus.DefaultRegisterer for process-wide metrics, or a fresh
// prometheus.NewRegistry() in tests to avoid collector collisions).
func New(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		MessagesDispatchedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentrt_messages_dispatched_total",
				Help: "Total number of messages dispatched by the scheduler",
			},
			[]string{"realm", "call_type"},
		),
		MessagesFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentrt_messages_failed_total",
				Help: "Total number of messages that completed as Failed or Error",
			},
			[]string{"realm", "call_type"},
		),
		MessageDispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentrt_message_dispatch_duration_seconds",
				Help:    "Time spent inside a single Dispatch call",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"realm"},
		),
		PendingQueueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "agentrt_pending_queue_depth",
				Help: "Number of messages waiting in the scheduler's pending heap",
			},
			[]string{"realm"},
		),
		ActiveQueueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "agentrt_active_queue_depth",
				Help: "Number of messages in the scheduler's current active buffer",
			},
			[]string{"realm"},
		),
		TimerCount: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "agentrt_armed_timers",
				Help: "Number of timers currently armed in the scheduler's timer table",
			},
			[]string{"realm"},
		),
		ObjectsLive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "agentrt_objects_live",
				Help: "Number of live Objects per ClassManager type",
			},
			[]string{"realm", "type"},
		),
		UpdateTickDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "agentrt_update_tick_duration_seconds",
				Help:    "Wall-clock time spent inside one Scheduler.Update call",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.MessagesDispatchedTotal,
			m.MessagesFailedTotal,
			m.MessageDispatchDuration,
			m.PendingQueueDepth,
			m.ActiveQueueDepth,
			m.TimerCount,
			m.ObjectsLive,
			m.UpdateTickDuration,
		)
	}
	return m
}

// HostStats is the snapshot returned by the script-facing
// System.HostStats() call of the table.
type HostStats struct {
	CPUPercent float64
	MemUsedPct float64
	MemUsedMB  uint64
	MemTotalMB uint64
}

// ReadHostStats samples process-host CPU and memory usage via gopsutil,
// the same library health-check surfaces commonly use for
// resource-pressure reporting.
func ReadHostStats() (HostStats, error) {
	percentages, err := cpu.Percent(0, false)
	if err != nil {
		return HostStats{}, err
	}
	var cpuPct float64
	if len(percentages) > 0 {
		cpuPct = percentages[0]
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return HostStats{}, err
	}

	return HostStats{
		CPUPercent: cpuPct,
		MemUsedPct: vm.UsedPercent,
		MemUsedMB:  vm.Used / (1024 * 1024),
		MemTotalMB: vm.Total / (1024 * 1024),
	}, nil
}
