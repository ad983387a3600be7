package server

// Prometheus collectors for client/registry state plus host resource
// gauges sampled periodically via gopsutil, matching the "stats thread"
// named in §5's scheduling model.

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Metrics bundles every collector the server registers.
type Metrics struct {
	ClientsConnected prometheus.Gauge
	FramesDropped    prometheus.Counter
	FramesCommitted  prometheus.Counter
	HostCPUPercent   prometheus.Gauge
	HostMemPercent   prometheus.Gauge

	registry *Registry
	cancel   context.CancelFunc

	lastCommitted uint64
	lastDropped   uint64
}

// NewMetrics registers the server's collectors against reg.
func NewMetrics(registry *Registry, promReg prometheus.Registerer) *Metrics {
	m := &Metrics{
		registry: registry,
		ClientsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "asciichat",
			Subsystem: "server",
			Name:      "clients_connected",
			Help:      "Number of currently admitted clients.",
		}),
		FramesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "asciichat",
			Subsystem: "framestore",
			Name:      "frames_dropped_total",
			Help:      "Video frames dropped because the reader hadn't consumed the previous commit.",
		}),
		FramesCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "asciichat",
			Subsystem: "framestore",
			Name:      "frames_committed_total",
			Help:      "Video frames successfully committed to a frame store.",
		}),
		HostCPUPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "asciichat",
			Subsystem: "host",
			Name:      "cpu_percent",
			Help:      "Host-wide CPU utilization percentage.",
		}),
		HostMemPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "asciichat",
			Subsystem: "host",
			Name:      "mem_percent",
			Help:      "Host-wide memory utilization percentage.",
		}),
	}

	promReg.MustRegister(m.ClientsConnected, m.FramesDropped, m.FramesCommitted, m.HostCPUPercent, m.HostMemPercent)
	return m
}

// Start launches the periodic sampling loop (registry gauges + host stats).
func (m *Metrics) Start(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sample()
			}
		}
	}()
}

// Stop halts the sampling loop.
func (m *Metrics) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *Metrics) sample() {
	m.ClientsConnected.Set(float64(m.registry.Count()))

	var committed, dropped uint64
	for _, c := range m.registry.Snapshot() {
		r, d := c.FrameStore.Stats()
		committed += r
		dropped += d
	}
	if committed > m.lastCommitted {
		m.FramesCommitted.Add(float64(committed - m.lastCommitted))
	}
	if dropped > m.lastDropped {
		m.FramesDropped.Add(float64(dropped - m.lastDropped))
	}
	m.lastCommitted, m.lastDropped = committed, dropped

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		m.HostCPUPercent.Set(pct[0])
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		m.HostMemPercent.Set(vm.UsedPercent)
	}
}
