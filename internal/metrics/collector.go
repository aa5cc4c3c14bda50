package rconmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// -------------------------------------------------------------------------
// Prometheus Metric Constants
// -------------------------------------------------------------------------

const (
	namespace = "gorcon"
	subsystem = "server"
)

// -------------------------------------------------------------------------
// Collector — Prometheus RCON server metrics
// -------------------------------------------------------------------------

// Collector holds all RCON server Prometheus metrics and implements the
// rcon.Metrics interface consumed by Connection and Manager.
type Collector struct {
	// ConnectionsActive tracks the number of currently open sockets.
	ConnectionsActive prometheus.Gauge

	// ConnectionsTotal counts every socket ever accepted.
	ConnectionsTotal prometheus.Counter

	// AuthFailuresTotal counts failed Auth packets.
	AuthFailuresTotal prometheus.Counter

	// FramesRejectedTotal counts frames the codec refused to decode.
	FramesRejectedTotal prometheus.Counter

	// CommandsExecutedTotal counts ExecCommand packets the executor ran
	// without returning an error.
	CommandsExecutedTotal prometheus.Counter
}

// NewCollector creates a Collector with all metrics registered against the
// provided prometheus.Registerer. If reg is nil, prometheus.DefaultRegisterer
// is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.ConnectionsActive,
		c.ConnectionsTotal,
		c.AuthFailuresTotal,
		c.FramesRejectedTotal,
		c.CommandsExecutedTotal,
	)

	return c
}

// newMetrics creates all Prometheus metrics without registering them.
func newMetrics() *Collector {
	return &Collector{
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "connections_active",
			Help:      "Number of currently open RCON connections.",
		}),

		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "connections_total",
			Help:      "Total RCON connections accepted.",
		}),

		AuthFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "auth_failures_total",
			Help:      "Total failed authentication attempts.",
		}),

		FramesRejectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "frames_rejected_total",
			Help:      "Total frames rejected by the wire codec.",
		}),

		CommandsExecutedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "commands_executed_total",
			Help:      "Total ExecCommand packets the executor ran without error.",
		}),
	}
}

// -------------------------------------------------------------------------
// rcon.Metrics implementation
// -------------------------------------------------------------------------

// ConnectionOpened increments the active gauge and the lifetime counter.
func (c *Collector) ConnectionOpened() {
	c.ConnectionsActive.Inc()
	c.ConnectionsTotal.Inc()
}

// ConnectionClosed decrements the active gauge.
func (c *Collector) ConnectionClosed() {
	c.ConnectionsActive.Dec()
}

// AuthFailure increments the authentication failure counter.
func (c *Collector) AuthFailure() {
	c.AuthFailuresTotal.Inc()
}

// FrameRejected increments the frame rejection counter.
func (c *Collector) FrameRejected() {
	c.FramesRejectedTotal.Inc()
}

// CommandExecuted increments the commands-executed counter.
func (c *Collector) CommandExecuted() {
	c.CommandsExecutedTotal.Inc()
}
