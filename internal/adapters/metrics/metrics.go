// Package metrics exposes coordination events as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/dkeye/Discuss/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "discuss"

// NewRegistry creates a Prometheus registry with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler returns an http.Handler that serves Prometheus metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Signaling implements orch.Metrics.
type Signaling struct {
	ActiveConnections prometheus.Gauge
	Rooms             prometheus.Gauge
	RelayedTotal      *prometheus.CounterVec
	DroppedTotal      prometheus.Counter
	TopicsTotal       *prometheus.CounterVec
}

func NewSignaling(reg prometheus.Registerer) *Signaling {
	m := &Signaling{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "signal",
			Name:      "active_connections",
			Help:      "Number of live signaling connections.",
		}),
		Rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "signal",
			Name:      "rooms",
			Help:      "Number of rooms with at least one member.",
		}),
		RelayedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signal",
			Name:      "relayed_total",
			Help:      "Signaling messages relayed, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		DroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signal",
			Name:      "frames_dropped_total",
			Help:      "Frames dropped because a connection's send buffer was full.",
		}),
		TopicsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "topic",
			Name:      "selected_total",
			Help:      "Topics selected, by trigger.",
		}, []string{"trigger"}),
	}

	reg.MustRegister(m.ActiveConnections, m.Rooms, m.RelayedTotal, m.DroppedTotal, m.TopicsTotal)
	return m
}

func (m *Signaling) ConnectionOpened()   { m.ActiveConnections.Inc() }
func (m *Signaling) ConnectionClosed()   { m.ActiveConnections.Dec() }
func (m *Signaling) RoomsChanged(n int)  { m.Rooms.Set(float64(n)) }
func (m *Signaling) FramesDropped(n int) { m.DroppedTotal.Add(float64(n)) }

func (m *Signaling) Relayed(kind domain.SignalKind, delivered bool) {
	outcome := "dropped"
	if delivered {
		outcome = "delivered"
	}
	m.RelayedTotal.WithLabelValues(string(kind), outcome).Inc()
}

func (m *Signaling) TopicSelected(trigger string) {
	m.TopicsTotal.WithLabelValues(trigger).Inc()
}
