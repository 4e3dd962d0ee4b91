// Package metrics exposes auction activity to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bidroom"

// Prometheus collects auction metrics on its own registry.
type Prometheus struct {
	registry *prometheus.Registry

	bids        *prometheus.CounterVec
	itemsClosed *prometheus.CounterVec
	liveRooms   prometheus.Gauge
	clients     prometheus.Gauge
}

func NewPrometheus() *Prometheus {
	m := &Prometheus{
		registry: prometheus.NewRegistry(),
		bids: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bids_total",
			Help:      "Bids evaluated, by outcome.",
		}, []string{"outcome"}),
		itemsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_closed_total",
			Help:      "Players closed, by outcome.",
		}, []string{"outcome"}),
		liveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_rooms",
			Help:      "Rooms currently held in the registry.",
		}),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_clients",
			Help:      "Open websocket connections.",
		}),
	}
	m.registry.MustRegister(
		m.bids,
		m.itemsClosed,
		m.liveRooms,
		m.clients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Prometheus) BidEvaluated(outcome string) { m.bids.WithLabelValues(outcome).Inc() }
func (m *Prometheus) ItemClosed(outcome string)   { m.itemsClosed.WithLabelValues(outcome).Inc() }
func (m *Prometheus) SetLiveRooms(n int)          { m.liveRooms.Set(float64(n)) }
func (m *Prometheus) ClientConnected()            { m.clients.Inc() }
func (m *Prometheus) ClientDisconnected()         { m.clients.Dec() }

// Handler serves the registry in the Prometheus text format.
func (m *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Prometheus) Registry() *prometheus.Registry { return m.registry }
