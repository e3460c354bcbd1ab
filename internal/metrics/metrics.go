// Package metrics exposes Prometheus metrics for the tree and its controller.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors.
type Metrics struct {
	ActionsTotal  *prometheus.CounterVec
	DrainsTotal   prometheus.Counter
	DrainSize     prometheus.Histogram
	TreeNodes     *prometheus.GaugeVec
	ChangesTotal  *prometheus.CounterVec
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ActionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marktree_actions_total",
				Help: "Deferred tree actions by name and outcome",
			},
			[]string{"action", "outcome"},
		),
		DrainsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "marktree_queue_drains_total",
			Help: "Non-empty drains of the deferred action queue",
		}),
		DrainSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "marktree_queue_drain_size",
			Help:    "Number of actions per queue drain",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		}),
		TreeNodes: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marktree_tree_nodes",
				Help: "Nodes currently in the tree by kind",
			},
			[]string{"kind"},
		),
		ChangesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marktree_tree_changes_total",
				Help: "Structural tree changes by type",
			},
			[]string{"type"},
		),
		WSConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "marktree_websocket_connections",
			Help: "Open websocket connections",
		}),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marktree_websocket_messages_total",
				Help: "Websocket messages broadcast by type",
			},
			[]string{"type"},
		),
	}
}

// ActionCompleted records one deferred action.
func (m *Metrics) ActionCompleted(action, outcome string) {
	m.ActionsTotal.WithLabelValues(action, outcome).Inc()
}

// QueueDrained records a drain of n actions.
func (m *Metrics) QueueDrained(n int) {
	m.DrainsTotal.Inc()
	m.DrainSize.Observe(float64(n))
}

// TreeChanged records a structural change.
func (m *Metrics) TreeChanged(changeType string) {
	m.ChangesTotal.WithLabelValues(changeType).Inc()
}

// SetTreeSize publishes the current node counts.
func (m *Metrics) SetTreeSize(folders, leaves int) {
	m.TreeNodes.WithLabelValues("folder").Set(float64(folders))
	m.TreeNodes.WithLabelValues("leaf").Set(float64(leaves))
}

// WSConnected tracks websocket connection churn; delta is +1 or -1.
func (m *Metrics) WSConnected(delta int) {
	m.WSConnections.Add(float64(delta))
}

// WSMessage records a broadcast message.
func (m *Metrics) WSMessage(msgType string) {
	m.WSMessages.WithLabelValues(msgType).Inc()
}
