package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ActionCompleted("rename", "applied")
	m.ActionCompleted("rename", "applied")
	m.ActionCompleted("delete", "skipped")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ActionsTotal.WithLabelValues("rename", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActionsTotal.WithLabelValues("delete", "skipped")))

	m.QueueDrained(3)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DrainsTotal))

	m.SetTreeSize(4, 10)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.TreeNodes.WithLabelValues("folder")))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.TreeNodes.WithLabelValues("leaf")))

	m.WSConnected(1)
	m.WSConnected(1)
	m.WSConnected(-1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WSConnections))

	m.TreeChanged("object_moved")
	m.WSMessage("treeChanged")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChangesTotal.WithLabelValues("object_moved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WSMessages.WithLabelValues("treeChanged")))
}

func TestNew_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
