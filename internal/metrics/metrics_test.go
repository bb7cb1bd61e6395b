package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestObserveSolve_AccumulatesCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRegistry(reg)

	m.ObserveSolve("flow", time.Now(), 3, 1)
	m.ObserveSolve("flow", time.Now(), 2, 0)

	assert.Equal(t, 5.0, counterValue(t, m.AssignedUsers))
	assert.Equal(t, 1.0, counterValue(t, m.UnassignedUsers))
}

func TestPulseGauge_TracksLatestValue(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRegistry(reg)

	m.PulseValue.WithLabelValues("o0").Set(72.5)
	m.PulseValue.WithLabelValues("o0").Set(61.0)

	assert.Equal(t, 61.0, gaugeValue(t, m.PulseValue.WithLabelValues("o0")))
}

func TestFairnessGapGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRegistry(reg)

	m.FairnessGap.Set(0.25)
	assert.Equal(t, 0.25, gaugeValue(t, m.FairnessGap))
}
