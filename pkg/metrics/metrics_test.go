package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if label == "" {
				return metric.GetCounter().GetValue()
			}
			for _, pair := range metric.GetLabel() {
				if pair.GetName() == label && pair.GetValue() == value {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ParseTotal.WithLabelValues(ParseOK).Inc()
	m.ParseTotal.WithLabelValues(ParseMalformed).Add(2)
	m.CacheHitsTotal.Inc()

	assert.Equal(t, 1.0, counterValue(t, reg, "search_query_parse_total", "outcome", ParseOK))
	assert.Equal(t, 2.0, counterValue(t, reg, "search_query_parse_total", "outcome", ParseMalformed))
	assert.Equal(t, 1.0, counterValue(t, reg, "search_cache_hits_total", "", ""))
}

func TestNewTwiceOnSameRegistryPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
