package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricFactoryRegistersMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := NewMetricFactory(NewPromRegistry(reg))

	errs := f.NewSourceErrorsTotal()
	errs.WithLabelValues("stat", "unavailable").Inc()
	errs.WithLabelValues("stat", "unavailable").Inc()
	assert.Equal(t, 2.0, testutil.ToFloat64(errs.WithLabelValues("stat", "unavailable")))

	dropped := f.NewItemsDroppedTotal()
	dropped.Inc()

	f.NewQueueLength(func() float64 { return 7 })

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["varnish_source_errors_total"])
	assert.True(t, names["varnish_items_dropped_total"])
	assert.True(t, names["varnish_queue_length"])
}

func TestMustRegisterIgnoresDuplicates(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewPromRegistry(reg)
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_total", Help: "dup"})

	r.MustRegister(c)
	assert.NotPanics(t, func() { r.MustRegister(c) })
	assert.NotNil(t, r.Gatherer())
}
