package sink

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varnish-agent/pkg/report"
)

func TestStoreKeepsLatest(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.Write(context.Background(), []report.Data{
		{Host: "h2", Clock: 10, Key: "varnish.ping", Value: "1"},
		{Host: "h1", Clock: 10, Key: "varnish.version", Value: "0.1.0"},
		{Host: "h1", Clock: 10, Key: "varnish.ping", Value: "1"},
	}))
	require.NoError(t, s.Write(context.Background(), []report.Data{
		{Host: "h1", Clock: 20, Key: "varnish.version", Value: "0.2.0"},
		{Host: "h2", Clock: 5, Key: "varnish.ping", Value: "0"},
	}))

	assert.Equal(t, []report.Data{
		{Host: "h1", Clock: 10, Key: "varnish.ping", Value: "1"},
		{Host: "h1", Clock: 20, Key: "varnish.version", Value: "0.2.0"},
		{Host: "h2", Clock: 10, Key: "varnish.ping", Value: "1"},
	}, s.Snapshot())
}

func TestStoreCollectsNumericItems(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Write(context.Background(), []report.Data{
		{Host: "h", Clock: 1, Key: "varnish.ping", Value: "1"},
		{Host: "h", Clock: 1, Key: "varnish.response_check,time", Value: "0.025"},
		{Host: "h", Clock: 1, Key: "varnish.storage.LLD", Value: `{"data":[]}`},
		{Host: "h", Clock: 1, Key: "varnish.version", Value: "0.2.0"},
		{Host: "h", Clock: 1, Key: "varnish.varnishstat[a]", Value: "NaN"},
		{Host: "h", Clock: 1, Key: "varnish.varnishstat[b]", Value: "Inf"},
		{Host: "h", Clock: 1, Key: "varnish.varnishstat[c]", Value: "-infinity"},
	}))

	expected := `
# HELP varnish_item_value Latest numeric value reported for each varnish item
# TYPE varnish_item_value gauge
varnish_item_value{host="h",key="varnish.ping"} 1
varnish_item_value{host="h",key="varnish.response_check,time"} 0.025
`
	assert.NoError(t, testutil.CollectAndCompare(s, strings.NewReader(expected), "varnish_item_value"))
}
