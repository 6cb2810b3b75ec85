package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varnish-agent/pkg/healthcheck"
	"github.com/varnish-agent/pkg/varnish"
)

var fixedNow = time.Unix(1700000000, 500000000)

func newTestBuilder() *Builder {
	b := NewBuilder("varnish", "cache01.example.com", "0.2.0")
	b.Now = func() time.Time { return fixedNow }
	return b
}

func keysOf(items []Item) []string {
	keys := make([]string, 0, len(items))
	for _, it := range items {
		keys = append(keys, it.Key)
	}
	return keys
}

func TestBuildItemsFull(t *testing.T) {
	b := newTestBuilder()
	counters := []varnish.StatRecord{
		{Key: "MAIN.n_object", Value: "18211"},
		{Key: "SMF.s0.g_bytes", Value: "104857600"},
	}
	health := &healthcheck.Result{StatusCode: 200, Latency: 25 * time.Millisecond}

	got := b.BuildItems(counters, BanCount{Value: "3", OK: true}, "6.0.11", health)

	host, ts := "cache01.example.com", 1700000000.5
	want := []Item{
		{Key: "varnish.ping", Value: 1, Host: host, Timestamp: ts},
		{Key: "varnish.version", Value: "0.2.0", Host: host, Timestamp: ts},
		{Key: "varnish.varnishstat[MAIN,n_object]", Value: "18211", Host: host, Timestamp: ts},
		{Key: "varnish.varnishstat[SMF,s0,g_bytes]", Value: "104857600", Host: host, Timestamp: ts},
		{Key: "varnish.varnishadm[ban.list]", Value: "3", Host: host, Timestamp: ts},
		{Key: "varnish.varnishd[version]", Value: "6.0.11", Host: host, Timestamp: ts},
		{Key: "varnish.response_check,time", Value: 0.025, Host: host, Timestamp: ts},
		{Key: "varnish.response_check,status_code", Value: 200, Host: host, Timestamp: ts},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("BuildItems mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildItemsLivenessAlwaysPresent(t *testing.T) {
	b := newTestBuilder()

	got := b.BuildItems(nil, BanCount{}, "", nil)

	assert.Equal(t, []string{"varnish.ping", "varnish.version"}, keysOf(got))
	assert.Equal(t, 1, got[0].Value)
	assert.Equal(t, "0.2.0", got[1].Value)
}

func TestBuildItemsWithoutHealth(t *testing.T) {
	b := newTestBuilder()
	counters := []varnish.StatRecord{{Key: "MAIN.uptime", Value: "10"}}

	got := b.BuildItems(counters, BanCount{Value: "0", OK: true}, "", nil)

	for _, key := range keysOf(got) {
		assert.False(t, strings.Contains(key, "response_check,"), "unexpected key %s", key)
	}
	assert.Contains(t, keysOf(got), "varnish.ping")
	assert.Contains(t, keysOf(got), "varnish.version")
	assert.Contains(t, keysOf(got), "varnish.varnishstat[MAIN,uptime]")
}

func TestBuildItemsDuplicateKeysFirstWins(t *testing.T) {
	b := newTestBuilder()
	counters := []varnish.StatRecord{
		{Key: "MAIN.n_object", Value: "1"},
		{Key: "MAIN.n_object", Value: "2"},
	}

	got := b.BuildItems(counters, BanCount{}, "", nil)

	require.Len(t, got, 3)
	assert.Equal(t, "varnish.varnishstat[MAIN,n_object]", got[2].Key)
	assert.Equal(t, "1", got[2].Value)
}

func TestBuildItemsNamespace(t *testing.T) {
	b := newTestBuilder()
	b.Namespace = "edge"

	got := b.BuildItems([]varnish.StatRecord{{Key: "MAIN.n_object", Value: "1"}}, BanCount{}, "", nil)

	assert.Equal(t, []string{"edge.ping", "edge.version", "edge.varnishstat[MAIN,n_object]"}, keysOf(got))
}

func TestFlattenKey(t *testing.T) {
	assert.Equal(t, "MAIN,n_object", FlattenKey("MAIN.n_object"))
	assert.Equal(t, "VBE,boot,default,happy", FlattenKey("VBE.boot.default.happy"))
	assert.Equal(t, "plain", FlattenKey("plain"))
}

func TestBuildDiscovery(t *testing.T) {
	b := newTestBuilder()

	item, err := b.BuildDiscovery([]string{"s0", "s1"})
	require.NoError(t, err)

	assert.Equal(t, "varnish.storage.LLD", item.Key)
	assert.Equal(t, "cache01.example.com", item.Host)
	assert.Equal(t, 1700000000.5, item.Timestamp)

	text, ok := item.Value.(string)
	require.True(t, ok, "discovery value must be JSON text")
	assert.JSONEq(t, `{"data":[
		{"{#STORAGE_NAME}":"s0","{#STORAGE_TYPE}":"file"},
		{"{#STORAGE_NAME}":"s1","{#STORAGE_TYPE}":"file"}
	]}`, text)
}

func TestBuildDiscoveryEmpty(t *testing.T) {
	b := newTestBuilder()

	for _, storages := range [][]string{nil, {}} {
		item, err := b.BuildDiscovery(storages)
		require.NoError(t, err)

		var decoded map[string][]map[string]string
		require.NoError(t, json.Unmarshal([]byte(item.Value.(string)), &decoded))
		data, ok := decoded["data"]
		assert.True(t, ok)
		assert.NotNil(t, data)
		assert.Empty(t, data)
		assert.Equal(t, `{"data":[]}`, item.Value)
	}
}

func TestBuilderAtSharesTimestamp(t *testing.T) {
	b := newTestBuilder()
	at := time.Unix(1700000100, 0)
	cycle := b.At(at)

	items := cycle.BuildItems(nil, BanCount{Value: "1", OK: true}, "", nil)
	discovery, err := cycle.BuildDiscovery(nil)
	require.NoError(t, err)

	for _, it := range append(items, discovery) {
		assert.Equal(t, 1700000100.0, it.Timestamp, it.Key)
	}
	// 原 builder 不受影响
	assert.Equal(t, 1700000000.5, b.BuildItems(nil, BanCount{}, "", nil)[0].Timestamp)
}
