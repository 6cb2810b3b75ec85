package registers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varnish-agent/pkg/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.Monitor.Hostname = "cache01"
	cfg.Monitor.Interval = time.Hour
	cfg.Monitor.Path = ""
	cfg.Monitor.Workdir = t.TempDir()
	cfg.Monitor.Commands = config.CommandsConfig{
		Stat:        `printf 'MAIN.uptime 42 1.00 Child uptime\n'`,
		BanCount:    "echo 0",
		StorageList: `printf 'storage.s0 = file\n'`,
	}
	cfg.Sink.FlushInterval = 10 * time.Millisecond
	return cfg
}

func TestInitPromRegistryRunsPipeline(t *testing.T) {
	cfg := testConfig(t)

	p, err := InitPromRegistry(context.Background(), cfg, "0.2.0")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(p.Store.Snapshot()) == 5
	}, 3*time.Second, 10*time.Millisecond)

	values := map[string]string{}
	for _, d := range p.Store.Snapshot() {
		assert.Equal(t, "cache01", d.Host)
		values[d.Key] = d.Value
	}
	assert.Equal(t, "1", values["varnish.ping"])
	assert.Equal(t, "0.2.0", values["varnish.version"])
	assert.Equal(t, "42", values["varnish.varnishstat[MAIN,uptime]"])
	assert.Equal(t, "0", values["varnish.varnishadm[ban.list]"])
	assert.JSONEq(t, `{"data":[{"{#STORAGE_NAME}":"s0","{#STORAGE_TYPE}":"file"}]}`, values["varnish.storage.LLD"])

	families, err := p.Registry.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["varnish_item_value"])
	assert.True(t, names["varnish_items_enqueued_total"])
	assert.True(t, names["varnish_queue_length"])
	assert.True(t, names["agent_collect_duration_seconds"])

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))
}
