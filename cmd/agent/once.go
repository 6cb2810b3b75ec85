package agent

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/varnish-agent/pkg/collector"
	"github.com/varnish-agent/pkg/config"
	"github.com/varnish-agent/pkg/metrics"
	"github.com/varnish-agent/pkg/queue"
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single poll cycle and print each item as a JSON line",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfigWithCli(cmd)
		if err != nil {
			return err
		}
		return runOnce(cmd, cfg, cmd.OutOrStdout())
	},
}

// runOnce 不启动调度、HTTP 与 sink，只跑一个周期
func runOnce(cmd *cobra.Command, cfg *config.Config, out io.Writer) error {
	factory := metrics.NewMetricFactory(metrics.NewPromRegistry(prometheus.NewRegistry()))
	c := collector.NewVarnishCollector(&cfg.Monitor, Version, queue.New(1), factory, nil)
	if err := c.Init(); err != nil {
		return err
	}

	snap := c.Poll(cmd.Context())
	enc := json.NewEncoder(out)
	for _, item := range c.Report(snap) {
		if err := enc.Encode(item.Data()); err != nil {
			return fmt.Errorf("write item: %w", err)
		}
	}
	if len(snap.Failed) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "failed sources: %v\n", snap.Failed)
	}
	return nil
}
