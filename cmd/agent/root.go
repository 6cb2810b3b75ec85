package agent

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/varnish-agent/internal/server"
	"github.com/varnish-agent/pkg/config"
	"github.com/varnish-agent/pkg/logger"
	"github.com/varnish-agent/pkg/registers"
	"github.com/varnish-agent/pkg/signal"
	"github.com/varnish-agent/pkg/util"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "varnish-agent",
	Short:         "Varnish cache monitoring agent (varnishstat/varnishadm/HTTP check) with Prometheus and Zabbix output",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfigWithCli(cmd)
		if err != nil {
			return fmt.Errorf("%w\n请检查配置文件路径或使用 -c 参数指定", err)
		}
		if err := runServer(cmd.Context(), cfg); err != nil {
			return fmt.Errorf("服务启动失败: %w", err)
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "configs/config.yaml", "配置文件路径")
	// 注册分组 flag
	initServerFlags(rootCmd)
	initMonitorFlags(rootCmd)
	initSinkFlags(rootCmd)
	initLogFlags(rootCmd)

	rootCmd.AddCommand(onceCmd, versionCmd)
}

func runServer(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	util.PrintBanner(os.Stdout, "varnish-agent", Version, util.ParseColor(cfg.Log.BannerColor))

	// 初始化日志
	if _, err := logger.InitLogger(&cfg.Log); err != nil {
		return fmt.Errorf("日志初始化失败: %w", err)
	}
	defer logger.Sync()

	logger.SetDefaultCollector("varnish-agent")
	logger.Info("log initialization successful",
		zap.String("path", cfg.Log.Path),
		zap.String("level", cfg.Log.Level),
		zap.String("format", cfg.Log.Format))
	logger.Debug("configuration loaded",
		zap.String("config", cfgFile),
		zap.String("hostname", cfg.Monitor.Hostname),
		zap.Duration("interval", cfg.Monitor.Interval))

	pipeline, err := registers.InitPromRegistry(ctx, cfg, Version)
	if err != nil {
		return err
	}

	httpServer := server.NewHTTPServer(&cfg.Server, Version, pipeline.Registry, pipeline.Store)
	if err := httpServer.Start(); err != nil {
		_ = pipeline.Shutdown(context.Background())
		return fmt.Errorf("start HTTP server failed: %w", err)
	}

	// 关闭顺序：HTTP服务 -> 采集循环 -> 队列与输出端
	return signal.WaitForShutdown(ctx, signal.DefaultShutdownTimeout, func(ctx context.Context) error {
		httpErr := httpServer.Shutdown(ctx)
		pipelineErr := pipeline.Shutdown(ctx)
		if httpErr != nil || pipelineErr != nil {
			return fmt.Errorf("shutdown errors: http=%v, pipeline=%v", httpErr, pipelineErr)
		}
		logger.Info("all services shutdown successfully")
		return nil
	})
}
