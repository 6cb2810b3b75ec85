package signal

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/varnish-agent/pkg/logger"
)

// DefaultShutdownTimeout 关闭流程的整体超时
const DefaultShutdownTimeout = 10 * time.Second

// WaitForShutdown 阻塞直到收到 SIGINT/SIGTERM 或 ctx 结束，然后在 timeout 内执行 shutdownFunc
func WaitForShutdown(ctx context.Context, timeout time.Duration, shutdownFunc func(ctx context.Context) error) error {
	if shutdownFunc == nil {
		return errors.New("shutdownFunc is nil")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	logger.Info("service running, waiting for SIGINT/SIGTERM...")

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("context done, shutting down", zap.Error(ctx.Err()))
	}

	// 超时控制关闭逻辑
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- shutdownFunc(shutdownCtx)
	}()

	var err error
	select {
	case err = <-errCh:
	case <-shutdownCtx.Done():
		err = shutdownCtx.Err()
	}
	if err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	} else {
		logger.Info("graceful shutdown completed successfully")
	}
	return err
}
