package registers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/varnish-agent/pkg/logger"
)

const registryName = "collector-registry"

// AgentImpl 实现 Agent 接口：单 goroutine + ticker，周期之间严格串行
type AgentImpl struct {
	collectors []Collector
	interval   time.Duration
	cancel     context.CancelFunc
	done       chan struct{}
	mu         sync.Mutex
}

// NewRegistry 创建采集器注册器
func NewRegistry(interval time.Duration) *AgentImpl {
	return &AgentImpl{
		collectors: make([]Collector, 0),
		interval:   interval,
		cancel:     func() {},
	}
}

// Register 注册采集器
func (r *AgentImpl) Register(c Collector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collectors = append(r.collectors, c)
}

// InitAll 按注册顺序初始化
func (r *AgentImpl) InitAll() error {
	for _, coll := range r.collectors {
		if err := coll.Init(); err != nil {
			return fmt.Errorf("collector %s init failed: %w", coll.Name(), err)
		}
		logger.Debug("collector initialized successfully", zap.String("name", coll.Name()))
	}
	return nil
}

// Start 初始化所有采集器后立即执行首次采集，之后按 interval 触发
// ticker 在周期耗时超过 interval 时会丢弃多余的 tick，周期不会重叠
func (r *AgentImpl) Start(ctx context.Context) error {
	if err := r.InitAll(); err != nil {
		return err
	}

	r.mu.Lock()
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	done := r.done
	r.mu.Unlock()

	logger.Debug("collector metrics started", zap.String("name", registryName),
		zap.Duration("interval", r.interval),
		zap.Int("registered-collectors-count", len(r.collectors)))

	go func() {
		defer close(done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		// 首次采集（失败仅警告）
		if err := r.CollectAll(ctx); err != nil {
			logger.Warn("first collection failed", zap.String("name", registryName), zap.Error(err))
		}

		for {
			select {
			case <-ticker.C:
				_ = r.CollectAll(ctx) // 单采集器失败不影响整体
			case <-ctx.Done():
				logger.Info("collector metrics stopped", zap.String("name", registryName), zap.Error(ctx.Err()))
				return
			}
		}
	}()
	return nil
}

// Shutdown 停止采集循环，等待当前周期结束后关闭所有采集器
func (r *AgentImpl) Shutdown(ctx context.Context) error {
	logger.Info("starting to shutdown collector metrics", zap.String("name", registryName))

	r.mu.Lock()
	r.cancel()
	done := r.done
	r.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return fmt.Errorf("wait for collect loop: %w", ctx.Err())
		}
	}
	return r.CloseAll()
}

// CollectAll 依次执行所有采集器，单个失败不影响后续
func (r *AgentImpl) CollectAll(ctx context.Context) error {
	var failed int
	for _, collector := range r.collectors {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := collector.Collect(ctx); err != nil {
			logger.Warn("collection failed", zap.String("name", collector.Name()), zap.Error(err))
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d collectors failed to collect data", failed, len(r.collectors))
	}
	return nil
}

// CloseAll 批量关闭采集器，返回最后一个错误
func (r *AgentImpl) CloseAll() error {
	var lastErr error
	for _, collector := range r.collectors {
		logger.Debug("closing collector", zap.String("name", collector.Name()))
		if err := collector.Close(); err != nil {
			logger.Error("failed to close collector", zap.String("name", collector.Name()), zap.Error(err))
			lastErr = err // 记录最后一个错误，不阻断整体关闭
		} else {
			logger.Debug("collector closed successfully", zap.String("name", collector.Name()))
		}
	}
	return lastErr
}
