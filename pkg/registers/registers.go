package registers

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/varnish-agent/pkg/collector"
	"github.com/varnish-agent/pkg/config"
	"github.com/varnish-agent/pkg/logger"
	"github.com/varnish-agent/pkg/metrics"
	"github.com/varnish-agent/pkg/queue"
	"github.com/varnish-agent/pkg/sink"
)

var _ Collector = (*collector.VarnishCollector)(nil)

type Module struct {
	Enabled bool
	Name    string
	NewFunc func() Collector
}

// Pipeline 采集侧与投递侧的运行时组件
type Pipeline struct {
	Registry *prometheus.Registry
	Agent    Agent
	Queue    *queue.Queue
	Store    *sink.Store

	stopDispatch   context.CancelFunc
	dispatcherDone chan struct{}
}

// InitPromRegistry 返回值
// Pipeline.Registry	Prometheus 指标注册器，供 /metrics 暴露
// Pipeline.Agent	    采集器管理器，后台周期性调用已注册的采集器
// Pipeline.Store	    最新 item 缓存，供 /items 与 varnish_item_value 使用
// error	            初始化或注册失败时返回
func InitPromRegistry(ctx context.Context, cfg *config.Config, version string) (*Pipeline, error) {
	// 1. 初始化Prometheus指标注册器（不注册Go指标）
	promReg := prometheus.NewRegistry()
	if cfg.Server.EnableProcessMetrics {
		promReg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	metricFactory := metrics.NewMetricFactory(metrics.NewPromRegistry(promReg))

	// 2. 投递队列与输出端
	q := queue.New(cfg.Queue.Size)
	metricFactory.NewQueueLength(func() float64 { return float64(q.Len()) })

	store := sink.NewStore()
	metricFactory.Registerer().MustRegister(store)
	sinks := []sink.Sink{store}
	if cfg.Sink.Zabbix.Enable {
		sinks = append(sinks, sink.NewZabbixSender(&cfg.Sink.Zabbix))
		logger.Info("zabbix sink enabled", zap.String("addr", cfg.Sink.Zabbix.Addr))
	}
	dispatcher := sink.NewDispatcher(q, &cfg.Sink, metricFactory, sinks...)

	// 3. 初始化采集器Agent并注册采集器
	agent := NewRegistry(cfg.Monitor.Interval)
	registered, err := RegisterCollectors(agent, cfg, version, q, metricFactory)
	if err != nil {
		logger.Error("failed to register collectors", zap.Error(err))
		return nil, err
	}

	// 4. 先启动消费端，再启动采集循环
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		dispatcher.Run(dispatchCtx)
	}()

	if err := agent.Start(ctx); err != nil {
		stopDispatch()
		<-done
		return nil, fmt.Errorf("start agent: %w", err)
	}

	logger.Info("collector monitor started",
		zap.Int("collectors", len(registered)),
		zap.Duration("interval", cfg.Monitor.Interval),
		zap.Int("queue_size", q.Cap()))

	return &Pipeline{
		Registry:       promReg,
		Agent:          agent,
		Queue:          q,
		Store:          store,
		stopDispatch:   stopDispatch,
		dispatcherDone: done,
	}, nil
}

// Shutdown 关闭顺序：采集循环 -> 队列 -> 等待 dispatcher 写完剩余数据
func (p *Pipeline) Shutdown(ctx context.Context) error {
	agentErr := p.Agent.Shutdown(ctx)
	p.Queue.Close()

	select {
	case <-p.dispatcherDone:
	case <-ctx.Done():
		p.stopDispatch()
		<-p.dispatcherDone
	}
	p.stopDispatch()

	if dropped := p.Queue.Dropped(); dropped > 0 {
		logger.Warn("items dropped during run", zap.Uint64("dropped", dropped))
	}
	return agentErr
}

// RegisterCollectors 采集器注册统一入口
// 新增采集器只需在 modules 列表添加一条，不必写重复的 if/else。
func RegisterCollectors(agent Agent, cfg *config.Config, version string, q *queue.Queue, metricFactory *metrics.MetricFactory) ([]Collector, error) {
	modules := []Module{
		{
			Enabled: true,
			Name:    "varnish",
			NewFunc: func() Collector {
				return collector.NewVarnishCollector(&cfg.Monitor, version, q, metricFactory, nil)
			},
		},
	}

	var registered []Collector
	for _, m := range modules {
		if m.Enabled {
			c := m.NewFunc()
			agent.Register(c)
			registered = append(registered, c)
			logger.Debug("registered collector", zap.String("name", m.Name))
		} else {
			logger.Debug("collector disabled", zap.String("name", m.Name))
		}
	}
	if len(registered) == 0 {
		return nil, fmt.Errorf("no collectors enabled; check your monitor config")
	}
	var names []string
	for _, c := range registered {
		names = append(names, c.Name())
	}
	logger.Debug("all enabled collectors registered", zap.Strings("enabled_collectors", names))

	return registered, nil
}
