package metrics

import "github.com/prometheus/client_golang/prometheus"

// 调度器层面的指标，label collector 为 Collector.Name()

// NewAgentCollectErrorsTotal Collect 返回错误的次数（任一数据源失败即计一次）
func (m *MetricFactory) NewAgentCollectErrorsTotal() *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_collect_errors_total",
		Help: "Number of collection cycles that reported at least one failed source.",
	}, []string{"collector"})
	m.reg.MustRegister(c)
	return c
}

// NewAgentCollectDurationSeconds 单次 Collect 耗时。
// 一个周期串行执行三条外部命令和一次 HTTP 检查，分桶 10ms ~ 20s
func (m *MetricFactory) NewAgentCollectDurationSeconds() *prometheus.HistogramVec {
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agent_collect_duration_seconds",
		Help:    "Wall time of one collection cycle.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"collector"})
	m.reg.MustRegister(h)
	return h
}
