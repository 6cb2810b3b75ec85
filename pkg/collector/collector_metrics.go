package collector

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/varnish-agent/pkg/metrics"
)

// VarnishCollectorMetrics Varnish 采集器自身的指标句柄
type VarnishCollectorMetrics struct {
	collectErrors   *prometheus.CounterVec   // 采集周期失败次数（collector）
	collectDuration *prometheus.HistogramVec // 采集周期耗时（collector）
	sourceErrors    *prometheus.CounterVec   // 数据源失败次数（source, kind）
	malformedLines  *prometheus.CounterVec   // 解析跳过的行数（source）
	itemsEnqueued   prometheus.Counter       // 入队成功
	itemsDropped    prometheus.Counter       // 队列满被丢弃
}

func newVarnishCollectorMetrics(f *metrics.MetricFactory) VarnishCollectorMetrics {
	return VarnishCollectorMetrics{
		collectErrors:   f.NewAgentCollectErrorsTotal(),
		collectDuration: f.NewAgentCollectDurationSeconds(),
		sourceErrors:    f.NewSourceErrorsTotal(),
		malformedLines:  f.NewMalformedLinesTotal(),
		itemsEnqueued:   f.NewItemsEnqueuedTotal(),
		itemsDropped:    f.NewItemsDroppedTotal(),
	}
}
