package metrics

import "github.com/prometheus/client_golang/prometheus"

// NewSourceErrorsTotal 各数据源（stat/ban/storage/version/response_check）失败次数
func (m *MetricFactory) NewSourceErrorsTotal() *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "varnish_source_errors_total",
		Help: "Total failures per varnish data source",
	}, []string{"source", "kind"})
	m.reg.MustRegister(c)
	return c
}

// NewMalformedLinesTotal 命令输出中被跳过的行数
func (m *MetricFactory) NewMalformedLinesTotal() *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "varnish_malformed_lines_total",
		Help: "Total command output lines skipped because they did not match the expected shape",
	}, []string{"source"})
	m.reg.MustRegister(c)
	return c
}

func (m *MetricFactory) NewItemsEnqueuedTotal() prometheus.Counter {
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "varnish_items_enqueued_total",
		Help: "Total items accepted by the delivery queue",
	})
	m.reg.MustRegister(c)
	return c
}

func (m *MetricFactory) NewItemsDroppedTotal() prometheus.Counter {
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "varnish_items_dropped_total",
		Help: "Total items dropped because the delivery queue was full",
	})
	m.reg.MustRegister(c)
	return c
}

// NewQueueLength 当前队列积压（GaugeFunc，抓取时读取）
func (m *MetricFactory) NewQueueLength(fn func() float64) prometheus.GaugeFunc {
	g := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "varnish_queue_length",
		Help: "Items waiting in the delivery queue",
	}, fn)
	m.reg.MustRegister(g)
	return g
}

// NewSinkErrorsTotal 输出端写入失败次数
func (m *MetricFactory) NewSinkErrorsTotal() *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "varnish_sink_errors_total",
		Help: "Total batch write failures per sink",
	}, []string{"sink"})
	m.reg.MustRegister(c)
	return c
}

// NewSinkItemsTotal 输出端成功写入的 item 数
func (m *MetricFactory) NewSinkItemsTotal() *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "varnish_sink_items_total",
		Help: "Total items written per sink",
	}, []string{"sink"})
	m.reg.MustRegister(c)
	return c
}
