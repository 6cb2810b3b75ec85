package metrics

// MetricFactory 指标工厂，用于统一创建并注册指标（counter/gauge/histogram）。
type MetricFactory struct {
	reg Registers
}

// NewMetricFactory 创建指标工厂
func NewMetricFactory(reg Registers) *MetricFactory {
	return &MetricFactory{reg: reg}
}

// Registerer 供自定义 Collector（如 item store）直接注册
func (m *MetricFactory) Registerer() Registers {
	return m.reg
}
