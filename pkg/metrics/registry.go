package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Registers 通过接口隔离 Prometheus 的默认实现，便于单测替换
type Registers interface {
	prometheus.Registerer
	Gatherer() prometheus.Gatherer
}

// promRegistry 包裹官方的 *prometheus.Registry
type promRegistry struct {
	registry *prometheus.Registry
}

// NewPromRegistry 创建 Prometheus 指标注册器
func NewPromRegistry(registry *prometheus.Registry) Registers {
	return &promRegistry{registry: registry}
}

// MustRegister 重复注册同一指标时忽略，其它错误直接 panic（启动阶段暴露）
func (p *promRegistry) MustRegister(collectors ...prometheus.Collector) {
	for _, c := range collectors {
		if err := p.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			panic(err)
		}
	}
}

func (p *promRegistry) Register(collector prometheus.Collector) error {
	return p.registry.Register(collector)
}

func (p *promRegistry) Unregister(collector prometheus.Collector) bool {
	return p.registry.Unregister(collector)
}

func (p *promRegistry) Gatherer() prometheus.Gatherer {
	return p.registry
}
