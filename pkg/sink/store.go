package sink

import (
	"context"
	"math"
	"sort"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/varnish-agent/pkg/report"
)

type storeKey struct {
	host string
	key  string
}

// Store 保存每个 (host, key) 的最新值，供 /items 与 /metrics 读取
type Store struct {
	mu     sync.RWMutex
	latest map[storeKey]report.Data

	desc *prometheus.Desc
}

var _ Sink = (*Store)(nil)
var _ prometheus.Collector = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		latest: make(map[storeKey]report.Data),
		desc: prometheus.NewDesc(
			"varnish_item_value",
			"Latest numeric value reported for each varnish item",
			[]string{"host", "key"}, nil,
		),
	}
}

func (s *Store) Name() string { return "store" }

func (s *Store) Write(_ context.Context, batch []report.Data) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range batch {
		k := storeKey{host: d.Host, key: d.Key}
		// 乱序到达时不回退
		if old, ok := s.latest[k]; ok && old.Clock > d.Clock {
			continue
		}
		s.latest[k] = d
	}
	return nil
}

// Snapshot 按 host、key 排序的副本
func (s *Store) Snapshot() []report.Data {
	s.mu.RLock()
	out := make([]report.Data, 0, len(s.latest))
	for _, d := range s.latest {
		out = append(out, d)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Host != out[j].Host {
			return out[i].Host < out[j].Host
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func (s *Store) Describe(ch chan<- *prometheus.Desc) {
	ch <- s.desc
}

// Collect 只导出有限数值的 item；LLD 等文本值以及 "NaN"/"Inf" 这类文本跳过
func (s *Store) Collect(ch chan<- prometheus.Metric) {
	for _, d := range s.Snapshot() {
		v, err := strconv.ParseFloat(d.Value, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		ch <- prometheus.MustNewConstMetric(s.desc, prometheus.GaugeValue, v, d.Host, d.Key)
	}
}
