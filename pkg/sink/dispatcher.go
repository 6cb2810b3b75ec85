package sink

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/varnish-agent/pkg/config"
	"github.com/varnish-agent/pkg/logger"
	"github.com/varnish-agent/pkg/metrics"
	"github.com/varnish-agent/pkg/queue"
	"github.com/varnish-agent/pkg/report"
)

// 关闭时最后一次 flush 的超时
const finalFlushTimeout = 5 * time.Second

// Dispatcher 从队列取 item，按 batch_size / flush_interval 攒批后写入所有 sink
type Dispatcher struct {
	queue         *queue.Queue
	sinks         []Sink
	batchSize     int
	flushInterval time.Duration

	sinkErrors *prometheus.CounterVec
	sinkItems  *prometheus.CounterVec
}

func NewDispatcher(q *queue.Queue, cfg *config.SinkConfig, factory *metrics.MetricFactory, sinks ...Sink) *Dispatcher {
	return &Dispatcher{
		queue:         q,
		sinks:         sinks,
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		sinkErrors:    factory.NewSinkErrorsTotal(),
		sinkItems:     factory.NewSinkItemsTotal(),
	}
}

// Run 阻塞直到 ctx 取消或队列关闭；退出前把剩余数据写完
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.flushInterval)
	defer ticker.Stop()

	batch := make([]report.Data, 0, d.batchSize)
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		d.write(ctx, batch)
		batch = make([]report.Data, 0, d.batchSize)
	}

	for {
		select {
		case <-ctx.Done():
			batch = d.drain(batch)
			final, cancel := context.WithTimeout(context.Background(), finalFlushTimeout)
			flush(final)
			cancel()
			logger.Info("dispatcher stopped")
			return
		case item, ok := <-d.queue.C():
			if !ok {
				final, cancel := context.WithTimeout(context.Background(), finalFlushTimeout)
				flush(final)
				cancel()
				logger.Info("dispatcher stopped: queue closed")
				return
			}
			batch = append(batch, item.Data())
			if len(batch) >= d.batchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		}
	}
}

// drain 非阻塞地取出队列中已有的 item
func (d *Dispatcher) drain(batch []report.Data) []report.Data {
	for {
		select {
		case item, ok := <-d.queue.C():
			if !ok {
				return batch
			}
			batch = append(batch, item.Data())
		default:
			return batch
		}
	}
}

// write 单个 sink 失败只记录，不影响其它 sink
func (d *Dispatcher) write(ctx context.Context, batch []report.Data) {
	for _, s := range d.sinks {
		if err := s.Write(ctx, batch); err != nil {
			d.sinkErrors.WithLabelValues(s.Name()).Inc()
			logger.Error("sink write failed",
				zap.String("sink", s.Name()),
				zap.Int("items", len(batch)),
				zap.Error(err))
			continue
		}
		d.sinkItems.WithLabelValues(s.Name()).Add(float64(len(batch)))
	}
}
