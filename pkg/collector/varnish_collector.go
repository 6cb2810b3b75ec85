package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/varnish-agent/pkg/config"
	"github.com/varnish-agent/pkg/healthcheck"
	"github.com/varnish-agent/pkg/logger"
	"github.com/varnish-agent/pkg/metrics"
	"github.com/varnish-agent/pkg/queue"
	"github.com/varnish-agent/pkg/report"
	"github.com/varnish-agent/pkg/varnish"
)

// SourceHealth 响应检查在日志与指标中的数据源名
const SourceHealth = "response_check"

// Snapshot 一个采集周期的原始结果，Report 之前不做任何转换
type Snapshot struct {
	CycleID        string
	Counters       []varnish.StatRecord
	CountersOK     bool
	Ban            report.BanCount
	Storages       []string
	StoragesOK     bool
	ServiceVersion string
	Health         *healthcheck.Result
	// At 数据源全部返回的时间，本周期所有 item 的时间戳
	At time.Time

	// Failed 本周期失败的数据源
	Failed []string
}

// PollableSource 可被外部调度器驱动的数据源：先 Poll 再 Report
type PollableSource interface {
	Poll(ctx context.Context) Snapshot
	Report(snap Snapshot) []report.Item
}

// HealthChecker 响应检查，nil 结果表示本周期没有检查数据
type HealthChecker interface {
	Check(ctx context.Context, target healthcheck.Target) (*healthcheck.Result, error)
}

// VarnishCollector 一个周期：命令采集 -> 响应检查 -> 构造 item -> 入队
type VarnishCollector struct {
	name    string
	source  *varnish.Collector
	checker HealthChecker
	target  healthcheck.Target
	builder *report.Builder
	queue   *queue.Queue
	newID   func() string
	now     func() time.Time

	serviceVersion string
	metrics        VarnishCollectorMetrics
}

// NewVarnishCollector runner 为空时使用 os/exec，工作目录取 monitor.workdir
func NewVarnishCollector(cfg *config.MonitorConfig, version string, q *queue.Queue, metricFactory *metrics.MetricFactory, runner varnish.Runner) *VarnishCollector {
	if runner == nil {
		runner = &varnish.Exec{Dir: cfg.Workdir}
	}
	source := varnish.NewCollector(runner, varnish.Commands{
		Stat:        cfg.Commands.Stat,
		BanCount:    cfg.Commands.BanCount,
		StorageList: cfg.Commands.StorageList,
	}, cfg.Path, cfg.CommandTimeout)

	c := &VarnishCollector{
		name:    "varnish-collector",
		source:  source,
		builder: report.NewBuilder(cfg.Namespace, cfg.Hostname, version),
		queue:   q,
		newID:   uuid.NewString,
		now:     time.Now,
		metrics: newVarnishCollectorMetrics(metricFactory),
	}
	if cfg.ResponseCheck.Enable {
		c.checker = healthcheck.NewChecker(cfg.ResponseCheck.Timeout)
		c.target = healthcheck.TargetFromConfig(&cfg.ResponseCheck)
	}

	source.OnMalformed = func(src string, lines int) {
		c.metrics.malformedLines.WithLabelValues(src).Add(float64(lines))
		logger.Warn("skipped malformed command output",
			zap.String("source", src),
			zap.Int("lines", lines))
	}
	return c
}

var _ PollableSource = (*VarnishCollector)(nil)

// Name 返回采集器名称
func (c *VarnishCollector) Name() string { return c.name }

// Init 探测 varnishd 版本，失败只告警
func (c *VarnishCollector) Init() error {
	version, err := c.source.ServiceVersion(context.Background())
	switch {
	case err != nil:
		c.sourceFailed("", varnish.SourceVersion, err)
	case version != "":
		c.serviceVersion = version
		logger.Info("detected varnishd", zap.String("version", version))
	}
	if c.checker != nil {
		logger.Info("response check enabled", zap.String("url", c.target.URL()))
	}
	return nil
}

// Collect 执行一个完整周期；数据源失败不会中断其它数据源
func (c *VarnishCollector) Collect(ctx context.Context) error {
	start := time.Now()
	defer func() {
		c.metrics.collectDuration.WithLabelValues(c.name).Observe(time.Since(start).Seconds())
	}()

	snap := c.Poll(ctx)
	items := c.Report(snap)

	var dropped int
	for _, item := range items {
		if c.queue.Enqueue(item) {
			c.metrics.itemsEnqueued.Inc()
			continue
		}
		c.metrics.itemsDropped.Inc()
		dropped++
	}
	if dropped > 0 {
		logger.Warn("delivery queue full, items dropped",
			zap.String("cycle_id", snap.CycleID),
			zap.Int("dropped", dropped),
			zap.Int("items", len(items)))
	}

	logger.Debug("collect cycle done",
		zap.String("cycle_id", snap.CycleID),
		zap.Int("items", len(items)),
		zap.Duration("elapsed", time.Since(start)))

	if len(snap.Failed) > 0 {
		c.metrics.collectErrors.WithLabelValues(c.name).Inc()
		return fmt.Errorf("cycle %s: sources failed: %s", snap.CycleID, strings.Join(snap.Failed, ","))
	}
	return nil
}

// Poll 依次执行 stat、ban、storage、响应检查
func (c *VarnishCollector) Poll(ctx context.Context) Snapshot {
	snap := Snapshot{
		CycleID:        c.newID(),
		ServiceVersion: c.serviceVersion,
	}

	counters, err := c.source.FetchCounters(ctx)
	if err != nil {
		c.sourceFailed(snap.CycleID, varnish.SourceStat, err)
		snap.Failed = append(snap.Failed, varnish.SourceStat)
	} else {
		snap.Counters, snap.CountersOK = counters, true
	}

	bans, err := c.source.CountBans(ctx)
	if err != nil {
		c.sourceFailed(snap.CycleID, varnish.SourceBan, err)
		snap.Failed = append(snap.Failed, varnish.SourceBan)
	} else {
		snap.Ban = report.BanCount{Value: bans, OK: true}
	}

	storages, err := c.source.ListFileStorages(ctx)
	if err != nil {
		c.sourceFailed(snap.CycleID, varnish.SourceStorage, err)
		snap.Failed = append(snap.Failed, varnish.SourceStorage)
	} else {
		snap.Storages, snap.StoragesOK = storages, true
	}

	if c.checker != nil {
		health, err := c.checker.Check(ctx, c.target)
		if err != nil {
			c.sourceFailed(snap.CycleID, SourceHealth, err)
			snap.Failed = append(snap.Failed, SourceHealth)
		} else {
			snap.Health = health
		}
	}
	snap.At = c.now()
	return snap
}

// Report 转换为 item；存储列表获取失败时不输出 LLD，空列表仍输出
func (c *VarnishCollector) Report(snap Snapshot) []report.Item {
	builder := c.builder
	if !snap.At.IsZero() {
		builder = builder.At(snap.At)
	}
	items := builder.BuildItems(snap.Counters, snap.Ban, snap.ServiceVersion, snap.Health)
	if !snap.StoragesOK {
		return items
	}
	discovery, err := builder.BuildDiscovery(snap.Storages)
	if err != nil {
		logger.Error("build storage discovery failed", zap.String("cycle_id", snap.CycleID), zap.Error(err))
		return items
	}
	return append(items, discovery)
}

// Close 无需释放资源
func (c *VarnishCollector) Close() error {
	return nil
}

func (c *VarnishCollector) sourceFailed(cycleID, source string, err error) {
	kind := varnish.KindOf(err).String()
	if errors.Is(err, healthcheck.ErrTransport) {
		kind = "transport"
	}
	c.metrics.sourceErrors.WithLabelValues(source, kind).Inc()
	logger.Warn("varnish source failed",
		zap.String("cycle_id", cycleID),
		zap.String("source", source),
		zap.String("kind", kind),
		zap.Error(err))
}
