package varnish

import (
	"context"
	"time"
)

// Commands 三条外部命令行（sh -c 执行）
type Commands struct {
	Stat        string
	BanCount    string
	StorageList string
}

// Collector 负责调用外部命令并解析输出；所有格式相关的逻辑都在本包内
type Collector struct {
	runner     Runner
	commands   Commands
	binaryPath string
	timeout    time.Duration

	// OnMalformed 每次解析跳过行时回调（source, 行数），可为空
	OnMalformed func(source string, lines int)
}

// NewCollector timeout <= 0 表示不设超时
func NewCollector(runner Runner, commands Commands, binaryPath string, timeout time.Duration) *Collector {
	return &Collector{
		runner:     runner,
		commands:   commands,
		binaryPath: binaryPath,
		timeout:    timeout,
	}
}

func (c *Collector) run(ctx context.Context, fn func(ctx context.Context) (string, error)) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return fn(ctx)
}

func (c *Collector) shell(ctx context.Context, line string) (string, error) {
	return c.run(ctx, func(ctx context.Context) (string, error) {
		out, err := Shell(ctx, c.runner, line)
		if err != nil {
			return "", err
		}
		return out.String(), nil
	})
}

func (c *Collector) malformed(source string, lines int) {
	if lines > 0 && c.OnMalformed != nil {
		c.OnMalformed(source, lines)
	}
}

// FetchCounters 执行 varnishstat -1 并解析为 StatRecord 列表
func (c *Collector) FetchCounters(ctx context.Context) ([]StatRecord, error) {
	out, err := c.shell(ctx, c.commands.Stat)
	if err != nil {
		return nil, err
	}
	records, skipped := ParseCounters(out)
	c.malformed(SourceStat, skipped)
	return records, nil
}

// CountBans 返回 ban 列表行数（十进制字符串）。
// 命令可以直接输出 ban.list（在这里计行），也可以自带 "| wc -l"
func (c *Collector) CountBans(ctx context.Context) (string, error) {
	out, err := c.shell(ctx, c.commands.BanCount)
	if err != nil {
		return "", err
	}
	count, ok := ParseBanCount(out)
	if !ok {
		c.malformed(SourceBan, 1)
		return "", &CommandError{Kind: KindMalformed, Command: c.commands.BanCount, Output: truncate(out, maxErrOutput)}
	}
	return count, nil
}

// ListFileStorages 返回文件型存储名；结果永不为 nil。
// 过滤在 ParseFileStorages 中完成，命令末尾的 "| grep file" 无匹配时按空列表处理
func (c *Collector) ListFileStorages(ctx context.Context) ([]string, error) {
	out, err := c.shell(ctx, c.commands.StorageList)
	if err != nil && !isNoMatch(err) {
		return nil, err
	}
	storages, skipped := ParseFileStorages(out)
	c.malformed(SourceStorage, skipped)
	return storages, nil
}

// ServiceVersion 执行 `<path> -V` 解析 varnishd 版本；未配置 path 时返回空串
func (c *Collector) ServiceVersion(ctx context.Context) (string, error) {
	if c.binaryPath == "" {
		return "", nil
	}
	out, err := c.run(ctx, func(ctx context.Context) (string, error) {
		buf, err := c.runner.RunCmd(ctx, c.binaryPath, "-V")
		if err != nil {
			return "", err
		}
		return buf.String(), nil
	})
	if err != nil {
		return "", err
	}
	version, ok := ParseServiceVersion(out)
	if !ok {
		c.malformed(SourceVersion, 1)
		return "", &CommandError{Kind: KindMalformed, Command: c.binaryPath + " -V", Output: truncate(out, maxErrOutput)}
	}
	return version, nil
}

// 数据源名称，用于日志与指标标签
const (
	SourceStat    = "stat"
	SourceBan     = "ban"
	SourceStorage = "storage"
	SourceVersion = "version"
)
