package agent

import (
	"github.com/spf13/cobra"
)

func initMonitorFlags(root *cobra.Command) {
	f := root.PersistentFlags()
	m := defaultCfg.Monitor

	f.Duration("monitor.interval", m.Interval, "采集间隔")
	f.String("monitor.hostname", m.Hostname, "上报主机名（默认本机主机名）")
	f.String("monitor.namespace", m.Namespace, "item key 前缀")
	f.String("monitor.path", m.Path, "varnishd 路径，用于版本探测（留空跳过）")
	f.String("monitor.workdir", m.Workdir, "外部命令工作目录")
	f.Duration("monitor.command_timeout", m.CommandTimeout, "单条外部命令超时")

	f.String("monitor.commands.stat", m.Commands.Stat, "计数器命令")
	f.String("monitor.commands.ban_count", m.Commands.BanCount, "ban 列表命令（输出 ban.list 原文或整数计数）")
	f.String("monitor.commands.storage_list", m.Commands.StorageList, "存储列表命令（输出 storage.list 原文）")

	rc := m.ResponseCheck
	f.Bool("monitor.response_check.enable", rc.Enable, "启用 HTTP 响应检查")
	f.String("monitor.response_check.host", rc.Host, "响应检查主机")
	f.Int("monitor.response_check.port", rc.Port, "响应检查端口")
	f.String("monitor.response_check.uri", rc.URI, "响应检查 URI")
	f.String("monitor.response_check.vhost", rc.VHost, "Host 头覆盖")
	f.String("monitor.response_check.uagent", rc.UAgent, "User-Agent 覆盖")
	f.Bool("monitor.response_check.ssl", rc.SSL, "使用 https")
	f.Duration("monitor.response_check.timeout", rc.Timeout, "响应检查超时")
}

func initSinkFlags(root *cobra.Command) {
	f := root.PersistentFlags()

	f.Int("queue.size", defaultCfg.Queue.Size, "投递队列容量")
	f.Int("sink.batch_size", defaultCfg.Sink.BatchSize, "单批最大 item 数")
	f.Duration("sink.flush_interval", defaultCfg.Sink.FlushInterval, "攒批最长等待")

	z := defaultCfg.Sink.Zabbix
	f.Bool("sink.zabbix.enable", z.Enable, "启用 zabbix trapper 输出")
	f.String("sink.zabbix.addr", z.Addr, "zabbix server/proxy 地址")
	f.Duration("sink.zabbix.timeout", z.Timeout, "单次发送超时")
}
