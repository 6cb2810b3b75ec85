package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Validate HTTP服务配置校验
func (h *ServerConfig) Validate() error {
	if err := valid.Struct(h); err != nil {
		return err
	}
	// 	用net包解析地址，验证格式合法性(必须是 ":port" 或 "ip:port")
	if _, err := net.ResolveTCPAddr("tcp", h.Addr); err != nil {
		return fmt.Errorf("server.addr format invalid (expected: :port or ip:port), got %s: %w", h.Addr, err)
	}
	return nil
}

// Validate 采集配置校验
func (m *MonitorConfig) Validate() error {
	if err := valid.Struct(m); err != nil {
		return err
	}
	if m.Interval < time.Second || m.Interval > 3600*time.Second {
		return fmt.Errorf("monitor.interval must be between 1 and 3600 seconds, got %s", m.Interval)
	}
	// 命令超时不能超过采集间隔，否则周期会相互挤压
	if m.CommandTimeout > m.Interval {
		return fmt.Errorf("monitor.command_timeout (%s) must not exceed monitor.interval (%s)", m.CommandTimeout, m.Interval)
	}
	if strings.TrimSpace(m.Hostname) == "" {
		return errors.New("monitor.hostname cannot be empty")
	}
	if strings.ContainsAny(m.Namespace, " \t[]") {
		return fmt.Errorf("monitor.namespace %q must not contain whitespace or brackets", m.Namespace)
	}
	return m.ResponseCheck.Validate()
}

// Validate response_check 未启用时不校验主机
func (r *ResponseCheckConfig) Validate() error {
	if err := valid.Struct(r); err != nil {
		return err
	}
	if !r.Enable {
		return nil
	}
	if strings.TrimSpace(r.Host) == "" {
		return errors.New("monitor.response_check.host is required when response_check is enabled")
	}
	if r.URI != "" && !strings.HasPrefix(r.URI, "/") {
		return fmt.Errorf("monitor.response_check.uri must start with '/', got %q", r.URI)
	}
	for name := range r.Headers {
		if strings.TrimSpace(name) == "" || strings.ContainsAny(name, " \t\r\n:") {
			return fmt.Errorf("monitor.response_check.headers: invalid header name %q", name)
		}
	}
	return nil
}

// Validate 输出配置校验
func (s *SinkConfig) Validate() error {
	if err := valid.Struct(s); err != nil {
		return err
	}
	z := s.Zabbix
	if !z.Enable {
		return nil
	}
	if _, _, err := net.SplitHostPort(z.Addr); err != nil {
		return fmt.Errorf("sink.zabbix.addr format invalid (expected: host:port), got %q: %w", z.Addr, err)
	}
	if z.InitialInterval > z.MaxInterval {
		return fmt.Errorf("sink.zabbix.initial_interval (%s) must not exceed max_interval (%s)", z.InitialInterval, z.MaxInterval)
	}
	return nil
}
