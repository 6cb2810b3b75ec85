package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap/zapcore"
)

// Validate 日志配置校验。
// tag 只约束取值范围，这里再确认级别能被 zap 解析、目录存在且可写。
func (l *ZapLogConfig) Validate() error {
	if err := valid.Struct(l); err != nil {
		return fmt.Errorf("log: %w", err)
	}

	lvl, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	// panic/fatal 级别会让采集日志整体静默
	if lvl > zapcore.ErrorLevel {
		return fmt.Errorf("log.level %q too high (valid: debug/info/warn/error)", l.Level)
	}

	dir, err := filepath.Abs(l.Path)
	if err != nil {
		return fmt.Errorf("log.path %s: %w", l.Path, err)
	}
	if err := ensureWritableDir(dir); err != nil {
		return fmt.Errorf("log.path %s: %w", l.Path, err)
	}
	return nil
}

// ensureWritableDir 目录不存在则创建，存在则写一个探测文件确认可写
func ensureWritableDir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		return os.MkdirAll(dir, 0o755)
	case err != nil:
		return err
	case !info.IsDir():
		return fmt.Errorf("%s is not a directory", dir)
	}

	probe, err := os.CreateTemp(dir, ".write-probe-*")
	if err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(name)
}
