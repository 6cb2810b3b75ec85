package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/varnish-agent/pkg/config"
	"github.com/varnish-agent/pkg/goid"
)

type Logger = zap.Logger

var (
	baseLogger       = zap.NewNop()
	defaultCollector string
	mu               sync.RWMutex
)

const timeLayout = "2006-01-02 15:04:05.000 -07:00"

// InitLogger 初始化全局日志：控制台 + 按天切割的 JSON 文件
// 可重复调用，后一次覆盖前一次（测试与 once 子命令会重复初始化）
func InitLogger(cfg *config.ZapLogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zapcore.InfoLevel
	}

	if err := os.MkdirAll(cfg.Path, 0755); err != nil {
		return nil, fmt.Errorf("create log dir %s: %w", cfg.Path, err)
	}

	opts := []rotatelogs.Option{
		rotatelogs.WithRotationTime(24 * time.Hour),
	}
	// rotatelogs 不允许同时设置 MaxAge 与 RotationCount
	if cfg.MaxBackup > 0 {
		opts = append(opts, rotatelogs.WithRotationCount(uint(cfg.MaxBackup)))
	} else if cfg.MaxAge > 0 {
		opts = append(opts, rotatelogs.WithMaxAge(time.Duration(cfg.MaxAge)*24*time.Hour))
	}
	writer, err := rotatelogs.New(filepath.Join(cfg.Path, "agent-%Y%m%d.log"), opts...)
	if err != nil {
		return nil, fmt.Errorf("create rotate writer: %w", err)
	}

	jsonCfg := zap.NewProductionEncoderConfig()
	jsonCfg.TimeKey = "timestamp"
	jsonCfg.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
	jsonCfg.EncodeLevel = zapcore.LowercaseLevelEncoder

	var stdoutEncoder zapcore.Encoder
	if cfg.Format == "json" {
		stdoutEncoder = zapcore.NewJSONEncoder(jsonCfg)
	} else {
		stdoutEncoder = zapcore.NewConsoleEncoder(consoleEncoderConfig())
	}

	core := zapcore.NewTee(
		zapcore.NewCore(stdoutEncoder, zapcore.AddSync(os.Stdout), level),
		zapcore.NewCore(zapcore.NewJSONEncoder(jsonCfg), zapcore.AddSync(writer), level),
	)

	l := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))

	mu.Lock()
	baseLogger = l
	mu.Unlock()
	return l, nil
}

// 控制台彩色输出
func consoleEncoderConfig() zapcore.EncoderConfig {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.ConsoleSeparator = " "
	encCfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(fmt.Sprintf("\033[34m%s\033[0m", t.Format(timeLayout)))
	}
	encCfg.EncodeLevel = func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		var levelStr string
		switch level {
		case zapcore.DebugLevel:
			levelStr = "\033[36mDEBUG\033[0m"
		case zapcore.InfoLevel:
			levelStr = "\033[32mINFO \033[0m"
		case zapcore.WarnLevel:
			levelStr = "\033[33mWARN \033[0m"
		case zapcore.ErrorLevel:
			levelStr = "\033[31mERROR\033[0m"
		case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
			levelStr = "\033[35m" + level.CapitalString() + "\033[0m"
		default:
			levelStr = "UNK  "
		}
		enc.AppendString(levelStr)
	}
	// Caller 两级路径
	encCfg.EncodeCaller = func(c zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		rel := filepath.Join(filepath.Base(filepath.Dir(c.File)), filepath.Base(c.File))
		enc.AppendString(fmt.Sprintf("%s:%d", rel, c.Line))
	}
	return encCfg
}

// SetDefaultCollector 设置默认 collector 字段（主程序相关日志自动使用）
func SetDefaultCollector(collector string) {
	mu.Lock()
	defer mu.Unlock()
	defaultCollector = collector
}

func GetDefaultCollector() string {
	mu.RLock()
	defer mu.RUnlock()
	return defaultCollector
}

func log(level zapcore.Level, msg string, fields ...zapcore.Field) {
	mu.RLock()
	l := baseLogger
	collector := defaultCollector
	mu.RUnlock()

	merged := make([]zapcore.Field, 0, len(fields)+2)
	if collector != "" {
		merged = append(merged, zap.String("collector", collector))
	}
	merged = append(merged, zap.String("goid", strconv.FormatUint(goid.GetGID(), 10)))
	merged = append(merged, fields...)

	l = l.WithOptions(zap.AddCallerSkip(1))
	switch level {
	case zap.DebugLevel:
		l.Debug(msg, merged...)
	case zap.InfoLevel:
		l.Info(msg, merged...)
	case zap.WarnLevel:
		l.Warn(msg, merged...)
	case zap.ErrorLevel:
		l.Error(msg, merged...)
	case zap.PanicLevel:
		l.Panic(msg, merged...)
	case zap.FatalLevel:
		l.Fatal(msg, merged...)
	}
}

func Debug(msg string, fields ...zapcore.Field) { log(zap.DebugLevel, msg, fields...) }
func Info(msg string, fields ...zapcore.Field)  { log(zap.InfoLevel, msg, fields...) }
func Warn(msg string, fields ...zapcore.Field)  { log(zap.WarnLevel, msg, fields...) }
func Error(msg string, fields ...zapcore.Field) { log(zap.ErrorLevel, msg, fields...) }
func Panic(msg string, fields ...zapcore.Field) { log(zap.PanicLevel, msg, fields...) }
func Fatal(msg string, fields ...zapcore.Field) { log(zap.FatalLevel, msg, fields...) }

// Sync 刷盘（忽略 stdout 不支持 sync 的错误）
func Sync() error {
	err := GetGlobalLogger().Sync()
	if err != nil && strings.Contains(err.Error(), "/dev/stdout") {
		return nil
	}
	return err
}

// GetGlobalLogger 未初始化时返回 Nop logger
func GetGlobalLogger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return baseLogger
}
