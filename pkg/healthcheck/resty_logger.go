package healthcheck

import (
	"fmt"

	"github.com/varnish-agent/pkg/logger"
)

// restyLogger 将 resty 内部日志转到 zap
type restyLogger struct{}

func (restyLogger) Errorf(format string, v ...interface{}) {
	logger.Error(fmt.Sprintf(format, v...))
}

func (restyLogger) Warnf(format string, v ...interface{}) {
	logger.Warn(fmt.Sprintf(format, v...))
}

func (restyLogger) Debugf(format string, v ...interface{}) {
	logger.Debug(fmt.Sprintf(format, v...))
}
