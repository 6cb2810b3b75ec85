package sink

import (
	"context"

	"github.com/varnish-agent/pkg/report"
)

// Sink 队列的消费端，一次写入一批
type Sink interface {
	Name() string
	Write(ctx context.Context, batch []report.Data) error
}
