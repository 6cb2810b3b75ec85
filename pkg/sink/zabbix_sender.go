package sink

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/varnish-agent/pkg/config"
	"github.com/varnish-agent/pkg/logger"
	"github.com/varnish-agent/pkg/report"
)

const (
	zabbixRequest = "sender data"
	// 响应体上限，正常只有几十字节
	maxZabbixResponse = 1 << 20
)

var zabbixHeader = []byte{'Z', 'B', 'X', 'D', 0x01}

// ErrZabbixRejected server 返回非 success
var ErrZabbixRejected = errors.New("zabbix server rejected data")

type zabbixPacket struct {
	Request string        `json:"request"`
	Data    []report.Data `json:"data"`
	Clock   int64         `json:"clock"`
}

type zabbixResponse struct {
	Response string `json:"response"`
	Info     string `json:"info"`
}

// ZabbixSender 以 trapper 协议发送到 zabbix server/proxy，连接失败按指数退避重试
type ZabbixSender struct {
	addr            string
	timeout         time.Duration
	initialInterval time.Duration
	maxInterval     time.Duration
	maxElapsedTime  time.Duration
	now             func() time.Time
}

var _ Sink = (*ZabbixSender)(nil)

func NewZabbixSender(cfg *config.ZabbixConfig) *ZabbixSender {
	return &ZabbixSender{
		addr:            cfg.Addr,
		timeout:         cfg.Timeout,
		initialInterval: cfg.InitialInterval,
		maxInterval:     cfg.MaxInterval,
		maxElapsedTime:  cfg.MaxElapsedTime,
		now:             time.Now,
	}
}

func (z *ZabbixSender) Name() string { return "zabbix" }

func (z *ZabbixSender) Write(ctx context.Context, batch []report.Data) error {
	if len(batch) == 0 {
		return nil
	}
	frame, err := encodeZabbixFrame(zabbixPacket{
		Request: zabbixRequest,
		Data:    batch,
		Clock:   z.now().Unix(),
	})
	if err != nil {
		return err
	}

	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = z.initialInterval
	exponentialBackoff.MaxInterval = z.maxInterval
	exponentialBackoff.MaxElapsedTime = z.maxElapsedTime

	var info string
	operation := func() error {
		resp, err := z.send(ctx, frame)
		if err != nil {
			return err
		}
		if resp.Response != "success" {
			return backoff.Permanent(fmt.Errorf("%w: %s %s", ErrZabbixRejected, resp.Response, resp.Info))
		}
		info = resp.Info
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("zabbix send failed, retrying",
			zap.String("addr", z.addr),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(exponentialBackoff, ctx), notify); err != nil {
		return fmt.Errorf("zabbix send to %s: %w", z.addr, err)
	}
	logger.Debug("zabbix send done", zap.String("addr", z.addr), zap.String("info", info))
	return nil
}

func (z *ZabbixSender) send(ctx context.Context, frame []byte) (*zabbixResponse, error) {
	dialer := net.Dialer{Timeout: z.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", z.addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(z.timeout)); err != nil {
		return nil, err
	}
	if _, err := conn.Write(frame); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	body, err := readZabbixFrame(conn)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	var resp zabbixResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return &resp, nil
}

// encodeZabbixFrame ZBXD\x01 + 小端 uint64 长度 + JSON
func encodeZabbixFrame(packet zabbixPacket) ([]byte, error) {
	payload, err := json.Marshal(packet)
	if err != nil {
		return nil, fmt.Errorf("encode zabbix packet: %w", err)
	}
	var buf bytes.Buffer
	buf.Grow(len(zabbixHeader) + 8 + len(payload))
	buf.Write(zabbixHeader)
	_ = binary.Write(&buf, binary.LittleEndian, uint64(len(payload)))
	buf.Write(payload)
	return buf.Bytes(), nil
}

func readZabbixFrame(r io.Reader) ([]byte, error) {
	head := make([]byte, len(zabbixHeader)+8)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, err
	}
	if !bytes.Equal(head[:4], zabbixHeader[:4]) {
		return nil, fmt.Errorf("bad header %q", head[:4])
	}
	size := binary.LittleEndian.Uint64(head[len(zabbixHeader):])
	if size > maxZabbixResponse {
		return nil, fmt.Errorf("response too large: %d bytes", size)
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}
