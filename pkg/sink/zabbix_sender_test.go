package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varnish-agent/pkg/config"
	"github.com/varnish-agent/pkg/report"
)

// fakeZabbix 本地 trapper：第 n 次连接交给 handle 处理
type fakeZabbix struct {
	ln       net.Listener
	conns    atomic.Int32
	received chan zabbixPacket
}

func newFakeZabbix(t *testing.T, handle func(n int32, conn net.Conn, packet zabbixPacket)) *fakeZabbix {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	f := &fakeZabbix{ln: ln, received: make(chan zabbixPacket, 8)}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			n := f.conns.Add(1)
			go func() {
				defer conn.Close()
				body, err := readZabbixFrame(conn)
				if err != nil {
					return
				}
				var packet zabbixPacket
				if err := json.Unmarshal(body, &packet); err != nil {
					return
				}
				f.received <- packet
				handle(n, conn, packet)
			}()
		}
	}()
	return f
}

func reply(conn net.Conn, response, info string) {
	payload, _ := json.Marshal(zabbixResponse{Response: response, Info: info})
	var buf bytes.Buffer
	buf.Write(zabbixHeader)
	size := uint64(len(payload))
	for i := 0; i < 8; i++ {
		buf.WriteByte(byte(size >> (8 * i)))
	}
	buf.Write(payload)
	_, _ = conn.Write(buf.Bytes())
}

func testZabbixConfig(addr string) *config.ZabbixConfig {
	return &config.ZabbixConfig{
		Enable:          true,
		Addr:            addr,
		Timeout:         time.Second,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     50 * time.Millisecond,
		MaxElapsedTime:  2 * time.Second,
	}
}

var testBatch = []report.Data{
	{Host: "cache01", Clock: 1700000000, Key: "varnish.ping", Value: "1"},
	{Host: "cache01", Clock: 1700000000, Key: "varnish.storage.LLD", Value: `{"data":[]}`},
}

func TestEncodeZabbixFrame(t *testing.T) {
	frame, err := encodeZabbixFrame(zabbixPacket{Request: zabbixRequest, Data: testBatch[:1], Clock: 1})
	require.NoError(t, err)

	assert.Equal(t, []byte("ZBXD\x01"), frame[:5])
	body, err := readZabbixFrame(bytes.NewReader(frame))
	require.NoError(t, err)
	assert.JSONEq(t, `{"request":"sender data","clock":1,"data":[
		{"host":"cache01","clock":1700000000,"key":"varnish.ping","value":"1"}
	]}`, string(body))
}

func TestZabbixSenderSuccess(t *testing.T) {
	srv := newFakeZabbix(t, func(_ int32, conn net.Conn, _ zabbixPacket) {
		reply(conn, "success", "processed: 2; failed: 0; total: 2")
	})

	err := NewZabbixSender(testZabbixConfig(srv.ln.Addr().String())).Write(context.Background(), testBatch)
	require.NoError(t, err)

	packet := <-srv.received
	assert.Equal(t, "sender data", packet.Request)
	assert.Equal(t, testBatch, packet.Data)
	assert.Equal(t, int32(1), srv.conns.Load())
}

func TestZabbixSenderRetriesBrokenConnection(t *testing.T) {
	srv := newFakeZabbix(t, func(n int32, conn net.Conn, _ zabbixPacket) {
		if n == 1 {
			return
		}
		reply(conn, "success", "")
	})

	err := NewZabbixSender(testZabbixConfig(srv.ln.Addr().String())).Write(context.Background(), testBatch)
	require.NoError(t, err)
	assert.Equal(t, int32(2), srv.conns.Load())
}

func TestZabbixSenderRejectedIsNotRetried(t *testing.T) {
	srv := newFakeZabbix(t, func(_ int32, conn net.Conn, _ zabbixPacket) {
		reply(conn, "failed", "bad host")
	})

	err := NewZabbixSender(testZabbixConfig(srv.ln.Addr().String())).Write(context.Background(), testBatch)
	assert.ErrorIs(t, err, ErrZabbixRejected)
	assert.Equal(t, int32(1), srv.conns.Load())
}

func TestZabbixSenderGivesUp(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	cfg := testZabbixConfig(addr)
	cfg.MaxElapsedTime = 100 * time.Millisecond

	start := time.Now()
	err = NewZabbixSender(cfg).Write(context.Background(), testBatch)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestZabbixSenderEmptyBatch(t *testing.T) {
	assert.NoError(t, NewZabbixSender(testZabbixConfig("127.0.0.1:1")).Write(context.Background(), nil))
}
