package registers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCollector struct {
	name    string
	initErr error
	failOn  int32

	collects atomic.Int32
	inflight atomic.Int32
	overlap  atomic.Bool
	closed   atomic.Bool
}

func (f *fakeCollector) Name() string { return f.name }
func (f *fakeCollector) Init() error  { return f.initErr }

func (f *fakeCollector) Collect(context.Context) error {
	if f.inflight.Add(1) > 1 {
		f.overlap.Store(true)
	}
	defer f.inflight.Add(-1)
	n := f.collects.Add(1)
	time.Sleep(15 * time.Millisecond)
	if n == f.failOn {
		return errors.New("collect failed")
	}
	return nil
}

func (f *fakeCollector) Close() error {
	f.closed.Store(true)
	return nil
}

func TestAgentCollectsSequentially(t *testing.T) {
	agent := NewRegistry(5 * time.Millisecond)
	c := &fakeCollector{name: "fake", failOn: 1}
	agent.Register(c)

	require.NoError(t, agent.Start(context.Background()))

	assert.Eventually(t, func() bool { return c.collects.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, agent.Shutdown(ctx))

	assert.False(t, c.overlap.Load(), "collect cycles overlapped")
	assert.True(t, c.closed.Load())

	after := c.collects.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, c.collects.Load())
}

func TestAgentFirstCollectionIsImmediate(t *testing.T) {
	agent := NewRegistry(time.Hour)
	c := &fakeCollector{name: "fake"}
	agent.Register(c)

	require.NoError(t, agent.Start(context.Background()))
	assert.Eventually(t, func() bool { return c.collects.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, agent.Shutdown(context.Background()))
}

func TestAgentStartFailsOnInitError(t *testing.T) {
	agent := NewRegistry(time.Hour)
	agent.Register(&fakeCollector{name: "broken", initErr: errors.New("no varnish")})

	err := agent.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")

	require.NoError(t, agent.Shutdown(context.Background()))
}

func TestCollectAllContinuesPastFailures(t *testing.T) {
	agent := NewRegistry(time.Hour)
	first := &fakeCollector{name: "first", failOn: 1}
	second := &fakeCollector{name: "second"}
	agent.Register(first)
	agent.Register(second)

	err := agent.CollectAll(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), first.collects.Load())
	assert.Equal(t, int32(1), second.collects.Load())
}
