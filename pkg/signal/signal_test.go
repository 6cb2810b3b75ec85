package signal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForShutdownOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := WaitForShutdown(ctx, time.Second, func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestWaitForShutdownTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WaitForShutdown(ctx, 20*time.Millisecond, func(ctx context.Context) error {
		<-time.After(time.Second)
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitForShutdownNilFunc(t *testing.T) {
	assert.Error(t, WaitForShutdown(context.Background(), time.Second, nil))
}

func TestWaitForShutdownReturnsError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WaitForShutdown(ctx, time.Second, func(context.Context) error {
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
}
