package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/varnish-agent/pkg/report"
)

func TestEnqueueDropsWhenFull(t *testing.T) {
	q := New(2)

	assert.True(t, q.Enqueue(report.Item{Key: "a"}))
	assert.True(t, q.Enqueue(report.Item{Key: "b"}))
	assert.False(t, q.Enqueue(report.Item{Key: "c"}))

	assert.Equal(t, 2, q.Len())
	assert.Equal(t, 2, q.Cap())
	assert.Equal(t, uint64(1), q.Dropped())

	assert.Equal(t, "a", (<-q.C()).Key)
	assert.True(t, q.Enqueue(report.Item{Key: "d"}))
}

func TestCloseDrainsRemaining(t *testing.T) {
	q := New(4)
	q.Enqueue(report.Item{Key: "a"})
	q.Enqueue(report.Item{Key: "b"})
	q.Close()
	q.Close()

	var keys []string
	for item := range q.C() {
		keys = append(keys, item.Key)
	}
	assert.Equal(t, []string{"a", "b"}, keys)

	assert.False(t, q.Enqueue(report.Item{Key: "late"}))
	assert.Equal(t, uint64(1), q.Dropped())
}

func TestEnqueueConcurrentWithClose(t *testing.T) {
	q := New(8)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Enqueue(report.Item{Key: "k"})
			}
		}()
	}
	go func() {
		for range q.C() {
		}
	}()
	q.Close()
	wg.Wait()

	assert.LessOrEqual(t, q.Dropped(), uint64(400))
}

func TestNewClampsSize(t *testing.T) {
	assert.Equal(t, 1, New(0).Cap())
}
