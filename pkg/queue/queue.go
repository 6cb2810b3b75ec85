package queue

import (
	"sync"
	"sync/atomic"

	"github.com/varnish-agent/pkg/report"
)

// Queue 有界投递队列；Enqueue 永不阻塞采集循环，满时丢弃
type Queue struct {
	ch      chan report.Item
	dropped atomic.Uint64

	mu     sync.RWMutex
	closed bool
}

func New(size int) *Queue {
	if size <= 0 {
		size = 1
	}
	return &Queue{ch: make(chan report.Item, size)}
}

// Enqueue 入队成功返回 true；队列满或已关闭时丢弃并计数
func (q *Queue) Enqueue(item report.Item) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.dropped.Add(1)
		return false
	}
	select {
	case q.ch <- item:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// C 消费端读取通道，Close 后读完剩余数据即结束
func (q *Queue) C() <-chan report.Item {
	return q.ch
}

func (q *Queue) Len() int {
	return len(q.ch)
}

func (q *Queue) Cap() int {
	return cap(q.ch)
}

// Dropped 累计丢弃条数
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

// Close 可重复调用
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}
