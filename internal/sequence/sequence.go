package sequence

import (
	"sync"
	"sync/atomic"
)

// Counter hands out strictly increasing values. A value is never handed out
// twice, even if the caller that received it later fails.
type Counter struct {
	next atomic.Int64
}

// NewCounter returns a counter whose first Next is start.
func NewCounter(start int64) *Counter {
	c := &Counter{}
	c.next.Store(start)
	return c
}

func (c *Counter) Next() int64 {
	return c.next.Add(1) - 1
}

// Peek returns the value the next call to Next will return.
func (c *Counter) Peek() int64 {
	return c.next.Load()
}

// AdvanceTo makes sure Next returns at least floor.
func (c *Counter) AdvanceTo(floor int64) {
	for {
		cur := c.next.Load()
		if cur >= floor || c.next.CompareAndSwap(cur, floor) {
			return
		}
	}
}

// Partitioned keeps one producer-side sequence per partition key, starting at 1.
type Partitioned struct {
	mu   sync.Mutex
	last map[string]int64
}

func NewPartitioned() *Partitioned {
	return &Partitioned{last: make(map[string]int64)}
}

func (p *Partitioned) NextSequence(partitionKey string) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last[partitionKey]++
	return p.last[partitionKey]
}
