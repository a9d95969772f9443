package sequence

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounter_Monotonic(t *testing.T) {
	c := NewCounter(1)

	assert.EqualValues(t, 1, c.Peek())
	assert.EqualValues(t, 1, c.Next())
	assert.EqualValues(t, 2, c.Next())
	assert.EqualValues(t, 3, c.Peek())
}

func TestCounter_AdvanceTo(t *testing.T) {
	c := NewCounter(1)
	c.AdvanceTo(10)
	assert.EqualValues(t, 10, c.Next())

	c.AdvanceTo(5)
	assert.EqualValues(t, 11, c.Next(), "advance never moves backwards")
}

func TestCounter_ConcurrentUnique(t *testing.T) {
	c := NewCounter(1)
	const n = 200

	var mu sync.Mutex
	seen := make(map[int64]bool, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v := c.Next()
			mu.Lock()
			seen[v] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, seen, n)
	assert.EqualValues(t, n+1, c.Peek())
}

func TestPartitioned(t *testing.T) {
	p := NewPartitioned()

	assert.EqualValues(t, 1, p.NextSequence("a"))
	assert.EqualValues(t, 2, p.NextSequence("a"))
	assert.EqualValues(t, 1, p.NextSequence("b"))
}
