package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClock(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current(), "no cycle started yet")

	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())
	assert.Equal(t, int64(2), c.Current(), "reading does not advance")
}

// One goroutine advances the clock while participants read it.
func TestClock_ReadersSeeMonotonicCycles(t *testing.T) {
	c := NewClock()
	const cycles = 1000
	const readers = 8

	var wg sync.WaitGroup
	for range readers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			last := int64(0)
			for last < cycles {
				now := c.Current()
				assert.GreaterOrEqual(t, now, last)
				last = now
			}
		}()
	}

	for i := int64(1); i <= cycles; i++ {
		assert.Equal(t, i, c.Next())
	}
	wg.Wait()
}
