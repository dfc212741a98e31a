package ratelimit

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *manualClock {
	return &manualClock{now: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)}
}

func TestFixedWindowAllowsUpToLimitThenResets(t *testing.T) {
	clock := newClock()
	l := NewFixedWindow(Config{Limit: 2, Window: time.Minute}, clock.Now)

	first := l.Check("user:p")
	assert.True(t, first.Allowed)
	assert.Equal(t, 1, first.Remaining)

	second := l.Check("user:p")
	assert.True(t, second.Allowed)
	assert.Equal(t, 0, second.Remaining)

	clock.Advance(30 * time.Second)
	third := l.Check("user:p")
	assert.False(t, third.Allowed)
	assert.Equal(t, 30*time.Second, third.RetryAfter)

	clock.Advance(30 * time.Second)
	fourth := l.Check("user:p")
	assert.True(t, fourth.Allowed, "window should reset once it has fully elapsed")
	assert.Equal(t, 1, fourth.Remaining)
}

func TestFixedWindowDeniedRequestsAreNotCounted(t *testing.T) {
	clock := newClock()
	l := NewFixedWindow(Config{Limit: 1, Window: time.Minute}, clock.Now)

	require.True(t, l.Check("k").Allowed)
	for i := 0; i < 5; i++ {
		assert.False(t, l.Check("k").Allowed)
	}
	clock.Advance(time.Minute)
	assert.True(t, l.Check("k").Allowed)
}

func TestFixedWindowKeysAreIndependent(t *testing.T) {
	clock := newClock()
	l := NewFixedWindow(Config{Limit: 1, Window: time.Minute}, clock.Now)

	assert.True(t, l.Check("addr:10.0.0.1").Allowed)
	assert.False(t, l.Check("addr:10.0.0.1").Allowed)
	assert.True(t, l.Check("user:10.0.0.1").Allowed)
	assert.Equal(t, 2, l.Len())
}

func TestFixedWindowDefaults(t *testing.T) {
	l := NewFixedWindow(Config{}, nil)

	d := l.Check("k")
	assert.True(t, d.Allowed)
	assert.Equal(t, DefaultLimit, d.Limit)
	assert.Equal(t, DefaultLimit-1, d.Remaining)
}

func TestFixedWindowConcurrentChecks(t *testing.T) {
	clock := newClock()
	const limit = 500
	l := NewFixedWindow(Config{Limit: limit, Window: time.Minute}, clock.Now)

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for g := 0; g < 50; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				if l.Check("shared").Allowed {
					allowed.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(limit), allowed.Load())
}

func TestFixedWindowSweepsElapsedWindows(t *testing.T) {
	clock := newClock()
	l := NewFixedWindow(Config{Limit: 1, Window: time.Minute}, clock.Now)

	for i := 0; i < sweepThreshold; i++ {
		l.Check(fmt.Sprintf("addr:%d", i))
	}
	require.Equal(t, sweepThreshold, l.Len())

	clock.Advance(time.Minute)
	l.Check("fresh")
	assert.Equal(t, 1, l.Len())
}
