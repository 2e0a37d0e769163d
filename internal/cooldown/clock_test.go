package cooldown

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTryFire(t *testing.T) {
	c := New(2 * time.Second)
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, c.TryFire("servo", t0), "first firing is always allowed")
	assert.False(t, c.TryFire("servo", t0.Add(1999*time.Millisecond)))
	assert.True(t, c.TryFire("servo", t0.Add(2*time.Second)), "boundary is inclusive")
	assert.False(t, c.TryFire("servo", t0.Add(3*time.Second)), "slot moved to the last firing")
}

func TestKeysAreIndependent(t *testing.T) {
	c := New(30 * time.Second)
	c.SetDuration("standard", 300*time.Second)
	t0 := time.Now()

	assert.True(t, c.TryFire("standard", t0))
	assert.True(t, c.TryFire("remove", t0))

	assert.False(t, c.TryFire("standard", t0.Add(31*time.Second)))
	assert.True(t, c.TryFire("remove", t0.Add(31*time.Second)))
	assert.True(t, c.TryFire("standard", t0.Add(300*time.Second)))
}

func TestRemainingDoesNotConsume(t *testing.T) {
	c := New(time.Second)
	t0 := time.Now()

	assert.Equal(t, time.Duration(0), c.Remaining("k", t0))
	assert.True(t, c.TryFire("k", t0))
	assert.Equal(t, 500*time.Millisecond, c.Remaining("k", t0.Add(500*time.Millisecond)))
	assert.Equal(t, 500*time.Millisecond, c.Remaining("k", t0.Add(500*time.Millisecond)))
	assert.Equal(t, time.Duration(0), c.Remaining("k", t0.Add(5*time.Second)))
	assert.True(t, c.TryFire("k", t0.Add(time.Second)))
}

func TestTryFireConcurrent(t *testing.T) {
	c := New(time.Minute)
	now := time.Now()

	var granted int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.TryFire("servo", now) {
				atomic.AddInt32(&granted, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), granted)
}
