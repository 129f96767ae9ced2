package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int64, string](2, time.Minute)
	c.Set(1, "alpha")
	c.Set(2, "beta")

	_, ok := c.Get(1) // 1 becomes most recent
	assert.True(t, ok)

	c.Set(3, "gamma")
	_, ok = c.Get(2)
	assert.False(t, ok, "2 was least recently used")
	v, ok := c.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "alpha", v)
	assert.Equal(t, 2, c.Size())
}

func TestLRUCacheTTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int64, string](10, 5*time.Minute).WithClock(clock.now)

	c.Set(1, "alpha")
	c.Set(2, "beta")

	clock.t = clock.t.Add(4 * time.Minute)
	_, ok := c.Get(1)
	assert.True(t, ok)

	clock.t = clock.t.Add(2 * time.Minute)
	_, ok = c.Get(1)
	assert.False(t, ok)

	assert.Equal(t, 1, c.CleanExpired())
	assert.Zero(t, c.Size())
}

func TestLRUCacheOverwriteAndDelete(t *testing.T) {
	c := NewLRUCache[string, int](2, time.Minute)
	c.Set("a", 1)
	c.Set("a", 2)
	v, _ := c.Get("a")
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Size())

	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestManagerCleanAll(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	a := NewLRUCache[int, int](10, time.Second).WithClock(clock.now)
	b := NewLRUCache[int, int](10, time.Hour).WithClock(clock.now)
	a.Set(1, 1)
	b.Set(1, 1)

	m := NewManager()
	m.Register(a)
	m.Register(b)

	clock.t = clock.t.Add(time.Minute)
	assert.Equal(t, 1, m.CleanAll())

	m.StartCleanup(time.Hour)
	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}

func TestManagerStopWithoutStart(t *testing.T) {
	done := make(chan struct{})
	go func() {
		NewManager().Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked without StartCleanup")
	}
}

func TestLRUCacheStats(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int64, string](2, time.Minute).WithClock(clock.now)

	c.Set(1, "a")
	c.Get(1)
	c.Get(2)
	c.Set(2, "b")
	c.Set(3, "c") // evicts 1

	clock.t = clock.t.Add(2 * time.Minute)
	c.Get(2) // expired

	assert.Equal(t, Stats{Hits: 1, Misses: 2, Evictions: 1, Size: 1}, c.Stats())
}
