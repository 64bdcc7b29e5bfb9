package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestRegistry(ttl time.Duration, max int) (*Registry, *fakeClock) {
	clock := &fakeClock{t: testTime}
	r := NewRegistry(ttl, max)
	r.now = clock.now
	return r, clock
}

func isClosed(c *Controller) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func TestRegistry_AddGet(t *testing.T) {
	r, _ := newTestRegistry(time.Hour, 10)
	c := newTestController(t, &fakeAuth{}, newFakeDocs(), newFakeBlobs())

	r.Add("s1", c)

	got, ok := r.Get("s1")
	require.True(t, ok)
	assert.Same(t, c, got)
	assert.Equal(t, 1, r.Len())

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_IdleExpiry(t *testing.T) {
	r, clock := newTestRegistry(time.Hour, 10)
	c := newTestController(t, &fakeAuth{}, newFakeDocs(), newFakeBlobs())
	r.Add("s1", c)

	clock.advance(30 * time.Minute)
	_, ok := r.Get("s1")
	require.True(t, ok)

	clock.advance(59 * time.Minute)
	_, ok = r.Get("s1")
	require.True(t, ok, "access refreshes the idle timer")

	clock.advance(61 * time.Minute)
	_, ok = r.Get("s1")
	assert.False(t, ok)
	assert.True(t, isClosed(c))
	assert.Zero(t, r.Len())
}

func TestRegistry_EvictsLeastRecentlyUsed(t *testing.T) {
	r, clock := newTestRegistry(time.Hour, 2)
	c1 := newTestController(t, &fakeAuth{}, newFakeDocs(), newFakeBlobs())
	c2 := newTestController(t, &fakeAuth{}, newFakeDocs(), newFakeBlobs())
	c3 := newTestController(t, &fakeAuth{}, newFakeDocs(), newFakeBlobs())

	r.Add("s1", c1)
	clock.advance(time.Minute)
	r.Add("s2", c2)
	clock.advance(time.Minute)
	_, _ = r.Get("s1")
	clock.advance(time.Minute)
	r.Add("s3", c3)

	assert.Equal(t, 2, r.Len())
	_, ok := r.Get("s2")
	assert.False(t, ok)
	assert.True(t, isClosed(c2))
	assert.False(t, isClosed(c1))
}

func TestRegistry_Remove(t *testing.T) {
	r, _ := newTestRegistry(time.Hour, 10)
	c := newTestController(t, &fakeAuth{}, newFakeDocs(), newFakeBlobs())
	r.Add("s1", c)

	r.Remove("s1")
	r.Remove("s1")

	_, ok := r.Get("s1")
	assert.False(t, ok)
	assert.True(t, isClosed(c))
}

func TestRegistry_Sweep(t *testing.T) {
	r, clock := newTestRegistry(time.Hour, 10)
	old := newTestController(t, &fakeAuth{}, newFakeDocs(), newFakeBlobs())
	fresh := newTestController(t, &fakeAuth{}, newFakeDocs(), newFakeBlobs())

	r.Add("old", old)
	clock.advance(50 * time.Minute)
	r.Add("fresh", fresh)
	clock.advance(20 * time.Minute)

	assert.Equal(t, 1, r.Sweep())
	assert.True(t, isClosed(old))
	assert.False(t, isClosed(fresh))
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_RunStopsOnCancel(t *testing.T) {
	r := NewRegistry(time.Hour, 10)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		r.Run(ctx, time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
