package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a controllable time source for expiry tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestTable(clock *fakeClock) *Table {
	tbl := NewTable()
	tbl.now = clock.Now
	return tbl
}

func TestCreate(t *testing.T) {
	tbl := NewTable()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s := tbl.Create()
		assert.NotEmpty(t, s.ID)
		assert.Equal(t, 0, s.NextSequence)
		assert.False(t, seen[s.ID], "duplicate id %s", s.ID)
		seen[s.ID] = true
	}
	assert.Equal(t, 100, tbl.Len())
}

func TestCreateRetriesCollidingID(t *testing.T) {
	ids := []string{"a", "a", "b"}
	tbl := NewTable()
	tbl.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	first := tbl.Create()
	second := tbl.Create()
	assert.Equal(t, "a", first.ID)
	assert.Equal(t, "b", second.ID)
}

func TestAdvance(t *testing.T) {
	tbl := NewTable()
	s := tbl.Create()

	for seq := 0; seq < 3; seq++ {
		got, err := tbl.Advance(s.ID, seq)
		require.NoError(t, err)
		assert.Equal(t, seq+1, got.NextSequence)
	}

	got, ok := tbl.Get(s.ID)
	require.True(t, ok)
	assert.Equal(t, 3, got.NextSequence)
}

func TestAdvanceBadSequenceLeavesStateUnchanged(t *testing.T) {
	tbl := NewTable()
	s := tbl.Create()
	_, err := tbl.Advance(s.ID, 0)
	require.NoError(t, err)

	for _, seq := range []int{-1, 0, 2, 100} {
		t.Run(fmt.Sprint(seq), func(t *testing.T) {
			_, err := tbl.Advance(s.ID, seq)
			assert.ErrorIs(t, err, ErrBadSequence)
			assert.ErrorIs(t, tbl.Check(s.ID, seq), ErrBadSequence)

			got, ok := tbl.Get(s.ID)
			require.True(t, ok)
			assert.Equal(t, 1, got.NextSequence)
		})
	}
}

func TestUnknownSession(t *testing.T) {
	tbl := NewTable()

	_, err := tbl.Advance("missing", 0)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, tbl.Check("missing", 0), ErrNotFound)
	assert.ErrorIs(t, tbl.Finish("missing", 0), ErrNotFound)

	_, ok := tbl.Get("missing")
	assert.False(t, ok)
}

func TestFinish(t *testing.T) {
	tbl := NewTable()
	s := tbl.Create()
	_, err := tbl.Advance(s.ID, 0)
	require.NoError(t, err)

	assert.ErrorIs(t, tbl.Finish(s.ID, 0), ErrBadSequence)
	assert.Equal(t, 1, tbl.Len())

	require.NoError(t, tbl.Finish(s.ID, 1))
	assert.Equal(t, 0, tbl.Len())

	assert.ErrorIs(t, tbl.Finish(s.ID, 1), ErrNotFound)
	_, err = tbl.Advance(s.ID, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentAdvanceSameSequence(t *testing.T) {
	tbl := NewTable()
	s := tbl.Create()

	const workers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := tbl.Advance(s.ID, 0); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	got, _ := tbl.Get(s.ID)
	assert.Equal(t, 1, got.NextSequence)
}

func TestExpire(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	tbl := newTestTable(clock)

	idle := tbl.Create()
	clock.Advance(30 * time.Second)
	active := tbl.Create()
	clock.Advance(40 * time.Second)
	_, err := tbl.Advance(active.ID, 0)
	require.NoError(t, err)

	assert.Empty(t, tbl.Expire(0))
	assert.Equal(t, 2, tbl.Len())

	expired := tbl.Expire(time.Minute)
	assert.Equal(t, []string{idle.ID}, expired)

	_, ok := tbl.Get(idle.ID)
	assert.False(t, ok)
	_, ok = tbl.Get(active.ID)
	assert.True(t, ok)
}

func TestSweep(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	tbl := newTestTable(clock)
	s := tbl.Create()
	clock.Advance(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	expired := make(chan string, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		tbl.Sweep(ctx, time.Minute, time.Millisecond, func(id string) { expired <- id })
	}()

	select {
	case id := <-expired:
		assert.Equal(t, s.ID, id)
	case <-time.After(5 * time.Second):
		t.Fatal("session was not swept")
	}
	cancel()
	<-done
	assert.Equal(t, 0, tbl.Len())
}

func TestSweepDisabled(t *testing.T) {
	tbl := NewTable()
	done := make(chan struct{})
	go func() {
		defer close(done)
		tbl.Sweep(context.Background(), 0, time.Millisecond, nil)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Sweep with zero maxIdle should return immediately")
	}
}
