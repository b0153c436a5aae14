package polling

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingFetch(n *atomic.Int32) FetchFunc {
	return func(ctx context.Context) error {
		n.Add(1)
		return nil
	}
}

func TestGroupStartReplacesSameKey(t *testing.T) {
	g := NewGroup(0)
	defer g.StopAll()

	var first, second atomic.Int32
	m1 := g.Start("community-notifications", testConfig(10*time.Millisecond), countingFetch(&first), nil)
	require.Eventually(t, func() bool { return first.Load() >= 1 }, time.Second, time.Millisecond)

	m2 := g.Start("community-notifications", testConfig(10*time.Millisecond), countingFetch(&second), nil)
	assert.NotSame(t, m1, m2)
	assert.False(t, m1.Running())
	assert.Equal(t, []string{"community-notifications"}, g.Active())

	require.Eventually(t, func() bool { return second.Load() >= 2 }, time.Second, time.Millisecond)
}

func TestGroupEvictsOldestPastLimit(t *testing.T) {
	g := NewGroup(2)
	defer g.StopAll()

	var n atomic.Int32
	a := g.Start("a", testConfig(time.Hour), countingFetch(&n), nil)
	g.Start("b", testConfig(time.Hour), countingFetch(&n), nil)
	g.Start("c", testConfig(time.Hour), countingFetch(&n), nil)

	assert.Equal(t, []string{"b", "c"}, g.Active())
	assert.False(t, g.IsActive("a"))
	assert.False(t, a.Running())
}

func TestGroupStopAndStopAll(t *testing.T) {
	g := NewGroup(DefaultMaxActive)

	var n atomic.Int32
	managers := make([]*Manager, 0, 3)
	for i := 0; i < 3; i++ {
		managers = append(managers, g.Start(fmt.Sprintf("key-%d", i), testConfig(time.Hour), countingFetch(&n), nil))
	}

	g.Stop("key-1")
	assert.Equal(t, []string{"key-0", "key-2"}, g.Active())
	assert.False(t, managers[1].Running())

	g.Stop("missing")
	g.StopAll()
	assert.Empty(t, g.Active())
	for _, m := range managers {
		assert.False(t, m.Running())
	}
}
