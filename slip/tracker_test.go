package slip

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/clockz"
)

// fakeClock is the part of the clockz fake clock the tests drive.
type fakeClock interface {
	clockz.Clock
	Advance(d time.Duration)
}

// newTestTracker returns a tracker on a fake clock ticking in microseconds
// and the slice its report lines are collected into.
func newTestTracker(t *testing.T) (*Tracker, fakeClock, *[]string) {
	t.Helper()

	var fake fakeClock = clockz.NewFakeClock()
	lines := &[]string{}
	tr := NewBuilder().
		WithClock(NewClock(fake, time.Microsecond)).
		WithSink(SinkFunc(func(line string) { *lines = append(*lines, line) })).
		New()

	return tr, fake, lines
}

func advance(c fakeClock, ticks int) {
	c.Advance(time.Duration(ticks) * time.Microsecond)
}

func TestRegisterTagIsIdempotent(t *testing.T) {
	tr, _, _ := newTestTracker(t)

	first, err := tr.RegisterTag("X")
	require.NoError(t, err)
	second, err := tr.RegisterTag("X")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, tr.NumTags())

	require.NoError(t, tr.Enable())
	assert.Len(t, tr.flat, 1)
}

func TestRegisterTagAssignsDenseIDs(t *testing.T) {
	tr, _, _ := newTestTracker(t)

	for i, name := range []string{"a", "b", "c"} {
		tag, err := tr.RegisterTag(name)
		require.NoError(t, err)
		assert.Equal(t, Tag(i), tag)

		got, ok := tr.TagName(tag)
		require.True(t, ok)
		assert.Equal(t, name, got)
	}

	_, ok := tr.TagName(3)
	assert.False(t, ok)
}

func TestRegisterTagWhileEnabled(t *testing.T) {
	tr, _, _ := newTestTracker(t)
	require.NoError(t, tr.Enable())

	_, err := tr.RegisterTag("late")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidState))
	assert.Equal(t, 0, tr.NumTags())

	assert.Panics(t, func() { Declare(tr, "late") })
}

func TestEnableTwice(t *testing.T) {
	tr, _, _ := newTestTracker(t)
	require.NoError(t, tr.Enable())

	err := tr.Enable()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidState))
	assert.True(t, tr.Enabled())
}

func TestBalancedSpansLeaveStackEmpty(t *testing.T) {
	tr, clock, _ := newTestTracker(t)
	a := tr.MustRegisterTag("a")
	b := tr.MustRegisterTag("b")
	require.NoError(t, tr.Enable())

	tr.Begin(a)
	tr.Begin(b)
	assert.Equal(t, 2, tr.Depth())
	advance(clock, 10)
	require.NoError(t, tr.End(b))
	tr.Begin(b)
	require.NoError(t, tr.End(b))
	require.NoError(t, tr.End(a))

	assert.Equal(t, 0, tr.Depth())
	assert.Equal(t, []int{rootIndex}, tr.tree.cursor)
}

func TestEndWithWrongTag(t *testing.T) {
	tr, _, _ := newTestTracker(t)
	a := tr.MustRegisterTag("a")
	b := tr.MustRegisterTag("b")
	require.NoError(t, tr.Enable())

	tr.Begin(a)
	err := tr.End(b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStackDiscipline))
	assert.Contains(t, err.Error(), "end(b) while a is active")

	assert.Equal(t, 1, tr.Depth())
	assert.Zero(t, tr.Flat(b).Window.Count)

	require.NoError(t, tr.End(a))
}

func TestEndWithEmptyStack(t *testing.T) {
	tr, _, _ := newTestTracker(t)
	a := tr.MustRegisterTag("a")
	require.NoError(t, tr.Enable())

	err := tr.End(a)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStackDiscipline))
	assert.Zero(t, tr.Flat(a).Window.Count)
}

func TestBeginUnknownTag(t *testing.T) {
	tr, _, _ := newTestTracker(t)
	tr.MustRegisterTag("a")
	require.NoError(t, tr.Enable())

	tr.Begin(7)
	assert.Equal(t, 0, tr.Depth())

	err := tr.End(7)
	assert.True(t, errors.Is(err, ErrStackDiscipline))
	assert.Contains(t, err.Error(), "#7")
}

func TestColdStartWindowIsDiscarded(t *testing.T) {
	tr, clock, _ := newTestTracker(t)
	a := tr.MustRegisterTag("a")
	require.NoError(t, tr.Enable())

	tr.Begin(a)
	advance(clock, 250)
	require.NoError(t, tr.End(a))

	st := tr.Flat(a)
	assert.Equal(t, uint64(1), st.Window.Count)
	assert.Equal(t, Tick(250), st.Window.Elapsed)
	node, ok := tr.Node(a)
	require.True(t, ok)
	assert.Equal(t, uint64(1), node.Window.Count)

	tr.Checkpoint()

	st = tr.Flat(a)
	assert.Zero(t, st.Lifetime.Count)
	assert.Zero(t, st.Window.Count)
	node, _ = tr.Node(a)
	assert.Zero(t, node.Lifetime.Count)

	tr.Begin(a)
	advance(clock, 100)
	require.NoError(t, tr.End(a))
	tr.Checkpoint()

	st = tr.Flat(a)
	assert.Equal(t, uint64(1), st.Lifetime.Count)
	assert.Equal(t, 100.0, st.Lifetime.Total)
}

func TestColdStartDiscardCanBeTurnedOff(t *testing.T) {
	tr := NewBuilder().
		WithClock(NewClock(clockz.NewFakeClock(), time.Microsecond)).
		WithColdStartDiscard(false).
		New()
	a := tr.MustRegisterTag("a")
	require.NoError(t, tr.Enable())

	tr.Begin(a)
	require.NoError(t, tr.End(a))
	tr.Checkpoint()

	assert.Equal(t, uint64(1), tr.Flat(a).Lifetime.Count)
}

func TestNestingSeparation(t *testing.T) {
	tr, clock, _ := newTestTracker(t)
	p1 := tr.MustRegisterTag("P1")
	p2 := tr.MustRegisterTag("P2")
	a := tr.MustRegisterTag("A")
	require.NoError(t, tr.Enable())
	tr.Checkpoint()

	tr.Begin(p1)
	tr.Begin(a)
	advance(clock, 10)
	require.NoError(t, tr.End(a))
	require.NoError(t, tr.End(p1))

	for i := 0; i < 2; i++ {
		tr.Begin(p2)
		tr.Begin(a)
		advance(clock, 30)
		require.NoError(t, tr.End(a))
		require.NoError(t, tr.End(p2))
	}
	tr.Checkpoint()

	under1, ok := tr.Node(p1, a)
	require.True(t, ok)
	under2, ok := tr.Node(p2, a)
	require.True(t, ok)

	assert.Equal(t, uint64(1), under1.Lifetime.Count)
	assert.Equal(t, 10.0, under1.Lifetime.Total)
	assert.Equal(t, uint64(2), under2.Lifetime.Count)
	assert.Equal(t, 60.0, under2.Lifetime.Total)

	flat := tr.Flat(a)
	assert.Equal(t, uint64(3), flat.Lifetime.Count)
	assert.Equal(t, 70.0, flat.Lifetime.Total)
	assert.Equal(t, 10.0, flat.Lifetime.Min)
	assert.Equal(t, 30.0, flat.Lifetime.Max)

	_, ok = tr.Node(a)
	assert.False(t, ok)
}

func TestFlatTotalsMatchTreeTotals(t *testing.T) {
	tr, clock, _ := newTestTracker(t)
	frame := tr.MustRegisterTag("frame")
	update := tr.MustRegisterTag("update")
	render := tr.MustRegisterTag("render")
	physics := tr.MustRegisterTag("physics")
	require.NoError(t, tr.Enable())

	for i := 0; i < 20; i++ {
		tr.Begin(frame)
		tr.Do(update, func() {
			advance(clock, 5+i)
			tr.Do(physics, func() { advance(clock, 3*i+1) })
		})
		tr.Do(render, func() {
			tr.Do(physics, func() { advance(clock, 2) })
			advance(clock, 7)
		})
		if i%3 == 0 {
			tr.Do(physics, func() { advance(clock, i) })
		}
		require.NoError(t, tr.End(frame))

		if i%5 == 4 {
			tr.Checkpoint()
		}
	}

	sums := make(map[Tag]float64)
	counts := make(map[Tag]uint64)
	tr.Walk(func(n NodeInfo) bool {
		sums[n.Tag] += n.Stats.Lifetime.Total
		counts[n.Tag] += n.Stats.Lifetime.Count
		return true
	})

	for _, tag := range []Tag{frame, update, render, physics} {
		assert.InDelta(t, tr.Flat(tag).Lifetime.Total, sums[tag], 1e-9, "tag %d", tag)
		assert.Equal(t, tr.Flat(tag).Lifetime.Count, counts[tag], "tag %d", tag)
	}
	assert.Equal(t, uint64(15), tr.Flat(frame).Lifetime.Count)
}

func TestDisabledCallsAreNoOps(t *testing.T) {
	tr, clock, _ := newTestTracker(t)
	a := tr.MustRegisterTag("a")

	tr.Begin(a)
	advance(clock, 10)
	assert.NoError(t, tr.End(a))
	assert.NoError(t, tr.End(a))
	assert.NotPanics(t, tr.Checkpoint)

	assert.Equal(t, 0, tr.Depth())
	assert.Zero(t, tr.Flat(a).Window.Count)
	_, ok := tr.Node(a)
	assert.False(t, ok)

	require.NoError(t, tr.Enable())
	tr.Checkpoint()
	tr.Begin(a)
	require.NoError(t, tr.End(a))
	tr.Checkpoint()
	require.NoError(t, tr.Disable(false))

	before := tr.Flat(a)
	tr.Begin(a)
	assert.NoError(t, tr.End(a))
	tr.Checkpoint()
	assert.Equal(t, before, tr.Flat(a))
}

func TestEndToEndScenario(t *testing.T) {
	tr, clock, _ := newTestTracker(t)
	outer := Declare(tr, "Outer")
	inner := Declare(tr, "Inner")
	require.NoError(t, tr.Enable())

	run := func() {
		tr.Begin(outer)
		advance(clock, 100000)
		tr.Begin(inner)
		advance(clock, 10000)
		require.NoError(t, tr.End(inner))
		advance(clock, 5000)
		require.NoError(t, tr.End(outer))
	}

	run()
	tr.Checkpoint()
	run()
	tr.Checkpoint()

	assert.Equal(t, uint64(1), tr.Flat(inner).Lifetime.Count)
	assert.Equal(t, uint64(1), tr.Flat(outer).Lifetime.Count)
	assert.Equal(t, 115000.0, tr.Flat(outer).Lifetime.Total)
	assert.Equal(t, 10000.0, tr.Flat(inner).Lifetime.Total)

	node, ok := tr.Node(outer, inner)
	require.True(t, ok)
	assert.Equal(t, uint64(1), node.Lifetime.Count)
	assert.Equal(t, 10000.0, node.Lifetime.Max)
}

func TestReenableAccumulatesLifetime(t *testing.T) {
	tr, clock, _ := newTestTracker(t)
	a := tr.MustRegisterTag("a")

	for session := 0; session < 2; session++ {
		require.NoError(t, tr.Enable())
		tr.Checkpoint()
		tr.Begin(a)
		advance(clock, 40)
		require.NoError(t, tr.End(a))
		tr.Checkpoint()
		require.NoError(t, tr.Disable(false))
	}

	assert.Equal(t, uint64(2), tr.Flat(a).Lifetime.Count)
	assert.Equal(t, 80.0, tr.Flat(a).Lifetime.Total)

	// Tags registered between sessions get a slot on the next enable.
	b := tr.MustRegisterTag("b")
	require.NoError(t, tr.Enable())
	assert.Len(t, tr.flat, 2)
	assert.Equal(t, uint64(2), tr.Flat(a).Lifetime.Count)
	assert.Zero(t, tr.Flat(b).Lifetime.Count)
}

func TestEnableDropsUnfinishedSpans(t *testing.T) {
	tr, _, _ := newTestTracker(t)
	a := tr.MustRegisterTag("a")
	require.NoError(t, tr.Enable())

	tr.Begin(a)
	require.NoError(t, tr.Disable(false))
	require.NoError(t, tr.Enable())

	assert.Equal(t, 0, tr.Depth())
	assert.True(t, errors.Is(tr.End(a), ErrStackDiscipline))
}

func TestReset(t *testing.T) {
	tr, clock, _ := newTestTracker(t)
	a := tr.MustRegisterTag("a")
	require.NoError(t, tr.Enable())
	tr.Checkpoint()
	tr.Begin(a)
	advance(clock, 40)
	require.NoError(t, tr.End(a))
	tr.Checkpoint()

	err := tr.Reset()
	assert.True(t, errors.Is(err, ErrInvalidState))

	require.NoError(t, tr.Disable(false))
	require.NoError(t, tr.Reset())

	assert.Zero(t, tr.Flat(a).Lifetime.Count)
	_, ok := tr.Node(a)
	assert.False(t, ok)
	assert.Equal(t, 1, tr.NumTags())
}

func TestClose(t *testing.T) {
	t.Run("never enabled", func(t *testing.T) {
		tr, _, lines := newTestTracker(t)
		require.NoError(t, tr.Close())
		require.NoError(t, tr.Close())
		assert.Empty(t, *lines)
	})

	t.Run("enabled", func(t *testing.T) {
		tr, _, lines := newTestTracker(t)
		a := tr.MustRegisterTag("a")
		require.NoError(t, tr.Enable())
		tr.Begin(a)

		require.NoError(t, tr.Close())
		assert.False(t, tr.Enabled())
		assert.Equal(t, 0, tr.Depth())
		assert.Empty(t, *lines)

		assert.True(t, errors.Is(tr.Enable(), ErrClosed))
		_, err := tr.RegisterTag("b")
		assert.True(t, errors.Is(err, ErrClosed))
	})
}
