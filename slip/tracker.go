package slip

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

const defaultStackCapacity = 100

// # Tracker
//
// Tracker owns the tag registry, the active stack, the flat records and the
// call tree. It starts disabled. Tags are registered while disabled; spans
// are recorded only while enabled.
//
// Its zero value has no meaning and should not be used. A Tracker should
// always be instantiated using [New] or a [Builder].
type Tracker struct {
	clock Clock
	sink  Sink

	registry *registry
	stack    *activeStack
	flat     []Stats
	tree     *callTree

	enabled   bool
	closed    bool
	discard   bool // discard the first window after enable
	coldStart bool // the current window is the first since enable
}

// New returns a disabled tracker using the default [Builder] settings.
func New() *Tracker {
	return NewBuilder().New()
}

// # Builder
//
// Builder implements a builder pattern to configure new trackers.
// A Builder should always be instantiated using [NewBuilder].
type Builder struct {
	clock         Clock
	sink          Sink
	discard       bool
	stackCapacity int
}

// NewBuilder returns a [Builder] which will generate trackers that:
//   - use [DefaultClock]
//   - report to standard output
//   - discard the first window after every enable
func NewBuilder() *Builder {
	return &Builder{
		discard:       true,
		stackCapacity: defaultStackCapacity,
	}
}

// WithClock modifies and returns b, setting the clock used to time spans.
func (b *Builder) WithClock(c Clock) *Builder {
	b.clock = c
	return b
}

// WithSink modifies and returns b, setting the sink [Tracker.Report] writes to.
func (b *Builder) WithSink(s Sink) *Builder {
	b.sink = s
	return b
}

// WithColdStartDiscard modifies and returns b. When discard is false the
// first checkpoint after enable folds its window like any other.
func (b *Builder) WithColdStartDiscard(discard bool) *Builder {
	b.discard = discard
	return b
}

// WithStackCapacity modifies and returns b, pre-sizing the active stack.
func (b *Builder) WithStackCapacity(n int) *Builder {
	if n < 0 {
		logger.Error("stack capacity must be >= 0, using default",
			slog.Int("n", n))
		n = defaultStackCapacity
	}
	b.stackCapacity = n
	return b
}

// New generates a disabled tracker based on b's state.
func (b *Builder) New() *Tracker {
	t := &Tracker{
		clock:    b.clock,
		sink:     b.sink,
		registry: newRegistry(),
		stack:    newActiveStack(b.stackCapacity),
		tree:     newCallTree(),
		discard:  b.discard,
	}
	if t.clock == nil {
		t.clock = DefaultClock()
	}
	if t.sink == nil {
		t.sink = StdoutSink()
	}
	return t
}

// RegisterTag returns the tag for name, registering it if needed.
// Registering an already known name returns the existing tag.
// It fails with [ErrInvalidState] while the tracker is enabled.
func (t *Tracker) RegisterTag(name string) (Tag, error) {
	if t.closed {
		return 0, fail(errors.Wrapf(ErrClosed, "register tag %q", name))
	}
	if t.enabled {
		return 0, fail(errors.Wrapf(ErrInvalidState, "register tag %q while enabled", name))
	}

	tag, _ := t.registry.lookupOrCreate(name)
	return tag, nil
}

// MustRegisterTag is like [Tracker.RegisterTag] but panics on error.
func (t *Tracker) MustRegisterTag(name string) Tag {
	tag, err := t.RegisterTag(name)
	if err != nil {
		panic(err)
	}
	return tag
}

// Declare registers name on t and returns its tag. It is meant for binding
// package-level variables at startup:
//
//	var TagRender = slip.Declare(tracker, "Render")
//
// It panics if t is enabled.
func Declare(t *Tracker, name string) Tag {
	return t.MustRegisterTag(name)
}

// TagName returns the name tag was registered with.
func (t *Tracker) TagName(tag Tag) (string, bool) {
	return t.registry.name(tag)
}

// Tags returns every registered tag in registration order.
func (t *Tracker) Tags() []Tag {
	tags := make([]Tag, t.registry.len())
	for i := range tags {
		tags[i] = Tag(i)
	}
	return tags
}

// NumTags returns the number of registered tags.
func (t *Tracker) NumTags() int {
	return t.registry.len()
}

// Enabled reports whether spans are being recorded.
func (t *Tracker) Enabled() bool {
	return t.enabled
}

// Depth returns the number of in-flight spans.
func (t *Tracker) Depth() int {
	return t.stack.len()
}

// Enable opens a collection window. Storage for the flat records is sized to
// the tags registered so far; records of tags known from an earlier enable
// keep their lifetime totals.
// It fails with [ErrInvalidState] if the tracker is already enabled.
func (t *Tracker) Enable() error {
	if t.closed {
		return fail(errors.Wrap(ErrClosed, "enable"))
	}
	if t.enabled {
		return fail(errors.Wrap(ErrInvalidState, "enable while already enabled"))
	}

	for len(t.flat) < t.registry.len() {
		t.flat = append(t.flat, newStats())
	}
	for i := range t.flat {
		t.flat[i].resetWindow()
	}
	t.tree.checkpoint(t.clock, false)
	t.stack.clear()
	t.tree.unwind()

	t.enabled = true
	t.coldStart = t.discard

	logger.Debug("tracker enabled", slog.Int("tags", len(t.flat)))
	return nil
}

// Disable closes the collection window and, if report is true, calls
// [Tracker.Report]. Registered tags and collected statistics are kept: a
// later [Tracker.Enable] keeps accumulating lifetime totals.
func (t *Tracker) Disable(report bool) error {
	if t.closed {
		return fail(errors.Wrap(ErrClosed, "disable"))
	}

	if n := t.stack.len(); n > 0 && t.enabled {
		logger.Warn("disabling with spans still active", slog.Int("active", n))
	}
	t.enabled = false
	logger.Debug("tracker disabled")

	if report {
		t.Report()
	}
	return nil
}

// Begin marks the start of a span for tag. It is a no-op while disabled.
func (t *Tracker) Begin(tag Tag) {
	if !t.enabled {
		return
	}
	if !t.registry.valid(tag) {
		logger.Error("begin with unknown tag ignored", slog.Int("id", int(tag)))
		return
	}

	t.stack.push(tag, t.clock.Now())
	t.tree.push(tag)
}

// End marks the end of the innermost span, which must be for tag. It is a
// no-op while disabled.
// It fails with [ErrStackDiscipline] if no span is active or the innermost
// span is for another tag; the tracker state is then left unchanged.
func (t *Tracker) End(tag Tag) error {
	if !t.enabled {
		return nil
	}
	now := t.clock.Now()

	top, ok := t.stack.top()
	if !ok {
		return fail(errors.Wrapf(ErrStackDiscipline,
			"end(%s) with no active span", t.describe(tag)))
	}
	if top.tag != tag {
		return fail(errors.Wrapf(ErrStackDiscipline,
			"end(%s) while %s is active", t.describe(tag), t.describe(top.tag)))
	}

	t.stack.pop()
	node := t.tree.pop()

	elapsed := now - top.start
	us := t.clock.Microseconds(elapsed)

	t.flat[tag].record(elapsed, us)
	node.stats.record(elapsed, us)

	return nil
}

// Checkpoint folds the current window of every flat record and tree node
// into its lifetime totals and opens a new window. The first checkpoint
// after enable discards its window instead. It is a no-op while disabled.
func (t *Tracker) Checkpoint() {
	if !t.enabled {
		return
	}

	fold := !t.coldStart
	t.coldStart = false

	for i := range t.flat {
		if fold {
			t.flat[i].fold(t.clock)
		}
		t.flat[i].resetWindow()
	}
	t.tree.checkpoint(t.clock, fold)

	logger.Debug("checkpoint", slog.Bool("folded", fold))
}

// Reset clears every flat record and the call tree. Registered tags are
// kept. It fails with [ErrInvalidState] while enabled.
func (t *Tracker) Reset() error {
	if t.closed {
		return fail(errors.Wrap(ErrClosed, "reset"))
	}
	if t.enabled {
		return fail(errors.Wrap(ErrInvalidState, "reset while enabled"))
	}

	for i := range t.flat {
		t.flat[i] = newStats()
	}
	t.tree.reset()
	t.stack.clear()

	logger.Debug("tracker reset")
	return nil
}

// Close disables the tracker without reporting and releases its
// statistics. It is safe to call on a tracker that was never enabled and
// calling it more than once has no further effect.
func (t *Tracker) Close() error {
	if t.closed {
		return nil
	}

	t.enabled = false
	t.closed = true
	t.flat = nil
	t.tree.reset()
	t.stack.clear()

	logger.Debug("tracker closed")
	return nil
}

// Flat returns the flat record of tag, summed across all call positions.
func (t *Tracker) Flat(tag Tag) Stats {
	if tag < 0 || int(tag) >= len(t.flat) {
		return newStats()
	}
	return t.flat[tag]
}

// Node returns the record of the call tree node reached from the root by
// following path.
func (t *Tracker) Node(path ...Tag) (Stats, bool) {
	if len(path) == 0 {
		return Stats{}, false
	}
	idx, ok := t.tree.find(path)
	if !ok {
		return Stats{}, false
	}
	return t.tree.nodes[idx].stats, true
}

// NodeInfo describes a call tree node visited by [Tracker.Walk].
type NodeInfo struct {
	Tag   Tag
	Name  string
	Depth int   // 1 for children of the root
	Path  []Tag // tags from the root down to this node
	Stats Stats
}

// Walk visits every call tree node in pre-order, children ordered by tag.
// It stops as soon as fn returns false.
func (t *Tracker) Walk(fn func(NodeInfo) bool) {
	t.tree.walk(func(idx int) bool {
		n := &t.tree.nodes[idx]
		name, _ := t.registry.name(n.tag)
		return fn(NodeInfo{
			Tag:   n.tag,
			Name:  name,
			Depth: n.depth,
			Path:  t.tree.path(idx),
			Stats: n.stats,
		})
	})
}

func (t *Tracker) describe(tag Tag) string {
	if name, ok := t.registry.name(tag); ok {
		return name
	}
	return fmt.Sprintf("#%d", tag)
}
