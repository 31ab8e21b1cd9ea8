package slip

// # Scope
//
// Represents a running span bound to a tag.
// Its zero value has no meaning. A Scope should always be instantiated by
// calling [Tracker.Scope].
//
//	defer tracker.Scope(TagRender).End()
type Scope struct {
	tracker *Tracker
	tag     Tag
	ended   bool
}

// Scope begins a span for tag and returns a Scope that ends it.
func (t *Tracker) Scope(tag Tag) *Scope {
	t.Begin(tag)
	return &Scope{tracker: t, tag: tag}
}

// End ends the span. Calls after the first have no effect.
// It panics with an error matching [ErrStackDiscipline] if the span is not
// the innermost active one.
func (s *Scope) End() {
	if s.ended {
		return
	}
	s.ended = true

	if err := s.tracker.End(s.tag); err != nil {
		panic(err)
	}
}

// Do runs fn inside a span for tag. The span is ended even if fn panics, in
// which case the panic is propagated once the span is closed.
func (t *Tracker) Do(tag Tag, fn func()) {
	s := t.Scope(tag)
	defer s.End()

	fn()
}
