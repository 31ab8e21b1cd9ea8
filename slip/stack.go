package slip

// span is an in-flight region.
type span struct {
	tag   Tag
	start Tick
}

// activeStack holds the in-flight spans, innermost last.
type activeStack struct {
	spans []span
}

func newActiveStack(capacity int) *activeStack {
	return &activeStack{spans: make([]span, 0, capacity)}
}

func (s *activeStack) push(tag Tag, start Tick) {
	s.spans = append(s.spans, span{tag: tag, start: start})
}

// top returns the innermost span. ok is false if the stack is empty.
func (s *activeStack) top() (sp span, ok bool) {
	if len(s.spans) == 0 {
		return span{}, false
	}
	return s.spans[len(s.spans)-1], true
}

func (s *activeStack) pop() {
	s.spans = s.spans[:len(s.spans)-1]
}

func (s *activeStack) len() int {
	return len(s.spans)
}

func (s *activeStack) clear() {
	s.spans = s.spans[:0]
}
