package slip

import "golang.org/x/exp/slog"

// Tag identifies a registered region. Tags are dense and assigned in
// registration order starting at 0.
type Tag int

// rootTag marks the call tree root, which carries no timing.
const rootTag Tag = -1

// registry maps tag names to tags and back. Entries are never removed.
type registry struct {
	tags  map[string]Tag
	names []string
}

func newRegistry() *registry {
	return &registry{tags: make(map[string]Tag)}
}

// lookupOrCreate returns the tag registered for name, creating it if needed.
// The boolean is false when the tag already existed.
func (r *registry) lookupOrCreate(name string) (Tag, bool) {
	if tag, ok := r.tags[name]; ok {
		logger.Debug("tag already registered",
			slog.String("tag", name), slog.Int("id", int(tag)))
		return tag, false
	}

	tag := Tag(len(r.names))
	r.tags[name] = tag
	r.names = append(r.names, name)

	return tag, true
}

func (r *registry) name(tag Tag) (string, bool) {
	if !r.valid(tag) {
		return "", false
	}
	return r.names[tag], true
}

func (r *registry) valid(tag Tag) bool {
	return tag >= 0 && int(tag) < len(r.names)
}

func (r *registry) len() int {
	return len(r.names)
}
