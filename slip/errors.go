package slip

import "github.com/cockroachdb/errors"

var (
	// ErrInvalidState is returned when an operation is not allowed in the
	// current tracker state, e.g. registering a tag while enabled or enabling
	// twice.
	ErrInvalidState = errors.New("invalid tracker state")

	// ErrStackDiscipline is returned when End observes a different tag on
	// top of the active stack, or the stack is empty.
	ErrStackDiscipline = errors.New("stack discipline violated")

	// ErrClosed is returned by operations on a tracker after Close.
	ErrClosed = errors.New("tracker closed")
)

// fail logs err and returns it unchanged.
func fail(err error) error {
	logger.Error(err.Error())
	return err
}
