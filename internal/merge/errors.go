package merge

import (
	"errors"
	"fmt"
)

// Contract violations. A batch that trips one of these is rejected as a whole
// and the index is left untouched.
var (
	// ErrUnknownSource indicates a notification for a source that was never
	// registered with the index.
	ErrUnknownSource = errors.New("source not registered")

	// ErrInvalidRange indicates a negative start or count.
	ErrInvalidRange = errors.New("invalid range")

	// ErrTooManySources indicates that all handles of an index are taken.
	ErrTooManySources = errors.New("too many sources")

	// ErrInconsistentAppend indicates that a source announced lines which
	// overlap lines it already delivered. The source must be reset.
	ErrInconsistentAppend = errors.New("inconsistent append")
)

// InconsistentAppendError names the source that broke the append-only
// contract and the line it should have continued from.
type InconsistentAppendError struct {
	Source   SourceHandle
	From     int
	Expected int
}

func (e *InconsistentAppendError) Error() string {
	return fmt.Sprintf("inconsistent append: source %d appended from line %d, expected %d or later",
		e.Source, e.From, e.Expected)
}

func (e *InconsistentAppendError) Unwrap() error {
	return ErrInconsistentAppend
}
