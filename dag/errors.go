package dag

import (
	"errors"
	"fmt"

	"xdao.co/ipld/ipld"
)

var (
	// ErrNotIndexable is returned when a path segment is applied to a scalar.
	ErrNotIndexable = errors.New("dag: value cannot be indexed")
	// ErrInvalidIndex is returned when a list segment is not a non-negative decimal integer.
	ErrInvalidIndex = errors.New("dag: invalid list index")
	// ErrIndexOutOfRange is returned when a list segment is past the end of the list.
	ErrIndexOutOfRange = errors.New("dag: list index out of range")
	// ErrTooManyBlocks is returned when a walk would load more blocks than WithMaxBlocks allows.
	ErrTooManyBlocks = errors.New("dag: block limit exceeded")
)

// TraversalError reports a path segment that could not be applied.
//
// Segment is the offending segment and Position its zero-based index in the
// path. Kind is the kind of the value the segment was applied to, and Value
// a short rendering of it. Use errors.Is on Err to branch.
type TraversalError struct {
	Segment  string
	Position int
	Kind     ipld.Kind
	Value    string
	Err      error
}

func (e *TraversalError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%v: segment %d %q on %s %s", e.Err, e.Position, e.Segment, e.Kind, e.Value)
}

func (e *TraversalError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// maxRendered bounds Value in TraversalError.
const maxRendered = 64

func traversalError(seg string, pos int, v ipld.Value, err error) error {
	s := v.String()
	if len(s) > maxRendered {
		s = s[:maxRendered] + "..."
	}
	return &TraversalError{Segment: seg, Position: pos, Kind: v.Kind(), Value: s, Err: err}
}
