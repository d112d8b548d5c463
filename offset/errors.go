package offset

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration indicates invalid constructor parameters.
	ErrConfiguration = errors.New("offset: invalid configuration")

	// ErrInvalidRequest indicates a malformed allocation request (zero size).
	ErrInvalidRequest = errors.New("offset: invalid allocation request")

	// ErrOutOfSpace indicates that no free range is large enough for the request.
	// It is an expected outcome and is returned unwrapped.
	ErrOutOfSpace = errors.New("offset: no free range large enough")

	// ErrCapacityExceeded indicates that the node arena has no slot left for
	// the remainder of a split.
	ErrCapacityExceeded = errors.New("offset: node capacity exceeded")

	// ErrInvalidHandle indicates a stale, foreign or already freed allocation.
	ErrInvalidHandle = errors.New("offset: invalid allocation handle")

	// ErrCorruptChain indicates a cyclic or dangling link found while walking
	// a snapshot.
	ErrCorruptChain = errors.New("offset: corrupt node chain")
)

// corruptf panics with an internal invariant violation. These are bugs in the
// allocator, never caller errors.
func corruptf(format string, args ...any) {
	panic(fmt.Sprintf("offset: internal invariant violated: "+format, args...))
}
