package rig

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFrame indicates a sensor datagram of the wrong size or with non-finite values.
	ErrInvalidFrame = errors.New("rig: invalid sensor frame")

	// ErrLinkTimeout indicates the rig did not answer within the receive timeout.
	ErrLinkTimeout = errors.New("rig: link timeout")

	// ErrParameterBounds indicates a controller parameter outside its valid range.
	ErrParameterBounds = errors.New("rig: parameter out of valid bounds")

	// ErrUnknownParameter indicates a parameter name the controller does not have.
	ErrUnknownParameter = errors.New("rig: unknown parameter")
)

// LoopError wraps an error with the loop iteration it happened in.
type LoopError struct {
	Iteration int
	Time      float64
	Wrapped   error
}

func (e *LoopError) Error() string {
	return fmt.Sprintf("iteration %d (t=%.3fs): %v", e.Iteration, e.Time, e.Wrapped)
}

func (e *LoopError) Unwrap() error {
	return e.Wrapped
}
