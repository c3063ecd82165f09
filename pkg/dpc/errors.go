package dpc

import (
	"errors"
	"fmt"
)

// ErrNoPeak is returned when the radial intensity profile of the mean
// pattern has no usable edge to calibrate against.
var ErrNoPeak = errors.New("no peak found in radial gradient profile")

// ErrInvalidParameter is wrapped by every parameter validation failure.
var ErrInvalidParameter = errors.New("invalid parameter")

// DegenerateInputError reports data that carries no usable signal for the
// named operation, such as a flat pattern or a zero-intensity probe position.
type DegenerateInputError struct {
	Op     string
	Reason string
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("%s: degenerate input: %s", e.Op, e.Reason)
}

func degenerate(op, format string, args ...any) error {
	return &DegenerateInputError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

func invalidParam(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, args...))
}
