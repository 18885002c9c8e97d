package internalerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrNotTrained    = errors.New("model not trained")
	ErrUnsupported   = errors.New("operation not supported")
	ErrEmptySentence = errors.New("empty sentence")
	ErrNumeric       = errors.New("numeric invariant violated")
)

// NumericError reports a log-probability or divergence term that came out
// NaN or non-finite where a finite value is required.
type NumericError struct {
	Op     string  // operation that produced the value
	Detail string  // offending inputs / intermediate values
	Value  float64 // the offending value
}

func (e *NumericError) Error() string {
	return fmt.Sprintf("%s: %s is %v", e.Op, e.Detail, e.Value)
}

// Unwrap lets errors.Is match ErrNumeric.
func (e *NumericError) Unwrap() error { return ErrNumeric }
