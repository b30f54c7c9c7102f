package series

import (
	"errors"
	"fmt"

	"github.com/okian/wfmsim/internal/domain/model"
)

var (
	ErrEmptySeries          = errors.New("empty series")
	ErrBadInterval          = errors.New("invalid interval length")
	ErrMixedInterval        = errors.New("mixed interval length")
	ErrDuplicateTimestamp   = errors.New("duplicate timestamp")
	ErrNonMonotonic         = errors.New("timestamps not increasing")
	ErrGap                  = errors.New("gap in series")
	ErrNegativeCount        = errors.New("negative count")
	ErrNegativeValue        = errors.New("negative value")
	ErrFractionRange        = errors.New("fraction out of range")
	ErrIncompatibleInterval = errors.New("incompatible interval length")
)

// ValidationError explains why a series was rejected.
type ValidationError struct {
	Key    model.SeriesKey
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("series %s: %v: %s", e.Key, e.Err, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }
