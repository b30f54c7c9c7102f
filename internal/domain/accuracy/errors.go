package accuracy

import "errors"

var (
	// ErrNoHoldout means the series has no interval inside the holdout window.
	ErrNoHoldout = errors.New("no holdout data")
	// ErrNoTraining means every interval fell inside the holdout window.
	ErrNoTraining = errors.New("no training data before holdout")
	// ErrBadHoldout is returned for a non-positive holdout length.
	ErrBadHoldout = errors.New("holdout days must be positive")
)
