package forecast

import "errors"

var (
	// ErrNoHistory is returned when fitting an empty series.
	ErrNoHistory = errors.New("no history to fit")
	// ErrBadInterval is returned when the interval does not divide a day.
	ErrBadInterval = errors.New("interval length does not divide a day")
)
