package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrUnknownDriver = errors.New("unknown output driver")
	ErrInvalidDSN    = errors.New("invalid dsn")
	ErrClosed        = errors.New("store closed")
	ErrUnknownTable  = errors.New("unknown table")
)
