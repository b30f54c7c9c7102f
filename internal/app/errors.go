package service

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrUnknownChannel = errors.New("channel not in channel table")
	ErrNoChannels     = errors.New("no channel table configured")
	ErrNoRecords      = errors.New("no input records")
	ErrNoSeries       = errors.New("no usable series")
	ErrPersist        = errors.New("persist report")
)
