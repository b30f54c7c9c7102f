package queue

import "errors"

// ErrClosed is returned when enqueuing into a closed queue.
var ErrClosed = errors.New("queue closed")
