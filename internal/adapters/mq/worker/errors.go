package worker

import "errors"

// ErrProcessorPanic wraps a panic recovered while processing a unit.
var ErrProcessorPanic = errors.New("processor panic")
