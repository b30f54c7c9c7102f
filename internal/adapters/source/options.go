package source

import (
	"time"

	"github.com/okian/wfmsim/pkg/logger"
)

type options struct {
	logger      logger.Logger
	location    *time.Location
	skipInvalid bool
}

// Option configures parsing.
type Option func(*options)

// WithLogger sets the parser logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithLocation sets the zone for timestamps without an offset. Default UTC.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.location = loc
		}
	}
}

// WithSkipInvalid collects malformed rows in Result.Rejected instead of
// failing on the first one.
func WithSkipInvalid(skip bool) Option {
	return func(o *options) {
		o.skipInvalid = skip
	}
}
