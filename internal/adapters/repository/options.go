package repository

import (
	"time"

	"github.com/okian/wfmsim/pkg/logger"
)

type options struct {
	logger          logger.Logger
	maxOpenConns    int
	connMaxLifetime time.Duration
	batchSize       int
}

func defaultOptions() options {
	return options{
		logger:          logger.Nop(),
		maxOpenConns:    10,
		connMaxLifetime: 30 * time.Minute,
		batchSize:       500,
	}
}

// Option applies a configuration option to a store.
type Option func(*options)

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMaxOpenConns bounds the SQL connection pool.
func WithMaxOpenConns(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxOpenConns = n
		}
	}
}

// WithConnMaxLifetime sets how long a pooled SQL connection may be reused.
func WithConnMaxLifetime(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.connMaxLifetime = d
		}
	}
}

// WithBatchSize sets how many rows go into one SQL transaction.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
