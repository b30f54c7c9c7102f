package source

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds for input errors.
var (
	ErrMissingColumn    = errors.New("missing required column")
	ErrDuplicateColumn  = errors.New("duplicate column")
	ErrFieldCount       = errors.New("wrong number of fields")
	ErrMissingValue     = errors.New("missing required value")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrInvalidNumber    = errors.New("invalid number")
)

// ParseError reports a rejected input row.
type ParseError struct {
	Line   int
	Record []string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v (record: %s)", e.Line, e.Err, strings.Join(e.Record, ","))
}

func (e *ParseError) Unwrap() error { return e.Err }
