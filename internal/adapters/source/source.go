// Package source reads interval history from CSV.
package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/okian/wfmsim/internal/domain/model"
	"github.com/okian/wfmsim/pkg/logger"
	"github.com/okian/wfmsim/pkg/metrics"
)

// Column names recognised in the header row.
const (
	ColTimestamp       = "timestamp"
	ColIntervalMinutes = "interval_minutes"
	ColChannel         = "channel"
	ColQueue           = "queue"
	ColOffered         = "offered"
	ColHandled         = "handled"
	ColAbandoned       = "abandoned"
	ColAHTSeconds      = "aht_seconds"
	ColASASeconds      = "asa_seconds"
	ColServiceLevel    = "service_level"
	ColAgentsScheduled = "agents_scheduled"
	ColAgentsAvailable = "agents_available"
	ColShrinkageRate   = "shrinkage_rate"
	ColCostPerHour     = "cost_per_hour"
)

var requiredColumns = []string{
	ColTimestamp, ColIntervalMinutes, ColChannel, ColQueue, ColOffered, ColAHTSeconds,
}

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"}

// Result holds parsed records and, when skipping, the rejected rows.
type Result struct {
	Records  []model.IntervalRecord
	Rejected []*ParseError
}

// ReadFile parses the CSV at path.
func ReadFile(ctx context.Context, path string, opts ...Option) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	return Parse(ctx, f, opts...)
}

// Parse reads a header row followed by one interval record per row. Columns
// are matched by header name; unknown columns are ignored and optional ones
// default to zero. Rows are rejected, never repaired.
func Parse(ctx context.Context, r io.Reader, opts ...Option) (Result, error) {
	o := options{logger: logger.Nop(), location: time.UTC}
	for _, opt := range opts {
		opt(&o)
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Result{}, fmt.Errorf("%w: empty input", ErrMissingColumn)
	}
	if err != nil {
		return Result{}, fmt.Errorf("read header: %w", err)
	}
	cols, err := indexHeader(header)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("read input: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if blank(record) {
			continue
		}
		rec, perr := cols.parse(record, o.location)
		if perr != nil {
			perr.Line = line
			metrics.RecordInputInvalid(reason(perr.Err))
			if !o.skipInvalid {
				return Result{}, perr
			}
			o.logger.Warn(ctx, "input row rejected", logger.Int("line", line), logger.Error(perr.Err))
			res.Rejected = append(res.Rejected, perr)
			continue
		}
		res.Records = append(res.Records, rec)
	}
	metrics.RecordInputRecords(len(res.Records))
	o.logger.Info(ctx, "input parsed",
		logger.Int("records", len(res.Records)),
		logger.Int("rejected", len(res.Rejected)))
	return res, nil
}

type columns map[string]int

func indexHeader(header []string) (columns, error) {
	cols := make(columns, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
		}
		cols[name] = i
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, c)
		}
	}
	return cols, nil
}

func (c columns) parse(record []string, loc *time.Location) (model.IntervalRecord, *ParseError) {
	fail := func(err error) (model.IntervalRecord, *ParseError) {
		return model.IntervalRecord{}, &ParseError{Record: record, Err: err}
	}
	var (
		rec model.IntervalRecord
		err error
	)
	if len(record) < len(c) {
		return fail(fmt.Errorf("%w: got %d, want %d", ErrFieldCount, len(record), len(c)))
	}

	field := func(name string) string {
		i, ok := c[name]
		if !ok {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	required := func(name string) (string, error) {
		v := field(name)
		if v == "" {
			return "", fmt.Errorf("%w: %s", ErrMissingValue, name)
		}
		return v, nil
	}

	ts, err := required(ColTimestamp)
	if err != nil {
		return fail(err)
	}
	if rec.Timestamp, err = parseTime(ts, loc); err != nil {
		return fail(err)
	}
	if rec.Channel, err = required(ColChannel); err != nil {
		return fail(err)
	}
	if rec.Queue, err = required(ColQueue); err != nil {
		return fail(err)
	}

	ints := []struct {
		name     string
		dst      *int
		required bool
	}{
		{ColIntervalMinutes, &rec.IntervalMinutes, true},
		{ColOffered, &rec.Offered, true},
		{ColHandled, &rec.Handled, false},
		{ColAbandoned, &rec.Abandoned, false},
		{ColAgentsScheduled, &rec.AgentsScheduled, false},
		{ColAgentsAvailable, &rec.AgentsAvailable, false},
	}
	for _, f := range ints {
		v := field(f.name)
		if v == "" {
			if f.required {
				return fail(fmt.Errorf("%w: %s", ErrMissingValue, f.name))
			}
			continue
		}
		n, perr := parseInt(v)
		if perr != nil {
			return fail(fmt.Errorf("%w: %s=%q", ErrInvalidNumber, f.name, v))
		}
		*f.dst = n
	}

	floats := []struct {
		name     string
		dst      *float64
		required bool
	}{
		{ColAHTSeconds, &rec.AHTSeconds, true},
		{ColASASeconds, &rec.ASASeconds, false},
		{ColServiceLevel, &rec.ServiceLevel, false},
		{ColShrinkageRate, &rec.ShrinkageRate, false},
		{ColCostPerHour, &rec.CostPerHour, false},
	}
	for _, f := range floats {
		v := field(f.name)
		if v == "" {
			if f.required {
				return fail(fmt.Errorf("%w: %s", ErrMissingValue, f.name))
			}
			continue
		}
		x, perr := strconv.ParseFloat(v, 64)
		if perr != nil {
			return fail(fmt.Errorf("%w: %s=%q", ErrInvalidNumber, f.name, v))
		}
		*f.dst = x
	}
	return rec, nil
}

// parseInt accepts integral floats such as "12.0" as exported by spreadsheets.
func parseInt(v string) (int, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f != float64(int(f)) {
		return 0, ErrInvalidNumber
	}
	return int(f), nil
}

func parseTime(v string, loc *time.Location) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, v)
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func reason(err error) string {
	for _, e := range []error{ErrFieldCount, ErrMissingValue, ErrInvalidTimestamp, ErrInvalidNumber} {
		if errors.Is(err, e) {
			return e.Error()
		}
	}
	return "other"
}
