package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/okian/wfmsim/internal/domain/model"
	"github.com/okian/wfmsim/pkg/logger"
	"github.com/okian/wfmsim/pkg/metrics"
)

// CSVStore writes each table to <dir>/<table>.csv. Files are created with a
// header on first write and appended to afterwards.
type CSVStore struct {
	dir  string
	opts options

	mu     sync.Mutex
	closed bool
}

// NewCSVStore creates dir if needed.
func NewCSVStore(dir string, opts ...Option) (*CSVStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: empty directory", ErrInvalidDSN)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &CSVStore{dir: dir, opts: applyOptions(opts)}, nil
}

// Path returns the file a table is written to.
func (s *CSVStore) Path(name string) string {
	return filepath.Join(s.dir, name+".csv")
}

func (s *CSVStore) write(ctx context.Context, name string, rows [][]any) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	t, ok := lookupTable(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	defer func() {
		if err != nil {
			metrics.RecordRepositoryError(name)
			s.opts.logger.Error(ctx, "csv write failed", logger.String("table", name), logger.Error(err))
			return
		}
		metrics.RecordRepositoryWrite(name, len(rows), float64(time.Since(start).Microseconds())/1000)
	}()

	path := s.Path(name)
	_, statErr := os.Stat(path)
	fresh := errors.Is(statErr, os.ErrNotExist)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write(t.columnNames()); err != nil {
			return err
		}
	}
	rec := make([]string, len(t.columns))
	for _, r := range rows {
		for i, c := range t.columns {
			rec[i] = formatValue(c, r[i])
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteSimulation appends simulation rows.
func (s *CSVStore) WriteSimulation(ctx context.Context, rows []model.SimulationRow) error {
	vals := make([][]any, len(rows))
	for i, r := range rows {
		vals[i] = simulationValues(r)
	}
	return s.write(ctx, TableSimulationResults, vals)
}

// WriteRollups appends rollup rows.
func (s *CSVStore) WriteRollups(ctx context.Context, rows []model.RollupRow) error {
	vals := make([][]any, len(rows))
	for i, r := range rows {
		vals[i] = rollupValues(r)
	}
	return s.write(ctx, TableScenarioRollups, vals)
}

// WriteAccuracy appends accuracy records.
func (s *CSVStore) WriteAccuracy(ctx context.Context, recs []model.AccuracyRecord) error {
	vals := make([][]any, len(recs))
	for i, r := range recs {
		vals[i] = accuracyValues(r)
	}
	return s.write(ctx, TableForecastAccuracy, vals)
}

// WriteForecasts appends one row per forecast point.
func (s *CSVStore) WriteForecasts(ctx context.Context, runID string, series []model.ForecastSeries) error {
	var vals [][]any
	for _, fs := range series {
		vals = append(vals, forecastValues(runID, fs)...)
	}
	return s.write(ctx, TableForecasts, vals)
}

// WriteIssues appends run issues.
func (s *CSVStore) WriteIssues(ctx context.Context, issues []model.Issue) error {
	vals := make([][]any, len(issues))
	for i, is := range issues {
		vals[i] = issueValues(is)
	}
	return s.write(ctx, TableRunIssues, vals)
}

// Close marks the store closed. Files are closed after every write.
func (s *CSVStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
