// Package repository persists simulation output to SQL databases, CSV files
// or memory.
package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/wfmsim/internal/domain/model"
)

// Store receives every output table of a run. Implementations append; a run
// is identified by the run_id carried on each row.
type Store interface {
	WriteSimulation(ctx context.Context, rows []model.SimulationRow) error
	WriteRollups(ctx context.Context, rows []model.RollupRow) error
	WriteAccuracy(ctx context.Context, recs []model.AccuracyRecord) error
	WriteForecasts(ctx context.Context, runID string, series []model.ForecastSeries) error
	WriteIssues(ctx context.Context, issues []model.Issue) error
	Close() error
}

// Supported output drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
	DriverCSV    = "csv"
	DriverMemory = "memory"
)

// Open builds the Store for driver. dsn is a file path for sqlite, a
// mysql://, mariadb:// or native DSN for mysql, and a directory for csv.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (Store, error) {
	switch strings.ToLower(driver) {
	case DriverSQLite:
		return NewSQLStore(ctx, SQLite, dsn, opts...)
	case DriverMySQL, "mariadb":
		return NewSQLStore(ctx, MySQL, dsn, opts...)
	case DriverCSV:
		return NewCSVStore(dsn, opts...)
	case DriverMemory, "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
