package repository

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/okian/wfmsim/internal/domain/model"
	"github.com/okian/wfmsim/pkg/logger"
	"github.com/okian/wfmsim/pkg/metrics"
)

// Dialect describes the SQL flavour a SQLStore speaks.
type Dialect struct {
	Name       string
	driverName string
	primaryKey string
	typeOf     func(kind) string
}

// SQLite is the embedded file database dialect.
var SQLite = Dialect{
	Name:       DriverSQLite,
	driverName: "sqlite3",
	primaryKey: "id INTEGER PRIMARY KEY AUTOINCREMENT",
	typeOf: func(k kind) string {
		switch k {
		case kindInt, kindBool:
			return "INTEGER"
		case kindReal:
			return "REAL"
		case kindTime, kindDate:
			return "TIMESTAMP"
		default:
			return "TEXT"
		}
	},
}

// MySQL covers MySQL and MariaDB servers.
var MySQL = Dialect{
	Name:       DriverMySQL,
	driverName: "mysql",
	primaryKey: "id BIGINT AUTO_INCREMENT PRIMARY KEY",
	typeOf: func(k kind) string {
		switch k {
		case kindInt:
			return "INT"
		case kindBool:
			return "TINYINT(1)"
		case kindReal:
			return "DOUBLE"
		case kindTime:
			return "DATETIME"
		case kindDate:
			return "DATE"
		default:
			return "VARCHAR(191)"
		}
	},
}

// SQLStore writes output tables through database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	opts    options

	mu     sync.Mutex
	closed bool
}

// NewSQLStore opens dsn with the dialect's driver and creates missing tables.
func NewSQLStore(ctx context.Context, d Dialect, dsn string, opts ...Option) (*SQLStore, error) {
	o := applyOptions(opts)
	source, err := d.source(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(d.driverName, source)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Name, err)
	}
	db.SetMaxOpenConns(o.maxOpenConns)
	db.SetMaxIdleConns(o.maxOpenConns)
	db.SetConnMaxLifetime(o.connMaxLifetime)
	if d.Name == DriverSQLite {
		// sqlite allows a single writer
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.Name, err)
	}
	s := &SQLStore{db: db, dialect: d, opts: o}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	o.logger.Info(ctx, "sql store ready", logger.String("dialect", d.Name))
	return s, nil
}

func (d Dialect) source(dsn string) (string, error) {
	if strings.TrimSpace(dsn) == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidDSN)
	}
	switch d.Name {
	case DriverMySQL:
		return toMySQLDSN(dsn)
	case DriverSQLite:
		if strings.Contains(dsn, "?") {
			return dsn, nil
		}
		return dsn + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000", nil
	default:
		return dsn, nil
	}
}

// toMySQLDSN turns mysql:// and mariadb:// URLs into go-sql-driver form.
// Native DSNs pass through unchanged.
func toMySQLDSN(dsn string) (string, error) {
	if !strings.HasPrefix(dsn, "mariadb://") && !strings.HasPrefix(dsn, "mysql://") {
		return dsn, nil
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidDSN, err)
	}
	var user, pass string
	if u.User != nil {
		user = u.User.Username()
		pass, _ = u.User.Password()
	}
	db := strings.TrimPrefix(u.Path, "/")
	if user == "" || u.Host == "" || db == "" {
		return "", fmt.Errorf("%w: user, host and database are required", ErrInvalidDSN)
	}
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&interpolateParams=true", user, pass, u.Host, db), nil
}

func (s *SQLStore) createStatement(t table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n\t%s", t.name, s.dialect.primaryKey)
	for _, c := range t.columns {
		fmt.Fprintf(&b, ",\n\t%s %s", c.name, s.dialect.typeOf(c.kind))
		if !c.nullable {
			b.WriteString(" NOT NULL")
		}
	}
	b.WriteString("\n)")
	return b.String()
}

func (s *SQLStore) indexStatement(t table) string {
	cols := strings.Join(t.index, ", ")
	if s.dialect.Name == DriverMySQL {
		return fmt.Sprintf("CREATE INDEX idx_%s ON %s (%s)", t.name, t.name, cols)
	}
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s ON %s (%s)", t.name, t.name, cols)
}

func (s *SQLStore) initSchema(ctx context.Context) error {
	for _, t := range tables {
		if _, err := s.db.ExecContext(ctx, s.createStatement(t)); err != nil {
			return fmt.Errorf("create %s: %w", t.name, err)
		}
		if _, err := s.db.ExecContext(ctx, s.indexStatement(t)); err != nil {
			// mysql has no IF NOT EXISTS for indexes; a rerun reports a duplicate
			if s.dialect.Name != DriverMySQL || !strings.Contains(err.Error(), "Duplicate key name") {
				return fmt.Errorf("index %s: %w", t.name, err)
			}
		}
	}
	return nil
}

func (s *SQLStore) insertStatement(t table) string {
	marks := make([]string, len(t.columns))
	for i := range marks {
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.name, strings.Join(t.columnNames(), ", "), strings.Join(marks, ", "))
}

// insert writes rows into name in transactions of batchSize rows.
func (s *SQLStore) insert(ctx context.Context, name string, rows [][]any) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	t, ok := lookupTable(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	if len(rows) == 0 {
		return nil
	}
	start := time.Now()
	stmtText := s.insertStatement(t)
	for lo := 0; lo < len(rows); lo += s.opts.batchSize {
		hi := min(lo+s.opts.batchSize, len(rows))
		if err := s.insertBatch(ctx, stmtText, rows[lo:hi]); err != nil {
			metrics.RecordRepositoryError(name)
			s.opts.logger.Error(ctx, "insert failed",
				logger.String("table", name),
				logger.Int("offset", lo),
				logger.Error(err))
			return fmt.Errorf("insert %s: %w", name, err)
		}
	}
	metrics.RecordRepositoryWrite(name, len(rows), float64(time.Since(start).Microseconds())/1000)
	return nil
}

func (s *SQLStore) insertBatch(ctx context.Context, stmtText string, rows [][]any) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	stmt, err := tx.PrepareContext(ctx, stmtText)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err = stmt.ExecContext(ctx, r...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// WriteSimulation appends simulation rows.
func (s *SQLStore) WriteSimulation(ctx context.Context, rows []model.SimulationRow) error {
	vals := make([][]any, len(rows))
	for i, r := range rows {
		vals[i] = simulationValues(r)
	}
	return s.insert(ctx, TableSimulationResults, vals)
}

// WriteRollups appends rollup rows.
func (s *SQLStore) WriteRollups(ctx context.Context, rows []model.RollupRow) error {
	vals := make([][]any, len(rows))
	for i, r := range rows {
		vals[i] = rollupValues(r)
	}
	return s.insert(ctx, TableScenarioRollups, vals)
}

// WriteAccuracy appends accuracy records.
func (s *SQLStore) WriteAccuracy(ctx context.Context, recs []model.AccuracyRecord) error {
	vals := make([][]any, len(recs))
	for i, r := range recs {
		vals[i] = accuracyValues(r)
	}
	return s.insert(ctx, TableForecastAccuracy, vals)
}

// WriteForecasts appends one row per forecast point.
func (s *SQLStore) WriteForecasts(ctx context.Context, runID string, series []model.ForecastSeries) error {
	var vals [][]any
	for _, fs := range series {
		vals = append(vals, forecastValues(runID, fs)...)
	}
	return s.insert(ctx, TableForecasts, vals)
}

// WriteIssues appends run issues.
func (s *SQLStore) WriteIssues(ctx context.Context, issues []model.Issue) error {
	vals := make([][]any, len(issues))
	for i, is := range issues {
		vals[i] = issueValues(is)
	}
	return s.insert(ctx, TableRunIssues, vals)
}

// Count returns the number of rows in table for runID, or all rows when
// runID is empty.
func (s *SQLStore) Count(ctx context.Context, name, runID string) (int, error) {
	if _, ok := lookupTable(name); !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	var (
		n   int
		row *sql.Row
	)
	if runID == "" {
		row = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+name)
	} else {
		row = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+name+" WHERE run_id = ?", runID)
	}
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// DB exposes the underlying handle.
func (s *SQLStore) DB() *sql.DB { return s.db }

// Close releases the connection pool. It is safe to call more than once.
func (s *SQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
