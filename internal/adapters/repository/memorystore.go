package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/okian/wfmsim/internal/domain/model"
)

// MemoryStore keeps every written row in memory. Reads return copies.
type MemoryStore struct {
	mu        sync.RWMutex
	closed    bool
	sim       []model.SimulationRow
	rollups   []model.RollupRow
	accuracy  []model.AccuracyRecord
	forecasts map[string][]model.ForecastSeries
	issues    []model.Issue
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{forecasts: make(map[string][]model.ForecastSeries)}
}

func (s *MemoryStore) guard(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	return ctx.Err()
}

// WriteSimulation appends simulation rows.
func (s *MemoryStore) WriteSimulation(ctx context.Context, rows []model.SimulationRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(ctx); err != nil {
		return err
	}
	s.sim = append(s.sim, rows...)
	return nil
}

// WriteRollups appends rollup rows.
func (s *MemoryStore) WriteRollups(ctx context.Context, rows []model.RollupRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(ctx); err != nil {
		return err
	}
	s.rollups = append(s.rollups, rows...)
	return nil
}

// WriteAccuracy appends accuracy records.
func (s *MemoryStore) WriteAccuracy(ctx context.Context, recs []model.AccuracyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(ctx); err != nil {
		return err
	}
	s.accuracy = append(s.accuracy, recs...)
	return nil
}

// WriteForecasts stores forecast series under runID.
func (s *MemoryStore) WriteForecasts(ctx context.Context, runID string, series []model.ForecastSeries) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(ctx); err != nil {
		return err
	}
	s.forecasts[runID] = append(s.forecasts[runID], series...)
	return nil
}

// WriteIssues appends run issues.
func (s *MemoryStore) WriteIssues(ctx context.Context, issues []model.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(ctx); err != nil {
		return err
	}
	s.issues = append(s.issues, issues...)
	return nil
}

// Simulation returns the stored simulation rows.
func (s *MemoryStore) Simulation() []model.SimulationRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.sim)
}

// Rollups returns the stored rollup rows.
func (s *MemoryStore) Rollups() []model.RollupRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.rollups)
}

// Accuracy returns the stored accuracy records.
func (s *MemoryStore) Accuracy() []model.AccuracyRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.accuracy)
}

// Forecasts returns the forecast series stored for runID.
func (s *MemoryStore) Forecasts(runID string) []model.ForecastSeries {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.forecasts[runID])
}

// Issues returns the stored issues.
func (s *MemoryStore) Issues() []model.Issue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.issues)
}

// Close marks the store closed; stored rows stay readable.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
