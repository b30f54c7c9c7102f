package service

import (
	"context"
	"fmt"

	"github.com/okian/wfmsim/internal/adapters/repository"
	"github.com/okian/wfmsim/pkg/logger"
)

// Persist writes every table of rep through store. It stops at the first
// failing table.
func (s *Service) Persist(ctx context.Context, rep *Report, store repository.Store) error {
	steps := []struct {
		table string
		write func() error
	}{
		{repository.TableSimulationResults, func() error { return store.WriteSimulation(ctx, rep.Rows) }},
		{repository.TableScenarioRollups, func() error { return store.WriteRollups(ctx, rep.Rollups) }},
		{repository.TableForecastAccuracy, func() error { return store.WriteAccuracy(ctx, rep.Accuracy) }},
		{repository.TableForecasts, func() error { return store.WriteForecasts(ctx, rep.RunID, rep.Forecasts) }},
		{repository.TableRunIssues, func() error { return store.WriteIssues(ctx, rep.Issues) }},
	}
	for _, st := range steps {
		if err := st.write(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrPersist, st.table, err)
		}
	}
	s.logger.Info(ctx, "report persisted",
		logger.String("run_id", rep.RunID),
		logger.Int("rows", len(rep.Rows)),
		logger.Int("rollups", len(rep.Rollups)))
	return nil
}
