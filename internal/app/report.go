package service

import (
	"time"

	"github.com/okian/wfmsim/internal/domain/model"
)

// Report is everything one run produced. Every row carries RunID.
type Report struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Scenarios model.ScenarioSet

	Rows      []model.SimulationRow
	Rollups   []model.RollupRow
	Accuracy  []model.AccuracyRecord
	Forecasts []model.ForecastSeries
	Issues    []model.Issue
}

// ScenarioSummary totals one scenario across every series and day.
type ScenarioSummary struct {
	Scenario           string
	Label              string
	Intervals          int
	RequiredAgents     int
	ScheduledAgents    int
	CostTotal          float64
	SLAAttainmentRate  float64
	NonConvergentCount int
}

func (r *Report) stamp() {
	for i := range r.Rows {
		r.Rows[i].RunID = r.RunID
	}
	for i := range r.Rollups {
		r.Rollups[i].RunID = r.RunID
	}
	for i := range r.Accuracy {
		r.Accuracy[i].RunID = r.RunID
	}
	for i := range r.Issues {
		r.Issues[i].RunID = r.RunID
	}
}

// Summary returns one entry per scenario in scenario-set order. Attainment
// is interval-weighted over the scenario's rollups.
func (r *Report) Summary() []ScenarioSummary {
	idx := make(map[string]int, len(r.Scenarios))
	out := make([]ScenarioSummary, len(r.Scenarios))
	for i, sc := range r.Scenarios {
		idx[sc.Name] = i
		out[i] = ScenarioSummary{Scenario: sc.Name, Label: sc.Label}
	}
	attained := make([]float64, len(out))
	for _, ru := range r.Rollups {
		i, ok := idx[ru.Scenario]
		if !ok {
			continue
		}
		s := &out[i]
		s.Intervals += ru.Intervals
		s.RequiredAgents += ru.RequiredAgents
		s.ScheduledAgents += ru.ScheduledAgents
		s.CostTotal += ru.CostTotal
		s.NonConvergentCount += ru.NonConvergentCount
		attained[i] += ru.SLAAttainmentRate * float64(ru.Intervals)
	}
	for i := range out {
		if out[i].Intervals > 0 {
			out[i].SLAAttainmentRate = attained[i] / float64(out[i].Intervals)
		}
	}
	return out
}
