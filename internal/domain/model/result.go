package model

import (
	"time"
)

// Profile is the fitted seasonal shape: average offered volume per
// (day-of-week, time-of-day bucket). When ByDayOfWeek is false every weekday
// row holds the same time-of-day averages.
type Profile struct {
	BucketMinutes int
	ByDayOfWeek   bool
	Values        [7][]float64
}

// Bucket returns the time-of-day bucket index for t.
func (p Profile) Bucket(t time.Time) int {
	return (t.Hour()*60 + t.Minute()) / p.BucketMinutes
}

// At returns the profile value for the bucket containing t.
func (p Profile) At(t time.Time) float64 {
	row := p.Values[int(t.Weekday())]
	b := p.Bucket(t)
	if b < 0 || b >= len(row) {
		return 0
	}
	return row[b]
}

// ForecastPoint is one forecast interval.
type ForecastPoint struct {
	Timestamp       time.Time
	ForecastOffered float64
}

// ForecastSeries is the forecast for one series over the horizon, with the
// fitted profile and trend that produced it.
type ForecastSeries struct {
	Key             SeriesKey
	IntervalMinutes int
	Points          []ForecastPoint
	Profile         Profile
	TrendFactor     float64
	SparseHistory   bool
}

// SeriesReference carries the per-series operating inputs derived from history.
type SeriesReference struct {
	AHTSeconds    float64
	ShrinkageRate float64
	CostPerHour   float64
}

// SimulationRow is one (scenario, timestamp, channel, queue) staffing result.
type SimulationRow struct {
	RunID           string
	Scenario        string
	Timestamp       time.Time
	IntervalMinutes int
	Channel         string
	Queue           string

	ForecastOffered    float64
	AHTSeconds         float64
	OfferedLoad        float64
	RequiredAgents     int
	ScheduledAgents    int
	AvailableAgents    int
	EffectiveShrinkage float64
	ServiceLevel       float64
	// ASASeconds is nil for throughput channels.
	ASASeconds    *float64
	CostTotal     float64
	NonConvergent bool
}

// Key returns the series the row belongs to.
func (r SimulationRow) Key() SeriesKey {
	return SeriesKey{Channel: r.Channel, Queue: r.Queue}
}

// AccuracyRecord scores the forecaster on a holdout window.
type AccuracyRecord struct {
	RunID            string
	Channel          string
	Queue            string
	MAPE             float64
	RMSE             float64
	HoldoutDays      int
	HoldoutIntervals int
	MAPEIntervals    int
}

// RollupRow summarizes simulation rows by (scenario, date, channel).
type RollupRow struct {
	RunID              string
	Scenario           string
	Date               time.Time
	Channel            string
	Intervals          int
	ForecastOffered    float64
	RequiredAgents     int
	ScheduledAgents    int
	CostTotal          float64
	AvgServiceLevel    float64
	SLAAttainmentRate  float64
	AvgASASeconds      *float64
	NonConvergentCount int
}

// IssueKind classifies a reported problem.
type IssueKind string

const (
	IssueSkippedSeries IssueKind = "skipped_series"
	IssueNonConvergent IssueKind = "non_convergent"
	IssueNoHoldout     IssueKind = "no_holdout"
)

// Issue records why data was skipped or flagged.
type Issue struct {
	RunID     string
	Kind      IssueKind
	Scenario  string
	Channel   string
	Queue     string
	Timestamp *time.Time
	Reason    string
}

// WorkUnit is one (scenario, series) partition handed to a worker.
type WorkUnit struct {
	Scenario Scenario
	Key      SeriesKey
}

// Batch is the immutable output of one work unit.
type Batch struct {
	Unit   WorkUnit
	Rows   []SimulationRow
	Issues []Issue
	Err    error
}
