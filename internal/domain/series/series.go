// Package series groups interval history into per-(channel, queue) series,
// validates their shape and re-aggregates them to the run granularity.
package series

import (
	"fmt"
	"sort"
	"time"

	"github.com/okian/wfmsim/internal/domain/model"
)

// Series is a validated, time-ordered history for one key at one granularity.
type Series struct {
	Key             model.SeriesKey
	IntervalMinutes int
	Records         []model.IntervalRecord
	Reference       model.SeriesReference
}

// Group partitions records by series key, keeping input order within each
// series.
func Group(records []model.IntervalRecord) map[model.SeriesKey][]model.IntervalRecord {
	out := make(map[model.SeriesKey][]model.IntervalRecord)
	for _, r := range records {
		k := r.Key()
		out[k] = append(out[k], r)
	}
	return out
}

// Keys returns the map's keys ordered by channel then queue.
func Keys[V any](m map[model.SeriesKey]V) []model.SeriesKey {
	keys := make([]model.SeriesKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// Channels returns the distinct channel names present in records, sorted.
func Channels(records []model.IntervalRecord) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		seen[r.Channel] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Build validates recs for key and re-aggregates them to runMinutes.
// Any failure is a *ValidationError; the caller skips the series.
func Build(key model.SeriesKey, recs []model.IntervalRecord, runMinutes int) (Series, error) {
	if err := Validate(key, recs); err != nil {
		return Series{}, err
	}
	base := recs[0].IntervalMinutes
	agg, err := Aggregate(recs, runMinutes)
	if err != nil {
		return Series{}, &ValidationError{Key: key, Reason: fmt.Sprintf("cannot aggregate %dm to %dm", base, runMinutes), Err: err}
	}
	if len(agg) == 0 {
		return Series{}, &ValidationError{Key: key, Reason: fmt.Sprintf("no complete %dm interval", runMinutes), Err: ErrEmptySeries}
	}
	return Series{
		Key:             key,
		IntervalMinutes: runMinutes,
		Records:         agg,
		Reference:       Reference(recs),
	}, nil
}

// Validate checks one series' records in input order: non-negative counts and
// rates, a single interval length, strictly increasing timestamps and no gaps.
func Validate(key model.SeriesKey, recs []model.IntervalRecord) error {
	if len(recs) == 0 {
		return &ValidationError{Key: key, Reason: "no records", Err: ErrEmptySeries}
	}
	minutes := recs[0].IntervalMinutes
	if minutes <= 0 {
		return &ValidationError{Key: key, Reason: fmt.Sprintf("interval_minutes %d", minutes), Err: ErrBadInterval}
	}
	step := time.Duration(minutes) * time.Minute

	for i, r := range recs {
		if err := checkValues(r); err != nil {
			return &ValidationError{Key: key, Reason: r.ID(), Err: err}
		}
		if r.IntervalMinutes != minutes {
			return &ValidationError{Key: key, Reason: fmt.Sprintf("%s: %dm after %dm", r.ID(), r.IntervalMinutes, minutes), Err: ErrMixedInterval}
		}
		if i == 0 {
			continue
		}
		prev := recs[i-1].Timestamp
		switch d := r.Timestamp.Sub(prev); {
		case d == 0:
			return &ValidationError{Key: key, Reason: r.ID(), Err: ErrDuplicateTimestamp}
		case d < 0:
			return &ValidationError{Key: key, Reason: fmt.Sprintf("%s before %s", r.ID(), prev.Format(time.RFC3339)), Err: ErrNonMonotonic}
		case d != step:
			return &ValidationError{Key: key, Reason: fmt.Sprintf("%s: %s after previous interval", r.ID(), d), Err: ErrGap}
		}
	}
	return nil
}

func checkValues(r model.IntervalRecord) error {
	switch {
	case r.Offered < 0, r.Handled < 0, r.Abandoned < 0, r.AgentsScheduled < 0, r.AgentsAvailable < 0:
		return ErrNegativeCount
	case r.AHTSeconds < 0, r.ASASeconds < 0, r.CostPerHour < 0:
		return ErrNegativeValue
	case r.ServiceLevel < 0 || r.ServiceLevel > 1, r.ShrinkageRate < 0 || r.ShrinkageRate >= 1:
		return ErrFractionRange
	}
	return nil
}

// Reference derives the per-series operating inputs from history: handle-time
// weighted AHT (plain mean when nothing was handled), mean shrinkage and mean
// cost per hour.
func Reference(recs []model.IntervalRecord) model.SeriesReference {
	if len(recs) == 0 {
		return model.SeriesReference{}
	}
	var (
		ahtWeighted, handled float64
		ahtSum, shrink, cost float64
	)
	for _, r := range recs {
		ahtWeighted += r.AHTSeconds * float64(r.Handled)
		handled += float64(r.Handled)
		ahtSum += r.AHTSeconds
		shrink += r.ShrinkageRate
		cost += r.CostPerHour
	}
	n := float64(len(recs))
	ref := model.SeriesReference{
		AHTSeconds:    ahtSum / n,
		ShrinkageRate: shrink / n,
		CostPerHour:   cost / n,
	}
	if handled > 0 {
		ref.AHTSeconds = ahtWeighted / handled
	}
	return ref
}
