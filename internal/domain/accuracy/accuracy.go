// Package accuracy scores the forecaster on a trailing holdout window.
package accuracy

import (
	"fmt"
	"math"
	"time"

	"github.com/okian/wfmsim/internal/domain/forecast"
	"github.com/okian/wfmsim/internal/domain/model"
)

// Predictor forecasts offered volume at given timestamps.
type Predictor interface {
	ForecastAt(timestamps []time.Time) []float64
}

// Fitter builds a Predictor from training history.
type Fitter func(history []model.IntervalRecord) (Predictor, error)

// DefaultFitter fits the profile and trend forecaster.
func DefaultFitter(history []model.IntervalRecord) (Predictor, error) {
	m, err := forecast.Fit(history)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Split divides time-ordered records into training and holdout sets. The
// holdout holds every interval strictly after last - holdoutDays.
func Split(records []model.IntervalRecord, holdoutDays int) (train, holdout []model.IntervalRecord) {
	if len(records) == 0 || holdoutDays <= 0 {
		return records, nil
	}
	cutoff := records[len(records)-1].Timestamp.Add(-time.Duration(holdoutDays) * 24 * time.Hour)
	for i, r := range records {
		if r.Timestamp.After(cutoff) {
			return records[:i], records[i:]
		}
	}
	return records, nil
}

// Score returns MAPE (a fraction, over intervals with actual > 0 only) and
// RMSE (over all intervals). MAPE is 0 when no actual is positive.
func Score(actual, predicted []float64) (mape, rmse float64) {
	n := min(len(actual), len(predicted))
	if n == 0 {
		return 0, 0
	}
	var absPct, sq float64
	var pctN int
	for i := 0; i < n; i++ {
		d := actual[i] - predicted[i]
		sq += d * d
		if actual[i] > 0 {
			absPct += math.Abs(d) / actual[i]
			pctN++
		}
	}
	if pctN > 0 {
		mape = absPct / float64(pctN)
	}
	return mape, math.Sqrt(sq / float64(n))
}

// Evaluate fits on the training part of records only, forecasts the holdout
// timestamps and scores the result.
func Evaluate(key model.SeriesKey, records []model.IntervalRecord, holdoutDays int, fit Fitter) (model.AccuracyRecord, error) {
	if holdoutDays <= 0 {
		return model.AccuracyRecord{}, fmt.Errorf("%w: %d", ErrBadHoldout, holdoutDays)
	}
	if fit == nil {
		fit = DefaultFitter
	}
	train, holdout := Split(records, holdoutDays)
	if len(holdout) == 0 {
		return model.AccuracyRecord{}, fmt.Errorf("%s: %w", key, ErrNoHoldout)
	}
	if len(train) == 0 {
		return model.AccuracyRecord{}, fmt.Errorf("%s: %w", key, ErrNoTraining)
	}

	p, err := fit(train)
	if err != nil {
		return model.AccuracyRecord{}, fmt.Errorf("%s: fit: %w", key, err)
	}

	timestamps := make([]time.Time, len(holdout))
	actual := make([]float64, len(holdout))
	positive := 0
	for i, r := range holdout {
		timestamps[i] = r.Timestamp
		actual[i] = float64(r.Offered)
		if r.Offered > 0 {
			positive++
		}
	}
	mape, rmse := Score(actual, p.ForecastAt(timestamps))

	return model.AccuracyRecord{
		Channel:          key.Channel,
		Queue:            key.Queue,
		MAPE:             mape,
		RMSE:             rmse,
		HoldoutDays:      holdoutDays,
		HoldoutIntervals: len(holdout),
		MAPEIntervals:    positive,
	}, nil
}
