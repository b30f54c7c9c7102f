// Package forecast fits a seasonal profile plus linear daily trend to one
// series' history and projects it over a horizon.
package forecast

import (
	"time"

	"github.com/okian/wfmsim/internal/domain/model"
)

const (
	minutesPerDay = 1440
	// minFullHistoryDays is the number of distinct days needed before the
	// profile is split by day of week and a trend is fitted.
	minFullHistoryDays = 7
)

// Model is a fitted profile and trend for one series.
type Model struct {
	Key             model.SeriesKey
	IntervalMinutes int
	Profile         model.Profile
	TrendFactor     float64
	SparseHistory   bool
	// LastObserved is the timestamp of the last history interval; forecast
	// day offsets are counted from its calendar day.
	LastObserved time.Time
}

// Fit builds a model from time-ordered records of one series at a single
// interval length.
func Fit(history []model.IntervalRecord) (*Model, error) {
	if len(history) == 0 {
		return nil, ErrNoHistory
	}
	minutes := history[0].IntervalMinutes
	if minutes <= 0 || minutes > minutesPerDay || minutesPerDay%minutes != 0 {
		return nil, ErrBadInterval
	}

	m := &Model{
		Key:             history[0].Key(),
		IntervalMinutes: minutes,
		LastObserved:    history[len(history)-1].Timestamp,
	}
	days := distinctDays(history)
	if days < minFullHistoryDays {
		m.SparseHistory = true
		m.Profile = timeOfDayProfile(history, minutes)
		return m, nil
	}
	m.Profile = weeklyProfile(history, minutes)
	m.TrendFactor = trendFactor(history)
	return m, nil
}

// At returns the forecast for one timestamp:
// profile × (1 + trend × days ahead), floored at zero.
func (m *Model) At(ts time.Time) float64 {
	v := m.Profile.At(ts) * (1 + m.TrendFactor*float64(m.daysAhead(ts)))
	if v < 0 {
		return 0
	}
	return v
}

// daysAhead counts whole calendar days from the last observed day, with the
// first forecast day counted as 1.
func (m *Model) daysAhead(ts time.Time) int {
	d := int(civilDay(ts) - civilDay(m.LastObserved))
	if d < 1 {
		return 1
	}
	return d
}

// ForecastAt evaluates the model at arbitrary timestamps.
func (m *Model) ForecastAt(timestamps []time.Time) []float64 {
	out := make([]float64, len(timestamps))
	for i, ts := range timestamps {
		out[i] = m.At(ts)
	}
	return out
}

// Forecast projects horizonDays of intervals starting at start.
func (m *Model) Forecast(start time.Time, horizonDays int) model.ForecastSeries {
	fs := model.ForecastSeries{
		Key:             m.Key,
		IntervalMinutes: m.IntervalMinutes,
		Profile:         m.Profile,
		TrendFactor:     m.TrendFactor,
		SparseHistory:   m.SparseHistory,
	}
	if horizonDays <= 0 {
		return fs
	}
	n := horizonDays * minutesPerDay / m.IntervalMinutes
	step := time.Duration(m.IntervalMinutes) * time.Minute
	fs.Points = make([]model.ForecastPoint, n)
	for i := 0; i < n; i++ {
		ts := start.Add(time.Duration(i) * step)
		fs.Points[i] = model.ForecastPoint{Timestamp: ts, ForecastOffered: m.At(ts)}
	}
	return fs
}

// Next returns the first forecast timestamp after the history.
func (m *Model) Next() time.Time {
	return m.LastObserved.Add(time.Duration(m.IntervalMinutes) * time.Minute)
}

func weeklyProfile(history []model.IntervalRecord, minutes int) model.Profile {
	buckets := minutesPerDay / minutes
	p := model.Profile{BucketMinutes: minutes, ByDayOfWeek: true}

	var cells [7][]mean
	for d := range cells {
		cells[d] = make([]mean, buckets)
	}
	dayType := [2][]mean{make([]mean, buckets), make([]mean, buckets)}
	byBucket := make([]mean, buckets)
	var global mean

	for _, r := range history {
		b := p.Bucket(r.Timestamp)
		v := float64(r.Offered)
		wd := r.Timestamp.Weekday()
		cells[wd][b].add(v)
		dayType[weekendIndex(wd)][b].add(v)
		byBucket[b].add(v)
		global.add(v)
	}

	for d := range cells {
		row := make([]float64, buckets)
		for b := range row {
			switch {
			case cells[d][b].n > 0:
				row[b] = cells[d][b].value()
			case dayType[weekendIndex(time.Weekday(d))][b].n > 0:
				row[b] = dayType[weekendIndex(time.Weekday(d))][b].value()
			case byBucket[b].n > 0:
				row[b] = byBucket[b].value()
			default:
				row[b] = global.value()
			}
		}
		p.Values[d] = row
	}
	return p
}

func timeOfDayProfile(history []model.IntervalRecord, minutes int) model.Profile {
	buckets := minutesPerDay / minutes
	p := model.Profile{BucketMinutes: minutes}
	byBucket := make([]mean, buckets)
	var global mean
	for _, r := range history {
		v := float64(r.Offered)
		byBucket[p.Bucket(r.Timestamp)].add(v)
		global.add(v)
	}
	row := make([]float64, buckets)
	for b := range row {
		if byBucket[b].n > 0 {
			row[b] = byBucket[b].value()
		} else {
			row[b] = global.value()
		}
	}
	for d := range p.Values {
		p.Values[d] = row
	}
	return p
}

// trendFactor is the least-squares slope of daily totals over day index,
// divided by the mean daily total.
func trendFactor(history []model.IntervalRecord) float64 {
	first := civilDay(history[0].Timestamp)
	totals := make(map[int64]float64)
	var last int64
	for _, r := range history {
		d := civilDay(r.Timestamp) - first
		totals[d] += float64(r.Offered)
		if d > last {
			last = d
		}
	}

	n := float64(last + 1)
	var sx, sy float64
	for d := int64(0); d <= last; d++ {
		sx += float64(d)
		sy += totals[d]
	}
	mx, my := sx/n, sy/n
	if my <= 0 {
		return 0
	}
	var num, den float64
	for d := int64(0); d <= last; d++ {
		dx := float64(d) - mx
		num += dx * (totals[d] - my)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den / my
}

func distinctDays(history []model.IntervalRecord) int {
	seen := make(map[int64]struct{})
	for _, r := range history {
		seen[civilDay(r.Timestamp)] = struct{}{}
	}
	return len(seen)
}

// civilDay numbers the calendar day of t in its own location.
func civilDay(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

func weekendIndex(d time.Weekday) int {
	if d == time.Saturday || d == time.Sunday {
		return 1
	}
	return 0
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v float64) {
	m.sum += v
	m.n++
}

func (m mean) value() float64 {
	if m.n == 0 {
		return 0
	}
	return m.sum / float64(m.n)
}
