package forecast_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/wfmsim/internal/domain/forecast"
	"github.com/okian/wfmsim/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// monday is 2024-01-01.
var monday = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func hourly(from time.Time, hours int, offered func(ts time.Time, day int) int) []model.IntervalRecord {
	recs := make([]model.IntervalRecord, hours)
	for i := range recs {
		ts := from.Add(time.Duration(i) * time.Hour)
		recs[i] = model.IntervalRecord{
			Timestamp:       ts,
			IntervalMinutes: 60,
			Channel:         "voice",
			Queue:           "support",
			Offered:         offered(ts, int(ts.Sub(from).Hours())/24),
		}
	}
	return recs
}

func TestFitProfile(t *testing.T) {
	Convey("Given four weeks of identical days", t, func() {
		history := hourly(monday, 28*24, func(ts time.Time, _ int) int { return ts.Hour() + 1 })
		m, err := forecast.Fit(history)
		So(err, ShouldBeNil)

		Convey("Then the profile reproduces the hourly shape with no trend", func() {
			So(m.SparseHistory, ShouldBeFalse)
			So(m.TrendFactor, ShouldEqual, 0.0)
			So(m.Profile.Values[time.Wednesday][9], ShouldEqual, 10.0)
			So(m.Key, ShouldResemble, model.SeriesKey{Channel: "voice", Queue: "support"})
		})

		Convey("When forecasting two days from the end of history", func() {
			fs := m.Forecast(m.Next(), 2)

			Convey("Then every interval follows the profile", func() {
				So(len(fs.Points), ShouldEqual, 48)
				So(fs.Points[0].Timestamp, ShouldEqual, monday.Add(28*24*time.Hour))
				for _, p := range fs.Points {
					So(p.ForecastOffered, ShouldEqual, float64(p.Timestamp.Hour()+1))
				}
			})
		})
	})

	Convey("Given weekdays busier than weekends", t, func() {
		history := hourly(monday, 28*24, func(ts time.Time, _ int) int {
			if ts.Weekday() == time.Saturday || ts.Weekday() == time.Sunday {
				return 2
			}
			return 10
		})
		m, err := forecast.Fit(history)
		So(err, ShouldBeNil)

		Convey("Then the profile is split by day of week", func() {
			So(m.Profile.ByDayOfWeek, ShouldBeTrue)
			So(m.Profile.Values[time.Monday][12], ShouldEqual, 10.0)
			So(m.Profile.Values[time.Saturday][12], ShouldEqual, 2.0)
		})
	})

	Convey("Given a week that starts at Monday noon", t, func() {
		from := monday.Add(12 * time.Hour)
		history := hourly(from, 7*24-12, func(ts time.Time, _ int) int { return int(ts.Weekday()) * 10 })
		m, err := forecast.Fit(history)
		So(err, ShouldBeNil)

		Convey("Then empty Monday morning buckets fall back to the weekday mean", func() {
			So(m.SparseHistory, ShouldBeFalse)
			So(m.Profile.Values[time.Monday][13], ShouldEqual, 10.0)
			// Tuesday..Friday at 03:00: (20+30+40+50)/4
			So(m.Profile.Values[time.Monday][3], ShouldEqual, 35.0)
		})
	})
}

func TestFitTrend(t *testing.T) {
	Convey("Given daily volume growing by one contact per hour each day", t, func() {
		history := hourly(monday, 28*24, func(_ time.Time, day int) int { return 10 + day })
		m, err := forecast.Fit(history)
		So(err, ShouldBeNil)

		Convey("Then the trend is slope over mean daily total", func() {
			// slope 24/day, mean total 24·23.5
			So(m.TrendFactor, ShouldAlmostEqual, 1/23.5, 1e-9)
		})

		Convey("Then later horizon days forecast more", func() {
			fs := m.Forecast(m.Next(), 3)
			So(fs.Points[0].ForecastOffered, ShouldBeGreaterThan, 0)
			So(fs.Points[48].ForecastOffered, ShouldBeGreaterThan, fs.Points[0].ForecastOffered)
			So(fs.TrendFactor, ShouldEqual, m.TrendFactor)
		})
	})

	Convey("Given a strongly negative trend", t, func() {
		m := &forecast.Model{
			IntervalMinutes: 60,
			Profile:         model.Profile{BucketMinutes: 60},
			TrendFactor:     -0.5,
			LastObserved:    monday.Add(23 * time.Hour),
		}
		for d := range m.Profile.Values {
			m.Profile.Values[d] = make([]float64, 24)
			for h := range m.Profile.Values[d] {
				m.Profile.Values[d][h] = 10
			}
		}

		Convey("Then forecasts are floored at zero", func() {
			So(m.At(monday.Add(24*time.Hour)), ShouldEqual, 5.0)
			So(m.At(monday.Add(3*24*time.Hour)), ShouldEqual, 0.0)
		})

		Convey("Then the rest of the last observed day counts as day one", func() {
			m.LastObserved = monday.Add(10 * time.Hour)
			So(m.At(monday.Add(11*time.Hour)), ShouldEqual, 5.0)
		})
	})
}

func TestFitSparse(t *testing.T) {
	Convey("Given three days of history", t, func() {
		history := hourly(monday, 3*24, func(ts time.Time, day int) int { return ts.Hour() + day*100 })
		m, err := forecast.Fit(history)
		So(err, ShouldBeNil)

		Convey("Then the profile ignores day of week and the trend is zero", func() {
			So(m.SparseHistory, ShouldBeTrue)
			So(m.TrendFactor, ShouldEqual, 0.0)
			So(m.Profile.ByDayOfWeek, ShouldBeFalse)
			So(m.Profile.Values[time.Saturday], ShouldResemble, m.Profile.Values[time.Monday])
			// (5 + 105 + 205) / 3
			So(m.Profile.Values[time.Friday][5], ShouldEqual, 105.0)
		})
	})

	Convey("Given unusable input", t, func() {
		_, err := forecast.Fit(nil)
		So(errors.Is(err, forecast.ErrNoHistory), ShouldBeTrue)

		bad := hourly(monday, 3, func(time.Time, int) int { return 1 })
		for i := range bad {
			bad[i].IntervalMinutes = 45
		}
		_, err = forecast.Fit(bad)
		So(errors.Is(err, forecast.ErrBadInterval), ShouldBeTrue)
	})
}
