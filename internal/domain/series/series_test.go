package series_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/wfmsim/internal/domain/model"
	"github.com/okian/wfmsim/internal/domain/series"
	. "github.com/smartystreets/goconvey/convey"
)

var (
	key   = model.SeriesKey{Channel: "voice", Queue: "sales"}
	start = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
)

func quarterHours(n int) []model.IntervalRecord {
	recs := make([]model.IntervalRecord, n)
	for i := range recs {
		recs[i] = model.IntervalRecord{
			Timestamp:       start.Add(time.Duration(i) * 15 * time.Minute),
			IntervalMinutes: 15,
			Channel:         key.Channel,
			Queue:           key.Queue,
			Offered:         10,
			Handled:         i + 1,
			AHTSeconds:      float64(100 * (i%4 + 1)),
			ServiceLevel:    0.8,
			AgentsScheduled: 4,
			AgentsAvailable: 3,
			ShrinkageRate:   0.3,
			CostPerHour:     20,
		}
	}
	return recs
}

func TestValidate(t *testing.T) {
	Convey("Given a contiguous quarter-hour series", t, func() {
		recs := quarterHours(8)

		Convey("Then it validates", func() {
			So(series.Validate(key, recs), ShouldBeNil)
		})

		Convey("When a record is shaped wrong", func() {
			cases := map[string]struct {
				mutate func([]model.IntervalRecord) []model.IntervalRecord
				want   error
			}{
				"negative offered": {func(r []model.IntervalRecord) []model.IntervalRecord { r[2].Offered = -1; return r }, series.ErrNegativeCount},
				"shrinkage of 1":   {func(r []model.IntervalRecord) []model.IntervalRecord { r[1].ShrinkageRate = 1; return r }, series.ErrFractionRange},
				"mixed interval":   {func(r []model.IntervalRecord) []model.IntervalRecord { r[3].IntervalMinutes = 30; return r }, series.ErrMixedInterval},
				"duplicate":        {func(r []model.IntervalRecord) []model.IntervalRecord { r[4].Timestamp = r[3].Timestamp; return r }, series.ErrDuplicateTimestamp},
				"out of order":     {func(r []model.IntervalRecord) []model.IntervalRecord { r[4].Timestamp = r[2].Timestamp; return r }, series.ErrNonMonotonic},
				"gap":              {func(r []model.IntervalRecord) []model.IntervalRecord { return append(r[:4:4], r[5:]...) }, series.ErrGap},
				"empty":            {func([]model.IntervalRecord) []model.IntervalRecord { return nil }, series.ErrEmptySeries},
			}
			for name, tc := range cases {
				err := series.Validate(key, tc.mutate(quarterHours(8)))
				Convey("Then "+name+" is rejected with the key", func() {
					var verr *series.ValidationError
					So(errors.As(err, &verr), ShouldBeTrue)
					So(verr.Key, ShouldResemble, key)
					So(errors.Is(err, tc.want), ShouldBeTrue)
				})
			}
		})
	})
}

func TestAggregate(t *testing.T) {
	Convey("Given two hours of quarter-hour history", t, func() {
		recs := quarterHours(8)

		Convey("When rolled up to hourly", func() {
			out, err := series.Aggregate(recs, 60)

			Convey("Then counts sum and AHT is weighted by handled", func() {
				So(err, ShouldBeNil)
				So(len(out), ShouldEqual, 2)
				So(out[0].Timestamp, ShouldEqual, start)
				So(out[1].Timestamp, ShouldEqual, start.Add(time.Hour))
				So(out[0].IntervalMinutes, ShouldEqual, 60)
				So(out[0].Offered, ShouldEqual, 40)
				So(out[0].Handled, ShouldEqual, 1+2+3+4)
				// (100·1 + 200·2 + 300·3 + 400·4) / 10
				So(out[0].AHTSeconds, ShouldAlmostEqual, 300, 1e-9)
				So(out[0].ServiceLevel, ShouldAlmostEqual, 0.8, 1e-9)
				So(out[0].ShrinkageRate, ShouldAlmostEqual, 0.3, 1e-9)
			})
		})

		Convey("When the history starts mid-hour", func() {
			out, err := series.Aggregate(recs[1:], 60)

			Convey("Then the partial leading hour is dropped", func() {
				So(err, ShouldBeNil)
				So(len(out), ShouldEqual, 1)
				So(out[0].Timestamp, ShouldEqual, start.Add(time.Hour))
			})
		})

		Convey("When asked for a finer granularity", func() {
			hourly, _ := series.Aggregate(recs, 60)
			_, err := series.Aggregate(hourly, 30)

			Convey("Then it is refused", func() {
				So(errors.Is(err, series.ErrIncompatibleInterval), ShouldBeTrue)
			})
		})

		Convey("When the granularity already matches", func() {
			out, err := series.Aggregate(recs, 15)

			Convey("Then records pass through", func() {
				So(err, ShouldBeNil)
				So(out, ShouldResemble, recs)
			})
		})
	})

	Convey("Given bucket boundaries", t, func() {
		ts := time.Date(2024, 3, 4, 13, 45, 0, 0, time.UTC)
		So(series.BucketStart(ts, 480), ShouldEqual, time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC))
		So(series.BucketStart(ts, 720), ShouldEqual, time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC))
		So(series.BucketStart(ts, 1440), ShouldEqual, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC))
	})
}

func TestBuild(t *testing.T) {
	Convey("Given grouped history", t, func() {
		recs := quarterHours(8)
		other := quarterHours(4)
		for i := range other {
			other[i].Channel = "chat"
		}
		groups := series.Group(append(recs, other...))

		Convey("Then keys are ordered by channel then queue", func() {
			So(series.Keys(groups), ShouldResemble, []model.SeriesKey{{Channel: "chat", Queue: "sales"}, key})
			So(series.Channels(append(recs, other...)), ShouldResemble, []string{"chat", "voice"})
		})

		Convey("When a series is built hourly", func() {
			s, err := series.Build(key, groups[key], 60)

			Convey("Then it carries the reference derived from raw history", func() {
				So(err, ShouldBeNil)
				So(s.Records, ShouldHaveLength, 2)
				So(s.Records[1].Timestamp, ShouldEqual, start.Add(time.Hour))
				So(s.Records[0].Offered, ShouldEqual, 40)
				So(s.Records[1].Offered, ShouldEqual, 40)
				So(s.Reference.CostPerHour, ShouldAlmostEqual, 20, 1e-9)
				So(s.Reference.ShrinkageRate, ShouldAlmostEqual, 0.3, 1e-9)
			})
		})

		Convey("When no complete run interval exists", func() {
			_, err := series.Build(key, groups[key][:3], 60)

			Convey("Then the series is rejected as empty", func() {
				So(errors.Is(err, series.ErrEmptySeries), ShouldBeTrue)
			})
		})
	})
}
