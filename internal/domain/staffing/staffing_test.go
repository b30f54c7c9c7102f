package staffing_test

import (
	"context"
	"testing"

	"github.com/okian/wfmsim/internal/domain/model"
	"github.com/okian/wfmsim/internal/domain/queueing"
	"github.com/okian/wfmsim/internal/domain/staffing"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/assert"
)

var (
	voice = model.ChannelProfile{Name: "voice", IsRealTime: true, SLATargetSeconds: 20, SLATargetFraction: 0.8}
	email = model.ChannelProfile{Name: "email", SLATargetFraction: 0.9}
)

func TestResolveRealTime(t *testing.T) {
	Convey("Given a resolver with a per-worker cache", t, func() {
		ctx := context.Background()
		r := staffing.NewResolver(staffing.WithCache(queueing.NewCache()))
		req := staffing.Request{
			Offered: 120, AHTSeconds: 300, IntervalMinutes: 30, Profile: voice,
			EffectiveShrinkage: 0.3, StaffingBufferPct: 0.08, CostPerHour: 25, WageMultiplier: 1,
		}

		Convey("When resolving a busy voice interval", func() {
			res := r.Resolve(ctx, req)

			Convey("Then the required count is the minimal one meeting the target", func() {
				in := queueing.Input{Offered: req.Offered, AHTSeconds: req.AHTSeconds, IntervalSeconds: req.IntervalSeconds(), Profile: voice}
				So(res.NonConvergent, ShouldBeFalse)
				So(float64(res.RequiredAgents), ShouldBeGreaterThan, in.Load())
				So(res.Eval.ServiceLevel, ShouldBeGreaterThanOrEqualTo, voice.SLATargetFraction)
				So(queueing.Evaluate(in, res.RequiredAgents-1, nil).ServiceLevel, ShouldBeLessThan, voice.SLATargetFraction)
				So(res.Eval.Agents, ShouldEqual, res.RequiredAgents)
				So(res.Eval.ASASeconds, ShouldNotBeNil)
			})

			Convey("Then scheduled headcount covers buffer and shrinkage", func() {
				So(res.ScheduledAgents, ShouldEqual, staffing.Scheduled(res.RequiredAgents, 0.08, 0.3))
				So(res.ScheduledAgents, ShouldBeGreaterThanOrEqualTo, res.RequiredAgents)
				So(res.AvailableAgents, ShouldBeLessThanOrEqualTo, res.ScheduledAgents)
				So(res.CostTotal, ShouldAlmostEqual, float64(res.ScheduledAgents)*25*0.5, 1e-9)
			})

			Convey("Then achieved service is measured at the available headcount", func() {
				So(res.AvailableAgents, ShouldBeGreaterThanOrEqualTo, res.RequiredAgents)
				So(res.Achieved.Agents, ShouldEqual, res.AvailableAgents)
				So(res.Achieved.ServiceLevel, ShouldBeGreaterThanOrEqualTo, res.Eval.ServiceLevel)
				So(*res.Achieved.ASASeconds, ShouldBeLessThanOrEqualTo, *res.Eval.ASASeconds)
			})

			Convey("Then a larger buffer buys more service", func() {
				req.StaffingBufferPct = 0.5
				more := r.Resolve(ctx, req)
				So(more.RequiredAgents, ShouldEqual, res.RequiredAgents)
				So(more.AvailableAgents, ShouldBeGreaterThan, res.AvailableAgents)
				So(more.Achieved.ServiceLevel, ShouldBeGreaterThan, res.Achieved.ServiceLevel)
			})

			Convey("Then the search is logarithmic, not a linear scan", func() {
				So(res.Iterations, ShouldBeLessThan, 12)
			})
		})

		Convey("When demand is scaled up by 10%", func() {
			Convey("Then required agents never decrease", func() {
				for offered := 1.0; offered <= 400; offered += 7 {
					req.Offered = offered
					base := r.Resolve(ctx, req).RequiredAgents
					req.Offered = offered * 1.1
					So(r.Resolve(ctx, req).RequiredAgents, ShouldBeGreaterThanOrEqualTo, base)
				}
			})
		})

		Convey("When there is no demand", func() {
			req.Offered = 0
			res := r.Resolve(ctx, req)

			Convey("Then nothing is staffed and service is perfect", func() {
				So(res.RequiredAgents, ShouldEqual, 0)
				So(res.ScheduledAgents, ShouldEqual, 0)
				So(res.CostTotal, ShouldEqual, 0.0)
				So(res.Eval.ServiceLevel, ShouldEqual, 1.0)
				So(res.Iterations, ShouldEqual, 0)
			})
		})

		Convey("When handle time is not positive", func() {
			req.AHTSeconds = 0
			res := r.Resolve(ctx, req)

			Convey("Then the interval is treated as zero workload", func() {
				So(res.RequiredAgents, ShouldEqual, 0)
				So(res.Eval.ServiceLevel, ShouldEqual, 1.0)
			})
		})
	})
}

func TestResolveSeatCap(t *testing.T) {
	Convey("Given a resolver capped below the load", t, func() {
		ctx := context.Background()
		r := staffing.NewResolver(staffing.WithMaxAgents(10))
		req := staffing.Request{
			Offered: 120, AHTSeconds: 300, IntervalMinutes: 30, Profile: voice,
			EffectiveShrinkage: 0.3, CostPerHour: 25, WageMultiplier: 1,
		}

		Convey("When the interval needs more than the cap", func() {
			res := r.Resolve(ctx, req)

			Convey("Then the cap is returned and flagged non-convergent", func() {
				So(res.NonConvergent, ShouldBeTrue)
				So(res.RequiredAgents, ShouldEqual, 10)
				So(res.Eval.ServiceLevel, ShouldEqual, 0.0)
				So(res.ScheduledAgents, ShouldEqual, staffing.Scheduled(10, 0, 0.3))
				So(res.Iterations, ShouldEqual, 1)
			})
		})

		Convey("When the interval fits under the cap", func() {
			req.Offered = 10
			res := r.Resolve(ctx, req)

			Convey("Then the search converges as usual", func() {
				So(res.NonConvergent, ShouldBeFalse)
				So(res.RequiredAgents, ShouldBeLessThanOrEqualTo, 10)
				So(res.Eval.ServiceLevel, ShouldBeGreaterThanOrEqualTo, voice.SLATargetFraction)
			})
		})
	})
}

func TestResolveThroughput(t *testing.T) {
	Convey("Given 20 emails of 180s in 15 minutes", t, func() {
		r := staffing.NewResolver()
		res := r.Resolve(context.Background(), staffing.Request{
			Offered: 20, AHTSeconds: 180, IntervalMinutes: 15, Profile: email, WageMultiplier: 1,
		})

		Convey("Then 4 agents are required without a search", func() {
			So(res.RequiredAgents, ShouldEqual, 4)
			So(res.Eval.ServiceLevel, ShouldEqual, 1.0)
			So(res.Eval.ASASeconds, ShouldBeNil)
			So(res.Iterations, ShouldEqual, 1)
		})
	})
}

func TestConversions(t *testing.T) {
	cases := []struct {
		name      string
		required  int
		buffer    float64
		shrinkage float64
		scheduled int
		available int
	}{
		{"worked example", 10, 0.08, 0.20, 14, 11},
		{"no buffer no shrinkage", 7, 0, 0, 7, 7},
		{"exact division", 8, 0, 0.5, 16, 8},
		{"zero required", 0, 0.2, 0.3, 0, 0},
		{"shrinkage above cap", 1, 0, 0.99, 20, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sched := staffing.Scheduled(tc.required, tc.buffer, tc.shrinkage)
			assert.Equal(t, tc.scheduled, sched)
			if tc.shrinkage <= model.MaxShrinkage {
				assert.Equal(t, tc.available, staffing.Available(sched, tc.shrinkage))
			}
		})
	}

	t.Run("cost", func(t *testing.T) {
		assert.InDelta(t, 154.0, staffing.Cost(14, 20, 1.1, 30), 1e-9)
		assert.Zero(t, staffing.Cost(0, 20, 1, 30))
	})

	t.Run("throughput requirement", func(t *testing.T) {
		assert.Equal(t, 4, staffing.RequiredThroughput(20, 180, 900))
		assert.Equal(t, 5, staffing.RequiredThroughput(21, 180, 900))
		assert.Equal(t, 0, staffing.RequiredThroughput(0, 180, 900))
	})
}
