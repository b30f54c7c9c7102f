package scenario_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/wfmsim/internal/domain/model"
	"github.com/okian/wfmsim/internal/domain/queueing"
	"github.com/okian/wfmsim/internal/domain/scenario"
	"github.com/okian/wfmsim/internal/domain/staffing"
	. "github.com/smartystreets/goconvey/convey"
)

var day = time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)

func voiceInput() scenario.SeriesInput {
	points := make([]model.ForecastPoint, 24)
	for h := range points {
		points[h] = model.ForecastPoint{Timestamp: day.Add(time.Duration(h) * time.Hour), ForecastOffered: float64(h * 10)}
	}
	return scenario.SeriesInput{
		Key:             model.SeriesKey{Channel: "voice", Queue: "sales"},
		Profile:         model.ChannelProfile{Name: "voice", IsRealTime: true, SLATargetSeconds: 20, SLATargetFraction: 0.8},
		IntervalMinutes: 60,
		Points:          points,
		Reference:       model.SeriesReference{AHTSeconds: 280, ShrinkageRate: 0.3, CostPerHour: 24},
	}
}

func emailInput() scenario.SeriesInput {
	in := voiceInput()
	in.Key = model.SeriesKey{Channel: "email", Queue: "sales"}
	in.Profile = model.ChannelProfile{Name: "email", SLATargetFraction: 0.9}
	return in
}

func TestEngineRun(t *testing.T) {
	Convey("Given an engine with a cached resolver", t, func() {
		ctx := context.Background()
		e := scenario.NewEngine(scenario.WithResolver(staffing.NewResolver(staffing.WithCache(queueing.NewCache()))))
		in := voiceInput()

		Convey("When the identity scenario runs", func() {
			out, err := e.Run(ctx, scenario.Identity(), in)
			So(err, ShouldBeNil)

			Convey("Then every row matches an untransformed resolve", func() {
				r := staffing.NewResolver()
				So(len(out.Rows), ShouldEqual, len(in.Points))
				for i, row := range out.Rows {
					want := r.Resolve(ctx, staffing.Request{
						Offered: in.Points[i].ForecastOffered, AHTSeconds: 280, IntervalMinutes: 60, Profile: in.Profile,
						EffectiveShrinkage: 0.3, CostPerHour: 24, WageMultiplier: 1,
					})
					So(row.Scenario, ShouldEqual, model.BaselineName)
					So(row.ForecastOffered, ShouldEqual, in.Points[i].ForecastOffered)
					So(row.RequiredAgents, ShouldEqual, want.RequiredAgents)
					So(row.ScheduledAgents, ShouldEqual, want.ScheduledAgents)
					So(row.CostTotal, ShouldEqual, want.CostTotal)
					So(row.AvailableAgents, ShouldEqual, want.AvailableAgents)
					So(row.ServiceLevel, ShouldEqual, want.Achieved.ServiceLevel)
				}
				So(out.Issues, ShouldBeEmpty)
				So(out.SearchIterations, ShouldBeGreaterThan, 0)
			})

			Convey("Then the idle midnight interval costs nothing", func() {
				So(out.Rows[0].ForecastOffered, ShouldEqual, 0.0)
				So(out.Rows[0].RequiredAgents, ShouldEqual, 0)
				So(out.Rows[0].CostTotal, ShouldEqual, 0.0)
				So(out.Rows[0].ServiceLevel, ShouldEqual, 1.0)
			})
		})

		Convey("When perturbations are applied", func() {
			base, _ := e.Run(ctx, scenario.Identity(), in)
			hi, _ := e.Run(ctx, model.Scenario{Name: "hi", DemandMultiplier: 1.1, WageMultiplier: 1}, in)
			wage, _ := e.Run(ctx, model.Scenario{Name: "wage", DemandMultiplier: 1, WageMultiplier: 1.1}, in)
			shrink, _ := e.Run(ctx, model.Scenario{Name: "shrink", DemandMultiplier: 1, WageMultiplier: 1, ShrinkageDelta: 0.9}, in)

			Convey("Then each lever moves only its own output", func() {
				for i := range base.Rows {
					So(hi.Rows[i].ForecastOffered, ShouldAlmostEqual, base.Rows[i].ForecastOffered*1.1, 1e-9)
					So(hi.Rows[i].RequiredAgents, ShouldBeGreaterThanOrEqualTo, base.Rows[i].RequiredAgents)
					So(wage.Rows[i].RequiredAgents, ShouldEqual, base.Rows[i].RequiredAgents)
					So(wage.Rows[i].CostTotal, ShouldAlmostEqual, base.Rows[i].CostTotal*1.1, 1e-9)
					So(shrink.Rows[i].EffectiveShrinkage, ShouldEqual, model.MaxShrinkage)
				}
			})
		})

		Convey("When a scenario staffs a larger buffer", func() {
			base, err := e.Run(ctx, scenario.Identity(), in)
			So(err, ShouldBeNil)
			aggressive, err := e.Run(ctx, model.Scenario{Name: "aggressive", DemandMultiplier: 1, WageMultiplier: 1, StaffingBufferPct: 0.20}, in)
			So(err, ShouldBeNil)

			Convey("Then service never drops and improves where headcount grows", func() {
				improved := 0
				for i := range base.Rows {
					b, a := base.Rows[i], aggressive.Rows[i]
					So(a.RequiredAgents, ShouldEqual, b.RequiredAgents)
					So(a.AvailableAgents, ShouldBeGreaterThanOrEqualTo, b.AvailableAgents)
					So(a.ServiceLevel, ShouldBeGreaterThanOrEqualTo, b.ServiceLevel)
					So(a.CostTotal, ShouldBeGreaterThanOrEqualTo, b.CostTotal)
					if a.ServiceLevel > b.ServiceLevel {
						improved++
					}
				}
				So(improved, ShouldBeGreaterThan, 0)
				So(aggressive.Rows[12].ServiceLevel, ShouldBeGreaterThan, base.Rows[12].ServiceLevel)
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := e.Run(cctx, scenario.Identity(), in)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})

		Convey("When the scenario is malformed", func() {
			_, err := e.Run(ctx, model.Scenario{Name: "bad", DemandMultiplier: 0, WageMultiplier: 1}, in)
			So(errors.Is(err, model.ErrInvalidScenario), ShouldBeTrue)
		})
	})
}

func TestEngineRunNonConvergent(t *testing.T) {
	Convey("Given an engine whose resolver is capped at 5 agents", t, func() {
		ctx := context.Background()
		e := scenario.NewEngine(scenario.WithResolver(staffing.NewResolver(staffing.WithMaxAgents(5))))
		in := voiceInput()

		Convey("When the busy hours need more than the cap", func() {
			out, err := e.Run(ctx, scenario.Identity(), in)
			So(err, ShouldBeNil)

			Convey("Then every capped row is emitted, flagged and reported", func() {
				So(len(out.Rows), ShouldEqual, len(in.Points))
				flagged := 0
				for _, row := range out.Rows {
					if row.NonConvergent {
						flagged++
						So(row.RequiredAgents, ShouldEqual, 5)
					}
				}
				So(out.Rows[0].NonConvergent, ShouldBeFalse)
				So(out.Rows[23].NonConvergent, ShouldBeTrue)
				So(len(out.Issues), ShouldEqual, flagged)

				last := out.Issues[len(out.Issues)-1]
				So(last.Kind, ShouldEqual, model.IssueNonConvergent)
				So(last.Scenario, ShouldEqual, model.BaselineName)
				So(last.Channel, ShouldEqual, "voice")
				So(last.Queue, ShouldEqual, "sales")
				So(*last.Timestamp, ShouldEqual, out.Rows[23].Timestamp)
				So(last.Reason, ShouldContainSubstring, "upper bound 5")
			})
		})
	})
}

func TestEngineRunAll(t *testing.T) {
	Convey("Given two series and the default scenarios", t, func() {
		ctx := context.Background()
		set, err := model.NewScenarioSet(model.DefaultScenarios())
		So(err, ShouldBeNil)
		inputs := []scenario.SeriesInput{voiceInput(), emailInput()}

		Convey("When run in two different orders", func() {
			a, err := scenario.NewEngine().RunAll(ctx, set, inputs)
			So(err, ShouldBeNil)

			reversed := make(model.ScenarioSet, len(set))
			for i := range set {
				reversed[len(set)-1-i] = set[i]
			}
			b, err := scenario.NewEngine().RunAll(ctx, reversed, []scenario.SeriesInput{inputs[1], inputs[0]})
			So(err, ShouldBeNil)

			Convey("Then the sorted output is identical", func() {
				So(len(a.Rows), ShouldEqual, len(set)*2*24)
				So(a.Rows, ShouldResemble, b.Rows)
				So(a.Rows[0].Scenario, ShouldEqual, "aggressive")
				So(a.Rows[0].Channel, ShouldEqual, "email")
			})
		})
	})
}
