// Package scenario applies what-if perturbations to forecast demand and
// drives the staffing resolver for every interval.
package scenario

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/wfmsim/internal/domain/model"
	"github.com/okian/wfmsim/internal/domain/staffing"
	"github.com/okian/wfmsim/pkg/logger"
)

// SeriesInput is the read-only per-series data shared by every scenario.
type SeriesInput struct {
	Key             model.SeriesKey
	Profile         model.ChannelProfile
	IntervalMinutes int
	Points          []model.ForecastPoint
	Reference       model.SeriesReference
}

// Outcome is what one scenario produced for one or more series.
type Outcome struct {
	Rows             []model.SimulationRow
	Issues           []model.Issue
	SearchIterations int
}

// Engine turns forecasts into simulation rows. An Engine holds a resolver
// whose cache is not shareable, so each worker owns one Engine.
type Engine struct {
	resolver *staffing.Resolver
	log      logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithResolver sets the staffing resolver.
func WithResolver(r *staffing.Resolver) Option {
	return func(e *Engine) {
		if r != nil {
			e.resolver = r
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// NewEngine builds an engine. Without WithResolver it uses an uncached one.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{log: logger.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	if e.resolver == nil {
		e.resolver = staffing.NewResolver(staffing.WithLogger(e.log))
	}
	return e
}

// Identity returns the scenario that leaves every input unchanged.
func Identity() model.Scenario { return model.Baseline() }

// Run simulates one scenario over one series. It stops early with ctx.Err()
// when the context is cancelled.
func (e *Engine) Run(ctx context.Context, sc model.Scenario, in SeriesInput) (Outcome, error) {
	var out Outcome
	if err := sc.Validate(); err != nil {
		return out, err
	}
	shrink := sc.EffectiveShrinkage(in.Reference.ShrinkageRate)
	out.Rows = make([]model.SimulationRow, 0, len(in.Points))

	for _, p := range in.Points {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}
		req := staffing.Request{
			Offered:            p.ForecastOffered * sc.DemandMultiplier,
			AHTSeconds:         in.Reference.AHTSeconds,
			IntervalMinutes:    in.IntervalMinutes,
			Profile:            in.Profile,
			EffectiveShrinkage: shrink,
			StaffingBufferPct:  sc.StaffingBufferPct,
			CostPerHour:        in.Reference.CostPerHour,
			WageMultiplier:     sc.WageMultiplier,
		}
		res := e.resolver.Resolve(ctx, req)
		out.SearchIterations += res.Iterations

		row := model.SimulationRow{
			Scenario:           sc.Name,
			Timestamp:          p.Timestamp,
			IntervalMinutes:    in.IntervalMinutes,
			Channel:            in.Key.Channel,
			Queue:              in.Key.Queue,
			ForecastOffered:    req.Offered,
			AHTSeconds:         req.AHTSeconds,
			OfferedLoad:        res.Eval.OfferedLoad,
			RequiredAgents:     res.RequiredAgents,
			ScheduledAgents:    res.ScheduledAgents,
			AvailableAgents:    res.AvailableAgents,
			EffectiveShrinkage: shrink,
			ServiceLevel:       res.Achieved.ServiceLevel,
			ASASeconds:         res.Achieved.ASASeconds,
			CostTotal:          res.CostTotal,
			NonConvergent:      res.NonConvergent,
		}
		out.Rows = append(out.Rows, row)

		if res.NonConvergent {
			ts := p.Timestamp
			out.Issues = append(out.Issues, model.Issue{
				Kind:      model.IssueNonConvergent,
				Scenario:  sc.Name,
				Channel:   in.Key.Channel,
				Queue:     in.Key.Queue,
				Timestamp: &ts,
				Reason:    fmt.Sprintf("service level %.4f below target %.2f at upper bound %d", res.Eval.ServiceLevel, in.Profile.SLATargetFraction, res.RequiredAgents),
			})
			e.log.Warn(ctx, "non-convergent staffing search",
				logger.String("scenario", sc.Name),
				logger.String("series", in.Key.String()),
				logger.Int("agents", res.RequiredAgents),
			)
		}
	}
	return out, nil
}

// RunAll simulates every scenario over every series sequentially and returns
// rows ordered by (scenario, channel, queue, timestamp).
func (e *Engine) RunAll(ctx context.Context, scenarios model.ScenarioSet, inputs []SeriesInput) (Outcome, error) {
	var all Outcome
	for _, sc := range scenarios {
		for _, in := range inputs {
			o, err := e.Run(ctx, sc, in)
			if err != nil {
				return Outcome{}, err
			}
			all.Rows = append(all.Rows, o.Rows...)
			all.Issues = append(all.Issues, o.Issues...)
			all.SearchIterations += o.SearchIterations
		}
	}
	SortRows(all.Rows)
	return all, nil
}

// SortRows orders rows by (scenario, channel, queue, timestamp) so output does
// not depend on evaluation order.
func SortRows(rows []model.SimulationRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Scenario != b.Scenario {
			return a.Scenario < b.Scenario
		}
		if a.Channel != b.Channel {
			return a.Channel < b.Channel
		}
		if a.Queue != b.Queue {
			return a.Queue < b.Queue
		}
		return a.Timestamp.Before(b.Timestamp)
	})
}
