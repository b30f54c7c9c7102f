// Package staffing finds the minimal agent count meeting a channel's service
// target and converts it into scheduled headcount and cost.
package staffing

import (
	"context"
	"math"

	"github.com/okian/wfmsim/internal/domain/model"
	"github.com/okian/wfmsim/internal/domain/queueing"
	"github.com/okian/wfmsim/pkg/logger"
)

// roundingEpsilon absorbs floating-point overshoot before ceil/floor so that
// 10·1.08/0.8 rounds to 14, not 15.
const roundingEpsilon = 1e-9

// Request is one interval's perturbed inputs.
type Request struct {
	Offered            float64
	AHTSeconds         float64
	IntervalMinutes    int
	Profile            model.ChannelProfile
	EffectiveShrinkage float64
	StaffingBufferPct  float64
	CostPerHour        float64
	WageMultiplier     float64
}

// IntervalSeconds returns the interval length in seconds.
func (r Request) IntervalSeconds() int { return r.IntervalMinutes * 60 }

func (r Request) input() queueing.Input {
	return queueing.Input{
		Offered:         r.Offered,
		AHTSeconds:      r.AHTSeconds,
		IntervalSeconds: r.IntervalSeconds(),
		Profile:         r.Profile,
	}
}

// Result is the staffing decision for one interval. Eval holds the service
// of RequiredAgents; Achieved holds the service of AvailableAgents, which is
// what the scenario's headcount actually delivers.
type Result struct {
	RequiredAgents  int
	ScheduledAgents int
	AvailableAgents int
	CostTotal       float64
	Eval            queueing.Result
	Achieved        queueing.Result
	NonConvergent   bool
	// Iterations counts evaluator calls made by the search.
	Iterations int
}

// Resolver searches staffing levels. A Resolver is not safe for concurrent
// use when built with a cache; give each worker its own.
type Resolver struct {
	cache     *queueing.Cache
	maxAgents int
	log       logger.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache memoizes Erlang C evaluations in c.
func WithCache(c *queueing.Cache) Option {
	return func(r *Resolver) { r.cache = c }
}

// WithMaxAgents caps the real-time search at n agents, e.g. the seats a site
// has. Intervals that need more are flagged non-convergent. n <= 0 means no
// cap.
func WithMaxAgents(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxAgents = n
		}
	}
}

// WithLogger sets the logger used for search diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// NewResolver builds a resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{log: logger.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Cache returns the resolver's evaluator cache, possibly nil.
func (r *Resolver) Cache() *queueing.Cache { return r.cache }

// Resolve computes required and scheduled agents for req.
func (r *Resolver) Resolve(ctx context.Context, req Request) Result {
	in := req.input()

	if in.Idle() {
		ev := queueing.Evaluate(in, 0, r.cache)
		return Result{Eval: ev, Achieved: ev}
	}

	var res Result
	if req.Profile.IsRealTime {
		res = r.searchRealTime(ctx, in)
	} else {
		res = Result{RequiredAgents: RequiredThroughput(req.Offered, req.AHTSeconds, req.IntervalSeconds())}
		res.Eval = queueing.Evaluate(in, res.RequiredAgents, r.cache)
		res.Iterations = 1
	}

	res.ScheduledAgents = Scheduled(res.RequiredAgents, req.StaffingBufferPct, req.EffectiveShrinkage)
	res.AvailableAgents = Available(res.ScheduledAgents, req.EffectiveShrinkage)
	res.CostTotal = Cost(res.ScheduledAgents, req.CostPerHour, req.WageMultiplier, req.IntervalMinutes)
	res.Achieved = res.Eval
	if res.AvailableAgents != res.RequiredAgents {
		res.Achieved = queueing.Evaluate(in, res.AvailableAgents, r.cache)
	}
	return res
}

// searchRealTime binary searches [floor(A)+1, 10·ceil(A)+20] for the minimal
// count meeting the target. Service level is non-decreasing in agents.
func (r *Resolver) searchRealTime(ctx context.Context, in queueing.Input) Result {
	a := in.Load()
	target := in.Profile.SLATargetFraction
	lo := int(math.Floor(a)) + 1
	hi := 10*int(math.Ceil(a)) + 20
	if r.maxAgents > 0 && hi > r.maxAgents {
		hi = r.maxAgents
	}
	if lo > hi {
		lo = hi
	}

	iterations := 1
	top := queueing.Evaluate(in, hi, r.cache)
	if top.ServiceLevel < target {
		r.log.Debug(ctx, "staffing search did not converge",
			logger.String("channel", in.Profile.Name),
			logger.Float64("offered_load", a),
			logger.Int("upper_bound", hi),
			logger.Float64("service_level", top.ServiceLevel),
		)
		return Result{RequiredAgents: hi, Eval: top, NonConvergent: true, Iterations: iterations}
	}

	best := top
	for lo < hi {
		mid := lo + (hi-lo)/2
		ev := queueing.Evaluate(in, mid, r.cache)
		iterations++
		if ev.ServiceLevel >= target {
			hi = mid
			best = ev
		} else {
			lo = mid + 1
		}
	}
	return Result{RequiredAgents: lo, Eval: best, Iterations: iterations}
}

// RequiredThroughput is ceil(offered·aht / intervalSeconds).
func RequiredThroughput(offered, ahtSeconds float64, intervalSeconds int) int {
	if offered <= 0 || ahtSeconds <= 0 || intervalSeconds <= 0 {
		return 0
	}
	return int(math.Ceil(offered*ahtSeconds/float64(intervalSeconds) - roundingEpsilon))
}

// Scheduled converts required agents to rostered headcount:
// ceil(required·(1+buffer) / (1-shrinkage)).
func Scheduled(required int, buffer, shrinkage float64) int {
	if required <= 0 {
		return 0
	}
	if shrinkage > model.MaxShrinkage {
		shrinkage = model.MaxShrinkage
	}
	if shrinkage < 0 {
		shrinkage = 0
	}
	if buffer < 0 {
		buffer = 0
	}
	v := float64(required) * (1 + buffer) / (1 - shrinkage)
	return int(math.Ceil(v - roundingEpsilon))
}

// Available is the headcount left on the floor after shrinkage.
func Available(scheduled int, shrinkage float64) int {
	if scheduled <= 0 {
		return 0
	}
	return int(math.Floor(float64(scheduled)*(1-shrinkage) + roundingEpsilon))
}

// Cost prices scheduled headcount for one interval.
func Cost(scheduled int, costPerHour, wageMultiplier float64, intervalMinutes int) float64 {
	if scheduled <= 0 || costPerHour <= 0 || wageMultiplier <= 0 {
		return 0
	}
	return float64(scheduled) * costPerHour * wageMultiplier * float64(intervalMinutes) / 60
}
