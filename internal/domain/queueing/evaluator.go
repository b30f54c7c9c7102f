package queueing

import (
	"github.com/okian/wfmsim/internal/domain/model"
)

// Input is the load of one interval for one channel.
type Input struct {
	Offered         float64
	AHTSeconds      float64
	IntervalSeconds int
	Profile         model.ChannelProfile
}

// Load returns the offered load in Erlangs.
func (in Input) Load() float64 {
	return OfferedLoad(in.Offered, in.AHTSeconds, in.IntervalSeconds)
}

// Idle reports whether the interval carries no work at all.
func (in Input) Idle() bool {
	return in.Offered <= 0 || in.AHTSeconds <= 0
}

// Result is the evaluated service for a given agent count.
type Result struct {
	Agents       int
	OfferedLoad  float64
	ServiceLevel float64
	ProbWait     float64
	// ASASeconds is nil for throughput channels and infeasible real-time counts.
	ASASeconds *float64
	// Feasible is false when a real-time queue would be unstable (agents <= load).
	Feasible bool
}

// Evaluate computes service level for agents against in. cache may be nil.
func Evaluate(in Input, agents int, cache *Cache) Result {
	a := in.Load()
	r := Result{Agents: agents, OfferedLoad: a, Feasible: true}

	if !in.Profile.IsRealTime {
		r.ServiceLevel = ServiceLevelThroughput(in.Offered, agents, in.IntervalSeconds, in.AHTSeconds)
		return r
	}

	if in.Idle() {
		zero := 0.0
		r.ServiceLevel = 1
		r.ASASeconds = &zero
		return r
	}

	pw, ok := cache.ErlangC(a, agents)
	r.ProbWait = pw
	if !ok {
		r.Feasible = false
		r.ServiceLevel = 0
		return r
	}
	r.ServiceLevel = ServiceLevelRealTime(pw, a, agents, float64(in.Profile.SLATargetSeconds), in.AHTSeconds)
	asa := ASA(pw, a, agents, in.AHTSeconds)
	r.ASASeconds = &asa
	return r
}
