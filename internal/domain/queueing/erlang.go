// Package queueing evaluates service level for a given staffing level.
//
// Real-time channels use the Erlang C (M/M/N) waiting-line model; throughput
// channels compare handling capacity with offered work. Every function here is
// pure: results depend only on arguments, so callers may evaluate concurrently.
package queueing

import (
	"math"
)

// OfferedLoad converts contacts per interval into Erlangs.
func OfferedLoad(offered, ahtSeconds float64, intervalSeconds int) float64 {
	if offered <= 0 || ahtSeconds <= 0 || intervalSeconds <= 0 {
		return 0
	}
	return offered * ahtSeconds / float64(intervalSeconds)
}

// ErlangC returns the probability that an arriving contact waits, given load
// a (Erlangs) and n agents. ok is false when n <= a: the queue is unstable and
// every contact waits.
//
// It uses the Erlang B recursion B(k) = a·B(k-1) / (k + a·B(k-1)) and
// C = n·B / (n - a·(1 - B)), which stays finite for large n where the
// factorial form overflows.
func ErlangC(a float64, n int) (pw float64, ok bool) {
	if a <= 0 {
		return 0, n >= 0
	}
	if float64(n) <= a {
		return 1, false
	}
	b := 1.0
	for k := 1; k <= n; k++ {
		ab := a * b
		b = ab / (float64(k) + ab)
	}
	nf := float64(n)
	c := nf * b / (nf - a*(1-b))
	return clamp01(c), true
}

// ServiceLevelRealTime is P(wait <= targetSeconds) for n agents.
func ServiceLevelRealTime(pw, a float64, n int, targetSeconds, ahtSeconds float64) float64 {
	if ahtSeconds <= 0 {
		return 1
	}
	return clamp01(1 - pw*math.Exp(-(float64(n)-a)*targetSeconds/ahtSeconds))
}

// ASA is the expected wait in seconds for n agents at load a.
func ASA(pw, a float64, n int, ahtSeconds float64) float64 {
	return pw * ahtSeconds / (float64(n) - a)
}

// Capacity is the number of contacts agents can handle in one interval.
func Capacity(agents int, intervalSeconds int, ahtSeconds float64) float64 {
	if agents <= 0 || ahtSeconds <= 0 {
		return 0
	}
	return float64(agents) * float64(intervalSeconds) / ahtSeconds
}

// ServiceLevelThroughput is min(1, capacity/offered), 1 when nothing is offered.
func ServiceLevelThroughput(offered float64, agents int, intervalSeconds int, ahtSeconds float64) float64 {
	if offered <= 0 || ahtSeconds <= 0 {
		return 1
	}
	return math.Min(1, Capacity(agents, intervalSeconds, ahtSeconds)/offered)
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
