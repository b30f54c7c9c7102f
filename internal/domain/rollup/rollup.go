// Package rollup summarizes simulation rows per scenario, day and channel.
package rollup

import (
	"fmt"
	"sort"
	"time"

	"github.com/okian/wfmsim/internal/domain/model"
)

type groupKey struct {
	scenario string
	date     time.Time
	channel  string
}

type acc struct {
	row      model.RollupRow
	slSum    float64
	attained int
	asaSum   float64
	asaCount int
	target   float64
}

// Aggregate reduces rows by (scenario, date, channel). SLA attainment is the
// share of intervals whose service level reached the channel's target
// fraction, which differs from the mean service level. Output is ordered by
// (scenario, date, channel).
func Aggregate(rows []model.SimulationRow, channels *model.ChannelTable) ([]model.RollupRow, error) {
	groups := make(map[groupKey]*acc)
	for _, r := range rows {
		k := groupKey{scenario: r.Scenario, date: Date(r.Timestamp), channel: r.Channel}
		a, ok := groups[k]
		if !ok {
			p, err := channels.Lookup(r.Channel)
			if err != nil {
				return nil, fmt.Errorf("rollup: %w", err)
			}
			a = &acc{
				row:    model.RollupRow{RunID: r.RunID, Scenario: r.Scenario, Date: k.date, Channel: r.Channel},
				target: p.SLATargetFraction,
			}
			groups[k] = a
		}
		a.row.Intervals++
		a.row.ForecastOffered += r.ForecastOffered
		a.row.RequiredAgents += r.RequiredAgents
		a.row.ScheduledAgents += r.ScheduledAgents
		a.row.CostTotal += r.CostTotal
		a.slSum += r.ServiceLevel
		if r.ServiceLevel >= a.target {
			a.attained++
		}
		if r.ASASeconds != nil {
			a.asaSum += *r.ASASeconds
			a.asaCount++
		}
		if r.NonConvergent {
			a.row.NonConvergentCount++
		}
	}

	out := make([]model.RollupRow, 0, len(groups))
	for _, a := range groups {
		n := float64(a.row.Intervals)
		a.row.AvgServiceLevel = a.slSum / n
		a.row.SLAAttainmentRate = float64(a.attained) / n
		if a.asaCount > 0 {
			asa := a.asaSum / float64(a.asaCount)
			a.row.AvgASASeconds = &asa
		}
		out = append(out, a.row)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Scenario != b.Scenario {
			return a.Scenario < b.Scenario
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.Channel < b.Channel
	})
	return out, nil
}

// Date truncates ts to its calendar day in its own location.
func Date(ts time.Time) time.Time {
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, ts.Location())
}
