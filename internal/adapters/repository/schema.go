package repository

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/okian/wfmsim/internal/domain/model"
)

// Output table names.
const (
	TableSimulationResults = "simulation_results"
	TableScenarioRollups   = "scenario_rollups"
	TableForecastAccuracy  = "forecast_accuracy"
	TableForecasts         = "forecasts"
	TableRunIssues         = "run_issues"
)

type kind int

const (
	kindText kind = iota
	kindInt
	kindReal
	kindBool
	kindTime
	kindDate
)

type column struct {
	name     string
	kind     kind
	nullable bool
}

type table struct {
	name    string
	columns []column
	index   []string
}

// Tables lists the output schema in write order.
var tables = []table{
	{
		name: TableSimulationResults,
		columns: []column{
			{name: "run_id", kind: kindText},
			{name: "scenario", kind: kindText},
			{name: "ts", kind: kindTime},
			{name: "interval_minutes", kind: kindInt},
			{name: "channel", kind: kindText},
			{name: "queue", kind: kindText},
			{name: "forecast_offered", kind: kindReal},
			{name: "aht_seconds", kind: kindReal},
			{name: "offered_load", kind: kindReal},
			{name: "required_agents", kind: kindInt},
			{name: "scheduled_agents", kind: kindInt},
			{name: "available_agents", kind: kindInt},
			{name: "effective_shrinkage", kind: kindReal},
			{name: "service_level", kind: kindReal},
			{name: "asa_seconds", kind: kindReal, nullable: true},
			{name: "cost_total", kind: kindReal},
			{name: "non_convergent", kind: kindBool},
		},
		index: []string{"run_id", "scenario", "channel", "queue", "ts"},
	},
	{
		name: TableScenarioRollups,
		columns: []column{
			{name: "run_id", kind: kindText},
			{name: "scenario", kind: kindText},
			{name: "date", kind: kindDate},
			{name: "channel", kind: kindText},
			{name: "intervals", kind: kindInt},
			{name: "forecast_offered", kind: kindReal},
			{name: "required_agents", kind: kindInt},
			{name: "scheduled_agents", kind: kindInt},
			{name: "cost_total", kind: kindReal},
			{name: "avg_service_level", kind: kindReal},
			{name: "sla_attainment_rate", kind: kindReal},
			{name: "avg_asa_seconds", kind: kindReal, nullable: true},
			{name: "non_convergent_count", kind: kindInt},
		},
		index: []string{"run_id", "scenario", "date", "channel"},
	},
	{
		name: TableForecastAccuracy,
		columns: []column{
			{name: "run_id", kind: kindText},
			{name: "channel", kind: kindText},
			{name: "queue", kind: kindText},
			{name: "mape", kind: kindReal},
			{name: "rmse", kind: kindReal},
			{name: "holdout_days", kind: kindInt},
			{name: "holdout_intervals", kind: kindInt},
			{name: "mape_intervals", kind: kindInt},
		},
		index: []string{"run_id", "channel", "queue"},
	},
	{
		name: TableForecasts,
		columns: []column{
			{name: "run_id", kind: kindText},
			{name: "channel", kind: kindText},
			{name: "queue", kind: kindText},
			{name: "ts", kind: kindTime},
			{name: "interval_minutes", kind: kindInt},
			{name: "forecast_offered", kind: kindReal},
			{name: "trend_factor", kind: kindReal},
			{name: "sparse_history", kind: kindBool},
		},
		index: []string{"run_id", "channel", "queue", "ts"},
	},
	{
		name: TableRunIssues,
		columns: []column{
			{name: "run_id", kind: kindText},
			{name: "kind", kind: kindText},
			{name: "scenario", kind: kindText},
			{name: "channel", kind: kindText},
			{name: "queue", kind: kindText},
			{name: "ts", kind: kindTime, nullable: true},
			{name: "reason", kind: kindText},
		},
		index: []string{"run_id", "kind"},
	},
}

func lookupTable(name string) (table, bool) {
	for _, t := range tables {
		if t.name == name {
			return t, true
		}
	}
	return table{}, false
}

func (t table) columnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
	}
	return names
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func nullTime(p *time.Time) sql.NullTime {
	if p == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: p.UTC(), Valid: true}
}

func simulationValues(r model.SimulationRow) []any {
	return []any{
		r.RunID, r.Scenario, r.Timestamp.UTC(), r.IntervalMinutes, r.Channel, r.Queue,
		r.ForecastOffered, r.AHTSeconds, r.OfferedLoad,
		r.RequiredAgents, r.ScheduledAgents, r.AvailableAgents,
		r.EffectiveShrinkage, r.ServiceLevel, nullFloat(r.ASASeconds), r.CostTotal, r.NonConvergent,
	}
}

func rollupValues(r model.RollupRow) []any {
	return []any{
		r.RunID, r.Scenario, r.Date, r.Channel, r.Intervals,
		r.ForecastOffered, r.RequiredAgents, r.ScheduledAgents, r.CostTotal,
		r.AvgServiceLevel, r.SLAAttainmentRate, nullFloat(r.AvgASASeconds), r.NonConvergentCount,
	}
}

func accuracyValues(r model.AccuracyRecord) []any {
	return []any{
		r.RunID, r.Channel, r.Queue, r.MAPE, r.RMSE, r.HoldoutDays, r.HoldoutIntervals, r.MAPEIntervals,
	}
}

func forecastValues(runID string, fs model.ForecastSeries) [][]any {
	out := make([][]any, len(fs.Points))
	for i, p := range fs.Points {
		out[i] = []any{
			runID, fs.Key.Channel, fs.Key.Queue, p.Timestamp.UTC(), fs.IntervalMinutes,
			p.ForecastOffered, fs.TrendFactor, fs.SparseHistory,
		}
	}
	return out
}

func issueValues(i model.Issue) []any {
	return []any{i.RunID, string(i.Kind), i.Scenario, i.Channel, i.Queue, nullTime(i.Timestamp), i.Reason}
}

// formatValue renders a column value as text for CSV output.
func formatValue(c column, v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		if c.kind == kindDate {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.RFC3339)
	case sql.NullFloat64:
		if !x.Valid {
			return ""
		}
		return strconv.FormatFloat(x.Float64, 'f', -1, 64)
	case sql.NullTime:
		if !x.Valid {
			return ""
		}
		return x.Time.Format(time.RFC3339)
	default:
		return ""
	}
}
