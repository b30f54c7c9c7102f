package service

import (
	"context"

	"github.com/okian/wfmsim/internal/domain/model"
	"github.com/okian/wfmsim/internal/domain/queueing"
	"github.com/okian/wfmsim/internal/domain/scenario"
	"github.com/okian/wfmsim/internal/domain/staffing"
	"github.com/okian/wfmsim/pkg/logger"
	"github.com/okian/wfmsim/pkg/metrics"
)

// unitProcessor runs the scenario engine for one worker. It owns the
// engine's Erlang C cache; inputs are shared read-only.
type unitProcessor struct {
	engine *scenario.Engine
	cache  *queueing.Cache
	inputs map[model.SeriesKey]scenario.SeriesInput
}

func newUnitProcessor(inputs map[model.SeriesKey]scenario.SeriesInput, cacheSize, maxAgents int, log logger.Logger) *unitProcessor {
	var cache *queueing.Cache
	if cacheSize > 0 {
		cache = queueing.NewCache(queueing.WithMaxEntries(cacheSize))
	}
	resolver := staffing.NewResolver(staffing.WithCache(cache), staffing.WithMaxAgents(maxAgents), staffing.WithLogger(log))
	return &unitProcessor{
		engine: scenario.NewEngine(scenario.WithResolver(resolver), scenario.WithLogger(log)),
		cache:  cache,
		inputs: inputs,
	}
}

// Process simulates one scenario over one series.
func (p *unitProcessor) Process(ctx context.Context, u model.WorkUnit) model.Batch {
	in, ok := p.inputs[u.Key]
	if !ok {
		return model.Batch{Unit: u, Err: ErrNoSeries}
	}
	out, err := p.engine.Run(ctx, u.Scenario, in)

	hits, misses := p.cache.Stats()
	p.cache.ResetStats()
	metrics.RecordCacheLookups(hits, misses)
	metrics.RecordSearchIterations(out.SearchIterations)

	return model.Batch{Unit: u, Rows: out.Rows, Issues: out.Issues, Err: err}
}
