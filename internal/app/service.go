// Package service orchestrates a simulation run: it validates and prepares
// the input series, forecasts them, fans scenario work out to the worker
// pool and reduces the results into a Report.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/wfmsim/internal/adapters/mq/queue"
	"github.com/okian/wfmsim/internal/adapters/mq/worker"
	"github.com/okian/wfmsim/internal/config"
	"github.com/okian/wfmsim/internal/domain/accuracy"
	"github.com/okian/wfmsim/internal/domain/forecast"
	"github.com/okian/wfmsim/internal/domain/model"
	"github.com/okian/wfmsim/internal/domain/rollup"
	"github.com/okian/wfmsim/internal/domain/scenario"
	"github.com/okian/wfmsim/internal/domain/series"
	"github.com/okian/wfmsim/pkg/logger"
	"github.com/okian/wfmsim/pkg/metrics"
)

// Service runs simulations. A Service holds only read-only configuration and
// may run several times, concurrently.
type Service struct {
	channels  *model.ChannelTable
	scenarios model.ScenarioSet

	workerCount     int
	queueSize       int
	cacheSize       int
	maxAgents       int
	horizonDays     int
	intervalMinutes int
	holdoutDays     int
	runID           string

	progress Progress
	logger   logger.Logger
}

// New constructs a new Service with default configuration. Callers must
// supply a channel table through WithChannels.
func New(opts ...Option) *Service {
	s := &Service{
		scenarios:       model.ScenarioSet{model.Baseline()},
		workerCount:     runtime.NumCPU(),
		queueSize:       1024,
		cacheSize:       4096,
		horizonDays:     14,
		intervalMinutes: 30,
		holdoutDays:     7,
		logger:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromConfig validates cfg and builds a Service from it.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	channels, err := cfg.ChannelTable()
	if err != nil {
		return nil, err
	}
	scenarios, err := cfg.ScenarioSet()
	if err != nil {
		return nil, err
	}
	base := []Option{
		WithChannels(channels),
		WithScenarios(scenarios),
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.QueueSize),
		WithCacheSize(cfg.CacheSize),
		WithMaxAgents(cfg.MaxAgents),
		WithHorizonDays(cfg.HorizonDays),
		WithIntervalMinutes(cfg.IntervalMinutes),
		WithHoldoutDays(cfg.HoldoutDays),
	}
	return New(append(base, opts...)...), nil
}

// Scenarios returns the scenario set the service simulates.
func (s *Service) Scenarios() model.ScenarioSet { return s.scenarios }

// prepared is one series ready for simulation.
type prepared struct {
	input    scenario.SeriesInput
	forecast model.ForecastSeries
	accuracy *model.AccuracyRecord
	issues   []model.Issue
	skipped  bool
}

// Run simulates every scenario over every valid series in records.
func (s *Service) Run(ctx context.Context, records []model.IntervalRecord) (rep *Report, err error) {
	start := time.Now()
	runID := s.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := s.logger.With(logger.String("run_id", runID))
	metrics.RecordRunStarted()
	defer func() {
		metrics.RecordRunCompleted(outcome(err), time.Since(start).Seconds())
	}()

	if s.channels == nil {
		return nil, ErrNoChannels
	}
	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	for _, ch := range series.Channels(records) {
		if _, lerr := s.channels.Lookup(ch); lerr != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnknownChannel, lerr)
		}
	}

	log.Info(ctx, "run started",
		logger.Int("records", len(records)),
		logger.Int("scenarios", len(s.scenarios)),
		logger.Int("workers", s.workerCount),
		logger.Int("interval_minutes", s.intervalMinutes))

	rep = &Report{RunID: runID, StartedAt: start.UTC(), Scenarios: s.scenarios}

	preps, err := s.prepare(ctx, records)
	if err != nil {
		return nil, err
	}
	inputs := make(map[model.SeriesKey]scenario.SeriesInput, len(preps))
	keys := make([]model.SeriesKey, 0, len(preps))
	for _, p := range preps {
		rep.Issues = append(rep.Issues, p.issues...)
		if p.skipped {
			continue
		}
		inputs[p.input.Key] = p.input
		keys = append(keys, p.input.Key)
		rep.Forecasts = append(rep.Forecasts, p.forecast)
		if p.accuracy != nil {
			rep.Accuracy = append(rep.Accuracy, *p.accuracy)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: all %d series skipped", ErrNoSeries, len(preps))
	}

	rows, issues, err := s.simulate(ctx, log, keys, inputs)
	if err != nil {
		return nil, err
	}
	scenario.SortRows(rows)
	rep.Rows = rows
	rep.Issues = append(rep.Issues, issues...)

	rep.Rollups, err = rollup.Aggregate(rep.Rows, s.channels)
	if err != nil {
		return nil, err
	}
	rep.stamp()
	sortIssues(rep.Issues)
	rep.Duration = time.Since(start)
	s.record(rep)

	log.Info(ctx, "run completed",
		logger.Int("series", len(keys)),
		logger.Int("rows", len(rep.Rows)),
		logger.Int("issues", len(rep.Issues)),
		logger.Duration("duration", rep.Duration))
	return rep, nil
}

// prepare builds, scores and forecasts every series, bounded by the worker
// count. Results come back in key order.
func (s *Service) prepare(ctx context.Context, records []model.IntervalRecord) ([]prepared, error) {
	groups := series.Group(records)
	keys := series.Keys(groups)
	out := make([]prepared, len(keys))

	sem := make(chan struct{}, s.workerCount)
	var wg sync.WaitGroup
	for i, key := range keys {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		case sem <- struct{}{}:
		}
		i, key := i, key
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			out[i] = s.prepareOne(ctx, key, groups[key])
		}()
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) prepareOne(ctx context.Context, key model.SeriesKey, recs []model.IntervalRecord) prepared {
	var p prepared
	skip := func(reason string) prepared {
		metrics.RecordSeriesSkipped(key.Channel)
		s.logger.Warn(ctx, "series skipped", logger.String("series", key.String()), logger.String("reason", reason))
		p.skipped = true
		p.issues = append(p.issues, model.Issue{
			Kind:    model.IssueSkippedSeries,
			Channel: key.Channel,
			Queue:   key.Queue,
			Reason:  reason,
		})
		return p
	}

	ser, err := series.Build(key, recs, s.intervalMinutes)
	if err != nil {
		return skip(err.Error())
	}
	profile, err := s.channels.Lookup(key.Channel)
	if err != nil {
		return skip(err.Error())
	}

	acc, err := accuracy.Evaluate(key, ser.Records, s.holdoutDays, accuracy.DefaultFitter)
	if err == nil {
		p.accuracy = &acc
	} else {
		if !errors.Is(err, accuracy.ErrNoHoldout) && !errors.Is(err, accuracy.ErrNoTraining) {
			s.logger.Warn(ctx, "accuracy not scored", logger.String("series", key.String()), logger.Error(err))
		}
		p.issues = append(p.issues, model.Issue{
			Kind:    model.IssueNoHoldout,
			Channel: key.Channel,
			Queue:   key.Queue,
			Reason:  err.Error(),
		})
	}

	m, err := forecast.Fit(ser.Records)
	if err != nil {
		return skip(fmt.Sprintf("forecast: %v", err))
	}
	p.forecast = m.Forecast(m.Next(), s.horizonDays)
	p.input = scenario.SeriesInput{
		Key:             key,
		Profile:         profile,
		IntervalMinutes: ser.IntervalMinutes,
		Points:          p.forecast.Points,
		Reference:       ser.Reference,
	}
	return p
}

// simulate dispatches one work unit per (scenario, series) to the pool and
// collects the batches.
func (s *Service) simulate(ctx context.Context, log logger.Logger, keys []model.SeriesKey, inputs map[model.SeriesKey]scenario.SeriesInput) ([]model.SimulationRow, []model.Issue, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	total := len(keys) * len(s.scenarios)
	if s.progress != nil {
		s.progress.ChangeMax(total)
	}

	q := queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	results := make(chan model.Batch, s.workerCount)
	factory := func(id int) worker.Processor {
		return newUnitProcessor(inputs, s.cacheSize, s.maxAgents, log.Named(fmt.Sprintf("worker-%d", id)))
	}
	pool := worker.NewPool(s.workerCount, q, factory, results, worker.WithLogger(log))
	pool.Start(ctx)

	go func() {
		defer func() { _ = q.Close() }()
		for _, sc := range s.scenarios {
			for _, key := range keys {
				if err := q.EnqueueWait(ctx, model.WorkUnit{Scenario: sc, Key: key}); err != nil {
					return
				}
			}
		}
	}()
	go func() {
		pool.Wait()
		close(results)
	}()

	var (
		rows     []model.SimulationRow
		issues   []model.Issue
		firstErr error
		done     int
	)
	for b := range results {
		done++
		if s.progress != nil {
			_ = s.progress.Add(1)
		}
		if b.Err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%s %s: %w", b.Unit.Scenario.Name, b.Unit.Key, b.Err)
				cancel()
			}
			continue
		}
		rows = append(rows, b.Rows...)
		issues = append(issues, b.Issues...)
	}
	if s.progress != nil {
		_ = s.progress.Finish()
	}

	if firstErr != nil && !errors.Is(firstErr, context.Canceled) {
		return nil, nil, firstErr
	}
	if err := ctx.Err(); err != nil || done < total {
		if err == nil {
			err = context.Canceled
		}
		return nil, nil, err
	}
	return rows, issues, nil
}

func (s *Service) record(rep *Report) {
	for _, is := range rep.Issues {
		if is.Kind == model.IssueNonConvergent {
			metrics.RecordNonConvergent(is.Scenario, is.Channel)
		}
	}
	for _, sum := range rep.Summary() {
		metrics.UpdateScenarioSummary(sum.Scenario, sum.CostTotal, sum.SLAAttainmentRate)
	}
	for _, a := range rep.Accuracy {
		metrics.UpdateForecastAccuracy(a.Channel, a.Queue, a.MAPE, a.RMSE)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}

func sortIssues(issues []model.Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Scenario != b.Scenario {
			return a.Scenario < b.Scenario
		}
		if a.Channel != b.Channel {
			return a.Channel < b.Channel
		}
		if a.Queue != b.Queue {
			return a.Queue < b.Queue
		}
		return tsOf(a).Before(tsOf(b))
	})
}

func tsOf(i model.Issue) time.Time {
	if i.Timestamp == nil {
		return time.Time{}
	}
	return *i.Timestamp
}
