// Package metrics provides Prometheus metrics for the staffing simulation engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector the engine reports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Run lifecycle
	runsStarted   prometheus.Counter
	runsCompleted *prometheus.CounterVec
	runDuration   prometheus.Histogram

	// Pipeline output
	unitsProcessed      *prometheus.CounterVec
	rowsEmitted         *prometheus.CounterVec
	nonConvergentRows   *prometheus.CounterVec
	seriesSkipped       *prometheus.CounterVec
	unitLatency         prometheus.Histogram
	searchIterations    prometheus.Histogram
	scenarioCost        *prometheus.GaugeVec
	scenarioAttainment  *prometheus.GaugeVec
	forecastMAPE        *prometheus.GaugeVec
	forecastRMSE        *prometheus.GaugeVec
	evaluatorCacheHits  prometheus.Counter
	evaluatorCacheMiss  prometheus.Counter
	repositoryRows      *prometheus.CounterVec
	repositoryLatency   *prometheus.HistogramVec
	repositoryErrors    *prometheus.CounterVec
	inputRecordsParsed  prometheus.Counter
	inputRecordsInvalid *prometheus.CounterVec

	// Queue and workers
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueRejected    *prometheus.CounterVec
	workerCount      prometheus.Gauge
	workerErrorCount prometheus.Counter
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // isolated from default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "wfm",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.runsStarted = auto.NewCounter(m.counterOpts("runs_started_total", "Simulation runs started"))
	m.runsCompleted = auto.NewCounterVec(m.counterOpts("runs_completed_total", "Simulation runs finished by outcome"), []string{"outcome"})
	m.runDuration = auto.NewHistogram(m.histogramOpts("run_duration_seconds", "Wall time of a full simulation run",
		[]float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120}))

	m.unitsProcessed = auto.NewCounterVec(m.counterOpts("work_units_processed_total", "Work units (scenario x series) processed"), []string{"scenario"})
	m.rowsEmitted = auto.NewCounterVec(m.counterOpts("simulation_rows_total", "Interval simulation rows emitted"), []string{"scenario", "channel"})
	m.nonConvergentRows = auto.NewCounterVec(m.counterOpts("non_convergent_rows_total", "Rows whose agent search hit the upper bound"), []string{"scenario", "channel"})
	m.seriesSkipped = auto.NewCounterVec(m.counterOpts("series_skipped_total", "Series rejected by input validation"), []string{"channel"})
	m.unitLatency = auto.NewHistogram(m.histogramOpts("work_unit_latency_milliseconds", "Time to simulate one work unit", m.histogramBuckets))
	m.searchIterations = auto.NewHistogram(m.histogramOpts("agent_search_iterations", "Evaluator calls per real-time agent search",
		[]float64{1, 2, 4, 6, 8, 10, 12, 16, 24, 32}))
	m.scenarioCost = auto.NewGaugeVec(m.gaugeOpts("scenario_cost_total", "Total scheduled labor cost per scenario in the last run"), []string{"scenario"})
	m.scenarioAttainment = auto.NewGaugeVec(m.gaugeOpts("scenario_sla_attainment_ratio", "Share of intervals meeting the SLA target per scenario in the last run"), []string{"scenario"})
	m.forecastMAPE = auto.NewGaugeVec(m.gaugeOpts("forecast_mape_ratio", "Holdout MAPE per series"), []string{"channel", "queue"})
	m.forecastRMSE = auto.NewGaugeVec(m.gaugeOpts("forecast_rmse", "Holdout RMSE per series"), []string{"channel", "queue"})
	m.evaluatorCacheHits = auto.NewCounter(m.counterOpts("evaluator_cache_hits_total", "Erlang C cache hits"))
	m.evaluatorCacheMiss = auto.NewCounter(m.counterOpts("evaluator_cache_misses_total", "Erlang C cache misses"))
	m.repositoryRows = auto.NewCounterVec(m.counterOpts("repository_rows_written_total", "Rows written to the output sink"), []string{"table"})
	m.repositoryLatency = auto.NewHistogramVec(m.histogramOpts("repository_write_latency_milliseconds", "Output sink write latency per table", m.histogramBuckets), []string{"table"})
	m.repositoryErrors = auto.NewCounterVec(m.counterOpts("repository_errors_total", "Output sink write failures"), []string{"table"})
	m.inputRecordsParsed = auto.NewCounter(m.counterOpts("input_records_total", "Interval records parsed from input"))
	m.inputRecordsInvalid = auto.NewCounterVec(m.counterOpts("input_records_invalid_total", "Input rows rejected by the parser"), []string{"reason"})

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Work units waiting in the queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum work units the queue holds"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueued_total", "Work units accepted by the queue"))
	m.queueRejected = auto.NewCounterVec(m.counterOpts("queue_rejected_total", "Work units refused by the queue"), []string{"reason"})
	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Workers in the simulation pool"))
	m.workerErrorCount = auto.NewCounter(m.counterOpts("worker_errors_total", "Work units that failed inside a worker"))
}

// Enabled reports whether recording is on.
func (m *Manager) Enabled() bool { return m.enabled }

func on() bool { return globalManager != nil && globalManager.enabled }

// RecordRunStarted increments the run counter.
func RecordRunStarted() {
	if on() {
		globalManager.runsStarted.Inc()
	}
}

// RecordRunCompleted records the outcome ("success", "cancelled", "error") and duration of a run.
func RecordRunCompleted(outcome string, seconds float64) {
	if on() {
		globalManager.runsCompleted.WithLabelValues(outcome).Inc()
		globalManager.runDuration.Observe(seconds)
	}
}

// RecordUnitProcessed records one finished work unit.
func RecordUnitProcessed(scenario string, latencyMs float64) {
	if on() {
		globalManager.unitsProcessed.WithLabelValues(scenario).Inc()
		globalManager.unitLatency.Observe(latencyMs)
	}
}

// RecordRows adds emitted simulation rows.
func RecordRows(scenario, channel string, n int) {
	if on() {
		globalManager.rowsEmitted.WithLabelValues(scenario, channel).Add(float64(n))
	}
}

// RecordNonConvergent counts a row whose search exhausted its bound.
func RecordNonConvergent(scenario, channel string) {
	if on() {
		globalManager.nonConvergentRows.WithLabelValues(scenario, channel).Inc()
	}
}

// RecordSeriesSkipped counts a series rejected by validation.
func RecordSeriesSkipped(channel string) {
	if on() {
		globalManager.seriesSkipped.WithLabelValues(channel).Inc()
	}
}

// RecordSearchIterations observes evaluator calls used by one agent search.
func RecordSearchIterations(n int) {
	if on() {
		globalManager.searchIterations.Observe(float64(n))
	}
}

// UpdateScenarioSummary sets the last run's cost and attainment for a scenario.
func UpdateScenarioSummary(scenario string, cost, attainment float64) {
	if on() {
		globalManager.scenarioCost.WithLabelValues(scenario).Set(cost)
		globalManager.scenarioAttainment.WithLabelValues(scenario).Set(attainment)
	}
}

// UpdateForecastAccuracy sets holdout error gauges for a series.
func UpdateForecastAccuracy(channel, queue string, mape, rmse float64) {
	if on() {
		globalManager.forecastMAPE.WithLabelValues(channel, queue).Set(mape)
		globalManager.forecastRMSE.WithLabelValues(channel, queue).Set(rmse)
	}
}

// RecordCacheLookups adds Erlang C cache hit and miss counts.
func RecordCacheLookups(hits, misses uint64) {
	if on() {
		globalManager.evaluatorCacheHits.Add(float64(hits))
		globalManager.evaluatorCacheMiss.Add(float64(misses))
	}
}

// RecordRepositoryWrite records rows written to a table and the write latency.
func RecordRepositoryWrite(table string, rows int, latencyMs float64) {
	if on() {
		globalManager.repositoryRows.WithLabelValues(table).Add(float64(rows))
		globalManager.repositoryLatency.WithLabelValues(table).Observe(latencyMs)
	}
}

// RecordRepositoryError counts a failed write.
func RecordRepositoryError(table string) {
	if on() {
		globalManager.repositoryErrors.WithLabelValues(table).Inc()
	}
}

// RecordInputRecords adds successfully parsed input rows.
func RecordInputRecords(n int) {
	if on() {
		globalManager.inputRecordsParsed.Add(float64(n))
	}
}

// RecordInputInvalid counts a rejected input row.
func RecordInputInvalid(reason string) {
	if on() {
		globalManager.inputRecordsInvalid.WithLabelValues(reason).Inc()
	}
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	if on() {
		globalManager.queueSize.Set(float64(size))
	}
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	if on() {
		globalManager.queueCapacity.Set(float64(capacity))
	}
}

// RecordQueueEnqueue increments the accepted work unit counter.
func RecordQueueEnqueue() {
	if on() {
		globalManager.queueEnqueued.Inc()
	}
}

// RecordQueueRejected counts a refused enqueue by reason.
func RecordQueueRejected(reason string) {
	if on() {
		globalManager.queueRejected.WithLabelValues(reason).Inc()
	}
}

// UpdateWorkerCount sets the pool size.
func UpdateWorkerCount(count int) {
	if on() {
		globalManager.workerCount.Set(float64(count))
	}
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	if on() {
		globalManager.workerErrorCount.Inc()
	}
}

// Configure replaces the global manager with one built from opts on a fresh
// registry. Call it before recording starts; collectors recorded so far are
// discarded.
func Configure(opts ...Option) {
	customRegistry = prometheus.NewRegistry()
	globalManager = NewManager(append([]Option{WithPrometheusRegistry(customRegistry)}, opts...)...)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
