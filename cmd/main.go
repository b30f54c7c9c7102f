package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"github.com/okian/wfmsim/internal/adapters/repository"
	"github.com/okian/wfmsim/internal/adapters/source"
	app "github.com/okian/wfmsim/internal/app"
	"github.com/okian/wfmsim/internal/config"
	"github.com/okian/wfmsim/pkg/logger"
	"github.com/okian/wfmsim/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
	pushTimeout       = 10 * time.Second
	pushJob           = "wfmsim"
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		logger.Get().Error(ctx, "run failed", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

// run loads configuration, simulates the input history and persists the
// report. An optional first argument overrides input_path.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	// Load configuration (defaults -> optional file -> .env -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if len(args) > 0 {
		cfg.InputPath = args[0]
	}
	if cfg.InputPath == "" {
		return errors.New("no input: set input_path or pass a CSV path")
	}

	log := logger.Get()
	if err := logger.SetFormat(cfg.LogFormat); err != nil {
		log.Warn(ctx, "invalid log_format; keeping text", logger.String("log_format", cfg.LogFormat))
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	log = logger.Named("wfmsim")

	runID := uuid.NewString()
	metrics.Configure(
		metrics.WithMetricsEnabled(cfg.MetricsAddr != "" || cfg.PushGatewayURL != ""),
		metrics.WithConstLabels(map[string]string{"run_id": runID}),
	)

	if cfg.MetricsAddr != "" {
		srv := serveMetrics(ctx, log, cfg.MetricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}
	if cfg.PushGatewayURL != "" {
		defer func() {
			pushCtx, cancel := context.WithTimeout(context.Background(), pushTimeout)
			defer cancel()
			if err := metrics.Push(pushCtx, cfg.PushGatewayURL, pushJob, nil); err != nil {
				log.Warn(ctx, "metrics push failed", logger.Error(err))
			}
		}()
	}

	in, err := source.ReadFile(ctx, cfg.InputPath, source.WithLogger(log.Named("source")), source.WithSkipInvalid(true))
	if err != nil {
		return err
	}
	for _, rej := range in.Rejected {
		fmt.Fprintf(stderr, "rejected %v\n", rej)
	}

	opts := []app.Option{app.WithRunID(runID), app.WithLogger(log.Named("service"))}
	if cfg.Progress {
		bar := progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(stderr),
			progressbar.OptionSetDescription("simulating"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		opts = append(opts, app.WithProgress(bar))
	}
	svc, err := app.NewFromConfig(cfg, opts...)
	if err != nil {
		return err
	}

	rep, err := svc.Run(ctx, in.Records)
	if err != nil {
		return err
	}

	store, err := repository.Open(ctx, cfg.OutputDriver, cfg.OutputDSN, repository.WithLogger(log.Named("repository")))
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	defer store.Close()
	if err := svc.Persist(ctx, rep, store); err != nil {
		return err
	}

	printSummary(stdout, rep)
	return nil
}

func serveMetrics(ctx context.Context, log logger.Logger, addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: readHeaderTimeout}
	go func() {
		log.Info(ctx, "serving metrics", logger.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "metrics server failed", logger.Error(err))
		}
	}()
	return srv
}

func printSummary(w io.Writer, rep *app.Report) {
	fmt.Fprintf(w, "run %s: %d rows, %d rollups, %d accuracy records, %d issues in %s\n",
		rep.RunID, len(rep.Rows), len(rep.Rollups), len(rep.Accuracy), len(rep.Issues), rep.Duration.Round(time.Millisecond))
	for _, s := range rep.Summary() {
		fmt.Fprintf(w, "  %-12s intervals=%-5d required=%-7d scheduled=%-7d cost=%12.2f attainment=%5.1f%% non_convergent=%d\n",
			s.Scenario, s.Intervals, s.RequiredAgents, s.ScheduledAgents, s.CostTotal, 100*s.SLAAttainmentRate, s.NonConvergentCount)
	}
}
