package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/five82/reel/internal/config"
	"github.com/five82/reel/internal/fal"
	"github.com/five82/reel/internal/history"
	"github.com/five82/reel/internal/lifecycle"
	"github.com/five82/reel/internal/log"
	"github.com/five82/reel/internal/manifest"
	"github.com/five82/reel/internal/metrics"
	"github.com/five82/reel/internal/prefs"
	"github.com/five82/reel/internal/state"
	"github.com/five82/reel/internal/telemetry"
	"github.com/five82/reel/internal/ui"
)

// ErrRecordsFailed is returned when a continue-on-error run finished with at
// least one failed record.
var ErrRecordsFailed = errors.New("one or more records failed")

// Overrides are per-run settings from the command line. Zero values leave the
// configured value in place.
type Overrides struct {
	Model           string
	ImageURL        string
	AudioURL        string
	Resolution      string
	AspectRatio     string
	PollSeconds     int
	TimeoutMinutes  int
	Strategy        string
	ContinueOnError bool
	Strict          bool
}

// Options configure a reel run.
type Options struct {
	ConfigPath   string
	PrefsPath    string // empty uses ~/.config/reel/prefs.toml
	ManifestPath string // empty runs a single record built from Overrides
	Overrides    Overrides
	TUI          bool
	OutputPath   string // empty writes JSON lines to Stdout
	LogFormat    string
	Version      string

	Stdout io.Writer
	Stderr io.Writer
}

// Run executes one batch and returns its outcomes. Outcomes are written as
// JSON lines, recorded in history and the run settings remembered in prefs
// even when the run fails part way.
func Run(ctx context.Context, opts Options) ([]lifecycle.Outcome, error) {
	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := applyOverrides(&cfg, opts.Overrides); err != nil {
		return nil, err
	}
	userPrefs, _ := prefs.Load(opts.PrefsPath)

	logOut, closeLog, err := logOutput(cfg, opts.TUI, stderr)
	if err != nil {
		return nil, err
	}
	defer closeLog()
	logger := log.New(log.Config{Level: cfg.LogLevel, Format: opts.LogFormat, Output: logOut, Version: opts.Version})

	records, err := loadRecords(cfg, opts)
	if err != nil {
		return nil, err
	}

	client, err := fal.NewClient(fal.Options{
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		RateLimit: rate.Limit(cfg.RateLimit),
		UserAgent: userAgent(opts.Version),
	})
	if err != nil {
		return nil, fmt.Errorf("init fal client: %w", err)
	}

	batchID := uuid.NewString()
	ctx = log.ContextWithBatchID(ctx, batchID)
	logger = logger.With().Str("batch_id", batchID).Logger()

	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    "reel",
		ServiceVersion: opts.Version,
		ExporterType:   cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn().Err(err).Msg("tracing shutdown failed")
		}
	}()
	spanCtx, batchSpan := telemetry.Tracer("reel").Start(ctx, "reel.batch")
	defer batchSpan.End()
	spans := telemetry.NewSpanObserver(spanCtx, telemetry.Tracer("reel"))
	defer spans.Close()

	store := state.NewStore(batchID, records)
	controller, err := lifecycle.New(lifecycle.Options{
		Transport:        client,
		BaseURL:          client.BaseURL(),
		Strategy:         cfg.Strategy,
		PollInterval:     cfg.PollInterval,
		Timeout:          cfg.Timeout,
		ContinueOnError:  cfg.ContinueOnError,
		StrictExtensions: cfg.StrictExtensions,
		Observer: lifecycle.Observers{
			store,
			log.NewObserver(logger),
			metrics.Observer{},
			spans,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("init lifecycle: %w", err)
	}

	logger.Info().
		Int("records", len(records)).
		Str("strategy", string(cfg.Strategy)).
		Str("model", cfg.Model).
		Msg("batch started")

	var (
		outcomes []lifecycle.Outcome
		runErr   error
	)
	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancelRun := context.WithCancel(gctx)
	defer cancelRun()
	serveCtx, stopServe := context.WithCancel(gctx)
	defer stopServe()

	g.Go(func() error {
		defer stopServe()
		outcomes, runErr = controller.Run(runCtx, records)
		store.Finish(runErr)
		return nil
	})
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return metrics.Serve(serveCtx, cfg.MetricsAddr, func(addr net.Addr) {
				logger.Info().Str("addr", addr.String()).Msg("metrics listening")
			})
		})
	}
	if opts.TUI {
		g.Go(func() error {
			return ui.Run(gctx, ui.Options{
				Store:         store,
				ThemeName:     userPrefs.Theme,
				Cancel:        cancelRun,
				OnThemeChange: func(name string) { userPrefs.Theme = name },
			})
		})
	}
	if err := g.Wait(); err != nil && runErr == nil {
		runErr = err
	}

	finishCtx := context.WithoutCancel(ctx)
	if err := writeOutcomes(stdout, opts.OutputPath, outcomes); err != nil {
		return outcomes, err
	}
	recordHistory(finishCtx, cfg.HistoryPath, batchID, outcomes, logger)

	userPrefs.Remember(cfg.Model, cfg.Resolution, cfg.AspectRatio)
	if err := prefs.Save(opts.PrefsPath, userPrefs); err != nil {
		logger.Warn().Err(err).Msg("save prefs failed")
	}

	done, failed := tally(outcomes)
	logger.Info().Int("done", done).Int("failed", failed).Msg("batch finished")

	if runErr != nil {
		return outcomes, runErr
	}
	if failed > 0 {
		return outcomes, ErrRecordsFailed
	}
	return outcomes, nil
}

func applyOverrides(cfg *config.Config, o Overrides) error {
	if v := strings.TrimSpace(o.Model); v != "" {
		cfg.Model = v
	}
	if v := strings.TrimSpace(o.Resolution); v != "" {
		res, err := fal.ParseResolution(v)
		if err != nil {
			return err
		}
		cfg.Resolution = res
	}
	if v := strings.TrimSpace(o.AspectRatio); v != "" {
		aspect, err := fal.ParseAspectRatio(v)
		if err != nil {
			return err
		}
		cfg.AspectRatio = aspect
	}
	if o.PollSeconds > 0 {
		cfg.PollInterval = config.ClampPollInterval(o.PollSeconds)
	}
	if o.TimeoutMinutes > 0 {
		cfg.Timeout = config.ClampTimeout(o.TimeoutMinutes)
	}
	if v := strings.TrimSpace(o.Strategy); v != "" {
		strategy, err := lifecycle.ParseStrategy(v)
		if err != nil {
			return err
		}
		cfg.Strategy = strategy
	}
	cfg.ContinueOnError = cfg.ContinueOnError || o.ContinueOnError
	cfg.StrictExtensions = cfg.StrictExtensions || o.Strict
	return nil
}

func loadRecords(cfg config.Config, opts Options) ([]lifecycle.GenerationRequest, error) {
	defaults := lifecycle.GenerationRequest{
		Model:       cfg.Model,
		ImageURL:    strings.TrimSpace(opts.Overrides.ImageURL),
		AudioURL:    strings.TrimSpace(opts.Overrides.AudioURL),
		Resolution:  cfg.Resolution,
		AspectRatio: cfg.AspectRatio,
	}
	if opts.ManifestPath == "" {
		return []lifecycle.GenerationRequest{defaults}, nil
	}
	records, err := manifest.Load(opts.ManifestPath, defaults)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}
	return records, nil
}

// logOutput keeps log lines off the terminal while the TUI owns it.
func logOutput(cfg config.Config, tui bool, stderr io.Writer) (io.Writer, func(), error) {
	if !tui {
		return stderr, func() {}, nil
	}
	path := filepath.Join(filepath.Dir(cfg.HistoryPath), "reel.log")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func recordHistory(ctx context.Context, path, batchID string, outcomes []lifecycle.Outcome, logger zerolog.Logger) {
	if path == "" || len(outcomes) == 0 {
		return
	}
	store, err := history.Open(path)
	if err != nil {
		logger.Warn().Err(err).Msg("open history failed")
		return
	}
	defer func() { _ = store.Close() }()
	if err := store.Record(ctx, batchID, outcomes); err != nil {
		logger.Warn().Err(err).Msg("record history failed")
	}
}

func tally(outcomes []lifecycle.Outcome) (done, failed int) {
	for _, o := range outcomes {
		if o.OK() {
			done++
		} else {
			failed++
		}
	}
	return done, failed
}

func userAgent(version string) string {
	if version == "" {
		return ""
	}
	return "reel/" + version
}
