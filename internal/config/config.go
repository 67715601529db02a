package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/reel/internal/fal"
	"github.com/five82/reel/internal/lifecycle"
)

// Config holds everything reel needs to run a batch.
type Config struct {
	APIKey           string
	BaseURL          string
	Model            string
	Resolution       fal.Resolution
	AspectRatio      fal.AspectRatio
	PollInterval     time.Duration
	Timeout          time.Duration
	Strategy         lifecycle.Strategy
	StrictExtensions bool
	ContinueOnError  bool
	RateLimit        float64
	HistoryPath      string
	LogLevel         string
	MetricsAddr      string
	Tracing          TracingConfig
}

// TracingConfig controls OTLP trace export.
type TracingConfig struct {
	Enabled      bool    `toml:"enabled"`
	Exporter     string  `toml:"exporter"`
	Endpoint     string  `toml:"endpoint"`
	SamplingRate float64 `toml:"sampling_rate"`
}

const (
	defaultConfigPath   = "~/.config/reel/config.toml"
	defaultHistoryPath  = "~/.local/share/reel/history.db"
	defaultPollSeconds  = 5
	defaultTimeoutMins  = 10
	defaultRateLimit    = 5
	defaultLogLevel     = "info"
	minPollSeconds      = 1
	maxPollSeconds      = 30
	minTimeoutMinutes   = 1
	maxTimeoutMinutes   = 60
	defaultSamplingRate = 1.0
)

type fileConfig struct {
	APIKey              string        `toml:"api_key"`
	BaseURL             string        `toml:"base_url"`
	Model               string        `toml:"model"`
	Resolution          string        `toml:"resolution"`
	AspectRatio         string        `toml:"aspect_ratio"`
	PollIntervalSeconds int           `toml:"poll_interval_seconds"`
	TimeoutMinutes      int           `toml:"timeout_minutes"`
	Strategy            string        `toml:"strategy"`
	StrictExtensions    bool          `toml:"strict_extensions"`
	ContinueOnError     bool          `toml:"continue_on_error"`
	RateLimitPerSecond  float64       `toml:"rate_limit_per_second"`
	HistoryPath         string        `toml:"history_path"`
	LogLevel            string        `toml:"log_level"`
	MetricsAddr         string        `toml:"metrics_addr"`
	Tracing             TracingConfig `toml:"tracing"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		BaseURL:      fal.DefaultBaseURL,
		Model:        fal.ModelFabric,
		Resolution:   fal.Resolution480p,
		AspectRatio:  fal.AspectLandscape,
		PollInterval: defaultPollSeconds * time.Second,
		Timeout:      defaultTimeoutMins * time.Minute,
		Strategy:     lifecycle.StrategyAuto,
		RateLimit:    defaultRateLimit,
		HistoryPath:  mustExpand(defaultHistoryPath),
		LogLevel:     defaultLogLevel,
		Tracing:      TracingConfig{Exporter: "grpc", SamplingRate: defaultSamplingRate},
	}
}

// Load reads the reel config, falling back to defaults when the file is
// missing. Environment overrides are applied last.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// defaults
	case err != nil:
		return Config{}, fmt.Errorf("open config: %w", err)
	default:
		defer file.Close()
		bytes, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		var raw fileConfig
		if err := toml.Unmarshal(bytes, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
		if err := cfg.apply(raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// Path returns the config file Load would read for path.
func Path(path string) (string, error) {
	return resolvePath(path)
}

func (c *Config) apply(raw fileConfig) error {
	c.APIKey = strings.TrimSpace(raw.APIKey)
	if v := strings.TrimSpace(raw.BaseURL); v != "" {
		c.BaseURL = v
	}
	if v := strings.TrimSpace(raw.Model); v != "" {
		c.Model = v
	}
	if v := strings.TrimSpace(raw.Resolution); v != "" {
		res, err := fal.ParseResolution(v)
		if err != nil {
			return err
		}
		c.Resolution = res
	}
	if v := strings.TrimSpace(raw.AspectRatio); v != "" {
		aspect, err := fal.ParseAspectRatio(v)
		if err != nil {
			return err
		}
		c.AspectRatio = aspect
	}
	if raw.PollIntervalSeconds != 0 {
		c.PollInterval = ClampPollInterval(raw.PollIntervalSeconds)
	}
	if raw.TimeoutMinutes != 0 {
		c.Timeout = ClampTimeout(raw.TimeoutMinutes)
	}
	strategy, err := lifecycle.ParseStrategy(raw.Strategy)
	if err != nil {
		return err
	}
	c.Strategy = strategy
	c.StrictExtensions = raw.StrictExtensions
	c.ContinueOnError = raw.ContinueOnError
	if raw.RateLimitPerSecond > 0 {
		c.RateLimit = raw.RateLimitPerSecond
	}
	if v := strings.TrimSpace(raw.HistoryPath); v != "" {
		c.HistoryPath = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	c.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)

	c.Tracing.Enabled = raw.Tracing.Enabled
	c.Tracing.Endpoint = strings.TrimSpace(raw.Tracing.Endpoint)
	if v := strings.ToLower(strings.TrimSpace(raw.Tracing.Exporter)); v != "" {
		if v != "grpc" && v != "http" {
			return fmt.Errorf("unsupported tracing exporter %q (want grpc or http)", raw.Tracing.Exporter)
		}
		c.Tracing.Exporter = v
	}
	if raw.Tracing.SamplingRate > 0 {
		c.Tracing.SamplingRate = min(raw.Tracing.SamplingRate, 1)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("FAL_KEY")); v != "" {
		c.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("REEL_API_KEY")); v != "" {
		c.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("REEL_BASE_URL")); v != "" {
		c.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("REEL_LOG_LEVEL")); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
}

// ClampPollInterval converts seconds to a duration within 1s..30s.
func ClampPollInterval(seconds int) time.Duration {
	return time.Duration(clamp(seconds, minPollSeconds, maxPollSeconds)) * time.Second
}

// ClampTimeout converts minutes to a duration within 1m..60m.
func ClampTimeout(minutes int) time.Duration {
	return time.Duration(clamp(minutes, minTimeoutMinutes, maxTimeoutMinutes)) * time.Minute
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

// ExpandPath resolves a leading tilde and makes path absolute.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
