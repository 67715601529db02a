package app

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/reel/internal/config"
	"github.com/five82/reel/internal/fal"
	"github.com/five82/reel/internal/fal/faltest"
	"github.com/five82/reel/internal/history"
	"github.com/five82/reel/internal/lifecycle"
	"github.com/five82/reel/internal/prefs"
)

type env struct {
	srv        *faltest.Server
	dir        string
	configPath string
	prefsPath  string
	history    string
}

func newEnv(t *testing.T, apiKey string) env {
	t.Helper()
	t.Setenv("FAL_KEY", "")
	t.Setenv("REEL_API_KEY", "")
	t.Setenv("REEL_BASE_URL", "")
	t.Setenv("REEL_LOG_LEVEL", "")

	srv := faltest.NewServer(faltest.Options{})
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	e := env{
		srv:        srv,
		dir:        dir,
		configPath: filepath.Join(dir, "config.toml"),
		prefsPath:  filepath.Join(dir, "prefs.toml"),
		history:    filepath.Join(dir, "data", "history.db"),
	}
	body := fmt.Sprintf(`
api_key = %q
base_url = %q
poll_interval_seconds = 1
history_path = %q
log_level = "error"
`, apiKey, srv.URL, e.history)
	require.NoError(t, os.WriteFile(e.configPath, []byte(body), 0o644))
	return e
}

func (e env) options(stdout *bytes.Buffer) Options {
	return Options{
		ConfigPath: e.configPath,
		PrefsPath:  e.prefsPath,
		LogFormat:  "json",
		Stdout:     stdout,
		Stderr:     &bytes.Buffer{},
		Overrides: Overrides{
			ImageURL: "https://cdn.example.com/face.png",
			AudioURL: "https://cdn.example.com/voice.mp3",
		},
	}
}

func decodeLines(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		out = append(out, m)
	}
	return out
}

func TestRunSingleRecordPolling(t *testing.T) {
	e := newEnv(t, faltest.DefaultAPIKey)
	var stdout bytes.Buffer
	opts := e.options(&stdout)
	opts.Overrides.Strategy = "poll"
	opts.Overrides.Resolution = "720p"

	outcomes, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].OK())

	lines := decodeLines(t, stdout.Bytes())
	require.Len(t, lines, 1)
	assert.Equal(t, "req-0001", lines[0]["request_id"])
	assert.Equal(t, "COMPLETED", lines[0]["final_status"])
	artifact := lines[0]["artifact"].(map[string]any)
	assert.Equal(t, e.srv.URL+"/files/req-0001.mp4", artifact["url"])

	subs := e.srv.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, fal.ModelFabric, subs[0].Model)
	assert.Equal(t, fal.Resolution720p, subs[0].Payload.Resolution)
	assert.Equal(t, "Key "+faltest.DefaultAPIKey, subs[0].Auth)

	store, err := history.Open(e.history)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	entries, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, artifact["url"], entries[0].VideoURL)

	saved, err := prefs.Load(e.prefsPath)
	require.NoError(t, err)
	assert.Equal(t, fal.ModelFabric, saved.LastModel)
	assert.Equal(t, "720p", saved.LastRes)
}

func TestRunManifestStreamingToFile(t *testing.T) {
	e := newEnv(t, faltest.DefaultAPIKey)
	manifestPath := filepath.Join(e.dir, "batch.yaml")
	require.NoError(t, os.WriteFile(manifestPath, []byte(`
records:
  - image_url: https://cdn.example.com/a.png
  - image_url: https://cdn.example.com/b.png
    model: veed/fabric-1.0/fast
`), 0o644))

	var stdout bytes.Buffer
	opts := e.options(&stdout)
	opts.ManifestPath = manifestPath
	opts.OutputPath = filepath.Join(e.dir, "out", "results.jsonl")
	opts.Overrides.Strategy = "stream"

	outcomes, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Empty(t, stdout.String(), "file output keeps stdout clean")

	data, err := os.ReadFile(opts.OutputPath)
	require.NoError(t, err)
	lines := decodeLines(t, data)
	require.Len(t, lines, 2)
	assert.EqualValues(t, 0, lines[0]["index"])
	assert.EqualValues(t, 1, lines[1]["index"])
	assert.Equal(t, fal.ModelFabricFast, lines[1]["model"])
	assert.Zero(t, e.srv.StatusReads(), "stream strategy never polls")
}

func TestRunContinueOnErrorReportsFailures(t *testing.T) {
	e := newEnv(t, faltest.DefaultAPIKey)
	manifestPath := filepath.Join(e.dir, "batch.json")
	require.NoError(t, os.WriteFile(manifestPath, []byte(`{"records": [
  {"image_url": "not-a-url"},
  {"image_url": "https://cdn.example.com/b.png"}
]}`), 0o644))

	var stdout bytes.Buffer
	opts := e.options(&stdout)
	opts.ManifestPath = manifestPath
	opts.Overrides.Strategy = "stream"
	opts.Overrides.ContinueOnError = true

	outcomes, err := Run(context.Background(), opts)
	require.ErrorIs(t, err, ErrRecordsFailed)
	require.Len(t, outcomes, 2)
	assert.ErrorIs(t, outcomes[0].Err, lifecycle.ErrValidation)
	assert.True(t, outcomes[1].OK())

	lines := decodeLines(t, stdout.Bytes())
	require.Len(t, lines, 2)
	assert.Equal(t, "validation", lines[0]["error_kind"])
	assert.Equal(t, "Invalid image URL format", lines[0]["error"])
}

func TestRunContinueOnErrorBadResolution(t *testing.T) {
	e := newEnv(t, faltest.DefaultAPIKey)
	manifestPath := filepath.Join(e.dir, "batch.json")
	require.NoError(t, os.WriteFile(manifestPath, []byte(`{"records": [
  {"image_url": "https://cdn.example.com/a.png", "resolution": "720P"},
  {"image_url": "https://cdn.example.com/b.png", "resolution": "1080p"},
  {"image_url": "https://cdn.example.com/c.png"}
]}`), 0o644))

	var stdout bytes.Buffer
	opts := e.options(&stdout)
	opts.ManifestPath = manifestPath
	opts.Overrides.Strategy = "poll"
	opts.Overrides.ContinueOnError = true

	outcomes, err := Run(context.Background(), opts)
	require.ErrorIs(t, err, ErrRecordsFailed)
	require.Len(t, outcomes, 3)
	assert.True(t, outcomes[0].OK())
	assert.ErrorIs(t, outcomes[1].Err, lifecycle.ErrValidation)
	assert.Contains(t, outcomes[1].Err.Error(), `unsupported resolution "1080p"`)
	assert.True(t, outcomes[2].OK())

	subs := e.srv.Submissions()
	require.Len(t, subs, 2)
	assert.Equal(t, fal.Resolution720p, subs[0].Payload.Resolution)

	lines := decodeLines(t, stdout.Bytes())
	require.Len(t, lines, 3)
	assert.EqualValues(t, 1, lines[1]["index"])
	assert.Equal(t, "validation", lines[1]["error_kind"])
}

func TestRunAbortsOnFirstFailure(t *testing.T) {
	e := newEnv(t, faltest.DefaultAPIKey)
	var stdout bytes.Buffer
	opts := e.options(&stdout)
	opts.Overrides.ImageURL = ""

	outcomes, err := Run(context.Background(), opts)
	require.ErrorIs(t, err, lifecycle.ErrValidation)
	assert.Equal(t, "record 0: Image URL is required", err.Error())
	require.Len(t, outcomes, 1)
	assert.Empty(t, e.srv.Submissions())
}

func TestRunRequiresAPIKey(t *testing.T) {
	e := newEnv(t, "")
	_, err := Run(context.Background(), e.options(&bytes.Buffer{}))
	require.ErrorIs(t, err, fal.ErrMissingAPIKey)
}

func TestRunCancelledContext(t *testing.T) {
	e := newEnv(t, faltest.DefaultAPIKey)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes, err := Run(ctx, e.options(&bytes.Buffer{}))
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, outcomes)
	assert.Empty(t, e.srv.Submissions())
}

func TestHistoryListsRecentRuns(t *testing.T) {
	e := newEnv(t, faltest.DefaultAPIKey)
	opts := e.options(&bytes.Buffer{})
	opts.Overrides.Strategy = "stream"
	_, err := Run(context.Background(), opts)
	require.NoError(t, err)

	var table bytes.Buffer
	require.NoError(t, History(context.Background(), HistoryOptions{ConfigPath: e.configPath, Stdout: &table}))
	assert.Contains(t, table.String(), "RESULT")
	assert.Contains(t, table.String(), e.srv.URL+"/files/req-0001.mp4")

	var jsonOut bytes.Buffer
	require.NoError(t, History(context.Background(), HistoryOptions{ConfigPath: e.configPath, JSON: true, Limit: 1, Stdout: &jsonOut}))
	lines := decodeLines(t, jsonOut.Bytes())
	require.Len(t, lines, 1)
	assert.Equal(t, "req-0001", lines[0]["request_id"])
}

func TestHistoryEmpty(t *testing.T) {
	e := newEnv(t, faltest.DefaultAPIKey)
	var out bytes.Buffer
	require.NoError(t, History(context.Background(), HistoryOptions{ConfigPath: e.configPath, Stdout: &out}))
	assert.Equal(t, "no history yet", strings.TrimSpace(out.String()))
}

func TestApplyOverrides(t *testing.T) {
	cfg := config.Default()
	err := applyOverrides(&cfg, Overrides{
		Model:          "veed/fabric-1.0/fast",
		AspectRatio:    "1:1",
		PollSeconds:    90,
		TimeoutMinutes: 2,
		Strategy:       "stream",
		Strict:         true,
	})
	require.NoError(t, err)
	assert.Equal(t, "veed/fabric-1.0/fast", cfg.Model)
	assert.Equal(t, fal.AspectSquare, cfg.AspectRatio)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
	assert.Equal(t, lifecycle.StrategyStream, cfg.Strategy)
	assert.True(t, cfg.StrictExtensions)
	assert.False(t, cfg.ContinueOnError)

	assert.Error(t, applyOverrides(&cfg, Overrides{Resolution: "1080p"}))
	assert.Error(t, applyOverrides(&cfg, Overrides{Strategy: "websocket"}))
	assert.NoError(t, applyOverrides(&cfg, Overrides{}))
}
