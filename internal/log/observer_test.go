package log

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/reel/internal/fal"
	"github.com/five82/reel/internal/lifecycle"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &m), scanner.Text())
		out = append(out, m)
	}
	return out
}

func TestObserverWritesStructuredFields(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	obs := NewObserver(zerolog.New(&buf))
	pos := 2

	obs.Observe(lifecycle.Event{Kind: lifecycle.EventSubmitted, Index: 1, Model: fal.ModelFabric, RequestID: "r1", QueuePosition: &pos})
	obs.Observe(lifecycle.Event{Kind: lifecycle.EventProgress, Index: 1, RequestID: "r1", Progress: 40})
	obs.Observe(lifecycle.Event{Kind: lifecycle.EventRetry, Index: 1, RequestID: "r1", Attempt: 2, Err: errors.New("reset")})
	obs.Observe(lifecycle.Event{Kind: lifecycle.EventFetched, Index: 1, RequestID: "r1", Elapsed: time.Second, Artifact: &fal.Artifact{URL: "https://cdn/x.mp4", ContentType: "video/mp4"}})
	obs.Observe(lifecycle.Event{Kind: lifecycle.EventFailed, Index: 1, Err: &lifecycle.Error{Kind: lifecycle.ErrTimeout, Message: "timed out"}})

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 5)

	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "request submitted", lines[0]["message"])
	assert.Equal(t, "r1", lines[0]["request_id"])
	assert.Equal(t, fal.ModelFabric, lines[0]["model"])
	assert.EqualValues(t, 2, lines[0]["queue_position"])
	assert.EqualValues(t, 1, lines[0]["index"])

	assert.EqualValues(t, 40, lines[1]["progress"])
	assert.Equal(t, "warn", lines[2]["level"])
	assert.EqualValues(t, 2, lines[2]["attempt"])
	assert.Equal(t, "reset", lines[2]["error"])
	assert.Equal(t, "https://cdn/x.mp4", lines[3]["video_url"])

	assert.Equal(t, "error", lines[4]["level"])
	assert.Equal(t, "timeout", lines[4]["error_kind"])
	assert.Equal(t, "failed", lines[4]["event"])
}

func TestObserverRespectsLevel(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	obs := NewObserver(zerolog.New(&buf))
	obs.Observe(lifecycle.Event{Kind: lifecycle.EventStatus, Status: fal.StatusInQueue})
	obs.Observe(lifecycle.Event{Kind: lifecycle.EventStarted})

	assert.Zero(t, buf.Len(), "status and start events are debug level")
}

func TestNewHonorsFormatAndLevel(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	l := New(Config{Level: "WARN", Format: "json", Output: &buf, Version: "1.2.3"})
	l.Info().Msg("hidden")
	l.Warn().Msg("shown")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["message"])
	assert.Equal(t, "reel", lines[0]["service"])
	assert.Equal(t, "1.2.3", lines[0]["version"])

	buf.Reset()
	console := New(Config{Format: "console", Output: &buf})
	console.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.NotContains(t, buf.String(), `"message"`)
}

func TestBatchIDContext(t *testing.T) {
	ctx := ContextWithBatchID(context.Background(), "b-1")
	assert.Equal(t, "b-1", BatchIDFromContext(ctx))
	assert.Empty(t, BatchIDFromContext(context.Background()))
	assert.Empty(t, BatchIDFromContext(nil)) //nolint:staticcheck
}
