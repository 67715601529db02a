package fal_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/reel/internal/fal"
	"github.com/five82/reel/internal/fal/faltest"
)

func newClient(t *testing.T, baseURL string) *fal.Client {
	t.Helper()
	c, err := fal.NewClient(fal.Options{APIKey: faltest.DefaultAPIKey, BaseURL: baseURL})
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := fal.NewClient(fal.Options{APIKey: "  "})
	assert.ErrorIs(t, err, fal.ErrMissingAPIKey)
}

func TestNewClientNormalizesBaseURL(t *testing.T) {
	tests := map[string]string{
		"":                           fal.DefaultBaseURL,
		"queue.example.com":          "https://queue.example.com",
		"http://localhost:8080/api/": "http://localhost:8080/api",
		"https://q.example.com?x=1":  "https://q.example.com",
	}
	for in, want := range tests {
		c, err := fal.NewClient(fal.Options{APIKey: "k", BaseURL: in})
		require.NoError(t, err, in)
		assert.Equal(t, want, c.BaseURL(), in)
	}

	_, err := fal.NewClient(fal.Options{APIKey: "k", BaseURL: "ftp://example.com"})
	assert.Error(t, err)
}

func TestClientSendsAuthAndHeaders(t *testing.T) {
	var got http.Header
	var gotPath, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		gotPath = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("Invalid parameters"))
	}))
	t.Cleanup(server.Close)

	c, err := fal.NewClient(fal.Options{APIKey: "secret", BaseURL: server.URL, UserAgent: "reel-test"})
	require.NoError(t, err)

	resp, err := c.Post(context.Background(), "veed/fabric-1.0", []byte(`{"a":1}`))
	require.NoError(t, err, "HTTP errors are returned as responses")
	assert.False(t, resp.OK())
	assert.Equal(t, "Bad Request", resp.StatusText())
	assert.Equal(t, "Invalid parameters", string(resp.Body))

	assert.Equal(t, "/veed/fabric-1.0", gotPath)
	assert.Equal(t, `{"a":1}`, gotBody)
	assert.Equal(t, "Key secret", got.Get("Authorization"))
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, "reel-test", got.Get("User-Agent"))
}

func TestClientAgainstFakeQueue(t *testing.T) {
	server := faltest.NewServer(faltest.Options{})
	t.Cleanup(server.Close)
	c := newClient(t, server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	body, _ := json.Marshal(fal.SubmitPayload{ImageURL: "https://x/a.png", AudioURL: "https://x/a.mp3", Resolution: fal.Resolution720p, AspectRatio: fal.AspectSquare})
	resp, err := c.Post(ctx, c.BaseURL()+"/"+fal.ModelFabric, body)
	require.NoError(t, err)
	require.True(t, resp.OK())

	var handle fal.QueueHandle
	require.NoError(t, json.Unmarshal(resp.Body, &handle))
	require.NotEmpty(t, handle.RequestID)
	require.NotNil(t, handle.QueuePosition)

	subs := server.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, fal.ModelFabric, subs[0].Model)
	assert.Equal(t, fal.Resolution720p, subs[0].Payload.Resolution)

	var statuses []fal.Status
	for range 3 {
		resp, err := c.Get(ctx, handle.StatusURL)
		require.NoError(t, err)
		var payload fal.StatusPayload
		require.NoError(t, json.Unmarshal(resp.Body, &payload))
		statuses = append(statuses, payload.Status)
	}
	assert.Equal(t, []fal.Status{fal.StatusInQueue, fal.StatusInProgress, fal.StatusCompleted}, statuses)

	resp, err = c.Get(ctx, handle.ResponseURL)
	require.NoError(t, err)
	var result fal.VideoResult
	require.NoError(t, json.Unmarshal(resp.Body, &result))
	require.NotNil(t, result.Video)
	assert.True(t, strings.HasSuffix(result.Video.URL, handle.RequestID+".mp4"))

	require.NoError(t, c.Cancel(ctx, handle.CancelURL))
	assert.Equal(t, []string{handle.RequestID}, server.Cancelled())
}

func TestClientGetStream(t *testing.T) {
	server := faltest.NewServer(faltest.Options{})
	t.Cleanup(server.Close)
	c := newClient(t, server.URL)
	ctx := context.Background()

	resp, err := c.Post(ctx, fal.ModelFabric, []byte(`{}`))
	require.NoError(t, err)
	var handle fal.QueueHandle
	require.NoError(t, json.Unmarshal(resp.Body, &handle))

	stream, err := c.GetStream(ctx, handle.StatusURL+"/stream?logs=1")
	require.NoError(t, err)
	defer stream.Close()

	var data []string
	scanner := bufio.NewScanner(stream)
	for scanner.Scan() {
		if line, ok := strings.CutPrefix(scanner.Text(), "data: "); ok {
			data = append(data, line)
		}
	}
	require.NoError(t, scanner.Err())
	require.Len(t, data, 3)
	assert.Contains(t, data[2], `"COMPLETED"`)
}

func TestClientGetStreamRejectsErrorStatus(t *testing.T) {
	server := faltest.NewServer(faltest.Options{})
	t.Cleanup(server.Close)
	c := newClient(t, server.URL)

	_, err := c.GetStream(context.Background(), server.URL+"/veed/fabric-1.0/requests/missing/status/stream")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestClientRejectsWrongKey(t *testing.T) {
	server := faltest.NewServer(faltest.Options{})
	t.Cleanup(server.Close)
	c, err := fal.NewClient(fal.Options{APIKey: "wrong", BaseURL: server.URL})
	require.NoError(t, err)

	resp, err := c.Post(context.Background(), fal.ModelFabric, []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(resp.Body), "Invalid API key")
}

func TestClientHonorsContext(t *testing.T) {
	server := faltest.NewServer(faltest.Options{})
	t.Cleanup(server.Close)
	c := newClient(t, server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Get(ctx, server.URL+"/anything")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
