package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/five82/reel/internal/fal"
)

// fakeTransport serves scripted responses and records every call.
type fakeTransport struct {
	mu     sync.Mutex
	posts  []string
	gets   []string
	bodies [][]byte

	post func(url string, body []byte) (*fal.Response, error)
	get  func(url string, call int) (*fal.Response, error)
}

func (f *fakeTransport) Post(_ context.Context, url string, body []byte) (*fal.Response, error) {
	f.mu.Lock()
	f.posts = append(f.posts, url)
	f.bodies = append(f.bodies, body)
	f.mu.Unlock()
	if f.post == nil {
		return nil, fmt.Errorf("unexpected POST %s", url)
	}
	return f.post(url, body)
}

func (f *fakeTransport) Get(ctx context.Context, url string) (*fal.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.gets = append(f.gets, url)
	call := len(f.gets)
	f.mu.Unlock()
	if f.get == nil {
		return nil, fmt.Errorf("unexpected GET %s", url)
	}
	return f.get(url, call)
}

func (f *fakeTransport) getCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.gets)
}

// fakeStreamTransport adds GetStream and Cancel to fakeTransport.
type fakeStreamTransport struct {
	*fakeTransport
	streams []string
	open    func(ctx context.Context, url string) (io.ReadCloser, error)
	cancels []string
}

func (f *fakeStreamTransport) GetStream(ctx context.Context, url string) (io.ReadCloser, error) {
	f.mu.Lock()
	f.streams = append(f.streams, url)
	f.mu.Unlock()
	return f.open(ctx, url)
}

func (f *fakeStreamTransport) Cancel(_ context.Context, url string) error {
	f.mu.Lock()
	f.cancels = append(f.cancels, url)
	f.mu.Unlock()
	return nil
}

// statusSequence returns a get func that walks payloads, repeating the last.
func statusSequence(t *testing.T, payloads ...fal.StatusPayload) func(string, int) (*fal.Response, error) {
	t.Helper()
	return func(_ string, call int) (*fal.Response, error) {
		i := min(call-1, len(payloads)-1)
		return jsonResponse(t, http.StatusOK, payloads[i]), nil
	}
}

func jsonResponse(t *testing.T, status int, v any) *fal.Response {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return &fal.Response{StatusCode: status, Status: fmt.Sprintf("%d %s", status, http.StatusText(status)), Body: data}
}

func textResponse(status int, body string) *fal.Response {
	return &fal.Response{StatusCode: status, Status: fmt.Sprintf("%d %s", status, http.StatusText(status)), Body: []byte(body)}
}

// fakeClock advances only when Sleep is called.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// recorder collects observed events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Observe(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

func (r *recorder) ofKind(kind EventKind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func logs(messages ...string) []fal.LogEntry {
	out := make([]fal.LogEntry, 0, len(messages))
	for _, m := range messages {
		out = append(out, fal.LogEntry{Message: m})
	}
	return out
}

func validRequest() GenerationRequest {
	return GenerationRequest{
		Model:       fal.ModelFabric,
		ImageURL:    "https://example.com/face.png",
		AudioURL:    "https://example.com/voice.mp3",
		Resolution:  fal.Resolution480p,
		AspectRatio: fal.AspectLandscape,
	}
}
