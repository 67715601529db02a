package lifecycle

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/five82/reel/internal/fal"
)

// Transport is the authenticated HTTP access the lifecycle needs. A nil error
// with a non-2xx response is an HTTP error; a non-nil error is a transport
// failure.
type Transport interface {
	Post(ctx context.Context, url string, body []byte) (*fal.Response, error)
	Get(ctx context.Context, url string) (*fal.Response, error)
}

// StreamTransport can additionally open server-sent-event streams.
type StreamTransport interface {
	Transport
	GetStream(ctx context.Context, url string) (io.ReadCloser, error)
}

// Canceler can ask the queue to drop an unfinished request.
type Canceler interface {
	Cancel(ctx context.Context, cancelURL string) error
}

var (
	_ StreamTransport = (*fal.Client)(nil)
	_ Canceler        = (*fal.Client)(nil)
)

// statusPollURL asks the status endpoint to include log entries, which carry
// the diffusion progress.
func statusPollURL(statusURL string) string {
	return withQuery(statusURL, "", "logs", "1")
}

func statusStreamURL(statusURL string) string {
	return withQuery(statusURL, "/stream", "logs", "1")
}

func withQuery(raw, pathSuffix, key, value string) string {
	u, err := url.Parse(raw)
	if err != nil {
		sep := "?"
		if strings.Contains(raw, "?") {
			sep = "&"
		}
		return strings.TrimRight(raw, "/") + pathSuffix + sep + key + "=" + value
	}
	if pathSuffix != "" {
		u.Path = strings.TrimRight(u.Path, "/") + pathSuffix
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
