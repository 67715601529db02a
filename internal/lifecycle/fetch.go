package lifecycle

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/five82/reel/internal/fal"
)

// Fetcher reads the finished artifact from a response URL.
type Fetcher struct {
	Transport Transport
}

// Fetch returns the video artifact. A 2xx result without a video URL is a
// contract violation and reported as ErrFetch.
func (f Fetcher) Fetch(ctx context.Context, responseURL string) (fal.Artifact, error) {
	resp, err := f.Transport.Get(ctx, responseURL)
	if err != nil {
		return fal.Artifact{}, &Error{Kind: ErrFetch, Stage: StageFetch, Message: "failed to fetch video result", Err: err}
	}
	if !resp.OK() {
		return fal.Artifact{}, &Error{
			Kind:    ErrFetch,
			Stage:   StageFetch,
			Message: "failed to fetch video result: " + resp.StatusText(),
			Status:  resp.StatusCode,
			Body:    string(resp.Body),
		}
	}

	var result fal.VideoResult
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return fal.Artifact{}, &Error{Kind: ErrFetch, Stage: StageFetch, Message: "failed to decode video result", Status: resp.StatusCode, Err: err}
	}
	if result.Video == nil || strings.TrimSpace(result.Video.URL) == "" {
		return fal.Artifact{}, &Error{Kind: ErrFetch, Stage: StageFetch, Message: "video result returned but no artifact URL found", Status: resp.StatusCode, Body: string(resp.Body)}
	}
	return *result.Video, nil
}
