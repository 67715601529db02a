package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/five82/reel/internal/fal"
)

// Submitter enqueues generation requests.
type Submitter struct {
	Transport Transport
	BaseURL   string
	Observer  Observer
}

// Submit posts req to {BaseURL}/{Model} and returns the queue handle. A
// handle without a status URL gets one derived from the request ID.
func (s Submitter) Submit(ctx context.Context, req GenerationRequest) (fal.QueueHandle, error) {
	body, err := json.Marshal(req.Payload())
	if err != nil {
		return fal.QueueHandle{}, &Error{Kind: ErrSubmission, Stage: StageSubmit, Message: "failed to encode generation request", Err: err}
	}

	endpoint := s.modelURL(req.Model)
	resp, err := s.Transport.Post(ctx, endpoint, body)
	if err != nil {
		return fal.QueueHandle{}, &Error{Kind: ErrSubmission, Stage: StageSubmit, Message: "failed to submit generation request", Err: err}
	}
	if !resp.OK() {
		msg := "failed to submit generation request: " + resp.StatusText()
		snippet := bodySnippet(resp.Body)
		if snippet != "" {
			msg += ". " + snippet
		}
		return fal.QueueHandle{}, &Error{
			Kind:    ErrSubmission,
			Stage:   StageSubmit,
			Message: msg,
			Status:  resp.StatusCode,
			Body:    string(resp.Body),
		}
	}

	var handle fal.QueueHandle
	if err := json.Unmarshal(resp.Body, &handle); err != nil {
		return fal.QueueHandle{}, &Error{Kind: ErrSubmission, Stage: StageSubmit, Message: "failed to decode submission response", Status: resp.StatusCode, Err: err}
	}
	if strings.TrimSpace(handle.RequestID) == "" {
		return fal.QueueHandle{}, &Error{Kind: ErrSubmission, Stage: StageSubmit, Message: "submission response has no request_id", Status: resp.StatusCode, Body: string(resp.Body)}
	}
	if handle.StatusURL == "" {
		handle.StatusURL = fmt.Sprintf("%s/requests/%s/status", endpoint, handle.RequestID)
	}

	emit(ctx, s.Observer, Event{
		Kind:          EventSubmitted,
		RequestID:     handle.RequestID,
		Status:        fal.StatusInQueue,
		QueuePosition: handle.QueuePosition,
	})
	return handle, nil
}

func (s Submitter) modelURL(model string) string {
	base := strings.TrimRight(s.BaseURL, "/")
	if base == "" {
		base = fal.DefaultBaseURL
	}
	return base + "/" + strings.Trim(strings.TrimSpace(model), "/")
}
