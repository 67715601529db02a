package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/five82/reel/internal/fal"
)

// DefaultPollInterval is the pause between status fetches.
const DefaultPollInterval = 5 * time.Second

// Poller awaits completion by fetching the status URL at a fixed interval.
// Transport failures are retried per Retry; HTTP error responses are not.
type Poller struct {
	Transport Transport
	Interval  time.Duration
	Retry     RetryPolicy
	Observer  Observer

	clock clock
}

// Await polls until the request completes, fails, or timeout elapses. The
// elapsed time is checked before each fetch, so a request may overrun the
// timeout by up to one interval.
func (p *Poller) Await(ctx context.Context, handle fal.QueueHandle, timeout time.Duration) (fal.StatusPayload, error) {
	clk := p.clock
	if clk == nil {
		clk = realClock{}
	}
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	retry := p.Retry.normalized()
	target := statusPollURL(handle.StatusURL)

	start := clk.Now()
	for clk.Now().Sub(start) < timeout {
		payload, err := p.fetchStatus(ctx, clk, handle.RequestID, target, retry)
		if err != nil {
			return fal.StatusPayload{}, err
		}

		switch payload.Status {
		case fal.StatusCompleted:
			reportProgress(ctx, p.Observer, handle.RequestID, payload)
			emit(ctx, p.Observer, Event{Kind: EventCompleted, RequestID: handle.RequestID, Status: payload.Status, Elapsed: clk.Now().Sub(start)})
			return payload, nil
		case fal.StatusFailed:
			reportProgress(ctx, p.Observer, handle.RequestID, payload)
			return payload, failedError(payload)
		}
		reportStatus(ctx, p.Observer, handle.RequestID, payload)

		if err := clk.Sleep(ctx, interval); err != nil {
			return fal.StatusPayload{}, err
		}
	}
	return fal.StatusPayload{}, timeoutError(timeout)
}

func (p *Poller) fetchStatus(ctx context.Context, clk clock, requestID, target string, retry RetryPolicy) (fal.StatusPayload, error) {
	var lastErr error
	for attempt := 1; attempt <= retry.MaxAttempts; attempt++ {
		resp, err := p.Transport.Get(ctx, target)
		if err == nil {
			if !resp.OK() {
				return fal.StatusPayload{}, &Error{
					Kind:     ErrPoll,
					Stage:    StageAwait,
					Message:  "failed to check status: " + resp.StatusText(),
					Status:   resp.StatusCode,
					Body:     string(resp.Body),
					Attempts: attempt,
				}
			}
			var payload fal.StatusPayload
			if err := json.Unmarshal(resp.Body, &payload); err != nil {
				return fal.StatusPayload{}, &Error{Kind: ErrPoll, Stage: StageAwait, Message: "failed to decode status response", Attempts: attempt, Err: err}
			}
			return payload, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fal.StatusPayload{}, ctxErr
		}

		lastErr = err
		if attempt == retry.MaxAttempts {
			break
		}
		emit(ctx, p.Observer, Event{Kind: EventRetry, RequestID: requestID, Attempt: attempt, Err: err})
		if err := clk.Sleep(ctx, retry.Delay(attempt)); err != nil {
			return fal.StatusPayload{}, err
		}
	}
	return fal.StatusPayload{}, &Error{
		Kind:     ErrPoll,
		Stage:    StageAwait,
		Message:  fmt.Sprintf("failed to check status after %d attempts", retry.MaxAttempts),
		Attempts: retry.MaxAttempts,
		Err:      lastErr,
	}
}
