package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/five82/reel/internal/fal"
)

// Awaiter waits for a queued request to reach a terminal state. It returns
// the COMPLETED payload or a typed error; FAILED becomes ErrGenerationFailed.
type Awaiter interface {
	Await(ctx context.Context, handle fal.QueueHandle, timeout time.Duration) (fal.StatusPayload, error)
}

// Strategy selects how status is observed.
type Strategy string

const (
	StrategyAuto   Strategy = "auto"
	StrategyPoll   Strategy = "poll"
	StrategyStream Strategy = "stream"
)

// ParseStrategy accepts auto, poll or stream; empty means auto.
func ParseStrategy(value string) (Strategy, error) {
	switch s := Strategy(strings.ToLower(strings.TrimSpace(value))); s {
	case "":
		return StrategyAuto, nil
	case StrategyAuto, StrategyPoll, StrategyStream:
		return s, nil
	}
	return "", fmt.Errorf("unsupported status strategy %q (want auto, poll or stream)", value)
}

// AwaitOptions configure SelectAwaiter.
type AwaitOptions struct {
	Interval time.Duration
	Retry    RetryPolicy
	Observer Observer
}

// SelectAwaiter builds the Awaiter for strategy. Auto streams when the
// transport supports it and polls otherwise.
func SelectAwaiter(strategy Strategy, transport Transport, opts AwaitOptions) (Awaiter, error) {
	poller := func() Awaiter {
		return &Poller{Transport: transport, Interval: opts.Interval, Retry: opts.Retry, Observer: opts.Observer}
	}
	streamTransport, canStream := transport.(StreamTransport)

	switch strategy {
	case StrategyPoll:
		return poller(), nil
	case StrategyStream:
		if !canStream {
			return nil, fmt.Errorf("status strategy %q: transport does not support streaming", strategy)
		}
		return &Streamer{Transport: streamTransport, Observer: opts.Observer}, nil
	case StrategyAuto, "":
		if canStream {
			return &Streamer{Transport: streamTransport, Observer: opts.Observer}, nil
		}
		return poller(), nil
	}
	return nil, fmt.Errorf("unsupported status strategy %q", strategy)
}

func timeoutError(timeout time.Duration) *Error {
	return &Error{
		Kind:    ErrTimeout,
		Stage:   StageAwait,
		Message: fmt.Sprintf("video generation timed out after %s. Try increasing the timeout or use a lower resolution", timeout),
	}
}

func failedError(payload fal.StatusPayload) *Error {
	msg := payload.LastMessage()
	if msg == "" {
		msg = "Unknown error"
	}
	return &Error{Kind: ErrGenerationFailed, Stage: StageAwait, Message: "video generation failed: " + msg}
}
