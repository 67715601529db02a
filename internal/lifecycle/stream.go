package lifecycle

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/five82/reel/internal/fal"
)

// Streamer awaits completion by consuming the status SSE stream.
type Streamer struct {
	Transport StreamTransport
	Observer  Observer

	clock clock
}

// Await reads status events until a terminal status arrives. The stream
// request itself is bounded by timeout, so a silent stream cannot hang.
func (s *Streamer) Await(ctx context.Context, handle fal.QueueHandle, timeout time.Duration) (fal.StatusPayload, error) {
	clk := s.clock
	if clk == nil {
		clk = realClock{}
	}
	start := clk.Now()

	streamCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := s.Transport.GetStream(streamCtx, statusStreamURL(handle.StatusURL))
	if err != nil {
		return fal.StatusPayload{}, s.streamFailure(ctx, streamCtx, timeout, "failed to open status stream", err)
	}
	defer func() { _ = body.Close() }()

	events := newEventReader(body)
	for {
		if clk.Now().Sub(start) >= timeout {
			return fal.StatusPayload{}, timeoutError(timeout)
		}
		payload, err := events.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fal.StatusPayload{}, &Error{
					Kind:    ErrStreamEnded,
					Stage:   StageAwait,
					Message: "status stream ended before request " + handle.RequestID + " finished",
				}
			}
			return fal.StatusPayload{}, s.streamFailure(ctx, streamCtx, timeout, "failed to read status stream", err)
		}

		switch payload.Status {
		case fal.StatusCompleted:
			reportProgress(ctx, s.Observer, handle.RequestID, payload)
			emit(ctx, s.Observer, Event{Kind: EventCompleted, RequestID: handle.RequestID, Status: payload.Status, Elapsed: clk.Now().Sub(start)})
			return payload, nil
		case fal.StatusFailed:
			reportProgress(ctx, s.Observer, handle.RequestID, payload)
			return payload, failedError(payload)
		}
		reportStatus(ctx, s.Observer, handle.RequestID, payload)
	}
}

// streamFailure tells caller cancellation and the stream deadline apart from
// genuine stream errors.
func (s *Streamer) streamFailure(ctx, streamCtx context.Context, timeout time.Duration, msg string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if streamCtx.Err() != nil {
		return timeoutError(timeout)
	}
	return &Error{Kind: ErrStream, Stage: StageAwait, Message: msg, Err: err}
}

const maxEventLine = 1 << 20

// eventReader yields status payloads from "data:" lines. Other SSE fields,
// comments, keep-alives and lines that are not JSON status objects are
// skipped.
type eventReader struct {
	scanner *bufio.Scanner
}

func newEventReader(r io.Reader) *eventReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventLine)
	return &eventReader{scanner: scanner}
}

// Next returns the next payload, or io.EOF once the stream closes cleanly.
func (r *eventReader) Next() (fal.StatusPayload, error) {
	for r.scanner.Scan() {
		line := strings.TrimRight(r.scanner.Text(), "\r")
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "" {
			continue
		}
		var payload fal.StatusPayload
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			continue
		}
		if payload.Status == "" {
			continue
		}
		return payload, nil
	}
	if err := r.scanner.Err(); err != nil {
		return fal.StatusPayload{}, err
	}
	return fal.StatusPayload{}, io.EOF
}
