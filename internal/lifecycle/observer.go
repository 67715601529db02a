package lifecycle

import (
	"context"
	"time"

	"github.com/five82/reel/internal/fal"
)

// EventKind identifies a lifecycle event.
type EventKind int

const (
	EventStarted EventKind = iota
	EventSubmitted
	EventStatus
	EventProgress
	EventRetry
	EventCompleted
	EventFetched
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventSubmitted:
		return "submitted"
	case EventStatus:
		return "status"
	case EventProgress:
		return "progress"
	case EventRetry:
		return "retry"
	case EventCompleted:
		return "completed"
	case EventFetched:
		return "fetched"
	case EventFailed:
		return "failed"
	}
	return "unknown"
}

// Event is a single progress notification. Index and Model identify the
// record and are filled in for every event emitted under a Controller.
type Event struct {
	Kind          EventKind
	Time          time.Time
	Index         int
	Model         string
	RequestID     string
	Status        fal.Status
	QueuePosition *int
	Progress      int
	Attempt       int
	Message       string
	Artifact      *fal.Artifact
	Elapsed       time.Duration
	Err           error
}

// Observer receives lifecycle events. Observe is called synchronously from
// the goroutine driving the lifecycle and must not block for long.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

// Observers fans each event out to every non-nil member in order.
type Observers []Observer

func (o Observers) Observe(e Event) {
	for _, obs := range o {
		if obs != nil {
			obs.Observe(e)
		}
	}
}

// Discard drops every event.
var Discard Observer = ObserverFunc(func(Event) {})

type recordKey struct{}

type recordScope struct {
	index int
	model string
}

func withRecord(ctx context.Context, index int, model string) context.Context {
	return context.WithValue(ctx, recordKey{}, recordScope{index: index, model: model})
}

func emit(ctx context.Context, obs Observer, e Event) {
	if obs == nil {
		return
	}
	if scope, ok := ctx.Value(recordKey{}).(recordScope); ok {
		e.Index = scope.index
		e.Model = scope.model
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	obs.Observe(e)
}

// reportStatus emits the status event for a non-terminal payload and, when
// the newest log line carries a diffusion percentage, a progress event.
func reportStatus(ctx context.Context, obs Observer, requestID string, payload fal.StatusPayload) {
	emit(ctx, obs, Event{
		Kind:          EventStatus,
		RequestID:     requestID,
		Status:        payload.Status,
		QueuePosition: payload.QueuePosition,
		Message:       payload.LastMessage(),
	})
	reportProgress(ctx, obs, requestID, payload)
}

// reportProgress emits EventProgress when payload's logs carry a percentage.
// Terminal payloads go through it too.
func reportProgress(ctx context.Context, obs Observer, requestID string, payload fal.StatusPayload) {
	if pct, ok := ExtractProgress(payload.Logs); ok {
		emit(ctx, obs, Event{
			Kind:      EventProgress,
			RequestID: requestID,
			Status:    payload.Status,
			Progress:  pct,
			Message:   payload.LastMessage(),
		})
	}
}
