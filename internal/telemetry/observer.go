package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/five82/reel/internal/lifecycle"
)

// SpanObserver turns each record's lifecycle into one span, from Started to
// Fetched or Failed, with status and progress changes as span events.
type SpanObserver struct {
	ctx    context.Context
	tracer trace.Tracer

	mu    sync.Mutex
	spans map[int]trace.Span
}

var _ lifecycle.Observer = (*SpanObserver)(nil)

// NewSpanObserver starts record spans as children of the span in ctx.
func NewSpanObserver(ctx context.Context, tracer trace.Tracer) *SpanObserver {
	return &SpanObserver{ctx: ctx, tracer: tracer, spans: make(map[int]trace.Span)}
}

// Observe implements lifecycle.Observer.
func (o *SpanObserver) Observe(e lifecycle.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if e.Kind == lifecycle.EventStarted {
		_, span := o.tracer.Start(o.ctx, "reel.record",
			trace.WithTimestamp(e.Time),
			trace.WithAttributes(
				attribute.Int("reel.index", e.Index),
				attribute.String("reel.model", e.Model),
			),
		)
		o.spans[e.Index] = span
		return
	}

	span, ok := o.spans[e.Index]
	if !ok {
		return
	}
	switch e.Kind {
	case lifecycle.EventSubmitted:
		span.SetAttributes(attribute.String("reel.request_id", e.RequestID))
		span.AddEvent("submitted", trace.WithTimestamp(e.Time))
	case lifecycle.EventStatus:
		span.AddEvent("status", trace.WithTimestamp(e.Time), trace.WithAttributes(attribute.String("reel.status", string(e.Status))))
	case lifecycle.EventProgress:
		span.AddEvent("progress", trace.WithTimestamp(e.Time), trace.WithAttributes(attribute.Int("reel.progress", e.Progress)))
	case lifecycle.EventRetry:
		span.AddEvent("retry", trace.WithTimestamp(e.Time), trace.WithAttributes(attribute.Int("reel.attempt", e.Attempt)))
	case lifecycle.EventCompleted:
		span.AddEvent("completed", trace.WithTimestamp(e.Time))
	case lifecycle.EventFetched:
		if e.Artifact != nil {
			span.SetAttributes(attribute.String("reel.video_url", e.Artifact.URL))
		}
		span.SetStatus(codes.Ok, "")
		span.End(trace.WithTimestamp(e.Time))
		delete(o.spans, e.Index)
	case lifecycle.EventFailed:
		span.RecordError(e.Err)
		span.SetAttributes(attribute.String("reel.error_kind", lifecycle.KindName(e.Err)))
		span.SetStatus(codes.Error, e.Message)
		span.End(trace.WithTimestamp(e.Time))
		delete(o.spans, e.Index)
	}
}

// Close ends spans for records that never finished, e.g. after cancellation.
func (o *SpanObserver) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for idx, span := range o.spans {
		span.SetStatus(codes.Error, "run ended before record finished")
		span.End()
		delete(o.spans, idx)
	}
}
