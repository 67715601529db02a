package log

import (
	"github.com/rs/zerolog"

	"github.com/five82/reel/internal/lifecycle"
)

// Observer writes lifecycle events as structured log lines.
type Observer struct {
	logger zerolog.Logger
}

var _ lifecycle.Observer = (*Observer)(nil)

// NewObserver logs events through logger.
func NewObserver(logger zerolog.Logger) *Observer {
	return &Observer{logger: logger}
}

// Observe implements lifecycle.Observer.
func (o *Observer) Observe(e lifecycle.Event) {
	var ev *zerolog.Event
	switch e.Kind {
	case lifecycle.EventStarted:
		ev = o.logger.Debug()
	case lifecycle.EventSubmitted:
		ev = o.logger.Info()
		if e.QueuePosition != nil {
			ev = ev.Int("queue_position", *e.QueuePosition)
		}
	case lifecycle.EventStatus:
		ev = o.logger.Debug().Str("status", string(e.Status))
		if e.QueuePosition != nil {
			ev = ev.Int("queue_position", *e.QueuePosition)
		}
		if e.Message != "" {
			ev = ev.Str("log", e.Message)
		}
	case lifecycle.EventProgress:
		ev = o.logger.Info().Int("progress", e.Progress)
	case lifecycle.EventRetry:
		ev = o.logger.Warn().Int("attempt", e.Attempt).Err(e.Err)
	case lifecycle.EventCompleted:
		ev = o.logger.Info().Dur("elapsed", e.Elapsed)
	case lifecycle.EventFetched:
		ev = o.logger.Info().Dur("elapsed", e.Elapsed)
		if e.Artifact != nil {
			ev = ev.Str("video_url", e.Artifact.URL).Str("content_type", e.Artifact.ContentType)
		}
	case lifecycle.EventFailed:
		ev = o.logger.Error().Err(e.Err).Str("error_kind", lifecycle.KindName(e.Err)).Dur("elapsed", e.Elapsed)
	default:
		return
	}
	ev = ev.Int("index", e.Index).Str("event", e.Kind.String())
	if e.Model != "" {
		ev = ev.Str("model", e.Model)
	}
	if e.RequestID != "" {
		ev = ev.Str("request_id", e.RequestID)
	}
	ev.Msg(message(e.Kind))
}

func message(kind lifecycle.EventKind) string {
	switch kind {
	case lifecycle.EventStarted:
		return "starting record"
	case lifecycle.EventSubmitted:
		return "request submitted"
	case lifecycle.EventStatus:
		return "status update"
	case lifecycle.EventProgress:
		return "generation progress"
	case lifecycle.EventRetry:
		return "status check failed, retrying"
	case lifecycle.EventCompleted:
		return "generation completed"
	case lifecycle.EventFetched:
		return "video ready"
	case lifecycle.EventFailed:
		return "record failed"
	}
	return kind.String()
}
