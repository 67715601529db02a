package lifecycle

import (
	"context"
	"errors"
	"strings"
)

// Sentinel error kinds for errors.Is checks by callers.
var (
	ErrValidation       = errors.New("validation error")
	ErrSubmission       = errors.New("submission error")
	ErrPoll             = errors.New("poll error")
	ErrStream           = errors.New("stream error")
	ErrStreamEnded      = errors.New("stream ended")
	ErrGenerationFailed = errors.New("generation failed")
	ErrTimeout          = errors.New("timeout")
	ErrFetch            = errors.New("fetch error")
)

// Stage names the lifecycle step an error came from.
type Stage string

const (
	StageValidate Stage = "validate"
	StageSubmit   Stage = "submit"
	StageAwait    Stage = "await"
	StageFetch    Stage = "fetch"
)

// Error is the structured failure returned by every lifecycle stage. Kind is
// one of the sentinel errors above; Err, when set, is the lower-level cause.
type Error struct {
	Kind     error
	Stage    Stage
	Message  string
	Status   int    // HTTP status when the failure was an error response
	Body     string // response body for error responses, if any
	Attempts int    // status fetch attempts made, for poll errors
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause, so errors.Is matches
// ErrTimeout as well as context.Canceled from the same chain.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func validationError(msg string) *Error {
	return &Error{Kind: ErrValidation, Stage: StageValidate, Message: msg}
}

// KindName returns a short, stable label for err suitable for metrics and
// persisted records.
func KindName(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrSubmission):
		return "submission"
	case errors.Is(err, ErrPoll):
		return "poll"
	case errors.Is(err, ErrStreamEnded):
		return "stream_ended"
	case errors.Is(err, ErrStream):
		return "stream"
	case errors.Is(err, ErrGenerationFailed):
		return "generation_failed"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrFetch):
		return "fetch"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "unknown"
}

const maxBodyInMessage = 512

func bodySnippet(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > maxBodyInMessage {
		text = text[:maxBodyInMessage] + "…"
	}
	return text
}
