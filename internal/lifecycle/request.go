package lifecycle

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/five82/reel/internal/fal"
)

// GenerationRequest is one fully resolved record: defaults have already been
// applied by the caller.
type GenerationRequest struct {
	Model       string          `json:"model" yaml:"model" toml:"model"`
	ImageURL    string          `json:"image_url" yaml:"image_url" toml:"image_url"`
	AudioURL    string          `json:"audio_url" yaml:"audio_url" toml:"audio_url"`
	Resolution  fal.Resolution  `json:"resolution" yaml:"resolution" toml:"resolution"`
	AspectRatio fal.AspectRatio `json:"aspect_ratio" yaml:"aspect_ratio" toml:"aspect_ratio"`
}

// Payload returns the JSON body submitted for r. Enum values are sent in
// their canonical form; values Validator would reject pass through as-is.
func (r GenerationRequest) Payload() fal.SubmitPayload {
	payload := fal.SubmitPayload{
		ImageURL:    strings.TrimSpace(r.ImageURL),
		AudioURL:    strings.TrimSpace(r.AudioURL),
		Resolution:  r.Resolution,
		AspectRatio: r.AspectRatio,
	}
	if res, err := fal.ParseResolution(string(r.Resolution)); err == nil {
		payload.Resolution = res
	}
	if aspect, err := fal.ParseAspectRatio(string(r.AspectRatio)); err == nil {
		payload.AspectRatio = aspect
	}
	return payload
}

// Outcome is the per-record result of a run. Exactly one of Artifact and Err
// is set.
type Outcome struct {
	Index       int
	Model       string
	RequestID   string
	FinalStatus fal.Status
	Artifact    *fal.Artifact
	Elapsed     time.Duration
	Err         error
}

// OK reports whether the record produced an artifact.
func (o Outcome) OK() bool {
	return o.Err == nil && o.Artifact != nil
}

type outcomeJSON struct {
	Index       int           `json:"index"`
	Model       string        `json:"model,omitempty"`
	RequestID   string        `json:"request_id,omitempty"`
	FinalStatus fal.Status    `json:"final_status,omitempty"`
	ElapsedMS   int64         `json:"elapsed_ms"`
	Artifact    *fal.Artifact `json:"artifact,omitempty"`
	Error       string        `json:"error,omitempty"`
	ErrorKind   string        `json:"error_kind,omitempty"`
}

// MarshalJSON renders the outcome as one line of run output.
func (o Outcome) MarshalJSON() ([]byte, error) {
	out := outcomeJSON{
		Index:       o.Index,
		Model:       o.Model,
		RequestID:   o.RequestID,
		FinalStatus: o.FinalStatus,
		ElapsedMS:   o.Elapsed.Milliseconds(),
		Artifact:    o.Artifact,
	}
	if o.Err != nil {
		out.Error = o.Err.Error()
		out.ErrorKind = KindName(o.Err)
	}
	return json.Marshal(out)
}
