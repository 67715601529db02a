package fal

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state reported by the queue for a request.
type Status string

const (
	StatusInQueue    Status = "IN_QUEUE"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// IsTerminal reports whether no further transitions can follow s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Resolution is the output video resolution accepted by Fabric models.
type Resolution string

const (
	Resolution480p Resolution = "480p"
	Resolution720p Resolution = "720p"
)

// AspectRatio is the output video aspect ratio accepted by Fabric models.
type AspectRatio string

const (
	AspectLandscape AspectRatio = "16:9"
	AspectPortrait  AspectRatio = "9:16"
	AspectSquare    AspectRatio = "1:1"
)

// Known model identifiers.
const (
	ModelFabric     = "veed/fabric-1.0"
	ModelFabricFast = "veed/fabric-1.0/fast"
)

// ParseResolution normalizes value and rejects anything outside the enum.
func ParseResolution(value string) (Resolution, error) {
	switch r := Resolution(strings.ToLower(strings.TrimSpace(value))); r {
	case Resolution480p, Resolution720p:
		return r, nil
	}
	return "", fmt.Errorf("unsupported resolution %q (want 480p or 720p)", value)
}

// ParseAspectRatio normalizes value and rejects anything outside the enum.
func ParseAspectRatio(value string) (AspectRatio, error) {
	switch a := AspectRatio(strings.TrimSpace(value)); a {
	case AspectLandscape, AspectPortrait, AspectSquare:
		return a, nil
	}
	return "", fmt.Errorf("unsupported aspect ratio %q (want 16:9, 9:16 or 1:1)", value)
}

// SubmitPayload is the JSON body posted to {base}/{model}.
type SubmitPayload struct {
	ImageURL    string      `json:"image_url"`
	AudioURL    string      `json:"audio_url"`
	Resolution  Resolution  `json:"resolution"`
	AspectRatio AspectRatio `json:"aspect_ratio"`
}

// QueueHandle mirrors the queue submission response.
type QueueHandle struct {
	RequestID     string `json:"request_id"`
	StatusURL     string `json:"status_url"`
	ResponseURL   string `json:"response_url,omitempty"`
	CancelURL     string `json:"cancel_url,omitempty"`
	QueuePosition *int   `json:"queue_position,omitempty"`
}

// LogEntry is a single remote log line attached to a status payload.
type LogEntry struct {
	Message   string `json:"message,omitempty"`
	Level     string `json:"level,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// StatusPayload mirrors both the polled status response and each SSE event.
type StatusPayload struct {
	Status        Status             `json:"status"`
	RequestID     string             `json:"request_id"`
	ResponseURL   string             `json:"response_url,omitempty"`
	QueuePosition *int               `json:"queue_position,omitempty"`
	Logs          []LogEntry         `json:"logs,omitempty"`
	Metrics       map[string]float64 `json:"metrics,omitempty"`
}

// LastMessage returns the message of the newest log entry, if any.
func (p StatusPayload) LastMessage() string {
	if len(p.Logs) == 0 {
		return ""
	}
	return p.Logs[len(p.Logs)-1].Message
}

// Artifact describes the generated video file.
type Artifact struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	FileName    string `json:"file_name,omitempty"`
	FileSize    *int   `json:"file_size,omitempty"`
	Width       *int   `json:"width,omitempty"`
	Height      *int   `json:"height,omitempty"`
}

// VideoResult mirrors the payload returned by the response URL.
type VideoResult struct {
	Video     *Artifact `json:"video"`
	RequestID string    `json:"request_id,omitempty"`
}
