package fal

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseResolution(t *testing.T) {
	for _, in := range []string{"480p", " 720P "} {
		if _, err := ParseResolution(in); err != nil {
			t.Fatalf("ParseResolution(%q) returned error: %v", in, err)
		}
	}
	if _, err := ParseResolution("1080p"); err == nil {
		t.Fatal("ParseResolution(1080p) succeeded, want error")
	}
}

func TestParseAspectRatio(t *testing.T) {
	for _, in := range []string{"16:9", "9:16", "1:1"} {
		got, err := ParseAspectRatio(in)
		if err != nil || string(got) != in {
			t.Fatalf("ParseAspectRatio(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseAspectRatio("4:3"); err == nil {
		t.Fatal("ParseAspectRatio(4:3) succeeded, want error")
	}
}

func TestStatusIsTerminal(t *testing.T) {
	want := map[Status]bool{
		StatusInQueue:    false,
		StatusInProgress: false,
		StatusCompleted:  true,
		StatusFailed:     true,
	}
	for status, terminal := range want {
		if status.IsTerminal() != terminal {
			t.Fatalf("%s.IsTerminal() = %v, want %v", status, !terminal, terminal)
		}
	}
}

func TestStatusPayloadDecodesQueueResponse(t *testing.T) {
	raw := `{
		"status": "IN_PROGRESS",
		"request_id": "abc",
		"queue_position": 0,
		"logs": [
			{"message": "Loading model", "level": "INFO", "timestamp": "2025-01-01T00:00:00Z"},
			{"message": "Diffusing: 35%"}
		],
		"metrics": {"inference_time": 1.5}
	}`
	var got StatusPayload
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	zero := 0
	want := StatusPayload{
		Status:        StatusInProgress,
		RequestID:     "abc",
		QueuePosition: &zero,
		Logs: []LogEntry{
			{Message: "Loading model", Level: "INFO", Timestamp: "2025-01-01T00:00:00Z"},
			{Message: "Diffusing: 35%"},
		},
		Metrics: map[string]float64{"inference_time": 1.5},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
	if got.LastMessage() != "Diffusing: 35%" {
		t.Fatalf("LastMessage() = %q", got.LastMessage())
	}
	if (StatusPayload{}).LastMessage() != "" {
		t.Fatal("LastMessage() on empty logs should be empty")
	}
}
