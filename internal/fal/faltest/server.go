// Package faltest provides an in-memory fal.ai queue for tests.
package faltest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/five82/reel/internal/fal"
)

// DefaultAPIKey is accepted when Options.APIKey is empty.
const DefaultAPIKey = "test-key"

// Options script the queue's behaviour. Zero values give a healthy queue
// that completes every request on the third status read.
type Options struct {
	APIKey string
	// Statuses is walked one entry per status read (or emitted in order on
	// the stream). The last entry repeats.
	Statuses []fal.StatusPayload
	// SubmitStatus, when non-zero, answers every submission with this HTTP
	// status and SubmitBody.
	SubmitStatus int
	SubmitBody   string
	// StatusDrops closes the connection on the first N status reads.
	StatusDrops int
	// OmitResponseURL leaves response_url out of the submit and status
	// payloads.
	OmitResponseURL bool
	// Video is returned from the response URL; nil serves a default artifact.
	Video *fal.Artifact
	// HoldStream keeps the event stream open after the last scripted status
	// until the client goes away.
	HoldStream bool
	// StreamInterval spaces stream events.
	StreamInterval time.Duration
}

// DefaultStatuses is the script used when Options.Statuses is empty.
func DefaultStatuses() []fal.StatusPayload {
	return []fal.StatusPayload{
		{Status: fal.StatusInQueue},
		{Status: fal.StatusInProgress, Logs: []fal.LogEntry{{Message: "Diffusing: 50%"}}},
		{Status: fal.StatusCompleted, Logs: []fal.LogEntry{{Message: "Diffusing: 100%"}}},
	}
}

// Server is a fake queue API backed by httptest.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	opts        Options
	nextID      int
	jobs        map[string]*job
	submissions []Submission
	cancelled   []string
	statusReads int
	drops       int
}

// Submission records one accepted or rejected POST.
type Submission struct {
	Model   string
	Payload fal.SubmitPayload
	Auth    string
}

type job struct {
	id    string
	model string
	step  int
}

// NewServer starts a fake queue. Callers must Close it.
func NewServer(opts Options) *Server {
	if opts.APIKey == "" {
		opts.APIKey = DefaultAPIKey
	}
	if len(opts.Statuses) == 0 {
		opts.Statuses = DefaultStatuses()
	}
	s := &Server{opts: opts, jobs: make(map[string]*job)}

	r := chi.NewRouter()
	r.Use(s.authenticate)
	r.Post("/*", s.handleSubmit)
	r.Get("/*", s.handleGet)
	r.Put("/*", s.handleCancel)

	s.Server = httptest.NewServer(r)
	return s
}

// Submissions returns every submission received, in order.
func (s *Server) Submissions() []Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Submission(nil), s.submissions...)
}

// Cancelled returns the request IDs cancelled so far.
func (s *Server) Cancelled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.cancelled...)
}

// StatusReads counts polled status requests, including dropped ones.
func (s *Server) StatusReads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusReads
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Key "+s.opts.APIKey {
			http.Error(w, `{"detail":"Invalid API key"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	model := strings.Trim(chi.URLParam(r, "*"), "/")
	var payload fal.SubmitPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json body", http.StatusUnprocessableEntity)
		return
	}

	s.mu.Lock()
	s.submissions = append(s.submissions, Submission{Model: model, Payload: payload, Auth: r.Header.Get("Authorization")})
	if s.opts.SubmitStatus != 0 {
		status, body := s.opts.SubmitStatus, s.opts.SubmitBody
		s.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
		return
	}
	s.nextID++
	j := &job{id: fmt.Sprintf("req-%04d", s.nextID), model: model}
	s.jobs[j.id] = j
	position := len(s.jobs) - 1
	s.mu.Unlock()

	handle := fal.QueueHandle{
		RequestID:     j.id,
		StatusURL:     s.jobURL(j) + "/status",
		CancelURL:     s.jobURL(j) + "/cancel",
		QueuePosition: &position,
	}
	if !s.opts.OmitResponseURL {
		handle.ResponseURL = s.jobURL(j)
	}
	writeJSON(w, http.StatusOK, handle)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(chi.URLParam(r, "*"), "/")
	switch {
	case strings.HasSuffix(path, "/status/stream"):
		s.handleStream(w, r, strings.TrimSuffix(path, "/status/stream"))
	case strings.HasSuffix(path, "/status"):
		s.handleStatus(w, strings.TrimSuffix(path, "/status"))
	default:
		s.handleResult(w, path)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, prefix string) {
	s.mu.Lock()
	s.statusReads++
	if s.drops < s.opts.StatusDrops {
		s.drops++
		s.mu.Unlock()
		dropConnection(w)
		return
	}
	j := s.jobs[requestID(prefix)]
	if j == nil {
		s.mu.Unlock()
		http.Error(w, `{"detail":"Request not found"}`, http.StatusNotFound)
		return
	}
	payload := s.payloadLocked(j, j.step)
	j.step++
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request, prefix string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	s.mu.Lock()
	j := s.jobs[requestID(prefix)]
	if j == nil {
		s.mu.Unlock()
		http.Error(w, `{"detail":"Request not found"}`, http.StatusNotFound)
		return
	}
	var events []fal.StatusPayload
	for step := j.step; step < len(s.opts.Statuses); step++ {
		events = append(events, s.payloadLocked(j, step))
	}
	j.step = len(s.opts.Statuses)
	interval := s.opts.StreamInterval
	hold := s.opts.HoldStream
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	for _, event := range events {
		data, _ := json.Marshal(event)
		_, _ = fmt.Fprintf(w, ": ping\n\ndata: %s\n\n", data)
		flusher.Flush()
		if interval > 0 {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(interval):
			}
		}
	}
	if hold {
		<-r.Context().Done()
	}
}

func (s *Server) handleResult(w http.ResponseWriter, prefix string) {
	s.mu.Lock()
	j := s.jobs[requestID(prefix)]
	video := s.opts.Video
	s.mu.Unlock()
	if j == nil {
		http.Error(w, `{"detail":"Request not found"}`, http.StatusNotFound)
		return
	}
	if video == nil {
		video = &fal.Artifact{
			URL:         s.URL + "/files/" + j.id + ".mp4",
			ContentType: "video/mp4",
			FileName:    j.id + ".mp4",
		}
	}
	writeJSON(w, http.StatusOK, fal.VideoResult{Video: video, RequestID: j.id})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(chi.URLParam(r, "*"), "/")
	id := requestID(strings.TrimSuffix(path, "/cancel"))
	s.mu.Lock()
	_, ok := s.jobs[id]
	if ok {
		s.cancelled = append(s.cancelled, id)
	}
	s.mu.Unlock()
	if !ok {
		http.Error(w, `{"detail":"Request not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "CANCELLATION_REQUESTED"})
}

func (s *Server) payloadLocked(j *job, step int) fal.StatusPayload {
	payload := s.opts.Statuses[min(step, len(s.opts.Statuses)-1)]
	payload.RequestID = j.id
	if payload.Status == fal.StatusCompleted && !s.opts.OmitResponseURL {
		payload.ResponseURL = s.jobURL(j)
	}
	return payload
}

func (s *Server) jobURL(j *job) string {
	return s.URL + "/" + j.model + "/requests/" + j.id
}

// requestID extracts the ID from "{model}/requests/{id}".
func requestID(prefix string) string {
	_, id, ok := strings.Cut(prefix, "/requests/")
	if !ok {
		return ""
	}
	return id
}

func dropConnection(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		http.Error(w, "hijack unsupported", http.StatusInternalServerError)
		return
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		return
	}
	_ = conn.Close()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
