package state

import (
	"sync"
	"time"

	"github.com/five82/reel/internal/fal"
	"github.com/five82/reel/internal/lifecycle"
	"github.com/five82/reel/internal/logtail"
)

// Phase is the host-side view of where a record is.
type Phase string

const (
	PhasePending   Phase = "pending"
	PhaseSubmitted Phase = "submitted"
	PhaseQueued    Phase = "queued"
	PhaseRunning   Phase = "running"
	PhaseFetching  Phase = "fetching"
	PhaseDone      Phase = "done"
	PhaseFailed    Phase = "failed"
)

// Finished reports whether no further events are expected for the record.
func (p Phase) Finished() bool {
	return p == PhaseDone || p == PhaseFailed
}

const logLinesPerRecord = 50

// RecordState is the latest known state of one record.
type RecordState struct {
	Index         int
	Model         string
	RequestID     string
	Phase         Phase
	Status        fal.Status
	Progress      int
	HasProgress   bool
	QueuePosition *int
	Retries       int
	Err           error
	Artifact      *fal.Artifact
	StartedAt     time.Time
	FinishedAt    time.Time
	Logs          []string
}

// Elapsed returns the run time so far, or the total once finished.
func (r RecordState) Elapsed(now time.Time) time.Duration {
	switch {
	case r.StartedAt.IsZero():
		return 0
	case !r.FinishedAt.IsZero():
		return r.FinishedAt.Sub(r.StartedAt)
	}
	return now.Sub(r.StartedAt)
}

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	BatchID     string
	Records     []RecordState
	Done        int
	Failed      int
	Finished    bool
	RunErr      error
	LastUpdated time.Time
}

// Pending counts records that have not finished.
func (s Snapshot) Pending() int {
	return len(s.Records) - s.Done - s.Failed
}

type entry struct {
	state RecordState
	logs  *logtail.Ring
}

// Store accumulates lifecycle events into per-record state. It implements
// lifecycle.Observer and is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	batchID  string
	entries  []*entry
	finished bool
	runErr   error
	updated  time.Time
}

var _ lifecycle.Observer = (*Store)(nil)

// NewStore returns a store with one pending row per record.
func NewStore(batchID string, records []lifecycle.GenerationRequest) *Store {
	s := &Store{batchID: batchID, updated: time.Now()}
	for i, rec := range records {
		s.entries = append(s.entries, newEntry(i, rec.Model))
	}
	return s
}

func newEntry(index int, model string) *entry {
	return &entry{
		state: RecordState{Index: index, Model: model, Phase: PhasePending},
		logs:  logtail.NewRing(logLinesPerRecord),
	}
}

// Observe applies a lifecycle event.
func (s *Store) Observe(e lifecycle.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent := s.entryLocked(e.Index, e.Model)
	st := &ent.state
	if e.RequestID != "" {
		st.RequestID = e.RequestID
	}
	if e.Message != "" && e.Kind != lifecycle.EventFailed {
		ent.logs.AddNew(e.Message)
	}

	switch e.Kind {
	case lifecycle.EventStarted:
		st.StartedAt = e.Time
		st.Phase = PhasePending
	case lifecycle.EventSubmitted:
		st.Phase = PhaseSubmitted
		st.Status = e.Status
		st.QueuePosition = clonePosition(e.QueuePosition)
	case lifecycle.EventStatus:
		st.Status = e.Status
		st.QueuePosition = clonePosition(e.QueuePosition)
		if e.Status == fal.StatusInProgress {
			st.Phase = PhaseRunning
		} else {
			st.Phase = PhaseQueued
		}
	case lifecycle.EventProgress:
		st.Progress = e.Progress
		st.HasProgress = true
	case lifecycle.EventRetry:
		st.Retries++
	case lifecycle.EventCompleted:
		st.Status = fal.StatusCompleted
		st.Phase = PhaseFetching
		st.Progress = 100
		st.HasProgress = true
	case lifecycle.EventFetched:
		st.Phase = PhaseDone
		st.Artifact = cloneArtifact(e.Artifact)
		st.FinishedAt = e.Time
	case lifecycle.EventFailed:
		st.Phase = PhaseFailed
		st.Err = e.Err
		st.FinishedAt = e.Time
	}
	s.updated = time.Now()
}

// Finish marks the run as over. err is the run-level error, if any.
func (s *Store) Finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = true
	s.runErr = err
	s.updated = time.Now()
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		BatchID:     s.batchID,
		Records:     make([]RecordState, 0, len(s.entries)),
		Finished:    s.finished,
		RunErr:      s.runErr,
		LastUpdated: s.updated,
	}
	for _, ent := range s.entries {
		rec := ent.state
		rec.QueuePosition = clonePosition(rec.QueuePosition)
		rec.Artifact = cloneArtifact(rec.Artifact)
		rec.Logs = ent.logs.Lines()
		switch rec.Phase {
		case PhaseDone:
			snap.Done++
		case PhaseFailed:
			snap.Failed++
		}
		snap.Records = append(snap.Records, rec)
	}
	return snap
}

// entryLocked returns the entry for index, growing the table for records the
// store was not told about up front.
func (s *Store) entryLocked(index int, model string) *entry {
	for len(s.entries) <= index {
		s.entries = append(s.entries, newEntry(len(s.entries), ""))
	}
	ent := s.entries[index]
	if ent.state.Model == "" {
		ent.state.Model = model
	}
	return ent
}

func clonePosition(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneArtifact(a *fal.Artifact) *fal.Artifact {
	if a == nil {
		return nil
	}
	dup := *a
	return &dup
}
