package api

import (
	"sync"
	"time"
)

// Stage is the phase an ingest run is in.
type Stage string

// Run stages, in the order a run moves through them.
const (
	StageStarting Stage = "starting"
	StageCatalog  Stage = "catalog"
	StageText     Stage = "text"
	StageWrite    Stage = "write"
	StageDone     Stage = "done"
	StageFailed   Stage = "failed"
)

// RunStatus is a point-in-time view of an ingest run.
type RunStatus struct {
	RunID     string    `json:"run_id"`
	Year      int       `json:"year"`
	Stage     Stage     `json:"stage"`
	Items     int       `json:"items"`
	Texts     int       `json:"texts"`
	Outputs   []string  `json:"outputs,omitempty"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RunState is the mutable run status shared between the command and the
// HTTP handlers.
type RunState struct {
	mu     sync.RWMutex
	status RunStatus
	now    func() time.Time
}

// NewRunState starts tracking a run.
func NewRunState(runID string, year int, now func() time.Time) *RunState {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	started := now()
	return &RunState{
		status: RunStatus{
			RunID:     runID,
			Year:      year,
			Stage:     StageStarting,
			StartedAt: started,
			UpdatedAt: started,
		},
		now: now,
	}
}

// SetStage moves the run to stage.
func (s *RunState) SetStage(stage Stage) {
	s.update(func(st *RunStatus) { st.Stage = stage })
}

// SetItems records the catalog size.
func (s *RunState) SetItems(n int) {
	s.update(func(st *RunStatus) { st.Items = n })
}

// SetTexts records how many items received text.
func (s *RunState) SetTexts(n int) {
	s.update(func(st *RunStatus) { st.Texts = n })
}

// Finish marks the run done with its outputs, or failed when err is set.
func (s *RunState) Finish(outputs []string, err error) {
	s.update(func(st *RunStatus) {
		st.Outputs = append([]string(nil), outputs...)
		if err != nil {
			st.Stage = StageFailed
			st.Error = err.Error()
			return
		}
		st.Stage = StageDone
	})
}

// Snapshot returns a copy of the current status.
func (s *RunState) Snapshot() RunStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.status
	out.Outputs = append([]string(nil), s.status.Outputs...)
	return out
}

func (s *RunState) update(fn func(*RunStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.status)
	s.status.UpdatedAt = s.now()
}
