package pipeline

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/model"
)

// ErrRunInProgress is returned when a run is requested while one is active.
var ErrRunInProgress = eris.New("pipeline: a run is already in progress")

// StatusTracker holds the state of the current or most recent run. One run
// may be active at a time; TryStart is the admission gate.
type StatusTracker struct {
	mu        sync.Mutex
	status    model.RunStatus
	progress  int
	stage     string
	message   string
	startedAt time.Time
	duration  float64
	result    *model.RunResult
}

// NewStatusTracker returns a tracker in the idle state.
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{status: model.RunStatusIdle}
}

// TryStart transitions the tracker to running. It fails if a run is active.
func (t *StatusTracker) TryStart() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status == model.RunStatusRunning {
		return ErrRunInProgress
	}
	t.status = model.RunStatusRunning
	t.progress = 0
	t.stage = ""
	t.message = ""
	t.startedAt = time.Now()
	t.duration = 0
	t.result = nil
	return nil
}

// SetStage records the stage now running and the overall progress percent.
func (t *StatusTracker) SetStage(stage, message string, progress int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stage = stage
	t.message = message
	t.progress = progress
}

// Complete transitions to completed with the run result.
func (t *StatusTracker) Complete(result *model.RunResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = model.RunStatusCompleted
	t.progress = 100
	t.duration = time.Since(t.startedAt).Seconds()
	t.result = result
}

// Fail transitions to error with a message.
func (t *StatusTracker) Fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = model.RunStatusError
	t.message = err.Error()
	t.duration = time.Since(t.startedAt).Seconds()
}

// Snapshot returns a point-in-time copy of the tracker state.
func (t *StatusTracker) Snapshot() model.StatusSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := model.StatusSnapshot{
		Status:   t.status,
		Progress: t.progress,
		Stage:    t.stage,
		Message:  t.message,
		Duration: t.duration,
		Result:   t.result,
	}
	if !t.startedAt.IsZero() {
		started := t.startedAt
		snap.StartedAt = &started
		if t.status == model.RunStatusRunning {
			snap.Duration = time.Since(t.startedAt).Seconds()
		}
	}
	return snap
}

// Result returns the most recent completed run result, or nil.
func (t *StatusTracker) Result() *model.RunResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result
}
