package model

import "time"

// RunStatus is the lifecycle state of a pipeline run.
type RunStatus string

const (
	RunStatusIdle      RunStatus = "idle"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusError     RunStatus = "error"
)

// Stats holds aggregate pipeline counters. The counts come from independent
// queries, so slight staleness between them is expected.
type Stats struct {
	TotalLeads    int `json:"total_leads"`
	EnrichedLeads int `json:"enriched_leads"`
	ScoredLeads   int `json:"scored_leads"`
	TargetLeads   int `json:"target_leads"`
}

// StageResult records the outcome of a single pipeline stage.
type StageResult struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// RunResult is the final summary of a completed pipeline run.
type RunResult struct {
	OutputFile  string        `json:"output_file"`
	TargetCount int           `json:"target_count"`
	Stats       Stats         `json:"stats"`
	Stages      []StageResult `json:"stages"`
}

// StatusSnapshot is a point-in-time view of a run, returned by the status
// tracker. It replaces the original's ambient mutable status object.
type StatusSnapshot struct {
	Status    RunStatus  `json:"status"`
	Progress  int        `json:"progress"`
	Stage     string     `json:"stage"`
	Message   string     `json:"message"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	Duration  float64    `json:"duration"`
	Result    *RunResult `json:"result,omitempty"`
}

// InputFile describes a CSV file waiting in the input directory.
type InputFile struct {
	Filename     string    `json:"filename"`
	Path         string    `json:"path"`
	SizeMB       float64   `json:"size_mb"`
	LastModified time.Time `json:"last_modified"`
	Source       string    `json:"source"`
}
