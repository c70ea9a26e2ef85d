package model

import "time"

// ScoringHistory is an append-only audit entry recorded once per scoring
// pass per lead. Rows are never mutated after insert.
type ScoringHistory struct {
	ID          string    `json:"id"`
	LeadID      string    `json:"lead_id"`
	Score       float64   `json:"score"`
	GroupName   string    `json:"group"`
	Reason1     string    `json:"reason_1,omitempty"`
	FiltersUsed string    `json:"filters_used"`
	ScoredAt    time.Time `json:"scored_at"`
}

// ErrorLog is an append-only record of a failed external call or processing
// error. It exists for operational visibility only; the pipeline never reads
// it back.
type ErrorLog struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Source     string    `json:"source"`
	ErrorType  string    `json:"error_type"`
	Message    string    `json:"error_message"`
	LeadID     string    `json:"lead_id,omitempty"`
	RetryCount int       `json:"retry_count"`
}

// Error kinds recorded in the error log.
const (
	ErrKindNetwork   = "network"
	ErrKindHTTP      = "http"
	ErrKindParse     = "parse"
	ErrKindDatabase  = "database"
	ErrKindNormalize = "normalize"
)
