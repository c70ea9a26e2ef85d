// Package model defines the core domain types shared across the pipeline.
package model

import (
	"crypto/md5"
	"encoding/hex"
	"time"
)

// Debt categories as reported by the debt registry, in dominance order.
const (
	DebtTypeBank    = "bank"
	DebtTypeMFO     = "mfo"
	DebtTypeTax     = "tax"
	DebtTypeUtility = "utility"
	DebtTypeUnknown = "unknown"
)

// Lead is a single person record moving through the pipeline. Enrichment and
// scoring fields are pointers where NULL carries meaning: a nil DebtAmount
// marks the lead as not yet enriched, a nil Score as not yet scored.
type Lead struct {
	ID        string    `json:"lead_id"`
	FIO       string    `json:"fio"`
	Phone     string    `json:"phone,omitempty"`
	INN       string    `json:"inn,omitempty"`
	DOB       string    `json:"dob,omitempty"`
	Address   string    `json:"address,omitempty"`
	Source    string    `json:"source"`
	Tags      string    `json:"tags,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// Enrichment fields, written as a unit once all lookups resolve.
	DebtAmount    *float64 `json:"debt_amount,omitempty"`
	DebtType      string   `json:"debt_type,omitempty"`
	Creditor      string   `json:"creditor,omitempty"`
	DebtCount     int      `json:"debt_count"`
	HasProperty   bool     `json:"has_property"`
	HasCourtOrder bool     `json:"has_court_order"`
	IsBankrupt    bool     `json:"is_bankrupt"`
	INNActive     bool     `json:"inn_active"`

	// Scoring fields.
	Score     *float64 `json:"score,omitempty"`
	IsTarget  bool     `json:"is_target"`
	Reason1   string   `json:"reason_1,omitempty"`
	Reason2   string   `json:"reason_2,omitempty"`
	Reason3   string   `json:"reason_3,omitempty"`
	GroupName string   `json:"group,omitempty"`

	EnrichedAt *time.Time `json:"enriched_at,omitempty"`
	ScoredAt   *time.Time `json:"scored_at,omitempty"`
}

// LeadID derives the stable identifier for a lead from its normalized
// identity fields. Re-ingesting the same logical person always yields the
// same ID, which is what makes insert-or-ignore deduplication work.
func LeadID(fio, phone, inn string) string {
	sum := md5.Sum([]byte(fio + phone + inn))
	return hex.EncodeToString(sum[:])
}

// DebtAmountValue returns the enriched debt amount, or 0 when unenriched.
func (l *Lead) DebtAmountValue() float64 {
	if l.DebtAmount == nil {
		return 0
	}
	return *l.DebtAmount
}
