// Package store persists leads, scoring history, and the error log.
package store

import (
	"context"

	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/model"
)

// Store defines the persistence interface for the scoring pipeline.
//
// Batch selection is keyset-paginated: callers pass the last lead ID seen
// and get the next batch in increasing-identifier order. A batch whose
// write fails is skipped on the next call rather than reselected forever.
type Store interface {
	// Leads
	InsertLeads(ctx context.Context, leads []model.Lead) (int, error)
	CountUnenriched(ctx context.Context) (int, error)
	SelectUnenriched(ctx context.Context, afterID string, limit int) ([]model.Lead, error)
	UpdateEnrichment(ctx context.Context, leads []model.Lead) error
	CountUnscored(ctx context.Context) (int, error)
	SelectUnscored(ctx context.Context, afterID string, limit int) ([]model.Lead, error)
	UpdateScores(ctx context.Context, leads []model.Lead, history []model.ScoringHistory) error

	// Export
	IterateTargets(ctx context.Context, fn func(model.Lead) error) error
	Stats(ctx context.Context) (model.Stats, error)

	// Error log
	AppendErrorLog(ctx context.Context, entry model.ErrorLog) error
	ListErrorLogs(ctx context.Context, limit int) ([]model.ErrorLog, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
