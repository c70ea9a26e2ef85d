package scoring

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/model"
	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/store"
)

// Processor runs the scoring pass over every unscored lead in batches.
type Processor struct {
	store     store.Store
	batchSize int

	// Progress, if set, is called after every persisted batch with the
	// number of leads scored so far and the total candidates.
	Progress func(done, total int)
}

// NewProcessor creates a Processor. A non-positive batch size falls back
// to 10000.
func NewProcessor(st store.Store, batchSize int) *Processor {
	if batchSize <= 0 {
		batchSize = 10000
	}
	return &Processor{store: st, batchSize: batchSize}
}

// ProcessAll scores every unscored lead. Leads rejected by the filters are
// skipped without a write and stay eligible for a later pass with different
// filters. A batch write failure is logged and the pass continues with the
// next batch.
func (p *Processor) ProcessAll(ctx context.Context, filters model.ScoringFilters) (int, error) {
	total, err := p.store.CountUnscored(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "scoring: count unscored")
	}
	if total == 0 {
		zap.L().Info("scoring: nothing to do")
		return 0, nil
	}

	filtersJSON, err := json.Marshal(filters)
	if err != nil {
		return 0, eris.Wrap(err, "scoring: marshal filters")
	}

	zap.L().Info("scoring: starting", zap.Int("leads", total))

	scored := 0
	afterID := ""
	for {
		if ctx.Err() != nil {
			return scored, eris.Wrap(ctx.Err(), "scoring: cancelled")
		}

		batch, err := p.store.SelectUnscored(ctx, afterID, p.batchSize)
		if err != nil {
			return scored, eris.Wrap(err, "scoring: select batch")
		}
		if len(batch) == 0 {
			break
		}
		afterID = batch[len(batch)-1].ID

		updates := make([]model.Lead, 0, len(batch))
		history := make([]model.ScoringHistory, 0, len(batch))
		now := time.Now().UTC()

		for _, lead := range batch {
			if !PassesFilters(lead, filters) {
				continue
			}

			result := Score(lead, filters)
			score := result.Score
			lead.Score = &score
			lead.IsTarget = result.IsTarget
			lead.GroupName = result.Group
			lead.Reason1, lead.Reason2, lead.Reason3 = splitReasons(result.Reasons)
			lead.ScoredAt = &now
			updates = append(updates, lead)

			history = append(history, model.ScoringHistory{
				ID:          uuid.NewString(),
				LeadID:      lead.ID,
				Score:       score,
				GroupName:   result.Group,
				Reason1:     lead.Reason1,
				FiltersUsed: string(filtersJSON),
				ScoredAt:    now,
			})
		}

		if len(updates) == 0 {
			continue
		}

		if err := p.store.UpdateScores(ctx, updates, history); err != nil {
			zap.L().Error("scoring: batch write failed",
				zap.Int("batch_size", len(updates)),
				zap.Error(err),
			)
			_ = p.store.AppendErrorLog(ctx, model.ErrorLog{
				Source:    "store",
				ErrorType: model.ErrKindDatabase,
				Message:   err.Error(),
			})
			continue
		}

		scored += len(updates)
		zap.L().Info("scoring: batch complete", zap.Int("scored", scored), zap.Int("total", total))
		if p.Progress != nil {
			p.Progress(scored, total)
		}
	}

	zap.L().Info("scoring: finished", zap.Int("scored", scored))
	return scored, nil
}

func splitReasons(reasons []string) (r1, r2, r3 string) {
	if len(reasons) > 0 {
		r1 = reasons[0]
	}
	if len(reasons) > 1 {
		r2 = reasons[1]
	}
	if len(reasons) > 2 {
		r3 = reasons[2]
	}
	return
}
