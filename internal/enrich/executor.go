package enrich

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/model"
	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/store"
)

// Executor drives the enrichment pass: it pages through unenriched leads
// and fans registry lookups out across a bounded worker group.
type Executor struct {
	store     store.Store
	sources   *Sources
	batchSize int
	workers   int
	retries   int

	// Progress, if set, is called after every persisted batch with the
	// number of leads enriched so far and the total to enrich.
	Progress func(done, total int)
}

// NewExecutor creates an Executor. Non-positive sizes fall back to defaults.
func NewExecutor(st store.Store, sources *Sources, batchSize, workers, retries int) *Executor {
	if batchSize <= 0 {
		batchSize = 10000
	}
	if workers <= 0 {
		workers = 50
	}
	return &Executor{
		store:     st,
		sources:   sources,
		batchSize: batchSize,
		workers:   workers,
		retries:   retries,
	}
}

// EnrichAll enriches every unenriched lead in the store. A lookup failure
// degrades that one field to its safe default and is recorded in the error
// log; a batch write failure is logged and the pass moves on to the next
// batch. Only setup errors and cancellation abort the pass.
func (e *Executor) EnrichAll(ctx context.Context) (int, error) {
	total, err := e.store.CountUnenriched(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "enrich: count unenriched")
	}
	if total == 0 {
		zap.L().Info("enrich: nothing to do")
		return 0, nil
	}

	zap.L().Info("enrich: starting", zap.Int("leads", total), zap.Int("workers", e.workers))

	done := 0
	afterID := ""
	for {
		if ctx.Err() != nil {
			return done, eris.Wrap(ctx.Err(), "enrich: cancelled")
		}

		batch, err := e.store.SelectUnenriched(ctx, afterID, e.batchSize)
		if err != nil {
			return done, eris.Wrap(err, "enrich: select batch")
		}
		if len(batch) == 0 {
			break
		}
		afterID = batch[len(batch)-1].ID

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.workers)
		for i := range batch {
			lead := &batch[i]
			g.Go(func() error {
				e.enrichLead(gctx, lead)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return done, eris.Wrap(err, "enrich: worker group")
		}

		if err := e.store.UpdateEnrichment(ctx, batch); err != nil {
			zap.L().Error("enrich: batch write failed",
				zap.Int("batch_size", len(batch)),
				zap.Error(err),
			)
			_ = e.store.AppendErrorLog(ctx, model.ErrorLog{
				Source:    "store",
				ErrorType: model.ErrKindDatabase,
				Message:   err.Error(),
			})
			continue
		}

		done += len(batch)
		zap.L().Info("enrich: batch complete", zap.Int("done", done), zap.Int("total", total))
		if e.Progress != nil {
			e.Progress(done, total)
		}
	}

	zap.L().Info("enrich: finished", zap.Int("enriched", done))
	return done, nil
}

// enrichLead runs the five registry lookups for one lead. The lookups for a
// single lead run concurrently; a failed lookup leaves its field at the safe
// default and is written to the error log.
func (e *Executor) enrichLead(ctx context.Context, lead *model.Lead) {
	var (
		debt     DebtInfo
		bankrupt bool
		property bool
		court    bool
		active   = true
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if debt, err = e.sources.DebtSearch(gctx, lead.INN, lead.FIO, lead.DOB); err != nil {
			e.logLookupFailure(ctx, "fssp", lead.ID, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if bankrupt, err = e.sources.Bankruptcy(gctx, lead.INN); err != nil {
			e.logLookupFailure(ctx, "fedresurs", lead.ID, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if property, err = e.sources.Property(gctx, lead.INN); err != nil {
			e.logLookupFailure(ctx, "rosreestr", lead.ID, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if court, err = e.sources.CourtOrders(gctx, lead.FIO); err != nil {
			e.logLookupFailure(ctx, "court", lead.ID, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if active, err = e.sources.INNStatus(gctx, lead.INN); err != nil {
			e.logLookupFailure(ctx, "tax", lead.ID, err)
		}
		return nil
	})
	_ = g.Wait()

	amount := debt.Amount
	lead.DebtAmount = &amount
	lead.DebtType = debt.Type
	lead.Creditor = debt.Creditor
	lead.DebtCount = debt.Count
	lead.IsBankrupt = bankrupt
	lead.HasProperty = property
	lead.HasCourtOrder = court
	lead.INNActive = active

	now := time.Now().UTC()
	lead.EnrichedAt = &now
}

func (e *Executor) logLookupFailure(ctx context.Context, source, leadID string, err error) {
	zap.L().Warn("enrich: lookup failed",
		zap.String("source", source),
		zap.String("lead_id", leadID),
		zap.Error(err),
	)
	_ = e.store.AppendErrorLog(ctx, model.ErrorLog{
		Source:     source,
		ErrorType:  errorKind(err),
		Message:    err.Error(),
		LeadID:     leadID,
		RetryCount: e.retries,
	})
}

// errorKind buckets a lookup failure for the error log.
func errorKind(err error) string {
	switch {
	case eris.Is(err, context.Canceled) || eris.Is(err, context.DeadlineExceeded):
		return model.ErrKindNetwork
	default:
		return model.ErrKindHTTP
	}
}
