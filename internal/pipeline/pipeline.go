// Package pipeline orchestrates the four processing stages in order.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/enrich"
	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/export"
	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/model"
	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/normalize"
	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/scoring"
	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/store"
)

// Stage names in execution order.
const (
	StageNormalization = "normalization"
	StageEnrichment    = "enrichment"
	StageScoring       = "scoring"
	StageExport        = "export"
)

// Pipeline wires the stages together and runs them in their fixed order.
type Pipeline struct {
	store    store.Store
	loader   *normalize.Loader
	executor *enrich.Executor
	scorer   *scoring.Processor
	exporter *export.Exporter
	inputDir string
	tracker  *StatusTracker
}

// New assembles a Pipeline from its stage components.
func New(
	st store.Store,
	loader *normalize.Loader,
	executor *enrich.Executor,
	scorer *scoring.Processor,
	exporter *export.Exporter,
	inputDir string,
	tracker *StatusTracker,
) *Pipeline {
	return &Pipeline{
		store:    st,
		loader:   loader,
		executor: executor,
		scorer:   scorer,
		exporter: exporter,
		inputDir: inputDir,
		tracker:  tracker,
	}
}

// Tracker exposes the status tracker for the control surface.
func (p *Pipeline) Tracker() *StatusTracker {
	return p.tracker
}

// Run executes normalization, enrichment, scoring, and export in order. A
// stage error aborts the run; the tracker carries the failure. Exactly one
// run may be active at a time.
func (p *Pipeline) Run(ctx context.Context, filters model.ScoringFilters) (*model.RunResult, error) {
	if err := p.tracker.TryStart(); err != nil {
		return nil, err
	}

	return p.RunReserved(ctx, filters)
}

// RunReserved executes the stages for a caller that already holds the
// tracker reservation via TryStart.
func (p *Pipeline) RunReserved(ctx context.Context, filters model.ScoringFilters) (*model.RunResult, error) {
	result, err := p.run(ctx, filters)
	if err != nil {
		p.tracker.Fail(err)
		return nil, err
	}
	p.tracker.Complete(result)
	return result, nil
}

type stage struct {
	name    string
	message string
	fn      func(context.Context, model.ScoringFilters) error
}

func (p *Pipeline) run(ctx context.Context, filters model.ScoringFilters) (*model.RunResult, error) {
	var (
		outputFile string
		targets    int
	)

	stages := []stage{
		{StageNormalization, "Нормализация данных", func(ctx context.Context, _ model.ScoringFilters) error {
			_, err := p.loader.ProcessDir(ctx, p.inputDir)
			return err
		}},
		{StageEnrichment, "Обогащение данных", func(ctx context.Context, _ model.ScoringFilters) error {
			_, err := p.executor.EnrichAll(ctx)
			return err
		}},
		{StageScoring, "Расчет скоринга", func(ctx context.Context, f model.ScoringFilters) error {
			_, err := p.scorer.ProcessAll(ctx, f)
			return err
		}},
		{StageExport, "Экспорт результатов", func(ctx context.Context, _ model.ScoringFilters) error {
			var err error
			outputFile, targets, err = p.exporter.Export(ctx)
			return err
		}},
	}

	var results []model.StageResult
	for i, s := range stages {
		p.tracker.SetStage(s.name, s.message, i*100/len(stages))
		zap.L().Info("pipeline: stage starting", zap.String("stage", s.name))

		start := time.Now()
		if err := s.fn(ctx, filters); err != nil {
			return nil, eris.Wrapf(err, "pipeline: stage %s", s.name)
		}
		res := model.StageResult{
			Name:       s.name,
			Status:     "completed",
			DurationMs: time.Since(start).Milliseconds(),
		}
		results = append(results, res)
		zap.L().Info("pipeline: stage complete",
			zap.String("stage", s.name),
			zap.Int64("duration_ms", res.DurationMs),
		)
	}

	stats, err := p.store.Stats(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: collect stats")
	}

	return &model.RunResult{
		OutputFile:  outputFile,
		TargetCount: targets,
		Stats:       stats,
		Stages:      results,
	}, nil
}
