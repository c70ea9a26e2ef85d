package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/enrich"
	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/export"
	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/fetcher"
	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/normalize"
	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/pipeline"
	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/scoring"
	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/store"
)

// pipelineEnv holds the initialized store and stage components needed by
// the run/serve commands.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "scoring.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initRegistryClient() (*fetcher.Client, error) {
	return fetcher.NewClient(fetcher.ClientOptions{
		Timeout:           time.Duration(cfg.Enrich.RequestTimeoutSecs) * time.Second,
		MaxRetries:        cfg.Enrich.MaxRetries,
		MaxConcurrent:     int64(cfg.Enrich.MaxConcurrent),
		RequestsPerSecond: cfg.Enrich.RequestsPerSecond,
		Proxies:           cfg.Proxy.List,
		RotateProxies:     cfg.Proxy.RotationEnabled,
	})
}

// initPipeline sets up the store and all stage components and builds the
// Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	client, err := initRegistryClient()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	sources := enrich.NewSources(client, cfg.Sources)
	loader := normalize.NewLoader(st, cfg.Enrich.BatchSize)
	executor := enrich.NewExecutor(st, sources, cfg.Enrich.BatchSize, cfg.Enrich.MaxConcurrent, cfg.Enrich.MaxRetries)
	scorer := scoring.NewProcessor(st, cfg.Scoring.BatchSize)
	exporter := export.NewExporter(st, cfg.Paths.Output)

	p := pipeline.New(st, loader, executor, scorer, exporter, cfg.Paths.Input, pipeline.NewStatusTracker())

	return &pipelineEnv{Store: st, Pipeline: p}, nil
}
