package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/enrich"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich unenriched leads against the public registries",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		client, err := initRegistryClient()
		if err != nil {
			return err
		}

		sources := enrich.NewSources(client, cfg.Sources)
		executor := enrich.NewExecutor(st, sources, cfg.Enrich.BatchSize, cfg.Enrich.MaxConcurrent, cfg.Enrich.MaxRetries)

		enriched, err := executor.EnrichAll(ctx)
		if err != nil {
			return err
		}

		zap.L().Info("enrichment complete", zap.Int("leads", enriched))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(enrichCmd)
}
