package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/model"
	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/scoring"
)

var scoreFilters = model.DefaultFilters()

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score enriched leads against the campaign filters",
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

		applyScoringConfig(cmd.Flags(), &scoreFilters)

		processor := scoring.NewProcessor(st, cfg.Scoring.BatchSize)
		scored, err := processor.ProcessAll(ctx, scoreFilters)
		if err != nil {
			return err
		}

		zap.L().Info("scoring complete", zap.Int("leads", scored))
		return nil
	},
}

func init() {
	addFilterFlags(scoreCmd.Flags(), &scoreFilters)
	rootCmd.AddCommand(scoreCmd)
}
