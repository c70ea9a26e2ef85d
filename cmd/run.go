package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/model"
)

var runFilters = model.DefaultFilters()

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: normalize, enrich, score, export",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		applyScoringConfig(cmd.Flags(), &runFilters)

		result, err := env.Pipeline.Run(ctx, runFilters)
		if err != nil {
			return err
		}

		zap.L().Info("pipeline complete",
			zap.String("output_file", result.OutputFile),
			zap.Int("targets", result.TargetCount),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	addFilterFlags(runCmd.Flags(), &runFilters)
	rootCmd.AddCommand(runCmd)
}
