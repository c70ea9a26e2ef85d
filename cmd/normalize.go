package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/normalize"
)

var normalizeInputDir string

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Load and normalize CSV lead lists into the store",
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

		dir := normalizeInputDir
		if dir == "" {
			dir = cfg.Paths.Input
		}

		loader := normalize.NewLoader(st, cfg.Enrich.BatchSize)
		files, err := loader.ProcessDir(ctx, dir)
		if err != nil {
			return err
		}

		zap.L().Info("normalization complete", zap.Int("files", files))
		return nil
	},
}

func init() {
	normalizeCmd.Flags().StringVar(&normalizeInputDir, "input", "", "input directory (default from config)")
	rootCmd.AddCommand(normalizeCmd)
}
