package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/export"
)

var exportOutputDir string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export target leads to the delivery CSV",
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

		dir := exportOutputDir
		if dir == "" {
			dir = cfg.Paths.Output
		}

		exporter := export.NewExporter(st, dir)
		file, targets, err := exporter.Export(ctx)
		if err != nil {
			return err
		}

		zap.L().Info("export complete", zap.String("file", file), zap.Int("targets", targets))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOutputDir, "output", "", "output directory (default from config)")
	rootCmd.AddCommand(exportCmd)
}
