// Package export writes target leads to the delivery CSV.
package export

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/model"
	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/store"
)

// OutputFilename is the fixed name of the delivery file.
const OutputFilename = "scoring_ready.csv"

// targetRow is the delivery CSV schema, in column order.
type targetRow struct {
	Phone   string `csv:"phone"`
	FIO     string `csv:"fio"`
	Score   string `csv:"score"`
	Reason1 string `csv:"reason_1"`
	Reason2 string `csv:"reason_2"`
	Reason3 string `csv:"reason_3"`
	Group   string `csv:"group"`
}

// Exporter streams target leads from the store into the output CSV.
type Exporter struct {
	store     store.Store
	outputDir string
}

// NewExporter creates an Exporter writing into outputDir.
func NewExporter(st store.Store, outputDir string) *Exporter {
	return &Exporter{store: st, outputDir: outputDir}
}

// Export writes every target lead to scoring_ready.csv, highest score first.
// The file is written to a temp path and renamed into place so a consumer
// never reads a half-written file. A run with zero targets still produces
// the file with just the header row.
func (e *Exporter) Export(ctx context.Context) (string, int, error) {
	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		return "", 0, eris.Wrapf(err, "export: create output dir %s", e.outputDir)
	}

	outputPath := filepath.Join(e.outputDir, OutputFilename)
	tempPath := outputPath + ".tmp"

	f, err := os.Create(tempPath)
	if err != nil {
		return "", 0, eris.Wrapf(err, "export: create %s", tempPath)
	}
	defer func() {
		f.Close()           //nolint:errcheck
		os.Remove(tempPath) //nolint:errcheck
	}()

	w := csv.NewWriter(f)
	enc := csvutil.NewEncoder(w)
	if err := enc.EncodeHeader(targetRow{}); err != nil {
		return "", 0, eris.Wrap(err, "export: write header")
	}

	count := 0
	err = e.store.IterateTargets(ctx, func(lead model.Lead) error {
		row := targetRow{
			Phone:   lead.Phone,
			FIO:     lead.FIO,
			Score:   formatScore(lead.Score),
			Reason1: lead.Reason1,
			Reason2: lead.Reason2,
			Reason3: lead.Reason3,
			Group:   lead.GroupName,
		}
		if err := enc.Encode(row); err != nil {
			return eris.Wrapf(err, "export: encode lead %s", lead.ID)
		}
		count++
		return nil
	})
	if err != nil {
		return "", 0, eris.Wrap(err, "export: iterate targets")
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", 0, eris.Wrap(err, "export: flush")
	}
	if err := f.Close(); err != nil {
		return "", 0, eris.Wrapf(err, "export: close %s", tempPath)
	}

	if err := os.Rename(tempPath, outputPath); err != nil {
		return "", 0, eris.Wrapf(err, "export: rename into %s", outputPath)
	}

	zap.L().Info("export: finished", zap.String("file", outputPath), zap.Int("targets", count))
	return outputPath, count, nil
}

func formatScore(score *float64) string {
	if score == nil {
		return ""
	}
	return strconv.FormatFloat(*score, 'f', -1, 64)
}
