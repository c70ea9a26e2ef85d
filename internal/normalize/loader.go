package normalize

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/fetcher"
	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/model"
	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/store"
)

// Loader streams CSV files into the store in deduplicated batches.
type Loader struct {
	store     store.Store
	batchSize int
}

// NewLoader creates a Loader. batchSize <= 0 falls back to 10000.
func NewLoader(st store.Store, batchSize int) *Loader {
	if batchSize <= 0 {
		batchSize = 10000
	}
	return &Loader{store: st, batchSize: batchSize}
}

// ProcessDir normalizes every *.csv file in dir. A failing file is logged
// and skipped; the return value is the number of files processed cleanly.
func (ld *Loader) ProcessDir(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, eris.Wrapf(err, "normalize: read input dir %s", dir)
	}

	processed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".csv") {
			continue
		}
		if ctx.Err() != nil {
			return processed, eris.Wrap(ctx.Err(), "normalize: cancelled")
		}

		path := filepath.Join(dir, entry.Name())
		zap.L().Info("normalize: processing file", zap.String("file", entry.Name()))

		if err := ld.ProcessFile(ctx, path); err != nil {
			zap.L().Error("normalize: file failed", zap.String("file", entry.Name()), zap.Error(err))
			_ = ld.store.AppendErrorLog(ctx, model.ErrorLog{
				Source:    DetectSource(entry.Name()),
				ErrorType: model.ErrKindNormalize,
				Message:   err.Error(),
			})
			continue
		}
		processed++
	}

	zap.L().Info("normalize: done", zap.Int("files_processed", processed))
	return processed, nil
}

// ProcessFile streams one CSV file into the store. Rows that cannot be
// normalized are logged and skipped.
func (ld *Loader) ProcessFile(ctx context.Context, path string) error {
	source := DetectSource(filepath.Base(path))

	f, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "normalize: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	rowCh, errCh := fetcher.StreamCSV(ctx, f, fetcher.CSVOptions{TrimSpace: true, LazyQuotes: true})

	var header []string
	batch := make([]model.Lead, 0, ld.batchSize)
	skipped := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := ld.store.InsertLeads(ctx, batch)
		if err != nil {
			return eris.Wrapf(err, "normalize: insert batch from %s", path)
		}
		zap.L().Debug("normalize: batch inserted",
			zap.String("source", source),
			zap.Int("rows", len(batch)),
			zap.Int("inserted", n),
		)
		batch = batch[:0]
		return nil
	}

	for row := range rowCh {
		if header == nil {
			header = MapHeader(source, row)
			continue
		}

		fields := make(map[string]string, len(header))
		for i, col := range header {
			if i >= len(row) {
				break
			}
			fields[col] = row[i]
		}

		lead, ok := BuildLead(fields, source)
		if !ok {
			skipped++
			continue
		}

		batch = append(batch, lead)
		if len(batch) >= ld.batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	if err := <-errCh; err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}

	if skipped > 0 {
		zap.L().Warn("normalize: rows skipped without usable name",
			zap.String("file", filepath.Base(path)),
			zap.Int("skipped", skipped),
		)
	}
	return nil
}
