package export

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/model"
	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/normalize"
)

// ListInputFiles describes the CSV files waiting in the input directory,
// with the source each filename maps to. A missing directory is reported
// as empty, not as an error.
func ListInputFiles(dir string) ([]model.InputFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "export: read input dir %s", dir)
	}

	var files []model.InputFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".csv") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, eris.Wrapf(err, "export: stat %s", entry.Name())
		}
		files = append(files, model.InputFile{
			Filename:     entry.Name(),
			Path:         filepath.Join(dir, entry.Name()),
			SizeMB:       float64(info.Size()) / (1 << 20),
			LastModified: info.ModTime(),
			Source:       normalize.DetectSource(entry.Name()),
		})
	}
	return files, nil
}
