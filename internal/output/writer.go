package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/perrrseus/OpenSaga/internal/errors"
)

// FileWriter writes tables into a directory, one file per table
type FileWriter struct {
	Dir    string
	Format string
}

// NewFileWriter creates a writer for dir. The table view is not a file
// format, so it is written as csv.
func NewFileWriter(dir, format string) *FileWriter {
	if format == "" || format == FormatTable {
		format = FormatCSV
	}
	return &FileWriter{Dir: dir, Format: format}
}

// Write renders t to <dir>/<name>.<format> and returns the path
func (fw *FileWriter) Write(t *Table) (string, error) {
	if err := os.MkdirAll(fw.Dir, 0755); err != nil {
		return "", errors.FileSystemErrorf(err, "create output directory %s", fw.Dir)
	}

	path := filepath.Join(fw.Dir, fmt.Sprintf("%s.%s", t.Name, fw.Format))
	f, err := os.Create(path)
	if err != nil {
		return "", errors.FileSystemErrorf(err, "create %s", path)
	}

	if err := Render(f, t, fw.Format); err != nil {
		f.Close()
		return "", fmt.Errorf("render %s: %w", t.Name, err)
	}
	if err := f.Close(); err != nil {
		return "", errors.FileSystemErrorf(err, "close %s", path)
	}
	return path, nil
}
