package feed

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
)

type Writer struct{}

func NewWriter() *Writer {
	return &Writer{}
}

// Run writes data to path through a temporary file in the same directory, so
// path is either left untouched or replaced by the complete document.
func (w *Writer) Run(data []byte, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &WriteError{Path: path, Err: err}
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &WriteError{Path: path, Err: err}
	}

	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return &WriteError{Path: path, Err: err}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return &WriteError{Path: path, Err: err}
	}

	slog.Debug("Feed written", "path", path, "size", humanize.Bytes(uint64(len(data))))

	return nil
}
