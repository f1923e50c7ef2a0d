// Package export stages emitted documents onto disk.
package export

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/me/flowc/pkg/emit"
)

// Writer stages documents under a root directory, one subdirectory
// per format.
type Writer struct {
	root   string
	logger *slog.Logger
}

// NewWriter returns a writer staging under root. A nil logger falls
// back to slog.Default.
func NewWriter(root string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{root: root, logger: logger.With("component", "export")}
}

// Write stores each document under <root>/<format>/<name>. Documents
// land atomically: each is written to a uniquely named temporary file
// in the target directory and renamed into place, so a concurrent
// reader never sees a partial document.
func (w *Writer) Write(format emit.Format, docs []emit.Document) ([]string, error) {
	dir := filepath.Join(w.root, string(format))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	var paths []string
	for _, doc := range docs {
		dst := filepath.Join(dir, doc.Name)
		tmp := dst + "." + uuid.NewString() + ".tmp"
		if err := os.WriteFile(tmp, doc.Data, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", doc.Name, err)
		}
		if err := os.Rename(tmp, dst); err != nil {
			os.Remove(tmp)
			return nil, fmt.Errorf("rename %s: %w", doc.Name, err)
		}
		w.logger.Debug("wrote document", "format", format, "path", dst, "bytes", len(doc.Data))
		paths = append(paths, dst)
	}
	return paths, nil
}
