// Package render turns an assembled recap into files on disk.
package render

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/wonny/recap/backend/internal/contracts"
	"github.com/wonny/recap/backend/pkg/logger"
)

// Supported formats
const (
	FormatPDF  = "pdf"
	FormatJSON = "json"
)

// New builds one renderer per requested format, all writing into dir
func New(formats []string, dir string, log *logger.Logger) ([]contracts.Renderer, error) {
	out := make([]contracts.Renderer, 0, len(formats))
	for _, f := range formats {
		switch f {
		case FormatPDF:
			out = append(out, NewPDFRenderer(dir, log))
		case FormatJSON:
			out = append(out, NewJSONRenderer(dir, log))
		default:
			return nil, fmt.Errorf("unknown report format %q", f)
		}
	}
	return out, nil
}

// Path returns where the artifact of the given date and format is written
func Path(dir string, date time.Time, format string) string {
	return filepath.Join(dir, contracts.ArtifactName(date)+"."+format)
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return nil
}

// writeAtomic writes into a temp file next to path and renames it into
// place only when write succeeds; on error nothing is left behind
func writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	name := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("chmod %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
