package render

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/wonny/recap/backend/internal/contracts"
	"github.com/wonny/recap/backend/pkg/logger"
)

// JSONRenderer writes the recap payload as indented JSON
type JSONRenderer struct {
	dir    string
	logger *logger.Logger
}

// NewJSONRenderer creates a JSONRenderer
func NewJSONRenderer(dir string, log *logger.Logger) *JSONRenderer {
	return &JSONRenderer{dir: dir, logger: log.WithField("module", "render_json")}
}

func (r *JSONRenderer) Format() string { return FormatJSON }

// Render implements contracts.Renderer
func (r *JSONRenderer) Render(ctx context.Context, recap *contracts.Recap) (string, error) {
	if err := ensureDir(r.dir); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(recap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal recap: %w", err)
	}

	path := Path(r.dir, recap.Date, FormatJSON)
	err = writeAtomic(path, func(w io.Writer) error {
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	r.logger.WithFields(map[string]interface{}{
		"path":  path,
		"bytes": len(data),
	}).Info("JSON recap written")
	return path, nil
}
