package segment

import (
	"fmt"

	"github.com/ironsheep/silhouette-tools/internal/config"
)

// NewRemover builds the oracle selected by the configuration.
func NewRemover(cfg config.Segmentation) (Remover, error) {
	switch cfg.Backend {
	case config.SegmenterHTTP:
		return NewHTTPRemover(cfg.URL, cfg.Timeout), nil
	case config.SegmenterCommand:
		return NewCommandRemover(cfg.Command), nil
	default:
		return nil, fmt.Errorf("unknown segmentation backend: %s", cfg.Backend)
	}
}
