package objectstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/edumind-api/internal/config"
)

// Open builds the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StorageConfig, log *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case "s3":
		return NewS3Store(ctx, cfg, log)
	case "local":
		return NewLocalStore(cfg.LocalDir, cfg.PublicURL, log)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
