package storage

import (
	"context"
	"fmt"
	"log/slog"

	"acadrive/internal/config"
)

// New builds the backend selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Storage, error) {
	switch cfg.Driver {
	case config.DriverMinIO, "":
		return NewMinIO(ctx, cfg.MinIO, cfg.PublicURL)
	case config.DriverS3:
		return NewS3(ctx, cfg.S3, cfg.PublicURL, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
