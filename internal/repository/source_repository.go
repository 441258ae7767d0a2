package repository

import (
	"context"

	"biaswatch/internal/domain/entity"
)

// SourceRepository is the read-only feed catalog. The YAML catalog is the
// production implementation.
type SourceRepository interface {
	ListActive(ctx context.Context) ([]*entity.Source, error)
	ListActiveByCategory(ctx context.Context, category entity.Category) ([]*entity.Source, error)
}
