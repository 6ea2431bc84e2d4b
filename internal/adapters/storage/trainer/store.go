package trainer

import (
	"context"

	domain "gymadmin/internal/domain/trainer"
)

// Store persists Trainer state.
type Store interface {
	Create(ctx context.Context, value domain.Trainer) (domain.Trainer, error)
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (domain.Trainer, error)
	GetByName(ctx context.Context, name string) (domain.Trainer, error)
	List(ctx context.Context) ([]domain.Trainer, error)
	Count(ctx context.Context) (int, error)
}
