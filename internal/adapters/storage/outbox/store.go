package outbox

import (
	"context"

	domain "gymadmin/internal/domain/outbox"
)

// Store persists outbox entries.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Entry, error)
	Save(ctx context.Context, entry domain.Entry) error
	ListPending(ctx context.Context, limit int) ([]domain.Entry, error)
	ListFailed(ctx context.Context, limit int) ([]domain.Entry, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
	Delete(ctx context.Context, id string) error
}
