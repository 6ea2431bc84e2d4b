package projections

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"gymadmin/internal/adapters/storage/member"
	domainMember "gymadmin/internal/domain/member"
	domainTrainer "gymadmin/internal/domain/trainer"
)

// MemberStore interface for member queries.
type MemberStore interface {
	GetByID(ctx context.Context, id int64) (domainMember.Member, error)
	List(ctx context.Context, filter member.ListFilter) ([]domainMember.Member, error)
	Count(ctx context.Context, filter member.ListFilter) (int, error)
}

// DashboardMemberStore interface for the aggregate queries behind the dashboard.
type DashboardMemberStore interface {
	Count(ctx context.Context, filter member.ListFilter) (int, error)
	SumFee(ctx context.Context, filter member.ListFilter) (decimal.Decimal, error)
	GroupCount(ctx context.Context, field member.GroupField) ([]member.GroupCount, error)
	Recent(ctx context.Context, limit int) ([]domainMember.Member, error)
	MonthlyNewMembers(ctx context.Context, since time.Time) ([]member.MonthCount, error)
	MonthlyRevenue(ctx context.Context, since time.Time) ([]member.MonthAmount, error)
}

// TrainerStore interface for trainer queries.
type TrainerStore interface {
	List(ctx context.Context) ([]domainTrainer.Trainer, error)
}

// trainerNames maps trainer IDs to names; a nil store yields an empty map.
func trainerNames(ctx context.Context, store TrainerStore) (map[int64]string, error) {
	names := make(map[int64]string)
	if store == nil {
		return names, nil
	}
	trainers, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range trainers {
		names[t.ID] = t.Name
	}
	return names, nil
}
