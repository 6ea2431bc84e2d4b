package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"gymadmin/internal/adapters/cache"
	"gymadmin/internal/adapters/metrics"
	"gymadmin/internal/domain/member"
	"gymadmin/internal/domain/membership"
	"gymadmin/internal/domain/trainer"
)

// MemberStore defines the member persistence needed by the write paths.
type MemberStore interface {
	Create(ctx context.Context, m member.Member) (member.Member, error)
	Update(ctx context.Context, m member.Member) (member.Member, error)
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (member.Member, error)
	GetByEmail(ctx context.Context, email string) (member.Member, error)
}

// TrainerLookup resolves trainer references on member writes.
type TrainerLookup interface {
	GetByID(ctx context.Context, id int64) (trainer.Trainer, error)
}

// MemberWriteDeps holds dependencies shared by create, update and delete.
type MemberWriteDeps struct {
	MemberStore  MemberStore
	TrainerStore TrainerLookup
	Calculator   membership.Calculator
	Cache        cache.Cache        // optional; dashboard entry invalidated on every write
	Metrics      *metrics.Collector // optional
}

// ExecuteCreateMember validates input, derives the membership fields and stores a new member.
// PRE: now is the current time; its date is "today" for age and birthdate checks
// POST: Returns the stored member with its assigned ID
// INVARIANT: expiry, fee (derived mode) and age always come from the calculator
func ExecuteCreateMember(ctx context.Context, input member.Input, deps MemberWriteDeps, now time.Time) (member.Member, error) {
	m, err := prepareMember(ctx, &input, 0, deps, now)
	if err != nil {
		return member.Member{}, err
	}
	m.CreatedAt = now
	m.UpdatedAt = now

	created, err := deps.MemberStore.Create(ctx, m)
	if err != nil {
		return member.Member{}, err
	}
	afterMemberWrite(ctx, deps, "member_created", created.ID)
	return created, nil
}

// prepareMember runs the shared write pipeline: validate, trainer exists, email unique, derive.
// selfID excludes the member being updated from the uniqueness check.
func prepareMember(ctx context.Context, input *member.Input, selfID int64, deps MemberWriteDeps, now time.Time) (member.Member, error) {
	today := membership.Truncate(now)
	if err := input.Validate(deps.Calculator.FeeMode, today); err != nil {
		return member.Member{}, err
	}

	if input.TrainerID != nil {
		if _, err := deps.TrainerStore.GetByID(ctx, *input.TrainerID); err != nil {
			return member.Member{}, err
		}
	}

	existing, err := deps.MemberStore.GetByEmail(ctx, input.Email)
	switch {
	case err == nil && existing.ID != selfID:
		return member.Member{}, &member.ConflictError{Field: "email", Value: input.Email}
	case err != nil && !member.IsNotFound(err):
		return member.Member{}, err
	}

	calc, err := input.Calculation()
	if err != nil {
		return member.Member{}, err
	}
	derived, err := deps.Calculator.Derive(calc, today)
	if err != nil {
		return member.Member{}, err
	}

	m := input.Build(calc, derived)
	if err := m.Validate(); err != nil {
		return member.Member{}, err
	}
	return m, nil
}

func afterMemberWrite(ctx context.Context, deps MemberWriteDeps, event string, id int64) {
	cache.Invalidate(ctx, deps.Cache, cache.KeyDashboard)
	deps.Metrics.MemberEvent(event)
	slog.Info("member_event", "event", event, "member_id", id)
}
