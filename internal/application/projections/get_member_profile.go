package projections

import (
	"context"
	"time"

	domainTrainer "gymadmin/internal/domain/trainer"
)

// TrainerGetter resolves a single trainer.
type TrainerGetter interface {
	GetByID(ctx context.Context, id int64) (domainTrainer.Trainer, error)
}

// GetMemberProfileDeps holds dependencies for GetMemberProfile.
type GetMemberProfileDeps struct {
	MemberStore  MemberStore
	TrainerStore TrainerGetter // optional
}

// QueryGetMemberProfile retrieves one member as a view model.
// PRE: id > 0
// POST: Returns *member.NotFoundError when the member does not exist
func QueryGetMemberProfile(ctx context.Context, id int64, deps GetMemberProfileDeps, now time.Time) (MemberView, error) {
	m, err := deps.MemberStore.GetByID(ctx, id)
	if err != nil {
		return MemberView{}, err
	}
	var name string
	if m.TrainerID != nil && deps.TrainerStore != nil {
		// A dangling reference renders without a name.
		if t, err := deps.TrainerStore.GetByID(ctx, *m.TrainerID); err == nil {
			name = t.Name
		}
	}
	return NewMemberView(m, name, now), nil
}
