package orchestrators

import (
	"context"
	"time"

	"gymadmin/internal/domain/member"
)

// ExecuteUpdateMember replaces every caller-supplied field of member id and re-derives the rest.
// PRE: id refers to an existing member
// POST: Returns the stored member; CreatedAt is preserved
// INVARIANT: the member's own email never conflicts with itself
func ExecuteUpdateMember(ctx context.Context, id int64, input member.Input, deps MemberWriteDeps, now time.Time) (member.Member, error) {
	current, err := deps.MemberStore.GetByID(ctx, id)
	if err != nil {
		return member.Member{}, err
	}

	m, err := prepareMember(ctx, &input, id, deps, now)
	if err != nil {
		return member.Member{}, err
	}
	m.ID = id
	m.CreatedAt = current.CreatedAt
	m.UpdatedAt = now

	updated, err := deps.MemberStore.Update(ctx, m)
	if err != nil {
		return member.Member{}, err
	}
	afterMemberWrite(ctx, deps, "member_updated", id)
	return updated, nil
}
