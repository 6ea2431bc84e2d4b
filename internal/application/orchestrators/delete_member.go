package orchestrators

import (
	"context"

	"gymadmin/internal/domain/member"
)

// ExecuteDeleteMember permanently removes a member.
// PRE: id > 0
// POST: The member is gone; *member.NotFoundError when it did not exist
func ExecuteDeleteMember(ctx context.Context, id int64, deps MemberWriteDeps) error {
	if id <= 0 {
		return &member.NotFoundError{Entity: "member", ID: id}
	}
	if err := deps.MemberStore.Delete(ctx, id); err != nil {
		return err
	}
	afterMemberWrite(ctx, deps, "member_deleted", id)
	return nil
}
