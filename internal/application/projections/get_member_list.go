package projections

import (
	"context"
	"time"

	"gymadmin/internal/adapters/storage/member"
	"gymadmin/internal/application/listutil"
	"gymadmin/internal/domain/membership"
)

// MemberListSchema lists the sort columns and filters the member list accepts.
var MemberListSchema = listutil.Schema{
	SortColumns: []string{"name", "email", "start_date", "expiry_date", "created_at"},
	FilterKeys:  []string{"membership_type", "payment_status", "status", "trainer_id"},
}

// GetMemberListQuery carries query parameters.
type GetMemberListQuery struct {
	Search         string
	MembershipType string
	PaymentStatus  string
	Status         string // "active", "expired" or empty
	TrainerID      *int64
	Sort           string
	Dir            string
	Page           int
	PerPage        int
}

// NewGetMemberListQuery maps parsed list parameters onto a member list query.
func NewGetMemberListQuery(p listutil.ListParams) GetMemberListQuery {
	q := GetMemberListQuery{
		Search:         p.Search,
		MembershipType: p.Filters["membership_type"],
		PaymentStatus:  p.Filters["payment_status"],
		Status:         p.Filters["status"],
		Sort:           p.Sort,
		Dir:            p.Dir,
		Page:           p.Page,
		PerPage:        p.PerPage,
	}
	if id, ok := p.ID("trainer_id"); ok {
		q.TrainerID = &id
	}
	return q
}

// GetMemberListResult carries the query result.
type GetMemberListResult struct {
	Members []MemberView      `json:"members"`
	Page    listutil.PageInfo `json:"page"`
}

// GetMemberListDeps holds dependencies for GetMemberList.
type GetMemberListDeps struct {
	MemberStore  MemberStore
	TrainerStore TrainerStore // optional: nil leaves trainer names empty
}

// QueryGetMemberList retrieves one page of members as view models.
// PRE: now is the current time; Status is evaluated against its date
// POST: Members is never nil; Page reflects the filtered total
func QueryGetMemberList(ctx context.Context, query GetMemberListQuery, deps GetMemberListDeps, now time.Time) (GetMemberListResult, error) {
	filter := member.ListFilter{
		Search:         query.Search,
		MembershipType: query.MembershipType,
		PaymentStatus:  query.PaymentStatus,
		TrainerID:      query.TrainerID,
		Sort:           query.Sort,
		Dir:            query.Dir,
	}
	if query.Status == member.StatusActive || query.Status == member.StatusExpired {
		filter.Status = query.Status
		filter.AsOf = membership.Truncate(now)
	}

	total, err := deps.MemberStore.Count(ctx, filter)
	if err != nil {
		return GetMemberListResult{}, err
	}
	page := listutil.NewPageInfo(query.Page, query.PerPage, total)
	filter.Limit = page.PerPage
	filter.Offset = page.Offset()

	members, err := deps.MemberStore.List(ctx, filter)
	if err != nil {
		return GetMemberListResult{}, err
	}
	names, err := trainerNames(ctx, deps.TrainerStore)
	if err != nil {
		return GetMemberListResult{}, err
	}

	result := GetMemberListResult{Members: make([]MemberView, 0, len(members)), Page: page}
	for _, m := range members {
		var name string
		if m.TrainerID != nil {
			name = names[*m.TrainerID]
		}
		result.Members = append(result.Members, NewMemberView(m, name, now))
	}
	return result, nil
}
