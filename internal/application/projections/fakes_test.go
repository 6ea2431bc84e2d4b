package projections

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"gymadmin/internal/adapters/storage/member"
	domainMember "gymadmin/internal/domain/member"
	"gymadmin/internal/domain/membership"
	domainTrainer "gymadmin/internal/domain/trainer"
)

var testNow = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

// mockMemberStore records the filters it receives and serves canned rows.
type mockMemberStore struct {
	members []domainMember.Member
	total   int
	active  int
	revenue decimal.Decimal
	groups  map[member.GroupField][]member.GroupCount
	monthly []member.MonthCount
	income  []member.MonthAmount
	err     error
	filters []member.ListFilter
	since   time.Time
	calls   int
}

func (m *mockMemberStore) GetByID(_ context.Context, id int64) (domainMember.Member, error) {
	for _, mem := range m.members {
		if mem.ID == id {
			return mem, nil
		}
	}
	return domainMember.Member{}, &domainMember.NotFoundError{Entity: "member", ID: id}
}

func (m *mockMemberStore) List(_ context.Context, filter member.ListFilter) ([]domainMember.Member, error) {
	m.filters = append(m.filters, filter)
	return m.members, m.err
}

func (m *mockMemberStore) Count(_ context.Context, filter member.ListFilter) (int, error) {
	m.filters = append(m.filters, filter)
	m.calls++
	if filter.Status == member.StatusActive {
		return m.active, m.err
	}
	return m.total, m.err
}

func (m *mockMemberStore) SumFee(context.Context, member.ListFilter) (decimal.Decimal, error) {
	return m.revenue, m.err
}

func (m *mockMemberStore) GroupCount(_ context.Context, field member.GroupField) ([]member.GroupCount, error) {
	return m.groups[field], m.err
}

func (m *mockMemberStore) Recent(_ context.Context, limit int) ([]domainMember.Member, error) {
	if len(m.members) > limit {
		return m.members[:limit], m.err
	}
	return m.members, m.err
}

func (m *mockMemberStore) MonthlyNewMembers(_ context.Context, since time.Time) ([]member.MonthCount, error) {
	m.since = since
	return m.monthly, m.err
}

func (m *mockMemberStore) MonthlyRevenue(context.Context, time.Time) ([]member.MonthAmount, error) {
	return m.income, m.err
}

type mockTrainerStore struct {
	trainers []domainTrainer.Trainer
	err      error
}

func (m *mockTrainerStore) List(context.Context) ([]domainTrainer.Trainer, error) {
	return m.trainers, m.err
}

func (m *mockTrainerStore) GetByID(_ context.Context, id int64) (domainTrainer.Trainer, error) {
	for _, t := range m.trainers {
		if t.ID == id {
			return t, nil
		}
	}
	return domainTrainer.Trainer{}, &domainMember.NotFoundError{Entity: "trainer", ID: id}
}

func ptr[T any](v T) *T { return &v }

func sampleMember(id int64, name string, expiry time.Time) domainMember.Member {
	return domainMember.Member{
		ID:             id,
		Name:           name,
		Email:          name + "@example.com",
		MembershipPlan: membership.PlanCardio,
		MembershipType: membership.TypeOneMonth,
		StartDate:      expiry.AddDate(0, -1, 0),
		ExpiryDate:     expiry,
		MembershipFee:  decimal.NewFromInt(50),
		PaymentStatus:  domainMember.PaymentPaid,
		CreatedAt:      testNow.Add(-time.Duration(id) * time.Hour),
		UpdatedAt:      testNow,
	}
}
