package member

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	domain "gymadmin/internal/domain/member"
)

// Store persists Member state.
type Store interface {
	Create(ctx context.Context, value domain.Member) (domain.Member, error)
	Update(ctx context.Context, value domain.Member) (domain.Member, error)
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (domain.Member, error)
	GetByEmail(ctx context.Context, email string) (domain.Member, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Member, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
	SumFee(ctx context.Context, filter ListFilter) (decimal.Decimal, error)
	GroupCount(ctx context.Context, field GroupField) ([]GroupCount, error)
	Recent(ctx context.Context, limit int) ([]domain.Member, error)
	MonthlyNewMembers(ctx context.Context, since time.Time) ([]MonthCount, error)
	MonthlyRevenue(ctx context.Context, since time.Time) ([]MonthAmount, error)
	ExpiringBetween(ctx context.Context, after, through time.Time) ([]domain.Member, error)
}

// Membership status filter values for ListFilter.Status.
const (
	StatusActive  = "active"
	StatusExpired = "expired"
)

// ListFilter carries filtering parameters for List, Count and SumFee.
type ListFilter struct {
	Limit          int
	Offset         int
	Search         string // matched against name, email and phone
	MembershipType string
	PaymentStatus  string
	Status         string    // StatusActive or StatusExpired, evaluated on AsOf
	AsOf           time.Time // required when Status is set
	TrainerID      *int64
	Sort           string // name, email, start_date, expiry_date, created_at
	Dir            string // asc or desc
}

// GroupField names a column that GroupCount may aggregate on.
type GroupField string

// Allowed GroupCount fields.
const (
	GroupByMembershipType GroupField = "membership_type"
	GroupByPaymentStatus  GroupField = "payment_status"
)

// GroupCount is one bucket of a grouped count.
type GroupCount struct {
	Key   string
	Count int
}

// MonthCount is the number of members created in Month (YYYY-MM).
type MonthCount struct {
	Month string
	Count int
}

// MonthAmount is the paid revenue of members created in Month (YYYY-MM).
type MonthAmount struct {
	Month  string
	Amount decimal.Decimal
}
