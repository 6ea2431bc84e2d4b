package projections

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gymadmin/internal/adapters/cache"
	"gymadmin/internal/adapters/metrics"
	"gymadmin/internal/adapters/storage/member"
	domainMember "gymadmin/internal/domain/member"
	"gymadmin/internal/domain/membership"
)

// Trend window bounds in months.
const (
	MinTrendMonths      = 6
	MaxTrendMonths      = 12
	DefaultTrendMonths  = 12
	RecentMemberLimit   = 5
	DefaultDashboardTTL = 30 * time.Second
)

// GetDashboardQuery carries query parameters.
type GetDashboardQuery struct {
	Months int // trend window; clamped to MinTrendMonths..MaxTrendMonths, 0 means default
}

// KeyCount is one labelled bucket of a grouped count.
type KeyCount struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// MonthPoint is one month of the new-members series.
type MonthPoint struct {
	Month string `json:"month"` // YYYY-MM
	Label string `json:"label"` // e.g. "Jun 2024"
	Count int    `json:"count"`
}

// RevenuePoint is one month of the paid-revenue series.
type RevenuePoint struct {
	Month  string `json:"month"`
	Label  string `json:"label"`
	Amount string `json:"amount"`
}

// GetDashboardResult carries the dashboard aggregate.
type GetDashboardResult struct {
	TotalMembers      int            `json:"total_members"`
	ActiveMembers     int            `json:"active_members"`
	ExpiredMembers    int            `json:"expired_members"`
	TotalRevenue      string         `json:"total_revenue"`
	MembershipTypes   []KeyCount     `json:"membership_types"`
	PaymentStatuses   []KeyCount     `json:"payment_statuses"`
	RecentMembers     []MemberView   `json:"recent_members"`
	MonthlyNewMembers []MonthPoint   `json:"monthly_new_members"`
	MonthlyRevenue    []RevenuePoint `json:"monthly_revenue"`
	GeneratedAt       time.Time      `json:"generated_at"`
}

// GetDashboardDeps holds dependencies for GetDashboard.
type GetDashboardDeps struct {
	MemberStore  DashboardMemberStore
	TrainerStore TrainerStore       // optional: names for recent members
	Cache        cache.Cache        // optional: nil computes on every call
	Metrics      *metrics.Collector // optional
	TTL          time.Duration
}

// ClampTrendMonths bounds n to the supported trend window.
func ClampTrendMonths(n int) int {
	switch {
	case n == 0:
		return DefaultTrendMonths
	case n < MinTrendMonths:
		return MinTrendMonths
	case n > MaxTrendMonths:
		return MaxTrendMonths
	}
	return n
}

// QueryGetDashboard aggregates counts, revenue and trends as of now.
// PRE: now is the current time
// POST: Both trend series hold exactly ClampTrendMonths(query.Months) points, oldest first,
// ending with now's month
// INVARIANT: ActiveMembers + ExpiredMembers == TotalMembers
func QueryGetDashboard(ctx context.Context, query GetDashboardQuery, deps GetDashboardDeps, now time.Time) (GetDashboardResult, error) {
	compute := func() (GetDashboardResult, error) {
		return computeDashboard(ctx, ClampTrendMonths(query.Months), deps, now)
	}
	if deps.Cache == nil {
		return compute()
	}
	ttl := deps.TTL
	if ttl <= 0 {
		ttl = DefaultDashboardTTL
	}
	return cache.GetOrSet(ctx, deps.Cache, deps.Metrics, cache.KeyDashboard, ttl, compute)
}

func computeDashboard(ctx context.Context, months int, deps GetDashboardDeps, now time.Time) (GetDashboardResult, error) {
	store := deps.MemberStore
	today := membership.Truncate(now)
	result := GetDashboardResult{GeneratedAt: now.UTC()}

	var err error
	if result.TotalMembers, err = store.Count(ctx, member.ListFilter{}); err != nil {
		return GetDashboardResult{}, err
	}
	active := member.ListFilter{Status: member.StatusActive, AsOf: today}
	if result.ActiveMembers, err = store.Count(ctx, active); err != nil {
		return GetDashboardResult{}, err
	}
	result.ExpiredMembers = result.TotalMembers - result.ActiveMembers

	revenue, err := store.SumFee(ctx, member.ListFilter{PaymentStatus: domainMember.PaymentPaid})
	if err != nil {
		return GetDashboardResult{}, err
	}
	result.TotalRevenue = revenue.StringFixed(membership.FeePlaces)

	typeCounts, err := store.GroupCount(ctx, member.GroupByMembershipType)
	if err != nil {
		return GetDashboardResult{}, err
	}
	typeKeys := make([]string, 0, len(membership.Types))
	for _, t := range membership.Types {
		typeKeys = append(typeKeys, string(t))
	}
	result.MembershipTypes = fillGroups(typeKeys, typeCounts, func(k string) string {
		return membership.TypeLabel(membership.Type(k))
	})

	paymentCounts, err := store.GroupCount(ctx, member.GroupByPaymentStatus)
	if err != nil {
		return GetDashboardResult{}, err
	}
	result.PaymentStatuses = fillGroups(domainMember.PaymentStatuses, paymentCounts, paymentLabel)

	recent, err := store.Recent(ctx, RecentMemberLimit)
	if err != nil {
		return GetDashboardResult{}, err
	}
	names, err := trainerNames(ctx, deps.TrainerStore)
	if err != nil {
		return GetDashboardResult{}, err
	}
	result.RecentMembers = make([]MemberView, 0, len(recent))
	for _, m := range recent {
		var name string
		if m.TrainerID != nil {
			name = names[*m.TrainerID]
		}
		result.RecentMembers = append(result.RecentMembers, NewMemberView(m, name, now))
	}

	window := trendMonths(now, months)
	since := window[0]
	newMembers, err := store.MonthlyNewMembers(ctx, since)
	if err != nil {
		return GetDashboardResult{}, err
	}
	monthlyRevenue, err := store.MonthlyRevenue(ctx, since)
	if err != nil {
		return GetDashboardResult{}, err
	}

	counts := make(map[string]int, len(newMembers))
	for _, mc := range newMembers {
		counts[mc.Month] = mc.Count
	}
	amounts := make(map[string]decimal.Decimal, len(monthlyRevenue))
	for _, ma := range monthlyRevenue {
		amounts[ma.Month] = ma.Amount
	}

	result.MonthlyNewMembers = make([]MonthPoint, 0, months)
	result.MonthlyRevenue = make([]RevenuePoint, 0, months)
	for _, start := range window {
		key := start.Format("2006-01")
		label := start.Format("Jan 2006")
		result.MonthlyNewMembers = append(result.MonthlyNewMembers, MonthPoint{Month: key, Label: label, Count: counts[key]})
		result.MonthlyRevenue = append(result.MonthlyRevenue, RevenuePoint{
			Month:  key,
			Label:  label,
			Amount: amounts[key].StringFixed(membership.FeePlaces),
		})
	}
	return result, nil
}

// trendMonths returns the first instant of each of the n months ending with now's month.
func trendMonths(now time.Time, n int) []time.Time {
	now = now.UTC()
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	months := make([]time.Time, n)
	for i := range n {
		months[i] = current.AddDate(0, i-(n-1), 0)
	}
	return months
}

// fillGroups orders counts by keys, zero-filling missing keys and appending unknown ones.
func fillGroups(keys []string, counts []member.GroupCount, label func(string) string) []KeyCount {
	byKey := make(map[string]int, len(counts))
	for _, gc := range counts {
		byKey[gc.Key] = gc.Count
	}
	out := make([]KeyCount, 0, len(keys))
	known := make(map[string]bool, len(keys))
	for _, k := range keys {
		known[k] = true
		out = append(out, KeyCount{Key: k, Label: label(k), Count: byKey[k]})
	}
	for _, gc := range counts {
		if !known[gc.Key] {
			out = append(out, KeyCount{Key: gc.Key, Label: gc.Key, Count: gc.Count})
		}
	}
	return out
}

// paymentLabel title-cases known statuses and passes unknown ones through.
func paymentLabel(status string) string {
	if !domainMember.ValidPaymentStatus(status) {
		return status
	}
	return strings.ToUpper(status[:1]) + status[1:]
}
