package membership

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the wire and storage format for civil dates.
const DateLayout = "2006-01-02"

// Type selects a fixed-duration or custom billing period.
type Type string

// Membership types.
const (
	TypeOneMonth    Type = "1_month"
	TypeThreeMonths Type = "3_months"
	TypeSixMonths   Type = "6_months"
	TypeOneYear     Type = "1_year"
	TypeCustom      Type = "custom"
)

// Types lists every membership type in display order.
var Types = []Type{TypeOneMonth, TypeThreeMonths, TypeSixMonths, TypeOneYear, TypeCustom}

var fixedMonths = map[Type]int{
	TypeOneMonth:    1,
	TypeThreeMonths: 3,
	TypeSixMonths:   6,
	TypeOneYear:     12,
}

var typeLabels = map[Type]string{
	TypeOneMonth:    "1 Month",
	TypeThreeMonths: "3 Months",
	TypeSixMonths:   "6 Months",
	TypeOneYear:     "1 Year",
	TypeCustom:      "Custom",
}

// Plan is the training plan, which selects the monthly base price.
type Plan string

// Membership plans.
const (
	PlanCardio   Plan = "cardio"
	PlanHardcore Plan = "hardcore"
)

// Status is the derived active/expired state of a membership.
type Status string

// Membership statuses.
const (
	StatusActive  Status = "Active"
	StatusExpired Status = "Expired"
)

// FeeMode controls where the payable amount comes from.
type FeeMode string

// Fee modes.
const (
	// FeeModeDerived computes the fee from plan and period.
	FeeModeDerived FeeMode = "derived"
	// FeeModeExplicit keeps the fee supplied by the caller.
	FeeModeExplicit FeeMode = "explicit"
)

// Domain errors
var (
	ErrUnknownType       = errors.New("unknown membership type")
	ErrExplicitFee       = errors.New("membership fee is required in explicit fee mode")
	ErrNegativeFee       = errors.New("membership fee cannot be negative")
	ErrFeeTooLarge       = errors.New("membership fee exceeds the maximum")
	ErrExpiryBeforeStart = errors.New("expiry date must not be before start date")
)

// Valid reports whether t is one of the known membership types.
func (t Type) Valid() bool {
	_, ok := typeLabels[t]
	return ok
}

// FixedMonths returns the period length of a fixed-duration type.
// POST: ok is false for custom and unknown types
func (t Type) FixedMonths() (months int, ok bool) {
	months, ok = fixedMonths[t]
	return months, ok
}

// TypeLabel returns the human-readable label for a membership type.
// Unknown types are returned verbatim.
func TypeLabel(t Type) string {
	if label, ok := typeLabels[t]; ok {
		return label
	}
	return string(t)
}

// ParseFeeMode converts a configuration value into a FeeMode.
func ParseFeeMode(s string) (FeeMode, error) {
	switch FeeMode(s) {
	case FeeModeDerived, FeeModeExplicit:
		return FeeMode(s), nil
	case "":
		return FeeModeDerived, nil
	}
	return "", fmt.Errorf("fee mode must be %q or %q, got %q", FeeModeDerived, FeeModeExplicit, s)
}

// Date builds a civil date at midnight UTC.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Truncate drops the clock part of t, keeping the calendar date as seen in t's location.
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

// ParseDate parses a YYYY-MM-DD civil date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// FormatDate renders a civil date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// daysIn returns the number of days in the given month.
func daysIn(year int, month time.Month) int {
	return Date(year, month+1, 0).Day()
}

// AddMonths adds n calendar months to d.
// When the day does not exist in the target month it is clamped to the month's last day,
// so Jan 31 + 1 month is Feb 28 (or Feb 29 in a leap year).
// INVARIANT: d is not modified; the result carries no clock component
func AddMonths(d time.Time, n int) time.Time {
	y, m, day := Truncate(d).Date()
	total := int(m) - 1 + n
	ty := y + total/12
	tm := total % 12
	if tm < 0 {
		tm += 12
		ty--
	}
	month := time.Month(tm + 1)
	if last := daysIn(ty, month); day > last {
		day = last
	}
	return Date(ty, month, day)
}
