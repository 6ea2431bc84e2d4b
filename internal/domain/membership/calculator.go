package membership

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Monthly base prices.
const (
	CardioMonthlyPrice  = 50
	DefaultMonthlyPrice = 75
)

// FeePlaces is the currency precision of payable amounts.
const FeePlaces = 2

// MaxFee bounds any single membership fee. Fees are stored as integer cents.
var MaxFee = decimal.NewFromInt(100_000_000)

// DeriveExpiry returns the membership expiry date.
// Fixed-duration types add their period to start; custom returns explicit unchanged.
// PRE: for custom, explicit has already been checked to be on or after start
// POST: for fixed types the result is strictly after start
func DeriveExpiry(t Type, start, explicit time.Time) (time.Time, error) {
	if t == TypeCustom {
		return explicit, nil
	}
	months, ok := t.FixedMonths()
	if !ok {
		return time.Time{}, ErrUnknownType
	}
	return AddMonths(start, months), nil
}

// MonthsBetween returns the number of calendar months from start to end as a fraction.
// Whole months are counted with AddMonths from start; the remainder is the share of the
// following month-long period that has elapsed.
// POST: returns 0 when end is not after start
func MonthsBetween(start, end time.Time) float64 {
	start, end = Truncate(start), Truncate(end)
	if !end.After(start) {
		return 0
	}
	whole := 0
	for !AddMonths(start, whole+1).After(end) {
		whole++
	}
	anchor := AddMonths(start, whole)
	next := AddMonths(start, whole+1)
	period := next.Sub(anchor).Hours()
	elapsed := end.Sub(anchor).Hours()
	return float64(whole) + elapsed/period
}

// BillableMonths returns how many months a membership is charged for.
// Custom spans are rounded half away from zero and never bill fewer than one month.
func BillableMonths(t Type, start, expiry time.Time) (int, error) {
	if t == TypeCustom {
		months := int(math.Round(MonthsBetween(start, expiry)))
		if months < 1 {
			months = 1
		}
		return months, nil
	}
	months, ok := t.FixedMonths()
	if !ok {
		return 0, ErrUnknownType
	}
	return months, nil
}

// MonthlyPrice returns the base price per month for a plan.
// Only cardio is discounted; hardcore, empty and anything else pay the default price.
func MonthlyPrice(plan Plan) decimal.Decimal {
	if plan == PlanCardio {
		return decimal.NewFromInt(CardioMonthlyPrice)
	}
	return decimal.NewFromInt(DefaultMonthlyPrice)
}

// DerivePayableAmount computes the fee for a membership period.
// POST: result = MonthlyPrice(plan) * BillableMonths, rounded to FeePlaces
func DerivePayableAmount(plan Plan, t Type, start, expiry time.Time) (decimal.Decimal, error) {
	months, err := BillableMonths(t, start, expiry)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return MonthlyPrice(plan).Mul(decimal.NewFromInt(int64(months))).Round(FeePlaces), nil
}

// DeriveAge returns the age in whole years on asOf, or nil without a birthdate.
// The year difference is reduced by one until the birthday has occurred in asOf's year.
// POST: result is nil or >= 0
func DeriveAge(birthdate *time.Time, asOf time.Time) *int {
	if birthdate == nil {
		return nil
	}
	b, a := Truncate(*birthdate), Truncate(asOf)
	age := a.Year() - b.Year()
	if a.Month() < b.Month() || (a.Month() == b.Month() && a.Day() < b.Day()) {
		age--
	}
	if age < 0 {
		age = 0
	}
	return &age
}

// ClassifyStatus reports whether a membership is active on asOf.
// A membership expiring today is already expired.
func ClassifyStatus(expiry, asOf time.Time) Status {
	if Truncate(expiry).After(Truncate(asOf)) {
		return StatusActive
	}
	return StatusExpired
}

// Input is the raw material for a membership calculation.
type Input struct {
	Type       Type
	Plan       Plan
	StartDate  time.Time
	ExpiryDate time.Time        // only read for custom memberships
	Birthdate  *time.Time       // optional
	Fee        *decimal.Decimal // only read in explicit fee mode
}

// Derived holds the authoritative computed membership fields.
type Derived struct {
	ExpiryDate time.Time
	Fee        decimal.Decimal
	Age        *int
}

// Calculator bundles the derivations with the configured fee mode.
type Calculator struct {
	FeeMode FeeMode
}

// NewCalculator creates a Calculator; an empty mode means derived.
func NewCalculator(mode FeeMode) Calculator {
	if mode == "" {
		mode = FeeModeDerived
	}
	return Calculator{FeeMode: mode}
}

// Derive computes expiry date, fee and age for one member write.
// PRE: in has passed input validation
// POST: ExpiryDate >= StartDate; 0 <= Fee <= MaxFee with FeePlaces precision
// INVARIANT: in is not modified
func (c Calculator) Derive(in Input, asOf time.Time) (Derived, error) {
	start := Truncate(in.StartDate)
	expiry, err := DeriveExpiry(in.Type, start, Truncate(in.ExpiryDate))
	if err != nil {
		return Derived{}, err
	}
	if expiry.Before(start) {
		return Derived{}, ErrExpiryBeforeStart
	}

	var fee decimal.Decimal
	switch c.FeeMode {
	case FeeModeExplicit:
		if in.Fee == nil {
			return Derived{}, ErrExplicitFee
		}
		if in.Fee.IsNegative() {
			return Derived{}, ErrNegativeFee
		}
		if in.Fee.GreaterThan(MaxFee) {
			return Derived{}, ErrFeeTooLarge
		}
		fee = in.Fee.Round(FeePlaces)
	default:
		fee, err = DerivePayableAmount(in.Plan, in.Type, start, expiry)
		if err != nil {
			return Derived{}, err
		}
	}

	return Derived{
		ExpiryDate: expiry,
		Fee:        fee,
		Age:        DeriveAge(in.Birthdate, asOf),
	}, nil
}
