package member

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gymadmin/internal/domain/membership"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength    = 255
	MaxEmailLength   = 255
	MaxAddressLength = 500
)

// Gender values.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// Payment status values.
const (
	PaymentPaid    = "paid"
	PaymentPartial = "partial"
	PaymentPending = "pending"
	PaymentUnpaid  = "unpaid"
)

// Payment method values.
const (
	MethodCash         = "cash"
	MethodCard         = "card"
	MethodUPI          = "upi"
	MethodNetbanking   = "netbanking"
	MethodBankTransfer = "bank_transfer"
)

// Workout time slots.
const (
	SlotMorning = "Morning"
	SlotEvening = "Evening"
)

// Enumerations used by validation, seeding and import.
var (
	Genders         = []string{GenderMale, GenderFemale, GenderOther}
	PaymentStatuses = []string{PaymentPaid, PaymentPartial, PaymentPending, PaymentUnpaid}
	PaymentMethods  = []string{MethodCash, MethodCard, MethodUPI, MethodNetbanking, MethodBankTransfer}
	TimeSlots       = []string{SlotMorning, SlotEvening}
)

// Domain errors
var (
	ErrEmptyName    = errors.New("member name cannot be empty")
	ErrInvalidEmail = errors.New("member email must be valid")
	ErrMissingStart = errors.New("member start date is required")
)

// Member is a gym member with their current membership.
type Member struct {
	ID              int64
	Name            string
	Email           string
	Phone           string
	Birthdate       *time.Time
	Age             *int // derived from Birthdate on every write
	Gender          string
	Address         string
	MembershipPlan  membership.Plan
	MembershipType  membership.Type
	TrainerID       *int64
	StartDate       time.Time
	ExpiryDate      time.Time // derived unless MembershipType is custom
	MembershipFee   decimal.Decimal
	PaymentStatus   string
	PaymentMethod   string
	WorkoutTimeSlot string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Validate checks the persisted invariants of a Member.
// PRE: Member has been built from a validated Input and derived fields
// POST: Returns error if an invariant is broken, nil otherwise
// INVARIANT: ExpiryDate >= StartDate, 0 <= MembershipFee <= membership.MaxFee
func (m *Member) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrEmptyName
	}
	if !strings.Contains(m.Email, "@") {
		return ErrInvalidEmail
	}
	if !m.MembershipType.Valid() {
		return membership.ErrUnknownType
	}
	if m.StartDate.IsZero() {
		return ErrMissingStart
	}
	if m.ExpiryDate.Before(m.StartDate) {
		return membership.ErrExpiryBeforeStart
	}
	if m.MembershipFee.IsNegative() {
		return membership.ErrNegativeFee
	}
	if m.MembershipFee.GreaterThan(membership.MaxFee) {
		return membership.ErrFeeTooLarge
	}
	return nil
}

// Status classifies the membership on asOf.
// INVARIANT: Member is not mutated
func (m *Member) Status(asOf time.Time) membership.Status {
	return membership.ClassifyStatus(m.ExpiryDate, asOf)
}

// IsPaid reports whether the fee counts towards revenue.
func (m *Member) IsPaid() bool {
	return m.PaymentStatus == PaymentPaid
}

// ValidPaymentStatus reports whether s is a known payment status.
func ValidPaymentStatus(s string) bool {
	return slices.Contains(PaymentStatuses, s)
}
