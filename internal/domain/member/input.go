package member

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"gymadmin/internal/domain/membership"
)

var phonePattern = regexp.MustCompile(`^\+?\d{10,15}$`)

var validate = newValidator()

// newValidator builds the shared validator with JSON field names and the phone tag.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// Input carries the caller-supplied fields of a member write.
// Derived fields (expiry for fixed types, fee in derived mode, age) are never trusted from here.
type Input struct {
	Name            string           `json:"name" validate:"required,max=255"`
	Email           string           `json:"email" validate:"required,email,max=255"`
	Phone           string           `json:"phone" validate:"omitempty,phone"`
	Birthdate       string           `json:"birthdate" validate:"omitempty,datetime=2006-01-02"`
	Gender          string           `json:"gender" validate:"omitempty,oneof=male female other"`
	Address         string           `json:"address" validate:"max=500"`
	MembershipPlan  string           `json:"membership_plan" validate:"omitempty,oneof=cardio hardcore"`
	MembershipType  string           `json:"membership_type" validate:"required,oneof=1_month 3_months 6_months 1_year custom"`
	TrainerID       *int64           `json:"trainer_id" validate:"omitempty,gt=0"`
	StartDate       string           `json:"start_date" validate:"required,datetime=2006-01-02"`
	ExpiryDate      string           `json:"expiry_date" validate:"omitempty,datetime=2006-01-02"`
	MembershipFee   *decimal.Decimal `json:"membership_fee" validate:"-"`
	PaymentStatus   string           `json:"payment_status" validate:"required,oneof=paid partial pending unpaid"`
	PaymentMethod   string           `json:"payment_method" validate:"omitempty,oneof=cash card upi netbanking bank_transfer"`
	WorkoutTimeSlot string           `json:"workout_time_slot" validate:"omitempty,oneof=Morning Evening"`
}

func (in *Input) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Birthdate = strings.TrimSpace(in.Birthdate)
	in.Address = strings.TrimSpace(in.Address)
	in.StartDate = strings.TrimSpace(in.StartDate)
	in.ExpiryDate = strings.TrimSpace(in.ExpiryDate)
}

// Validate checks every caller-supplied field and collects one message per invalid field.
// PRE: asOf is the current date, used to reject birthdates in the future
// POST: Returns *ValidationError if any field is invalid, nil otherwise
// INVARIANT: string fields are trimmed in place
func (in *Input) Validate(mode membership.FeeMode, asOf time.Time) error {
	in.normalize()
	verr := NewValidationError()

	if err := validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("validate member input: %w", err)
		}
		for _, fe := range fieldErrs {
			verr.Add(fe.Field(), fieldMessage(fe))
		}
	}

	if membership.Type(in.MembershipType) == membership.TypeCustom && in.ExpiryDate == "" {
		verr.Add("expiry_date", "is required for custom memberships")
	}
	if in.Birthdate != "" && !verr.Has("birthdate") {
		if b, err := membership.ParseDate(in.Birthdate); err == nil && b.After(membership.Truncate(asOf)) {
			verr.Add("birthdate", "cannot be in the future")
		}
	}
	if in.ExpiryDate != "" && !verr.Has("expiry_date") && !verr.Has("start_date") {
		start, _ := membership.ParseDate(in.StartDate)
		expiry, _ := membership.ParseDate(in.ExpiryDate)
		if expiry.Before(start) {
			verr.Add("expiry_date", "must be on or after the start date")
		}
	}

	switch {
	case in.MembershipFee == nil && mode == membership.FeeModeExplicit:
		verr.Add("membership_fee", "is required")
	case in.MembershipFee != nil && in.MembershipFee.IsNegative():
		verr.Add("membership_fee", "cannot be negative")
	case in.MembershipFee != nil && in.MembershipFee.GreaterThan(membership.MaxFee):
		verr.Add("membership_fee", "must be at most "+membership.MaxFee.String())
	}

	return verr.OrNil()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "email":
		return "must be a valid email address"
	case "phone":
		return "must be 10 to 15 digits with an optional leading +"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	case "gt":
		return "must be a positive id"
	}
	return "is invalid"
}

// Calculation converts a validated Input into calculator input.
// PRE: Validate returned nil
func (in *Input) Calculation() (membership.Input, error) {
	start, err := membership.ParseDate(in.StartDate)
	if err != nil {
		return membership.Input{}, fmt.Errorf("parse start_date: %w", err)
	}
	calc := membership.Input{
		Type:      membership.Type(in.MembershipType),
		Plan:      membership.Plan(in.MembershipPlan),
		StartDate: start,
		Fee:       in.MembershipFee,
	}
	if in.ExpiryDate != "" {
		if calc.ExpiryDate, err = membership.ParseDate(in.ExpiryDate); err != nil {
			return membership.Input{}, fmt.Errorf("parse expiry_date: %w", err)
		}
	}
	if in.Birthdate != "" {
		b, err := membership.ParseDate(in.Birthdate)
		if err != nil {
			return membership.Input{}, fmt.Errorf("parse birthdate: %w", err)
		}
		calc.Birthdate = &b
	}
	return calc, nil
}

// Build assembles a Member from the input and the authoritative derived values.
// POST: ID and timestamps are left for the store to assign
func (in *Input) Build(calc membership.Input, d membership.Derived) Member {
	return Member{
		Name:            in.Name,
		Email:           in.Email,
		Phone:           in.Phone,
		Birthdate:       calc.Birthdate,
		Age:             d.Age,
		Gender:          in.Gender,
		Address:         in.Address,
		MembershipPlan:  calc.Plan,
		MembershipType:  calc.Type,
		TrainerID:       in.TrainerID,
		StartDate:       calc.StartDate,
		ExpiryDate:      d.ExpiryDate,
		MembershipFee:   d.Fee,
		PaymentStatus:   in.PaymentStatus,
		PaymentMethod:   in.PaymentMethod,
		WorkoutTimeSlot: in.WorkoutTimeSlot,
	}
}
