package projections

import (
	"time"

	domainMember "gymadmin/internal/domain/member"
	"gymadmin/internal/domain/membership"
)

// MemberView is the read model of one member.
type MemberView struct {
	ID                  int64     `json:"id"`
	Name                string    `json:"name"`
	Email               string    `json:"email"`
	Phone               string    `json:"phone,omitempty"`
	Birthdate           string    `json:"birthdate,omitempty"`
	Age                 *int      `json:"age,omitempty"`
	Gender              string    `json:"gender,omitempty"`
	Address             string    `json:"address,omitempty"`
	MembershipPlan      string    `json:"membership_plan,omitempty"`
	MembershipType      string    `json:"membership_type"`
	MembershipTypeLabel string    `json:"membership_type_label"`
	TrainerID           *int64    `json:"trainer_id,omitempty"`
	TrainerName         string    `json:"trainer_name,omitempty"`
	StartDate           string    `json:"start_date"`
	ExpiryDate          string    `json:"expiry_date"`
	MembershipFee       string    `json:"membership_fee"`
	PaymentStatus       string    `json:"payment_status"`
	PaymentMethod       string    `json:"payment_method,omitempty"`
	WorkoutTimeSlot     string    `json:"workout_time_slot,omitempty"`
	Status              string    `json:"status"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// NewMemberView builds the read model of m as of now.
// POST: Status is "Active" iff the expiry date is after now's date
func NewMemberView(m domainMember.Member, trainerName string, now time.Time) MemberView {
	v := MemberView{
		ID:                  m.ID,
		Name:                m.Name,
		Email:               m.Email,
		Phone:               m.Phone,
		Age:                 m.Age,
		Gender:              m.Gender,
		Address:             m.Address,
		MembershipPlan:      string(m.MembershipPlan),
		MembershipType:      string(m.MembershipType),
		MembershipTypeLabel: membership.TypeLabel(m.MembershipType),
		TrainerID:           m.TrainerID,
		StartDate:           membership.FormatDate(m.StartDate),
		ExpiryDate:          membership.FormatDate(m.ExpiryDate),
		MembershipFee:       m.MembershipFee.StringFixed(membership.FeePlaces),
		PaymentStatus:       m.PaymentStatus,
		PaymentMethod:       m.PaymentMethod,
		WorkoutTimeSlot:     m.WorkoutTimeSlot,
		Status:              string(m.Status(now)),
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
	if m.Birthdate != nil {
		v.Birthdate = membership.FormatDate(*m.Birthdate)
	}
	if m.TrainerID != nil {
		v.TrainerName = trainerName
	}
	return v
}
