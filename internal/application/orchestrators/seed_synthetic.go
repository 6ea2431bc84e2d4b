package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gymadmin/internal/domain/member"
	"gymadmin/internal/domain/membership"
	"gymadmin/internal/domain/trainer"
)

// SyntheticTrainerLister lists trainers to assign synthetic members to.
type SyntheticTrainerLister interface {
	List(ctx context.Context) ([]trainer.Trainer, error)
}

// SyntheticSeedDeps holds dependencies for synthetic data seeding.
type SyntheticSeedDeps struct {
	Write    MemberWriteDeps
	Trainers SyntheticTrainerLister
}

type syntheticMember struct {
	name      string
	gender    string
	birthdate string
	plan      membership.Plan
	typ       membership.Type
	joined    int // months before now the member signed up
	startDays int // days after joining the membership started
	customEnd int // days of a custom membership
	payment   string
	method    string
	slot      string
}

var syntheticRoster = []syntheticMember{
	{"Rahul Deshmukh", member.GenderMale, "1994-03-12", membership.PlanHardcore, membership.TypeOneYear, 11, 0, 0, member.PaymentPaid, member.MethodUPI, member.SlotMorning},
	{"Sneha Kulkarni", member.GenderFemale, "1998-07-23", membership.PlanCardio, membership.TypeThreeMonths, 10, 2, 0, member.PaymentPaid, member.MethodCash, member.SlotEvening},
	{"Amit Verma", member.GenderMale, "1989-11-02", membership.PlanHardcore, membership.TypeSixMonths, 9, 0, 0, member.PaymentPartial, member.MethodCard, member.SlotEvening},
	{"Priya Nair", member.GenderFemale, "2001-01-30", membership.PlanCardio, membership.TypeOneMonth, 8, 1, 0, member.PaymentPaid, member.MethodNetbanking, member.SlotMorning},
	{"Karan Mehta", member.GenderMale, "1996-05-18", membership.PlanHardcore, membership.TypeCustom, 7, 0, 45, member.PaymentPending, member.MethodBankTransfer, ""},
	{"Neha Joshi", member.GenderFemale, "1992-09-09", membership.PlanHardcore, membership.TypeOneYear, 6, 3, 0, member.PaymentPaid, member.MethodCard, member.SlotMorning},
	{"Vikram Singh", member.GenderMale, "1985-12-25", membership.PlanCardio, membership.TypeSixMonths, 5, 0, 0, member.PaymentUnpaid, "", member.SlotEvening},
	{"Ananya Rao", member.GenderFemale, "2003-04-14", membership.PlanCardio, membership.TypeThreeMonths, 4, 0, 0, member.PaymentPaid, member.MethodUPI, member.SlotEvening},
	{"Siddharth Pawar", member.GenderMale, "1999-08-01", membership.PlanHardcore, membership.TypeThreeMonths, 3, 5, 0, member.PaymentPaid, member.MethodCash, member.SlotMorning},
	{"Meera Iyer", member.GenderOther, "1997-02-27", membership.PlanCardio, membership.TypeCustom, 2, 0, 20, member.PaymentPartial, member.MethodUPI, ""},
	{"Rohan Gupta", member.GenderMale, "1993-06-06", membership.PlanHardcore, membership.TypeOneMonth, 1, 0, 0, member.PaymentPending, member.MethodCard, member.SlotEvening},
	{"Kavya Reddy", member.GenderFemale, "2000-10-10", membership.PlanCardio, membership.TypeOneMonth, 0, 0, 0, member.PaymentPaid, member.MethodUPI, member.SlotMorning},
}

// ExecuteSeedSynthetic creates a development roster through the create path,
// spreading sign-ups over the last year so dashboard trends have data.
// PRE: trainers are seeded first if members should have trainers
// POST: Returns how many members were created; existing emails are skipped
func ExecuteSeedSynthetic(ctx context.Context, deps SyntheticSeedDeps, now time.Time) (int, error) {
	var trainers []trainer.Trainer
	if deps.Trainers != nil {
		var err error
		if trainers, err = deps.Trainers.List(ctx); err != nil {
			return 0, fmt.Errorf("seed_synthetic: list trainers: %w", err)
		}
	}

	created := 0
	for i, s := range syntheticRoster {
		addr := strings.ToLower(strings.ReplaceAll(s.name, " ", ".")) + "@example.com"
		if _, err := deps.Write.MemberStore.GetByEmail(ctx, addr); err == nil {
			continue
		} else if !member.IsNotFound(err) {
			return created, err
		}

		joined := now.AddDate(0, -s.joined, 0)
		start := membership.Truncate(joined).AddDate(0, 0, s.startDays)
		in := member.Input{
			Name:            s.name,
			Email:           addr,
			Phone:           fmt.Sprintf("98%08d", 20000000+i*7919),
			Birthdate:       s.birthdate,
			Gender:          s.gender,
			Address:         fmt.Sprintf("%d, MG Road, Pune", 10+i),
			MembershipPlan:  string(s.plan),
			MembershipType:  string(s.typ),
			StartDate:       membership.FormatDate(start),
			PaymentStatus:   s.payment,
			PaymentMethod:   s.method,
			WorkoutTimeSlot: s.slot,
		}
		if s.typ == membership.TypeCustom {
			in.ExpiryDate = membership.FormatDate(start.AddDate(0, 0, s.customEnd))
		}
		if deps.Write.Calculator.FeeMode == membership.FeeModeExplicit {
			fee := decimal.NewFromInt(int64(1000 + 250*i))
			in.MembershipFee = &fee
		}
		if len(trainers) > 0 && i%4 != 3 {
			in.TrainerID = &trainers[i%len(trainers)].ID
		}

		if _, err := ExecuteCreateMember(ctx, in, deps.Write, joined); err != nil {
			return created, fmt.Errorf("seed_synthetic: %s: %w", s.name, err)
		}
		created++
	}
	slog.Info("seed_event", "event", "synthetic_members", "created", created)
	return created, nil
}
