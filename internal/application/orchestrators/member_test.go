package orchestrators

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"gymadmin/internal/adapters/cache"
	"gymadmin/internal/domain/member"
	"gymadmin/internal/domain/membership"
)

func writeDeps(members *fakeMemberStore, trainers *fakeTrainerStore) MemberWriteDeps {
	return MemberWriteDeps{
		MemberStore:  members,
		TrainerStore: trainers,
		Calculator:   membership.NewCalculator(membership.FeeModeDerived),
	}
}

// TestExecuteCreateMember_Derives verifies expiry, fee and age come from the calculator.
func TestExecuteCreateMember_Derives(t *testing.T) {
	members := newFakeMemberStore()
	deps := writeDeps(members, newFakeTrainerStore("Gaurav Sir"))

	in := baseInput()
	in.ExpiryDate = "2030-01-01" // ignored for fixed types
	in.MembershipFee = ptr(decimal.NewFromInt(1))
	in.TrainerID = ptr(int64(1))

	m, err := ExecuteCreateMember(context.Background(), in, deps, testNow)
	if err != nil {
		t.Fatalf("ExecuteCreateMember() error = %v", err)
	}
	if m.ID == 0 {
		t.Error("expected assigned ID")
	}
	if got := membership.FormatDate(m.ExpiryDate); got != "2024-04-15" {
		t.Errorf("ExpiryDate = %s, want 2024-04-15", got)
	}
	if !m.MembershipFee.Equal(decimal.NewFromInt(150)) {
		t.Errorf("MembershipFee = %s, want 150", m.MembershipFee)
	}
	if m.Age == nil || *m.Age != 24 {
		t.Errorf("Age = %v, want 24", m.Age)
	}
	if !m.CreatedAt.Equal(testNow) || !m.UpdatedAt.Equal(testNow) {
		t.Errorf("timestamps = %v/%v, want %v", m.CreatedAt, m.UpdatedAt, testNow)
	}
}

// TestExecuteCreateMember_ExplicitFee verifies the caller's fee is kept in explicit mode.
func TestExecuteCreateMember_ExplicitFee(t *testing.T) {
	deps := writeDeps(newFakeMemberStore(), newFakeTrainerStore())
	deps.Calculator = membership.NewCalculator(membership.FeeModeExplicit)

	in := baseInput()
	in.MembershipFee = ptr(decimal.RequireFromString("1234.567"))
	m, err := ExecuteCreateMember(context.Background(), in, deps, testNow)
	if err != nil {
		t.Fatalf("ExecuteCreateMember() error = %v", err)
	}
	if m.MembershipFee.String() != "1234.57" {
		t.Errorf("MembershipFee = %s, want 1234.57", m.MembershipFee)
	}
}

// TestExecuteCreateMember_Errors verifies the error taxonomy of the create path.
func TestExecuteCreateMember_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *member.Input)
		check  func(t *testing.T, err error)
	}{
		{
			name:   "invalid input",
			mutate: func(in *member.Input) { in.Email = "nope" },
			check: func(t *testing.T, err error) {
				var verr *member.ValidationError
				if !errors.As(err, &verr) || !verr.Has("email") {
					t.Errorf("error = %v, want ValidationError on email", err)
				}
			},
		},
		{
			name:   "unknown trainer",
			mutate: func(in *member.Input) { in.TrainerID = ptr(int64(99)) },
			check: func(t *testing.T, err error) {
				var nf *member.NotFoundError
				if !errors.As(err, &nf) || nf.Entity != "trainer" || nf.ID != 99 {
					t.Errorf("error = %v, want trainer NotFoundError", err)
				}
			},
		},
		{
			name:   "duplicate email",
			mutate: func(in *member.Input) { in.Email = "taken@example.com" },
			check: func(t *testing.T, err error) {
				var cerr *member.ConflictError
				if !errors.As(err, &cerr) || cerr.Field != "email" {
					t.Errorf("error = %v, want ConflictError on email", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			members := newFakeMemberStore()
			members.add(member.Member{Email: "taken@example.com"})
			in := baseInput()
			tt.mutate(&in)
			_, err := ExecuteCreateMember(context.Background(), in, writeDeps(members, newFakeTrainerStore()), testNow)
			tt.check(t, err)
			if len(members.byID) != 1 {
				t.Errorf("store has %d members, want 1", len(members.byID))
			}
		})
	}
}

// TestExecuteUpdateMember verifies full replace, custom expiry and self-email handling.
func TestExecuteUpdateMember(t *testing.T) {
	members := newFakeMemberStore()
	deps := writeDeps(members, newFakeTrainerStore())
	ctx := context.Background()

	created, err := ExecuteCreateMember(ctx, baseInput(), deps, testNow)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	in := baseInput()
	in.MembershipType = string(membership.TypeCustom)
	in.ExpiryDate = "2024-12-31"
	in.MembershipPlan = string(membership.PlanHardcore)
	later := testNow.AddDate(0, 0, 1)

	updated, err := ExecuteUpdateMember(ctx, created.ID, in, deps, later)
	if err != nil {
		t.Fatalf("ExecuteUpdateMember() error = %v", err)
	}
	if got := membership.FormatDate(updated.ExpiryDate); got != "2024-12-31" {
		t.Errorf("ExpiryDate = %s, want 2024-12-31", got)
	}
	// 2024-01-15 to 2024-12-31 rounds to 12 months at 75.
	if !updated.MembershipFee.Equal(decimal.NewFromInt(900)) {
		t.Errorf("MembershipFee = %s, want 900", updated.MembershipFee)
	}
	if !updated.CreatedAt.Equal(testNow) || !updated.UpdatedAt.Equal(later) {
		t.Errorf("timestamps = %v/%v", updated.CreatedAt, updated.UpdatedAt)
	}

	other, err := ExecuteCreateMember(ctx, func() member.Input {
		i := baseInput()
		i.Email = "ravi@example.com"
		return i
	}(), deps, testNow)
	if err != nil {
		t.Fatalf("create other: %v", err)
	}
	in.Email = "ravi@example.com"
	_, err = ExecuteUpdateMember(ctx, created.ID, in, deps, later)
	var cerr *member.ConflictError
	if !errors.As(err, &cerr) {
		t.Errorf("taking another member's email: error = %v, want ConflictError", err)
	}

	_, err = ExecuteUpdateMember(ctx, other.ID+100, baseInput(), deps, later)
	if !member.IsNotFound(err) {
		t.Errorf("unknown id: error = %v, want NotFoundError", err)
	}
}

// TestExecuteDeleteMember verifies deletion, not-found and dashboard invalidation.
func TestExecuteDeleteMember(t *testing.T) {
	members := newFakeMemberStore()
	deps := writeDeps(members, newFakeTrainerStore())
	mem := cache.NewMemory()
	deps.Cache = mem
	ctx := context.Background()

	m, err := ExecuteCreateMember(ctx, baseInput(), deps, testNow)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := mem.Set(ctx, cache.KeyDashboard, 1, 0); err != nil {
		t.Fatal(err)
	}

	if err := ExecuteDeleteMember(ctx, m.ID, deps); err != nil {
		t.Fatalf("ExecuteDeleteMember() error = %v", err)
	}
	var v int
	if err := mem.Get(ctx, cache.KeyDashboard, &v); !errors.Is(err, cache.ErrMiss) {
		t.Errorf("dashboard cache not invalidated: %v", err)
	}
	if err := ExecuteDeleteMember(ctx, m.ID, deps); !member.IsNotFound(err) {
		t.Errorf("second delete error = %v, want NotFoundError", err)
	}
	if err := ExecuteDeleteMember(ctx, 0, deps); !member.IsNotFound(err) {
		t.Errorf("zero id error = %v, want NotFoundError", err)
	}
}
