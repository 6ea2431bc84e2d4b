package orchestrators

import (
	"context"
	"errors"
	"strings"
	"testing"

	"gymadmin/internal/domain/membership"
)

func importDeps(members *fakeMemberStore) ImportMembersDeps {
	trainers := newFakeTrainerStore("Gaurav Sir")
	return ImportMembersDeps{Write: writeDeps(members, trainers), Trainers: trainers}
}

const importCSV = `Name,Email,Membership Type,Start Date,Payment Status,Membership Plan,Trainer,Expiry Date,Notes
Asha Patil,ASHA@example.com,3_months,2024-01-15,paid,cardio,Gaurav Sir,,vip
Ravi Kumar,ravi@example.com,custom,2024-02-01,pending,hardcore,,2024-12-31,
Bad Email,not-an-email,1_month,2024-03-01,paid,,,,
No Trainer,nt@example.com,1_month,2024-03-01,paid,,Nobody,,
,,,,,,,,
`

// TestExecuteImportMembers_Create verifies header mapping, derivation and per-row errors.
func TestExecuteImportMembers_Create(t *testing.T) {
	members := newFakeMemberStore()
	res, err := ExecuteImportMembers(context.Background(), ImportMembersInput{Reader: strings.NewReader(importCSV)}, importDeps(members), testNow)
	if err != nil {
		t.Fatalf("ExecuteImportMembers() error = %v", err)
	}
	if res.Total != 4 || res.Created != 2 || len(res.Errors) != 2 {
		t.Fatalf("result = %+v, want total 4, created 2, 2 errors", res)
	}
	if len(res.Unknown) != 1 || res.Unknown[0] != "Notes" {
		t.Errorf("Unknown = %v, want [Notes]", res.Unknown)
	}
	if res.Errors[0].Row != 4 || res.Errors[0].Fields["email"] == "" {
		t.Errorf("first error = %+v, want row 4 email", res.Errors[0])
	}
	if res.Errors[1].Row != 5 || res.Errors[1].Fields["trainer"] == "" {
		t.Errorf("second error = %+v, want row 5 trainer", res.Errors[1])
	}

	asha, err := members.GetByEmail(context.Background(), "ASHA@example.com")
	if err != nil {
		t.Fatalf("imported member not stored under its email as written: %v", err)
	}
	if membership.FormatDate(asha.ExpiryDate) != "2024-04-15" || asha.TrainerID == nil || *asha.TrainerID != 1 {
		t.Errorf("asha = expiry %s trainer %v", membership.FormatDate(asha.ExpiryDate), asha.TrainerID)
	}
	ravi, _ := members.GetByEmail(context.Background(), "ravi@example.com")
	if membership.FormatDate(ravi.ExpiryDate) != "2024-12-31" {
		t.Errorf("ravi expiry = %s, want 2024-12-31", membership.FormatDate(ravi.ExpiryDate))
	}
}

// TestExecuteImportMembers_DryRun verifies nothing is written and counts mirror a real run.
func TestExecuteImportMembers_DryRun(t *testing.T) {
	members := newFakeMemberStore()
	csv := "name,email,membership_type,start_date,payment_status\n" +
		"A,a@example.com,1_month,2024-01-01,paid\n" +
		"A again,a@example.com,1_month,2024-01-01,paid\n" +
		"B,b@example.com,weekly,2024-01-01,paid\n"
	res, err := ExecuteImportMembers(context.Background(), ImportMembersInput{Reader: strings.NewReader(csv), DryRun: true}, importDeps(members), testNow)
	if err != nil {
		t.Fatalf("ExecuteImportMembers() error = %v", err)
	}
	if !res.DryRun || res.Created != 1 || res.Skipped != 1 || len(res.Errors) != 1 {
		t.Errorf("result = %+v, want created 1, skipped 1, 1 error", res)
	}
	if res.Errors[0].Fields["membership_type"] == "" {
		t.Errorf("error = %+v, want membership_type field", res.Errors[0])
	}
	if len(members.byID) != 0 {
		t.Errorf("dry run wrote %d members", len(members.byID))
	}
}

// TestExecuteImportMembers_UpdateMode verifies existing emails are replaced or skipped.
func TestExecuteImportMembers_UpdateMode(t *testing.T) {
	csv := "name,email,membership_type,start_date,payment_status,membership_fee\n" +
		"Asha P,asha@example.com,6_months,2024-02-01,partial,\n"

	for _, update := range []bool{false, true} {
		members := newFakeMemberStore()
		deps := importDeps(members)
		orig, err := ExecuteCreateMember(context.Background(), baseInput(), deps.Write, testNow)
		if err != nil {
			t.Fatal(err)
		}

		res, err := ExecuteImportMembers(context.Background(), ImportMembersInput{Reader: strings.NewReader(csv), UpdateMode: update}, deps, testNow)
		if err != nil {
			t.Fatalf("update=%v: error = %v", update, err)
		}
		got := members.byID[orig.ID]
		if update {
			if res.Updated != 1 || got.Name != "Asha P" || membership.FormatDate(got.ExpiryDate) != "2024-08-01" {
				t.Errorf("update mode: result %+v, member %s %s", res, got.Name, membership.FormatDate(got.ExpiryDate))
			}
		} else if res.Skipped != 1 || got.Name != "Asha Patil" {
			t.Errorf("skip mode: result %+v, member %s", res, got.Name)
		}
	}
}

// TestExecuteImportMembers_UpdateMatchesAPIEmail verifies an import updates a member
// created through the API under the same mixed-case email instead of duplicating it.
func TestExecuteImportMembers_UpdateMatchesAPIEmail(t *testing.T) {
	members := newFakeMemberStore()
	deps := importDeps(members)
	in := baseInput()
	in.Email = "Asha@Example.com"
	orig, err := ExecuteCreateMember(context.Background(), in, deps.Write, testNow)
	if err != nil {
		t.Fatal(err)
	}

	csv := "name,email,membership_type,start_date,payment_status\n" +
		"Asha Patil,Asha@Example.com,1_year,2024-03-01,paid\n"
	res, err := ExecuteImportMembers(context.Background(), ImportMembersInput{Reader: strings.NewReader(csv), UpdateMode: true}, deps, testNow)
	if err != nil {
		t.Fatalf("ExecuteImportMembers() error = %v", err)
	}
	if res.Created != 0 || res.Updated != 1 {
		t.Errorf("result = %+v, want updated 1, created 0", res)
	}
	if len(members.byID) != 1 {
		t.Errorf("store holds %d members, want 1", len(members.byID))
	}
	if got := members.byID[orig.ID]; membership.FormatDate(got.ExpiryDate) != "2025-03-01" {
		t.Errorf("expiry = %s, want 2025-03-01", membership.FormatDate(got.ExpiryDate))
	}
}

// TestExecuteImportMembers_BadHeader verifies structural errors abort the import.
func TestExecuteImportMembers_BadHeader(t *testing.T) {
	for _, body := range []string{"", "name,phone\nA,9876543210\n"} {
		_, err := ExecuteImportMembers(context.Background(), ImportMembersInput{Reader: strings.NewReader(body)}, importDeps(newFakeMemberStore()), testNow)
		var verr *ImportMembersValidationError
		if !errors.As(err, &verr) {
			t.Errorf("body %q: error = %v, want *ImportMembersValidationError", body, err)
		}
	}
}

// TestExecuteImportMembers_BadFee verifies unparseable numbers become field errors.
func TestExecuteImportMembers_BadFee(t *testing.T) {
	csv := "name,email,membership_type,start_date,payment_status,membership_fee,trainer_id\n" +
		"A,a@example.com,1_month,2024-01-01,paid,abc,x\n"
	res, err := ExecuteImportMembers(context.Background(), ImportMembersInput{Reader: strings.NewReader(csv)}, importDeps(newFakeMemberStore()), testNow)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("errors = %+v, want 1", res.Errors)
	}
	fields := res.Errors[0].Fields
	if fields["membership_fee"] == "" || fields["trainer_id"] == "" {
		t.Errorf("fields = %v, want membership_fee and trainer_id", fields)
	}
}
