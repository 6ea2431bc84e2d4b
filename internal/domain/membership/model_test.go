package membership_test

import (
	"testing"
	"time"

	"gymadmin/internal/domain/membership"
)

// TestAddMonths covers plain additions and month-end clamping.
func TestAddMonths(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		n     int
		want  time.Time
	}{
		{"mid month", membership.Date(2024, 1, 15), 3, membership.Date(2024, 4, 15)},
		{"jan 31 leap year", membership.Date(2024, 1, 31), 1, membership.Date(2024, 2, 29)},
		{"jan 31 common year", membership.Date(2023, 1, 31), 1, membership.Date(2023, 2, 28)},
		{"aug 31 to feb", membership.Date(2023, 8, 31), 6, membership.Date(2024, 2, 29)},
		{"feb 29 plus year", membership.Date(2024, 2, 29), 12, membership.Date(2025, 2, 28)},
		{"year rollover", membership.Date(2024, 11, 30), 3, membership.Date(2025, 2, 28)},
		{"negative", membership.Date(2024, 3, 31), -1, membership.Date(2024, 2, 29)},
		{"negative across year", membership.Date(2024, 1, 10), -2, membership.Date(2023, 11, 10)},
		{"zero", membership.Date(2024, 5, 5), 0, membership.Date(2024, 5, 5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := membership.AddMonths(tt.start, tt.n); !got.Equal(tt.want) {
				t.Errorf("AddMonths(%s, %d) = %s, want %s", membership.FormatDate(tt.start), tt.n, membership.FormatDate(got), membership.FormatDate(tt.want))
			}
		})
	}
}

// TestAddMonths_DropsClock verifies the clock part of the input is discarded.
func TestAddMonths_DropsClock(t *testing.T) {
	start := time.Date(2024, 1, 15, 23, 59, 0, 0, time.UTC)
	got := membership.AddMonths(start, 1)
	if !got.Equal(membership.Date(2024, 2, 15)) {
		t.Errorf("AddMonths = %v, want 2024-02-15 00:00 UTC", got)
	}
}

// TestTypeLabel tests the membership type labels.
func TestTypeLabel(t *testing.T) {
	tests := []struct {
		typ  membership.Type
		want string
	}{
		{membership.TypeOneMonth, "1 Month"},
		{membership.TypeThreeMonths, "3 Months"},
		{membership.TypeSixMonths, "6 Months"},
		{membership.TypeOneYear, "1 Year"},
		{membership.TypeCustom, "Custom"},
		{membership.Type("2_weeks"), "2_weeks"},
	}
	for _, tt := range tests {
		if got := membership.TypeLabel(tt.typ); got != tt.want {
			t.Errorf("TypeLabel(%q) = %q, want %q", tt.typ, got, tt.want)
		}
	}
}

// TestTypeValid tests the membership type enum check.
func TestTypeValid(t *testing.T) {
	for _, typ := range membership.Types {
		if !typ.Valid() {
			t.Errorf("%q should be valid", typ)
		}
	}
	for _, typ := range []membership.Type{"", "monthly", "1_MONTH"} {
		if typ.Valid() {
			t.Errorf("%q should be invalid", typ)
		}
	}
}

// TestParseFeeMode tests fee mode parsing.
func TestParseFeeMode(t *testing.T) {
	tests := []struct {
		in      string
		want    membership.FeeMode
		wantErr bool
	}{
		{"", membership.FeeModeDerived, false},
		{"derived", membership.FeeModeDerived, false},
		{"explicit", membership.FeeModeExplicit, false},
		{"tiered", "", true},
	}
	for _, tt := range tests {
		got, err := membership.ParseFeeMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFeeMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFeeMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestParseDate tests civil date parsing.
func TestParseDate(t *testing.T) {
	d, err := membership.ParseDate("2024-02-29")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if !d.Equal(membership.Date(2024, 2, 29)) {
		t.Errorf("ParseDate = %v", d)
	}
	if _, err := membership.ParseDate("2023-02-29"); err == nil {
		t.Error("ParseDate should reject 2023-02-29")
	}
	if _, err := membership.ParseDate("15/01/2024"); err == nil {
		t.Error("ParseDate should reject non ISO dates")
	}
}
