package orchestrators

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gymadmin/internal/domain/member"
	"gymadmin/internal/domain/trainer"
)

// ImportMembersInput carries the CSV stream and import options.
// PRE: Reader is a CSV stream with a header row naming at least name and email
// INVARIANT: existing members are never deleted; with DryRun nothing is written
type ImportMembersInput struct {
	Reader     io.Reader
	DryRun     bool
	UpdateMode bool // replace members whose email already exists instead of skipping them
}

// ImportMembersResult holds aggregate counts and per-row errors from an import run.
type ImportMembersResult struct {
	Total   int                     `json:"total"`
	Created int                     `json:"created"`
	Updated int                     `json:"updated"`
	Skipped int                     `json:"skipped"`
	Errors  []ImportMembersRowError `json:"errors"`
	DryRun  bool                    `json:"dry_run"`
	Unknown []string                `json:"unknown_columns,omitempty"`
}

// ImportMembersRowError describes why one CSV row was rejected.
type ImportMembersRowError struct {
	Row     int               `json:"row"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// TrainerByName resolves a trainer column given by name.
type TrainerByName interface {
	GetByName(ctx context.Context, name string) (trainer.Trainer, error)
}

// ImportMembersDeps holds dependencies for the import orchestrator.
type ImportMembersDeps struct {
	Write    MemberWriteDeps
	Trainers TrainerByName // optional; without it the trainer column is rejected
}

// ImportMembersValidationError is returned when the CSV structure itself is unusable.
type ImportMembersValidationError struct {
	Message string
}

func (e *ImportMembersValidationError) Error() string {
	return e.Message
}

// importColumns maps accepted header names onto Input fields.
var importColumns = map[string]func(in *member.Input, v string) error{
	"name":              func(in *member.Input, v string) error { in.Name = v; return nil },
	"email":             func(in *member.Input, v string) error { in.Email = v; return nil },
	"phone":             func(in *member.Input, v string) error { in.Phone = v; return nil },
	"birthdate":         func(in *member.Input, v string) error { in.Birthdate = v; return nil },
	"gender":            func(in *member.Input, v string) error { in.Gender = strings.ToLower(v); return nil },
	"address":           func(in *member.Input, v string) error { in.Address = v; return nil },
	"membership_plan":   func(in *member.Input, v string) error { in.MembershipPlan = strings.ToLower(v); return nil },
	"membership_type":   func(in *member.Input, v string) error { in.MembershipType = strings.ToLower(v); return nil },
	"start_date":        func(in *member.Input, v string) error { in.StartDate = v; return nil },
	"expiry_date":       func(in *member.Input, v string) error { in.ExpiryDate = v; return nil },
	"payment_status":    func(in *member.Input, v string) error { in.PaymentStatus = strings.ToLower(v); return nil },
	"payment_method":    func(in *member.Input, v string) error { in.PaymentMethod = strings.ToLower(v); return nil },
	"workout_time_slot": func(in *member.Input, v string) error { in.WorkoutTimeSlot = v; return nil },
	"membership_fee": func(in *member.Input, v string) error {
		fee, err := decimal.NewFromString(v)
		if err != nil {
			return &member.ValidationError{Fields: map[string]string{"membership_fee": "must be a number"}}
		}
		in.MembershipFee = &fee
		return nil
	},
	"trainer_id": func(in *member.Input, v string) error {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return &member.ValidationError{Fields: map[string]string{"trainer_id": "must be a positive id"}}
		}
		in.TrainerID = &id
		return nil
	},
	// "trainer" holds a trainer name and is resolved separately.
	"trainer": func(*member.Input, string) error { return nil },
}

// ExecuteImportMembers creates or updates members from a CSV stream, one row at a time,
// through the same pipeline as ExecuteCreateMember and ExecuteUpdateMember.
// PRE: Input.Reader contains a header row with name and email columns
// POST: Counts and per-row errors are returned; a malformed header is an *ImportMembersValidationError
// INVARIANT: derivations are never bypassed; DryRun validates every row without writing
func ExecuteImportMembers(ctx context.Context, input ImportMembersInput, deps ImportMembersDeps, now time.Time) (ImportMembersResult, error) {
	cr := csv.NewReader(input.Reader)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return ImportMembersResult{}, &ImportMembersValidationError{Message: "CSV is empty"}
	}
	if err != nil {
		return ImportMembersResult{}, &ImportMembersValidationError{Message: "CSV header unreadable: " + err.Error()}
	}

	colIdx := make(map[string]int, len(header))
	result := ImportMembersResult{DryRun: input.DryRun}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		key = strings.ReplaceAll(key, " ", "_")
		if _, ok := importColumns[key]; !ok {
			result.Unknown = append(result.Unknown, h)
			continue
		}
		colIdx[key] = i
	}
	for _, required := range []string{"name", "email"} {
		if _, ok := colIdx[required]; !ok {
			return ImportMembersResult{}, &ImportMembersValidationError{Message: "CSV missing required column: " + required}
		}
	}

	seen := make(map[string]int64) // emails written (or validated in a dry run) by this import
	rowNum := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return result, fmt.Errorf("read CSV row %d: %w", rowNum, err)
			}
			result.Total++
			result.Errors = append(result.Errors, ImportMembersRowError{Row: rowNum, Message: "unreadable row: " + err.Error()})
			continue
		}
		if isBlankRow(row) {
			continue
		}
		result.Total++

		in, err := rowInput(ctx, row, colIdx, deps)
		if err != nil {
			result.Errors = append(result.Errors, rowError(rowNum, err))
			continue
		}

		existingID, exists := seen[in.Email]
		if !exists {
			existing, err := deps.Write.MemberStore.GetByEmail(ctx, in.Email)
			switch {
			case err == nil:
				existingID, exists = existing.ID, true
			case !member.IsNotFound(err):
				result.Errors = append(result.Errors, rowError(rowNum, err))
				continue
			}
		}
		if exists && !input.UpdateMode {
			result.Skipped++
			continue
		}

		if input.DryRun {
			if _, err := prepareMember(ctx, &in, existingID, deps.Write, now); err != nil {
				result.Errors = append(result.Errors, rowError(rowNum, err))
				continue
			}
			seen[in.Email] = existingID
			if exists {
				result.Updated++
			} else {
				result.Created++
			}
			continue
		}

		if exists {
			if _, err := ExecuteUpdateMember(ctx, existingID, in, deps.Write, now); err != nil {
				result.Errors = append(result.Errors, rowError(rowNum, err))
				continue
			}
			result.Updated++
		} else {
			m, err := ExecuteCreateMember(ctx, in, deps.Write, now)
			if err != nil {
				result.Errors = append(result.Errors, rowError(rowNum, err))
				continue
			}
			seen[in.Email] = m.ID
			result.Created++
		}
	}

	slog.Info("member_event",
		"event", "members_imported",
		"dry_run", input.DryRun,
		"update_mode", input.UpdateMode,
		"total", result.Total,
		"created", result.Created,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"errors", len(result.Errors),
	)
	return result, nil
}

func rowInput(ctx context.Context, row []string, colIdx map[string]int, deps ImportMembersDeps) (member.Input, error) {
	var in member.Input
	verr := member.NewValidationError()
	for col, i := range colIdx {
		if i >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[i])
		if v == "" {
			continue
		}
		if err := importColumns[col](&in, v); err != nil {
			var fe *member.ValidationError
			if errors.As(err, &fe) {
				for k, msg := range fe.Fields {
					verr.Add(k, msg)
				}
				continue
			}
			return in, err
		}
	}

	if i, ok := colIdx["trainer"]; ok && i < len(row) && in.TrainerID == nil {
		if name := strings.TrimSpace(row[i]); name != "" {
			if deps.Trainers == nil {
				verr.Add("trainer", "trainer names cannot be resolved")
			} else if t, err := deps.Trainers.GetByName(ctx, name); err == nil {
				in.TrainerID = &t.ID
			} else if member.IsNotFound(err) {
				verr.Add("trainer", fmt.Sprintf("no trainer named %q", name))
			} else {
				return in, err
			}
		}
	}
	return in, verr.OrNil()
}

func rowError(row int, err error) ImportMembersRowError {
	var verr *member.ValidationError
	if errors.As(err, &verr) {
		return ImportMembersRowError{Row: row, Message: "validation failed", Fields: verr.Fields}
	}
	var cerr *member.ConflictError
	var nf *member.NotFoundError
	if errors.As(err, &cerr) || errors.As(err, &nf) {
		return ImportMembersRowError{Row: row, Message: err.Error()}
	}
	slog.Error("member_event", "event", "import_row_failed", "row", row, "error", err)
	return ImportMembersRowError{Row: row, Message: "save failed (see server log)"}
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
