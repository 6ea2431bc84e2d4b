package member

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"gymadmin/internal/adapters/storage"
	domain "gymadmin/internal/domain/member"
	"gymadmin/internal/domain/membership"
)

const columns = `id, name, email, phone, birthdate, age, gender, address, membership_plan, membership_type,
	trainer_id, start_date, expiry_date, fee_cents, payment_status, payment_method, workout_time_slot,
	created_at, updated_at`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// Compile-time check that *SQLiteStore satisfies Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new member store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMember(sc scanner) (domain.Member, error) {
	var (
		m                        domain.Member
		birthdate                sql.NullString
		age, trainerID, feeCents sql.NullInt64
		plan, typ, start, expiry string
		createdAt, updatedAt     string
	)
	err := sc.Scan(
		&m.ID, &m.Name, &m.Email, &m.Phone, &birthdate, &age, &m.Gender, &m.Address, &plan, &typ,
		&trainerID, &start, &expiry, &feeCents, &m.PaymentStatus, &m.PaymentMethod, &m.WorkoutTimeSlot,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return domain.Member{}, err
	}

	m.MembershipPlan = membership.Plan(plan)
	m.MembershipType = membership.Type(typ)
	if birthdate.Valid {
		b, err := membership.ParseDate(birthdate.String)
		if err != nil {
			return domain.Member{}, fmt.Errorf("member %d birthdate: %w", m.ID, err)
		}
		m.Birthdate = &b
	}
	if age.Valid {
		a := int(age.Int64)
		m.Age = &a
	}
	if trainerID.Valid {
		id := trainerID.Int64
		m.TrainerID = &id
	}
	if m.StartDate, err = membership.ParseDate(start); err != nil {
		return domain.Member{}, fmt.Errorf("member %d start_date: %w", m.ID, err)
	}
	if m.ExpiryDate, err = membership.ParseDate(expiry); err != nil {
		return domain.Member{}, fmt.Errorf("member %d expiry_date: %w", m.ID, err)
	}
	m.MembershipFee = decimal.New(feeCents.Int64, -membership.FeePlaces)
	if m.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return domain.Member{}, fmt.Errorf("member %d created_at: %w", m.ID, err)
	}
	if m.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return domain.Member{}, fmt.Errorf("member %d updated_at: %w", m.ID, err)
	}
	return m, nil
}

func scanMembers(rows *sql.Rows) ([]domain.Member, error) {
	defer rows.Close()
	var results []domain.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, m)
	}
	return results, rows.Err()
}

// writeArgs returns the column values shared by INSERT and UPDATE, name through workout_time_slot.
func writeArgs(m domain.Member) ([]any, error) {
	cents, err := toCents(m.MembershipFee)
	if err != nil {
		return nil, err
	}
	var birthdate, age, trainerID any
	if m.Birthdate != nil {
		birthdate = membership.FormatDate(*m.Birthdate)
	}
	if m.Age != nil {
		age = *m.Age
	}
	if m.TrainerID != nil {
		trainerID = *m.TrainerID
	}
	return []any{
		m.Name, m.Email, m.Phone, birthdate, age, m.Gender, m.Address,
		string(m.MembershipPlan), string(m.MembershipType), trainerID,
		membership.FormatDate(m.StartDate), membership.FormatDate(m.ExpiryDate),
		cents, m.PaymentStatus, m.PaymentMethod, m.WorkoutTimeSlot,
	}, nil
}

// toCents converts a fee to whole cents.
// POST: returns an error instead of wrapping when the amount does not fit in int64
func toCents(d decimal.Decimal) (int64, error) {
	cents := d.Round(membership.FeePlaces).Shift(membership.FeePlaces)
	if !cents.BigInt().IsInt64() {
		return 0, fmt.Errorf("membership fee %s does not fit in cents", d.String())
	}
	return cents.IntPart(), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// translate maps constraint failures onto domain errors.
func translate(err error, m domain.Member) error {
	switch {
	case storage.IsUniqueViolation(err):
		return &domain.ConflictError{Field: "email", Value: m.Email}
	case storage.IsForeignKeyViolation(err) && m.TrainerID != nil:
		return &domain.NotFoundError{Entity: "trainer", ID: *m.TrainerID}
	}
	return err
}

// Create inserts a new Member and returns it with its assigned ID.
// PRE: value has passed Validate; ID is ignored
// POST: CreatedAt and UpdatedAt are set (to now when zero)
func (s *SQLiteStore) Create(ctx context.Context, value domain.Member) (domain.Member, error) {
	if value.CreatedAt.IsZero() {
		value.CreatedAt = time.Now()
	}
	if value.UpdatedAt.IsZero() {
		value.UpdatedAt = value.CreatedAt
	}
	value.CreatedAt, value.UpdatedAt = value.CreatedAt.UTC().Truncate(time.Second), value.UpdatedAt.UTC().Truncate(time.Second)

	args, err := writeArgs(value)
	if err != nil {
		return domain.Member{}, err
	}
	args = append(args, formatTime(value.UpdatedAt), formatTime(value.CreatedAt))
	res, err := s.db.ExecContext(ctx, `INSERT INTO member (
		name, email, phone, birthdate, age, gender, address, membership_plan, membership_type,
		trainer_id, start_date, expiry_date, fee_cents, payment_status, payment_method, workout_time_slot,
		updated_at, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		return domain.Member{}, translate(err, value)
	}
	if value.ID, err = res.LastInsertId(); err != nil {
		return domain.Member{}, fmt.Errorf("member insert id: %w", err)
	}
	return value, nil
}

// Update replaces every mutable field of an existing Member.
// PRE: value.ID identifies an existing member
// POST: CreatedAt is preserved; returns *domain.NotFoundError when no row matches
func (s *SQLiteStore) Update(ctx context.Context, value domain.Member) (domain.Member, error) {
	if value.UpdatedAt.IsZero() {
		value.UpdatedAt = time.Now()
	}
	value.UpdatedAt = value.UpdatedAt.UTC().Truncate(time.Second)

	args, err := writeArgs(value)
	if err != nil {
		return domain.Member{}, err
	}
	args = append(args, formatTime(value.UpdatedAt), value.ID)
	res, err := s.db.ExecContext(ctx, `UPDATE member SET
		name = ?, email = ?, phone = ?, birthdate = ?, age = ?, gender = ?, address = ?,
		membership_plan = ?, membership_type = ?, trainer_id = ?, start_date = ?, expiry_date = ?,
		fee_cents = ?, payment_status = ?, payment_method = ?, workout_time_slot = ?, updated_at = ?
		WHERE id = ?`, args...)
	if err != nil {
		return domain.Member{}, translate(err, value)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Member{}, fmt.Errorf("member update rows: %w", err)
	}
	if n == 0 {
		return domain.Member{}, &domain.NotFoundError{Entity: "member", ID: value.ID}
	}
	return s.GetByID(ctx, value.ID)
}

// Delete removes a Member.
// POST: returns *domain.NotFoundError when no row matched
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM member WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete member %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete member %d rows: %w", id, err)
	}
	if n == 0 {
		return &domain.NotFoundError{Entity: "member", ID: id}
	}
	return nil
}

// GetByID retrieves a Member by its ID.
// POST: returns *domain.NotFoundError when absent
func (s *SQLiteStore) GetByID(ctx context.Context, id int64) (domain.Member, error) {
	m, err := scanMember(s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM member WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Member{}, &domain.NotFoundError{Entity: "member", ID: id}
	}
	return m, err
}

// GetByEmail retrieves a Member by exact email.
// POST: returns *domain.NotFoundError with Key set when absent
func (s *SQLiteStore) GetByEmail(ctx context.Context, email string) (domain.Member, error) {
	m, err := scanMember(s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM member WHERE email = ?", email))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Member{}, &domain.NotFoundError{Entity: "member", Key: email}
	}
	return m, err
}

// listWhereClause builds the WHERE clause and args for List/Count/SumFee queries.
func listWhereClause(filter ListFilter) (string, []any) {
	where := " WHERE 1=1"
	var args []any

	if filter.Search != "" {
		where += " AND (name LIKE ? OR email LIKE ? OR phone LIKE ?)"
		term := "%" + filter.Search + "%"
		args = append(args, term, term, term)
	}
	if filter.MembershipType != "" {
		where += " AND membership_type = ?"
		args = append(args, filter.MembershipType)
	}
	if filter.PaymentStatus != "" {
		where += " AND payment_status = ?"
		args = append(args, filter.PaymentStatus)
	}
	switch filter.Status {
	case StatusActive:
		where += " AND expiry_date > ?"
		args = append(args, membership.FormatDate(filter.AsOf))
	case StatusExpired:
		where += " AND expiry_date <= ?"
		args = append(args, membership.FormatDate(filter.AsOf))
	}
	if filter.TrainerID != nil {
		where += " AND trainer_id = ?"
		args = append(args, *filter.TrainerID)
	}
	return where, args
}

// sortClause returns a safe ORDER BY clause. Only allowed columns are accepted.
func sortClause(filter ListFilter) string {
	allowed := map[string]string{
		"name": "name", "email": "email",
		"start_date": "start_date", "expiry_date": "expiry_date",
		"created_at": "created_at",
	}
	col, ok := allowed[filter.Sort]
	if !ok {
		return " ORDER BY created_at DESC, id DESC"
	}
	dir := "ASC"
	if filter.Dir == "desc" {
		dir = "DESC"
	}
	return " ORDER BY " + col + " " + dir + ", id " + dir
}

// List retrieves Members matching the filter.
// PRE: AsOf is set when Status is set
// POST: Returns at most Limit rows (1000 when unset)
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Member, error) {
	where, args := listWhereClause(filter)
	query := "SELECT " + columns + " FROM member" + where + sortClause(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return scanMembers(rows)
}

// Count returns the number of Members matching the filter; paging is ignored.
func (s *SQLiteStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	where, args := listWhereClause(filter)
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM member"+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return count, nil
}

// SumFee totals the membership fee of Members matching the filter.
// POST: returns zero, not an error, for an empty match
func (s *SQLiteStore) SumFee(ctx context.Context, filter ListFilter) (decimal.Decimal, error) {
	where, args := listWhereClause(filter)
	var cents int64
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(fee_cents), 0) FROM member"+where, args...).Scan(&cents); err != nil {
		return decimal.Zero, fmt.Errorf("sum member fees: %w", err)
	}
	return decimal.New(cents, -membership.FeePlaces), nil
}

// GroupCount counts Members per distinct value of field, ordered by value.
func (s *SQLiteStore) GroupCount(ctx context.Context, field GroupField) ([]GroupCount, error) {
	switch field {
	case GroupByMembershipType, GroupByPaymentStatus:
	default:
		return nil, fmt.Errorf("group count: unsupported field %q", field)
	}
	col := string(field)
	rows, err := s.db.QueryContext(ctx, "SELECT "+col+", COUNT(*) FROM member GROUP BY "+col+" ORDER BY "+col)
	if err != nil {
		return nil, fmt.Errorf("group members by %s: %w", col, err)
	}
	defer rows.Close()

	var results []GroupCount
	for rows.Next() {
		var g GroupCount
		if err := rows.Scan(&g.Key, &g.Count); err != nil {
			return nil, err
		}
		results = append(results, g)
	}
	return results, rows.Err()
}

// Recent returns the most recently created Members, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]domain.Member, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+columns+" FROM member ORDER BY created_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("recent members: %w", err)
	}
	return scanMembers(rows)
}

// MonthlyNewMembers counts Members per creation month from since onwards.
// POST: months without members are absent; callers zero-fill
func (s *SQLiteStore) MonthlyNewMembers(ctx context.Context, since time.Time) ([]MonthCount, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT substr(created_at, 1, 7) AS month, COUNT(*)
		FROM member WHERE created_at >= ?
		GROUP BY month ORDER BY month`, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("monthly new members: %w", err)
	}
	defer rows.Close()

	var results []MonthCount
	for rows.Next() {
		var mc MonthCount
		if err := rows.Scan(&mc.Month, &mc.Count); err != nil {
			return nil, err
		}
		results = append(results, mc)
	}
	return results, rows.Err()
}

// MonthlyRevenue sums paid fees per creation month from since onwards.
// POST: months without paid members are absent; callers zero-fill
func (s *SQLiteStore) MonthlyRevenue(ctx context.Context, since time.Time) ([]MonthAmount, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT substr(created_at, 1, 7) AS month, COALESCE(SUM(fee_cents), 0)
		FROM member WHERE created_at >= ? AND payment_status = ?
		GROUP BY month ORDER BY month`, formatTime(since), domain.PaymentPaid)
	if err != nil {
		return nil, fmt.Errorf("monthly revenue: %w", err)
	}
	defer rows.Close()

	var results []MonthAmount
	for rows.Next() {
		var (
			month string
			cents int64
		)
		if err := rows.Scan(&month, &cents); err != nil {
			return nil, err
		}
		results = append(results, MonthAmount{Month: month, Amount: decimal.New(cents, -membership.FeePlaces)})
	}
	return results, rows.Err()
}

// ExpiringBetween returns Members whose expiry date is after `after` and on or before `through`,
// soonest first.
func (s *SQLiteStore) ExpiringBetween(ctx context.Context, after, through time.Time) ([]domain.Member, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+columns+" FROM member WHERE expiry_date > ? AND expiry_date <= ? ORDER BY expiry_date, id",
		membership.FormatDate(after), membership.FormatDate(through))
	if err != nil {
		return nil, fmt.Errorf("expiring members: %w", err)
	}
	return scanMembers(rows)
}
