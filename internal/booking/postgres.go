package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/session-booking/internal/schedule"
)

const uniqueViolation = "23505"

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const bookingColumns = `id, client_name, phone, phone_key, email, date, time, notes, status,
	reminder_24h_sent, reminder_3h_sent, review_request_sent, created_at, updated_at`

// PostgresRepository stores bookings in Postgres. The partial unique index
// bookings_active_slot_idx on (date, time) WHERE status <> 'cancelled'
// makes Create atomic.
type PostgresRepository struct {
	db  DB
	now func() time.Time
}

// NewPostgresRepository creates a repository backed by a pgx pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("booking: pgx pool required")
	}
	return &PostgresRepository{db: pool, now: time.Now}
}

func newPostgresRepositoryWithDB(db DB) *PostgresRepository {
	return &PostgresRepository{db: db, now: time.Now}
}

var _ Repository = (*PostgresRepository)(nil)

func (r *PostgresRepository) Create(ctx context.Context, b *Booking) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := r.now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	_, err := r.db.Exec(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		b.ID, b.ClientName, b.Phone, b.PhoneKey, b.Email, dateArg(b.Date), b.Time, b.Notes, string(b.Status),
		b.Reminder24hSent, b.Reminder3hSent, b.ReviewRequestSent, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("booking: create: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("booking: get: %w", err)
	}
	return b, nil
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]Booking, error) {
	var (
		where []string
		args  []any
	)
	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, string(s))
		}
		args = append(args, statuses)
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if !f.From.IsZero() {
		args = append(args, dateArg(f.From))
		where = append(where, fmt.Sprintf("date >= $%d", len(args)))
	}
	if !f.To.IsZero() {
		args = append(args, dateArg(f.To))
		where = append(where, fmt.Sprintf("date <= $%d", len(args)))
	}
	if f.PhoneKey != "" {
		args = append(args, f.PhoneKey)
		where = append(where, fmt.Sprintf("phone_key = $%d", len(args)))
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date ASC, time ASC, created_at ASC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("booking: list: %w", err)
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("booking: scan: %w", err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("booking: list rows: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) BookedTimes(ctx context.Context, date schedule.Date) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT time FROM bookings
		WHERE date = $1 AND status <> 'cancelled'
		ORDER BY time ASC`, dateArg(date))
	if err != nil {
		return nil, fmt.Errorf("booking: booked times: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("booking: scan time: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Booking, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE bookings SET status = $1, updated_at = $2
		WHERE id = $3 AND status <> 'cancelled'
		RETURNING `+bookingColumns, string(status), r.now().UTC(), id)
	b, err := scanBooking(row)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("booking: update status: %w", err)
	}

	var current string
	if err := r.db.QueryRow(ctx, `SELECT status FROM bookings WHERE id = $1`, id).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("booking: load status: %w", err)
	}
	return nil, ErrTerminalStatus
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("booking: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkReminderSent sets the window's flag unless it is already set or the
// booking was cancelled in the meantime; false reports that nothing changed.
func (r *PostgresRepository) MarkReminderSent(ctx context.Context, id uuid.UUID, w ReminderWindow) (bool, error) {
	var column string
	switch w {
	case Window24h:
		column = "reminder_24h_sent"
	case Window3h:
		column = "reminder_3h_sent"
	default:
		return false, invalid("window", "is unknown")
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE bookings SET `+column+` = TRUE, updated_at = $1
		WHERE id = $2 AND `+column+` = FALSE AND status <> 'cancelled'`, r.now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("booking: mark reminder %s: %w", w, err)
	}
	return tag.RowsAffected() > 0, nil
}

// PostgresBlockedDates stores blocked dates; blocked_dates.date is unique.
type PostgresBlockedDates struct {
	db DB
}

// NewPostgresBlockedDates creates a blocked-date store backed by a pgx pool.
func NewPostgresBlockedDates(pool *pgxpool.Pool) *PostgresBlockedDates {
	if pool == nil {
		panic("booking: pgx pool required")
	}
	return &PostgresBlockedDates{db: pool}
}

var _ BlockedDateStore = (*PostgresBlockedDates)(nil)

func (s *PostgresBlockedDates) List(ctx context.Context) ([]BlockedDate, error) {
	rows, err := s.db.Query(ctx, `SELECT id, date, reason, created_at FROM blocked_dates ORDER BY date ASC`)
	if err != nil {
		return nil, fmt.Errorf("booking: list blocked dates: %w", err)
	}
	defer rows.Close()

	var out []BlockedDate
	for rows.Next() {
		var (
			d   BlockedDate
			day time.Time
		)
		if err := rows.Scan(&d.ID, &day, &d.Reason, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("booking: scan blocked date: %w", err)
		}
		d.Date = schedule.DateOf(day)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PostgresBlockedDates) Create(ctx context.Context, d *BlockedDate) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.CreatedAt = time.Now().UTC()
	_, err := s.db.Exec(ctx, `
		INSERT INTO blocked_dates (id, date, reason, created_at)
		VALUES ($1, $2, $3, $4)`, d.ID, dateArg(d.Date), d.Reason, d.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("booking: create blocked date: %w", err)
	}
	return nil
}

func (s *PostgresBlockedDates) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM blocked_dates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("booking: delete blocked date: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var (
		b      Booking
		day    time.Time
		status string
	)
	err := row.Scan(
		&b.ID, &b.ClientName, &b.Phone, &b.PhoneKey, &b.Email, &day, &b.Time, &b.Notes, &status,
		&b.Reminder24hSent, &b.Reminder3hSent, &b.ReviewRequestSent, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Date = schedule.DateOf(day)
	b.Status = Status(status)
	return &b, nil
}

// dateArg encodes a calendar day for a DATE column.
func dateArg(d schedule.Date) time.Time {
	return d.Time(time.UTC)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
