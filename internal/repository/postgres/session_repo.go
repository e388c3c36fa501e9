package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"seatrotation/internal/domain"
)

const (
	dateLayout = "2006-01-02"

	sessionColumns = `id, date, reserved_for_batch, is_holiday, reserved_seats, floating_seats, version, created_at, updated_at`
	bookingColumns = `id, session_id, user_id, seat_number, type, status, booked_at, updated_at`
)

type SessionRepository struct {
	DB  *sql.DB
	now func() time.Time
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{
		DB:  db,
		now: time.Now,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	s := &domain.Session{Bookings: []*domain.Booking{}}
	var owner sql.NullString
	err := row.Scan(&s.ID, &s.Date, &owner, &s.IsHoliday, &s.ReservedSeats, &s.FloatingSeats, &s.Version, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if owner.Valid {
		b := domain.Batch(owner.String)
		s.ReservedForBatch = &b
	}
	return s, nil
}

func scanBooking(row rowScanner) (string, *domain.Booking, error) {
	b := &domain.Booking{}
	var sessionID string
	var userID sql.NullString
	err := row.Scan(&b.ID, &sessionID, &userID, &b.SeatNumber, &b.Type, &b.Status, &b.BookedAt, &b.UpdatedAt)
	if err != nil {
		return "", nil, err
	}
	if userID.Valid {
		id := userID.String
		b.UserID = &id
	}
	return sessionID, b, nil
}

// loadBookings attaches every booking of the given sessions in position order.
func (r *SessionRepository) loadBookings(ctx context.Context, sessions ...*domain.Session) error {
	if len(sessions) == 0 {
		return nil
	}
	ids := make([]string, 0, len(sessions))
	byID := make(map[string]*domain.Session, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.ID)
		byID[s.ID] = s
	}
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE session_id = ANY($1)
		ORDER BY session_id, position
	`
	rows, err := r.DB.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		sessionID, b, err := scanBooking(rows)
		if err != nil {
			return err
		}
		if s, ok := byID[sessionID]; ok {
			s.Bookings = append(s.Bookings, b)
		}
	}
	return rows.Err()
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	s, err := scanSession(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := r.loadBookings(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SessionRepository) GetByDate(ctx context.Context, date time.Time) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE date = $1`
	s, err := scanSession(r.DB.QueryRowContext(ctx, query, date.Format(dateLayout)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := r.loadBookings(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SessionRepository) ListFrom(ctx context.Context, date time.Time) ([]*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE date >= $1 ORDER BY date`
	rows, err := r.DB.QueryContext(ctx, query, date.Format(dateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadBookings(ctx, sessions...); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Upsert inserts s unless its date already exists. s.ID is set either way.
func (r *SessionRepository) Upsert(ctx context.Context, s *domain.Session) (bool, error) {
	var owner sql.NullString
	if s.ReservedForBatch != nil {
		owner = sql.NullString{String: string(*s.ReservedForBatch), Valid: true}
	}
	query := `
		INSERT INTO sessions (date, reserved_for_batch, is_holiday, reserved_seats, floating_seats, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7)
		ON CONFLICT (date) DO NOTHING
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		s.Date.Format(dateLayout), owner, s.IsHoliday, s.ReservedSeats, s.FloatingSeats, s.CreatedAt, s.UpdatedAt,
	).Scan(&s.ID)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}
	if err := r.DB.QueryRowContext(ctx, `SELECT id FROM sessions WHERE date = $1`, s.Date.Format(dateLayout)).Scan(&s.ID); err != nil {
		return false, err
	}
	return false, nil
}

// ApplyBookingChange reads the session, runs fn on a copy and writes the
// difference in one transaction guarded by the version read. A lost race,
// either on the version or on the active-seat unique indexes, is reported as
// domain.ErrVersionConflict.
func (r *SessionRepository) ApplyBookingChange(ctx context.Context, id string, fn domain.BookingMutation) (*domain.Session, error) {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	working := current.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	before := len(current.Bookings)
	if len(working.Bookings) < before {
		return nil, fmt.Errorf("%w: booking records cannot be removed", domain.ErrInvalidInput)
	}

	now := r.now()
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET version = version + 1, updated_at = $1 WHERE id = $2 AND version = $3`,
		now, id, current.Version,
	)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, domain.ErrVersionConflict
	}

	for i, b := range working.Bookings[:before] {
		if !bookingChanged(current.Bookings[i], b) {
			continue
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE bookings SET user_id = $1, status = $2, updated_at = $3 WHERE id = $4`,
			nullableID(b.UserID), b.Status, b.UpdatedAt, b.ID,
		)
		if err != nil {
			return nil, conflictOr(err)
		}
	}
	for i, b := range working.Bookings[before:] {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO bookings (session_id, position, user_id, seat_number, type, status, booked_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id
		`, id, before+i, nullableID(b.UserID), b.SeatNumber, b.Type, b.Status, b.BookedAt, b.UpdatedAt).Scan(&b.ID)
		if err != nil {
			return nil, conflictOr(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, conflictOr(err)
	}

	working.Version = current.Version + 1
	working.UpdatedAt = now
	return working, nil
}

func bookingChanged(before, after *domain.Booking) bool {
	if before.Status != after.Status || !before.UpdatedAt.Equal(after.UpdatedAt) {
		return true
	}
	if (before.UserID == nil) != (after.UserID == nil) {
		return true
	}
	return before.UserID != nil && *before.UserID != *after.UserID
}

func nullableID(id *string) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *id, Valid: true}
}

// conflictOr maps a unique violation to domain.ErrVersionConflict.
func conflictOr(err error) error {
	var perr *pq.Error
	if errors.As(err, &perr) && perr.Code == "23505" {
		return domain.ErrVersionConflict
	}
	return err
}
