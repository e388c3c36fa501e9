package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seatrotation/internal/domain"
)

var (
	sessionCols = []string{"id", "date", "reserved_for_batch", "is_holiday", "reserved_seats", "floating_seats", "version", "created_at", "updated_at"}
	bookingCols = []string{"id", "session_id", "user_id", "seat_number", "type", "status", "booked_at", "updated_at"}

	testDate = time.Date(2026, 11, 4, 0, 0, 0, 0, time.UTC)
	testTime = time.Date(2026, 11, 3, 9, 0, 0, 0, time.UTC)
)

func newTestSessionRepo(t *testing.T) (*SessionRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := NewSessionRepository(db)
	repo.now = func() time.Time { return testTime }
	return repo, mock
}

func expectLoad(mock sqlmock.Sqlmock, version int64, bookings *sqlmock.Rows) {
	mock.ExpectQuery(`SELECT (.+) FROM sessions WHERE id =`).
		WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows(sessionCols).AddRow("s-1", testDate, "BatchA", false, 40, 10, version, testTime, testTime))
	mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE session_id = ANY`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(bookings)
}

func TestSessionRepository_GetByID(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
		check   func(t *testing.T, s *domain.Session)
	}{
		{
			name: "success with bookings",
			mock: func(mock sqlmock.Sqlmock) {
				expectLoad(mock, 3, sqlmock.NewRows(bookingCols).
					AddRow("b-1", "s-1", "u-1", 1, "reserved", "cancelled", testTime, testTime).
					AddRow("b-2", "s-1", nil, 1, "temporaryFloating", "active", testTime, testTime))
			},
			check: func(t *testing.T, s *domain.Session) {
				assert.Equal(t, "s-1", s.ID)
				require.NotNil(t, s.ReservedForBatch)
				assert.Equal(t, domain.BatchA, *s.ReservedForBatch)
				assert.Equal(t, int64(3), s.Version)
				require.Len(t, s.Bookings, 2)
				assert.Equal(t, domain.BookingCancelled, s.Bookings[0].Status)
				assert.True(t, s.Bookings[1].IsPlaceholder())
			},
		},
		{
			name: "not found",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT (.+) FROM sessions WHERE id =`).
					WithArgs("s-1").
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "db error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT (.+) FROM sessions WHERE id =`).
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: sql.ErrConnDone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newTestSessionRepo(t)
			tt.mock(mock)
			s, err := repo.GetByID(ctx, "s-1")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				tt.check(t, s)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSessionRepository_ListFrom(t *testing.T) {
	repo, mock := newTestSessionRepo(t)
	next := testDate.AddDate(0, 0, 1)
	mock.ExpectQuery(`SELECT (.+) FROM sessions WHERE date >=`).
		WithArgs("2026-11-04").
		WillReturnRows(sqlmock.NewRows(sessionCols).
			AddRow("s-1", testDate, "BatchA", false, 40, 10, 0, testTime, testTime).
			AddRow("s-2", next, nil, true, 40, 10, 0, testTime, testTime))
	mock.ExpectQuery(`FROM bookings WHERE session_id = ANY`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(bookingCols).
			AddRow("b-1", "s-1", "u-1", 1, "reserved", "active", testTime, testTime))

	got, err := repo.ListFrom(context.Background(), testDate)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Len(t, got[0].Bookings, 1)
	assert.Empty(t, got[1].Bookings)
	assert.Nil(t, got[1].ReservedForBatch)
	assert.True(t, got[1].IsHoliday)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	owner := domain.BatchB

	tests := []struct {
		name        string
		mock        func(mock sqlmock.Sqlmock)
		wantCreated bool
		wantID      string
		wantErr     bool
	}{
		{
			name: "inserted",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO sessions`).
					WithArgs("2026-11-04", "BatchB", false, 40, 10, testTime, testTime).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("s-new"))
			},
			wantCreated: true,
			wantID:      "s-new",
		},
		{
			name: "date exists",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO sessions`).WillReturnError(sql.ErrNoRows)
				mock.ExpectQuery(`SELECT id FROM sessions WHERE date =`).
					WithArgs("2026-11-04").
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("s-old"))
			},
			wantCreated: false,
			wantID:      "s-old",
		},
		{
			name: "db error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO sessions`).WillReturnError(sql.ErrConnDone)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newTestSessionRepo(t)
			tt.mock(mock)
			s := domain.NewSession(testDate, &owner, false, testTime, testTime)
			created, err := repo.Upsert(ctx, s)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantCreated, created)
				assert.Equal(t, tt.wantID, s.ID)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// cancelAndPlaceholder mirrors a reserved cancellation: the first booking is
// cancelled and a placeholder appended.
func cancelAndPlaceholder(s *domain.Session) error {
	b := s.Bookings[0]
	b.Status = domain.BookingCancelled
	b.UpdatedAt = testTime
	s.Bookings = append(s.Bookings, &domain.Booking{
		SeatNumber: b.SeatNumber,
		Type:       domain.BookingTemporaryFloating,
		Status:     domain.BookingActive,
		BookedAt:   testTime,
		UpdatedAt:  testTime,
	})
	return nil
}

func TestSessionRepository_ApplyBookingChange(t *testing.T) {
	ctx := context.Background()
	oneBooking := func() *sqlmock.Rows {
		return sqlmock.NewRows(bookingCols).
			AddRow("b-1", "s-1", "u-1", 1, "reserved", "active", testTime.Add(-time.Hour), testTime.Add(-time.Hour))
	}

	tests := []struct {
		name    string
		fn      domain.BookingMutation
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
		check   func(t *testing.T, s *domain.Session)
	}{
		{
			name: "commits update and insert",
			fn:   cancelAndPlaceholder,
			mock: func(mock sqlmock.Sqlmock) {
				expectLoad(mock, 2, oneBooking())
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE sessions SET version = version \+ 1`).
					WithArgs(testTime, "s-1", int64(2)).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(`UPDATE bookings SET user_id`).
					WithArgs("u-1", "cancelled", testTime, "b-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectQuery(`INSERT INTO bookings`).
					WithArgs("s-1", 1, nil, 1, "temporaryFloating", "active", testTime, testTime).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("b-2"))
				mock.ExpectCommit()
			},
			check: func(t *testing.T, s *domain.Session) {
				assert.Equal(t, int64(3), s.Version)
				require.Len(t, s.Bookings, 2)
				assert.Equal(t, "b-2", s.Bookings[1].ID)
				assert.True(t, s.Bookings[1].IsPlaceholder())
			},
		},
		{
			name: "stale version",
			fn:   cancelAndPlaceholder,
			mock: func(mock sqlmock.Sqlmock) {
				expectLoad(mock, 2, oneBooking())
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE sessions SET version`).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectRollback()
			},
			wantErr: domain.ErrVersionConflict,
		},
		{
			name: "unique violation is a conflict",
			fn: func(s *domain.Session) error {
				uid := "u-2"
				s.Bookings = append(s.Bookings, &domain.Booking{UserID: &uid, SeatNumber: 2, Type: domain.BookingReserved, Status: domain.BookingActive, BookedAt: testTime, UpdatedAt: testTime})
				return nil
			},
			mock: func(mock sqlmock.Sqlmock) {
				expectLoad(mock, 0, oneBooking())
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE sessions SET version`).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectQuery(`INSERT INTO bookings`).
					WillReturnError(&pq.Error{Code: "23505"})
				mock.ExpectRollback()
			},
			wantErr: domain.ErrVersionConflict,
		},
		{
			name: "decision error writes nothing",
			fn:   func(*domain.Session) error { return domain.ErrCapacityFull },
			mock: func(mock sqlmock.Sqlmock) {
				expectLoad(mock, 0, oneBooking())
			},
			wantErr: domain.ErrCapacityFull,
		},
		{
			name: "removing records is rejected",
			fn: func(s *domain.Session) error {
				s.Bookings = nil
				return nil
			},
			mock: func(mock sqlmock.Sqlmock) {
				expectLoad(mock, 0, oneBooking())
			},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name: "db error on update",
			fn:   cancelAndPlaceholder,
			mock: func(mock sqlmock.Sqlmock) {
				expectLoad(mock, 0, oneBooking())
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE sessions SET version`).
					WillReturnError(sql.ErrConnDone)
				mock.ExpectRollback()
			},
			wantErr: sql.ErrConnDone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newTestSessionRepo(t)
			tt.mock(mock)
			s, err := repo.ApplyBookingChange(ctx, "s-1", tt.fn)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				tt.check(t, s)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
