package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"seatrotation/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, repo *SessionRepository, d time.Time) *domain.Session {
	t.Helper()
	owner := domain.BatchA
	s := domain.NewSession(d, &owner, false, d, d)
	created, err := repo.Upsert(context.Background(), s)
	require.NoError(t, err)
	require.True(t, created)
	return s
}

func TestSessionRepository_UpsertIsIdempotentByDate(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()
	d := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	first := seed(t, repo, d)

	again := domain.NewSession(d, nil, true, d, d)
	created, err := repo.Upsert(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	got, err := repo.GetByDate(ctx, d)
	require.NoError(t, err)
	assert.False(t, got.IsHoliday, "existing row is not overwritten")
}

func TestSessionRepository_ListFromIsAscending(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()
	for _, day := range []int{23, 19, 21, 16} {
		seed(t, repo, time.Date(2026, 10, day, 0, 0, 0, 0, time.UTC))
	}

	got, err := repo.ListFrom(ctx, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 19, got[0].Date.Day())
	assert.Equal(t, 21, got[1].Date.Day())
	assert.Equal(t, 23, got[2].Date.Day())
}

func TestSessionRepository_GetMissing(t *testing.T) {
	repo := NewSessionRepository()
	_, err := repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.ApplyBookingChange(context.Background(), "nope", func(*domain.Session) error { return nil })
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionRepository_ApplyBookingChange(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()
	s := seed(t, repo, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC))
	user := "u1"

	got, err := repo.ApplyBookingChange(ctx, s.ID, func(sess *domain.Session) error {
		sess.Bookings = append(sess.Bookings, &domain.Booking{UserID: &user, SeatNumber: 1, Type: domain.BookingReserved, Status: domain.BookingActive})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
	require.Len(t, got.Bookings, 1)
	assert.NotEmpty(t, got.Bookings[0].ID)

	// returned snapshot is detached from the stored one
	got.Bookings[0].Status = domain.BookingCancelled
	stored, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingActive, stored.Bookings[0].Status)
}

func TestSessionRepository_ApplyBookingChangeErrorWritesNothing(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()
	s := seed(t, repo, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC))

	_, err := repo.ApplyBookingChange(ctx, s.ID, func(sess *domain.Session) error {
		sess.Bookings = append(sess.Bookings, &domain.Booking{SeatNumber: 1})
		return domain.ErrCapacityFull
	})
	require.ErrorIs(t, err, domain.ErrCapacityFull)

	stored, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Bookings)
	assert.Equal(t, int64(0), stored.Version)
}

func TestSessionRepository_ApplyBookingChangeRejectsRemoval(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()
	s := seed(t, repo, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC))
	_, err := repo.ApplyBookingChange(ctx, s.ID, func(sess *domain.Session) error {
		sess.Bookings = append(sess.Bookings, &domain.Booking{SeatNumber: 1, Status: domain.BookingActive})
		return nil
	})
	require.NoError(t, err)

	_, err = repo.ApplyBookingChange(ctx, s.ID, func(sess *domain.Session) error {
		sess.Bookings = sess.Bookings[:0]
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSessionRepository_ConflictOnStaleVersion(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()
	s := seed(t, repo, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC))

	var inner error
	_, outer := repo.ApplyBookingChange(ctx, s.ID, func(sess *domain.Session) error {
		// a competing change commits while this one is deciding
		_, inner = repo.ApplyBookingChange(ctx, s.ID, func(other *domain.Session) error {
			other.Bookings = append(other.Bookings, &domain.Booking{SeatNumber: 41, Status: domain.BookingActive})
			return nil
		})
		sess.Bookings = append(sess.Bookings, &domain.Booking{SeatNumber: 41, Status: domain.BookingActive})
		return nil
	})
	require.NoError(t, inner)
	assert.ErrorIs(t, outer, domain.ErrVersionConflict)

	stored, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Bookings, 1)
}

func TestSessionRepository_ConcurrentCommitsSerialize(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()
	s := seed(t, repo, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC))

	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	committed := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				_, err := repo.ApplyBookingChange(ctx, s.ID, func(sess *domain.Session) error {
					sess.Bookings = append(sess.Bookings, &domain.Booking{SeatNumber: len(sess.Bookings) + 1, Status: domain.BookingActive})
					return nil
				})
				if err == domain.ErrVersionConflict {
					continue
				}
				assert.NoError(t, err)
				mu.Lock()
				committed++
				mu.Unlock()
				return
			}
		}()
	}
	wg.Wait()

	stored, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, workers, committed)
	assert.Equal(t, int64(workers), stored.Version)
	seats := map[int]bool{}
	for _, b := range stored.Bookings {
		assert.False(t, seats[b.SeatNumber], "seat %d assigned twice", b.SeatNumber)
		seats[b.SeatNumber] = true
	}
}
