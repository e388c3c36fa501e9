// Package memory holds process-local repository implementations. They keep
// the same concurrency contract as the postgres ones and back the test suite
// and STORE_DRIVER=memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"seatrotation/internal/domain"
)

const dateKeyLayout = "2006-01-02"

type sessionEntry struct {
	mu      sync.Mutex
	session *domain.Session
}

// SessionRepository stores sessions in memory. Each session has its own
// lock, so changes to different sessions never contend.
type SessionRepository struct {
	mu     sync.RWMutex
	byID   map[string]*sessionEntry
	byDate map[string]string
	now    func() time.Time
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		byID:   make(map[string]*sessionEntry),
		byDate: make(map[string]string),
		now:    time.Now,
	}
}

func (r *SessionRepository) entry(id string) (*sessionEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	return e, ok
}

func (r *SessionRepository) snapshot(e *sessionEntry) *domain.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone()
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	e, ok := r.entry(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.snapshot(e), nil
}

func (r *SessionRepository) GetByDate(ctx context.Context, date time.Time) (*domain.Session, error) {
	r.mu.RLock()
	id, ok := r.byDate[date.Format(dateKeyLayout)]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *SessionRepository) ListFrom(ctx context.Context, date time.Time) ([]*domain.Session, error) {
	from := date.Format(dateKeyLayout)
	r.mu.RLock()
	var entries []*sessionEntry
	for key, id := range r.byDate {
		if key >= from {
			entries = append(entries, r.byID[id])
		}
	}
	r.mu.RUnlock()

	sessions := make([]*domain.Session, 0, len(entries))
	for _, e := range entries {
		sessions = append(sessions, r.snapshot(e))
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Date.Before(sessions[j].Date)
	})
	return sessions, nil
}

func (r *SessionRepository) Upsert(ctx context.Context, s *domain.Session) (bool, error) {
	key := s.Date.Format(dateKeyLayout)
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byDate[key]; ok {
		s.ID = id
		return false, nil
	}
	s.ID = uuid.NewString()
	if s.Bookings == nil {
		s.Bookings = []*domain.Booking{}
	}
	r.byID[s.ID] = &sessionEntry{session: s.Clone()}
	r.byDate[key] = s.ID
	return true, nil
}

// ApplyBookingChange runs fn on a private copy outside the session lock and
// commits only if the version is still the one that was read.
func (r *SessionRepository) ApplyBookingChange(ctx context.Context, id string, fn domain.BookingMutation) (*domain.Session, error) {
	e, ok := r.entry(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	working := r.snapshot(e)
	readVersion := working.Version
	before := len(working.Bookings)

	if err := fn(working); err != nil {
		return nil, err
	}
	if len(working.Bookings) < before {
		return nil, fmt.Errorf("%w: booking records cannot be removed", domain.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session.Version != readVersion {
		return nil, domain.ErrVersionConflict
	}
	now := r.now()
	for _, b := range working.Bookings[before:] {
		if b.ID == "" {
			b.ID = uuid.NewString()
		}
	}
	working.Version = readVersion + 1
	working.UpdatedAt = now
	e.session = working
	return working.Clone(), nil
}
