package domain

import (
	"context"
	"time"
)

// Default zone sizes for a seeded session.
const (
	DefaultReservedSeats = 40
	DefaultFloatingSeats = 10
)

// BookingType is the seat zone a booking record belongs to.
type BookingType string

const (
	BookingReserved          BookingType = "reserved"
	BookingFloating          BookingType = "floating"
	BookingTemporaryFloating BookingType = "temporaryFloating"
)

// IsFloatingFamily reports whether t draws from the floating pool.
func (t BookingType) IsFloatingFamily() bool {
	return t == BookingFloating || t == BookingTemporaryFloating
}

// BookingStatus is the lifecycle state of a booking record. Cancelled is terminal.
type BookingStatus string

const (
	BookingActive    BookingStatus = "active"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking is one seat record inside a session. A temporaryFloating record
// without a UserID is a claimable placeholder for a vacated reserved seat.
// swagger:model Booking
type Booking struct {
	ID         string        `json:"id"`
	UserID     *string       `json:"user_id"`
	SeatNumber int           `json:"seat_number"`
	Type       BookingType   `json:"type"`
	Status     BookingStatus `json:"status"`
	BookedAt   time.Time     `json:"booked_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// IsActive reports whether the record currently occupies its seat.
func (b *Booking) IsActive() bool {
	return b.Status == BookingActive
}

// IsPlaceholder reports whether b is an unclaimed temporary floating seat.
func (b *Booking) IsPlaceholder() bool {
	return b.IsActive() && b.Type == BookingTemporaryFloating && b.UserID == nil
}

// OwnedBy reports whether b belongs to userID.
func (b *Booking) OwnedBy(userID string) bool {
	return b.UserID != nil && *b.UserID == userID
}

// Session is the bookable unit for one calendar date.
// swagger:model Session
type Session struct {
	ID               string     `json:"id"`
	Date             time.Time  `json:"date"`
	ReservedForBatch *Batch     `json:"reserved_for_batch"`
	IsHoliday        bool       `json:"is_holiday"`
	ReservedSeats    int        `json:"reserved_seats"`
	FloatingSeats    int        `json:"floating_seats"`
	Bookings         []*Booking `json:"bookings"`
	Version          int64      `json:"version"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// NewSession returns a seeded Session with default zone sizes and no bookings.
// ID is typically set by the repository on create.
func NewSession(date time.Time, owner *Batch, isHoliday bool, createdAt, updatedAt time.Time) *Session {
	return &Session{
		Date:             date,
		ReservedForBatch: owner,
		IsHoliday:        isHoliday,
		ReservedSeats:    DefaultReservedSeats,
		FloatingSeats:    DefaultFloatingSeats,
		Bookings:         []*Booking{},
		CreatedAt:        createdAt,
		UpdatedAt:        updatedAt,
	}
}

// ActiveBookingFor returns the active booking owned by userID, or nil.
func (s *Session) ActiveBookingFor(userID string) *Booking {
	for _, b := range s.Bookings {
		if b.IsActive() && b.OwnedBy(userID) {
			return b
		}
	}
	return nil
}

// ActiveSeats returns the set of seat numbers held by active records,
// placeholders included.
func (s *Session) ActiveSeats() map[int]*Booking {
	seats := make(map[int]*Booking, len(s.Bookings))
	for _, b := range s.Bookings {
		if b.IsActive() {
			seats[b.SeatNumber] = b
		}
	}
	return seats
}

// Clone returns a deep copy of s so a mutation can be compared to its snapshot.
func (s *Session) Clone() *Session {
	out := *s
	if s.ReservedForBatch != nil {
		b := *s.ReservedForBatch
		out.ReservedForBatch = &b
	}
	out.Bookings = make([]*Booking, len(s.Bookings))
	for i, b := range s.Bookings {
		cp := *b
		if b.UserID != nil {
			id := *b.UserID
			cp.UserID = &id
		}
		out.Bookings[i] = &cp
	}
	return &out
}

// BookingMutation inspects a freshly read session and changes its booking
// list in place. Records may be appended or modified, never removed.
// Returning an error aborts the change.
type BookingMutation func(s *Session) error

// SessionRepository defines the durable store of sessions and their bookings.
type SessionRepository interface {
	GetByID(ctx context.Context, id string) (*Session, error)
	GetByDate(ctx context.Context, date time.Time) (*Session, error)
	// ListFrom returns sessions dated on or after date, ascending.
	ListFrom(ctx context.Context, date time.Time) ([]*Session, error)
	// ApplyBookingChange commits fn's change only if no other change was
	// committed against the session since it was read; otherwise it returns
	// ErrVersionConflict and the caller retries from a fresh read.
	ApplyBookingChange(ctx context.Context, id string, fn BookingMutation) (*Session, error)
	// Upsert inserts the session unless one already exists for its date.
	Upsert(ctx context.Context, s *Session) (created bool, err error)
}

// BookSeatRequest is the engine input for a booking attempt.
type BookSeatRequest struct {
	SessionID  string
	UserID     string
	Type       BookingType
	SeatNumber *int
}

// BookingResult is the seat granted by a successful booking.
// swagger:model BookingResult
type BookingResult struct {
	SessionID  string      `json:"session_id"`
	SeatNumber int         `json:"seat_number"`
	Type       BookingType `json:"type"`
}

// BookingService is the seat allocation engine.
type BookingService interface {
	BookSeat(ctx context.Context, req BookSeatRequest) (*BookingResult, error)
	CancelSeat(ctx context.Context, sessionID, userID string) error
}

// SessionService seeds sessions and serves read-only session snapshots.
type SessionService interface {
	GenerateSessions(ctx context.Context, from time.Time, days int) ([]*Session, error)
	GetByID(ctx context.Context, id string) (*Session, error)
	GetByDate(ctx context.Context, date time.Time) (*Session, error)
	ListFrom(ctx context.Context, date time.Time) ([]*Session, error)
}
