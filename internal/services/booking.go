package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"seatrotation/internal/calendar"
	"seatrotation/internal/domain"
)

// DefaultMaxAttempts bounds how many times a booking decision is re-run
// after losing an optimistic commit.
const DefaultMaxAttempts = 5

type bookingService struct {
	sessionRepo    domain.SessionRepository
	userRepo       domain.UserRepository
	calendar       *calendar.Calendar
	publisher      domain.BookingEventPublisher
	logger         *slog.Logger
	maxAttempts    int
	contextTimeout time.Duration
	now            func() time.Time
}

// NewBookingService creates the seat allocation engine. A nil publisher
// disables booking events.
func NewBookingService(
	sessionRepo domain.SessionRepository,
	userRepo domain.UserRepository,
	cal *calendar.Calendar,
	publisher domain.BookingEventPublisher,
	logger *slog.Logger,
	maxAttempts int,
	timeout time.Duration,
) domain.BookingService {
	return newBookingService(sessionRepo, userRepo, cal, publisher, logger, maxAttempts, timeout)
}

func newBookingService(
	sessionRepo domain.SessionRepository,
	userRepo domain.UserRepository,
	cal *calendar.Calendar,
	publisher domain.BookingEventPublisher,
	logger *slog.Logger,
	maxAttempts int,
	timeout time.Duration,
) *bookingService {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &bookingService{
		sessionRepo:    sessionRepo,
		userRepo:       userRepo,
		calendar:       cal,
		publisher:      publisher,
		logger:         logger,
		maxAttempts:    maxAttempts,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

func (s *bookingService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.contextTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.contextTimeout)
}

func (s *bookingService) BookSeat(ctx context.Context, req domain.BookSeatRequest) (*domain.BookingResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if req.Type != domain.BookingReserved && req.Type != domain.BookingFloating {
		return nil, fmt.Errorf("%w: booking type must be reserved or floating", domain.ErrInvalidInput)
	}
	if req.SeatNumber != nil && *req.SeatNumber < 1 {
		return nil, domain.ErrInvalidSeat
	}

	user, err := s.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, classify("get user", err)
	}

	var result *domain.BookingResult
	sess, err := s.commit(ctx, req.SessionID, func(sess *domain.Session) error {
		res, err := s.decideBooking(sess, user, req, s.now())
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "seat booked",
		"session_id", sess.ID,
		"user_id", user.ID,
		"seat", result.SeatNumber,
		"type", result.Type,
	)
	s.publish(ctx, domain.EventSeatBooked, sess, user.ID, result.SeatNumber, result.Type)
	return result, nil
}

func (s *bookingService) CancelSeat(ctx context.Context, sessionID, userID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var cancelled domain.Booking
	sess, err := s.commit(ctx, sessionID, func(sess *domain.Session) error {
		b, err := s.decideCancel(sess, userID, s.now())
		if err != nil {
			return err
		}
		cancelled = *b
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "seat cancelled",
		"session_id", sess.ID,
		"user_id", userID,
		"seat", cancelled.SeatNumber,
		"type", cancelled.Type,
	)
	s.publish(ctx, domain.EventSeatCancelled, sess, userID, cancelled.SeatNumber, cancelled.Type)
	return nil
}

// commit runs fn through the store's optimistic commit, re-reading and
// re-deciding on every version conflict until maxAttempts is reached.
func (s *bookingService) commit(ctx context.Context, sessionID string, fn domain.BookingMutation) (*domain.Session, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		sess, err := s.sessionRepo.ApplyBookingChange(ctx, sessionID, fn)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return nil, classify("apply booking change", err)
		}
		s.logger.DebugContext(ctx, "booking commit conflict", "session_id", sessionID, "attempt", attempt)
	}
	s.logger.WarnContext(ctx, "booking retries exhausted", "session_id", sessionID, "attempts", s.maxAttempts)
	return nil, domain.ErrContention
}

// decideBooking validates the request against a fresh session snapshot and
// assigns a seat by mutating sess.
func (s *bookingService) decideBooking(sess *domain.Session, user *domain.User, req domain.BookSeatRequest, now time.Time) (*domain.BookingResult, error) {
	date := s.calendar.DateOf(sess.Date)
	if sess.IsHoliday || !calendar.IsBookableWeekday(date) {
		return nil, domain.ErrInvalidDay
	}

	diff := calendar.DaysUntil(s.calendar.Today(now), date)
	if diff > calendar.AdvanceWindowDays {
		return nil, domain.ErrOutOfWindow
	}
	if diff < 0 {
		return nil, domain.ErrExpired
	}

	if sess.ActiveBookingFor(user.ID) != nil {
		return nil, domain.ErrAlreadyBooked
	}

	var (
		b   *domain.Booking
		err error
	)
	switch req.Type {
	case domain.BookingReserved:
		if sess.ReservedForBatch == nil || *sess.ReservedForBatch != user.Batch {
			return nil, domain.ErrWrongBatch
		}
		b, err = assignReserved(sess, user.ID, req.SeatNumber, now)
	case domain.BookingFloating:
		if now.Before(s.calendar.FloatingCutoff(date)) {
			return nil, domain.ErrFloatingNotOpen
		}
		b, err = assignFloating(sess, user.ID, req.SeatNumber, now)
	}
	if err != nil {
		return nil, err
	}
	return &domain.BookingResult{SessionID: sess.ID, SeatNumber: b.SeatNumber, Type: b.Type}, nil
}

func newBooking(userID string, seat int, t domain.BookingType, now time.Time) *domain.Booking {
	id := userID
	return &domain.Booking{
		UserID:     &id,
		SeatNumber: seat,
		Type:       t,
		Status:     domain.BookingActive,
		BookedAt:   now,
		UpdatedAt:  now,
	}
}

func assignReserved(sess *domain.Session, userID string, requested *int, now time.Time) (*domain.Booking, error) {
	active := sess.ActiveSeats()
	seat := 0
	if requested != nil {
		n := *requested
		if n < 1 || n > sess.ReservedSeats {
			return nil, domain.ErrInvalidSeat
		}
		if _, taken := active[n]; taken {
			return nil, domain.ErrSeatTaken
		}
		seat = n
	} else {
		for n := 1; n <= sess.ReservedSeats; n++ {
			if _, taken := active[n]; !taken {
				seat = n
				break
			}
		}
		if seat == 0 {
			return nil, domain.ErrCapacityFull
		}
	}
	b := newBooking(userID, seat, domain.BookingReserved, now)
	sess.Bookings = append(sess.Bookings, b)
	return b, nil
}

// assignFloating recycles the lowest unclaimed placeholder before opening a
// new base floating seat.
func assignFloating(sess *domain.Session, userID string, requested *int, now time.Time) (*domain.Booking, error) {
	active := sess.ActiveSeats()
	firstBase := sess.ReservedSeats + 1
	lastBase := sess.ReservedSeats + sess.FloatingSeats
	isBase := func(n int) bool { return n >= firstBase && n <= lastBase }

	if requested != nil {
		n := *requested
		if b, ok := active[n]; ok {
			switch {
			case b.IsPlaceholder():
				return claim(b, userID, now), nil
			case b.Type.IsFloatingFamily() || isBase(n):
				return nil, domain.ErrSeatTaken
			default:
				return nil, domain.ErrInvalidSeat
			}
		}
		if !isBase(n) {
			return nil, domain.ErrInvalidSeat
		}
		b := newBooking(userID, n, domain.BookingFloating, now)
		sess.Bookings = append(sess.Bookings, b)
		return b, nil
	}

	var placeholder *domain.Booking
	for _, b := range sess.Bookings {
		if b.IsPlaceholder() && (placeholder == nil || b.SeatNumber < placeholder.SeatNumber) {
			placeholder = b
		}
	}
	if placeholder != nil {
		return claim(placeholder, userID, now), nil
	}

	for n := firstBase; n <= lastBase; n++ {
		if _, taken := active[n]; !taken {
			b := newBooking(userID, n, domain.BookingFloating, now)
			sess.Bookings = append(sess.Bookings, b)
			return b, nil
		}
	}
	return nil, domain.ErrCapacityFull
}

// claim hands a placeholder to userID. The record keeps its identity and
// seat; only the owner changes.
func claim(placeholder *domain.Booking, userID string, now time.Time) *domain.Booking {
	id := userID
	placeholder.UserID = &id
	placeholder.UpdatedAt = now
	return placeholder
}

func (s *bookingService) decideCancel(sess *domain.Session, userID string, now time.Time) (*domain.Booking, error) {
	if calendar.DaysUntil(s.calendar.Today(now), s.calendar.DateOf(sess.Date)) < 0 {
		return nil, domain.ErrPastSession
	}
	b := sess.ActiveBookingFor(userID)
	if b == nil {
		return nil, domain.ErrNoActiveBooking
	}
	b.Status = domain.BookingCancelled
	b.UpdatedAt = now

	if b.Type == domain.BookingReserved {
		sess.Bookings = append(sess.Bookings, &domain.Booking{
			SeatNumber: b.SeatNumber,
			Type:       domain.BookingTemporaryFloating,
			Status:     domain.BookingActive,
			BookedAt:   now,
			UpdatedAt:  now,
		})
	}
	return b, nil
}

func (s *bookingService) publish(ctx context.Context, kind domain.BookingEventKind, sess *domain.Session, userID string, seat int, t domain.BookingType) {
	if s.publisher == nil {
		return
	}
	ev := domain.BookingEvent{
		ID:          uuid.NewString(),
		Kind:        kind,
		SessionID:   sess.ID,
		SessionDate: s.calendar.DateOf(sess.Date).Format("2006-01-02"),
		UserID:      userID,
		SeatNumber:  seat,
		Type:        t,
		OccurredAt:  s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "publish booking event failed", "kind", kind, "session_id", sess.ID, "err", err)
	}
}

// classify passes business outcomes through and marks anything else as a
// storage failure.
func classify(op string, err error) error {
	if domain.ErrorCode(err) != "internal_error" {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorageFailure, err)
}
