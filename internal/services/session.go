package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"seatrotation/internal/calendar"
	"seatrotation/internal/domain"
)

// MaxGenerateDays caps a single seeding request.
const MaxGenerateDays = 366

type sessionService struct {
	sessionRepo    domain.SessionRepository
	calendar       *calendar.Calendar
	logger         *slog.Logger
	contextTimeout time.Duration
	now            func() time.Time
}

// NewSessionService creates the session seeding and lookup service.
func NewSessionService(sessionRepo domain.SessionRepository, cal *calendar.Calendar, logger *slog.Logger, timeout time.Duration) domain.SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &sessionService{
		sessionRepo:    sessionRepo,
		calendar:       cal,
		logger:         logger,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

func (s *sessionService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.contextTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.contextTimeout)
}

// GenerateSessions seeds one session per weekday in [from, from+days).
// Existing dates are left untouched; only newly created sessions are returned.
func (s *sessionService) GenerateSessions(ctx context.Context, from time.Time, days int) ([]*domain.Session, error) {
	if days < 1 || days > MaxGenerateDays {
		return nil, fmt.Errorf("%w: days must be between 1 and %d", domain.ErrInvalidInput, MaxGenerateDays)
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := s.calendar.DateOf(from)
	created := []*domain.Session{}
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i)
		if !calendar.IsBookableWeekday(date) {
			continue
		}
		holiday := s.calendar.IsHoliday(date)
		var owner *domain.Batch
		if !holiday {
			b := calendar.OwnerBatch(date)
			owner = &b
		}
		now := s.now()
		sess := domain.NewSession(date, owner, holiday, now, now)
		ok, err := s.sessionRepo.Upsert(ctx, sess)
		if err != nil {
			return nil, classify(fmt.Sprintf("upsert session %s", date.Format("2006-01-02")), err)
		}
		if ok {
			created = append(created, sess)
		}
	}
	s.logger.InfoContext(ctx, "sessions generated", "from", start.Format("2006-01-02"), "days", days, "created", len(created))
	return created, nil
}

func (s *sessionService) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	sess, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, classify("get session", err)
	}
	return sess, nil
}

func (s *sessionService) GetByDate(ctx context.Context, date time.Time) (*domain.Session, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	sess, err := s.sessionRepo.GetByDate(ctx, s.calendar.DateOf(date))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, classify("get session by date", err)
	}
	return sess, nil
}

func (s *sessionService) ListFrom(ctx context.Context, date time.Time) ([]*domain.Session, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	sessions, err := s.sessionRepo.ListFrom(ctx, s.calendar.DateOf(date))
	if err != nil {
		return nil, classify("list sessions", err)
	}
	if sessions == nil {
		sessions = []*domain.Session{}
	}
	return sessions, nil
}
