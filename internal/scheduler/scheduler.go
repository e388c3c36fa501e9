// Package scheduler runs the daily session seeding job.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"seatrotation/internal/calendar"
	"seatrotation/internal/domain"
)

// Seed time of day in the facility time zone.
const (
	seedHour   = 0
	seedMinute = 10
)

// Seeder creates sessions for a date range.
type Seeder interface {
	GenerateSessions(ctx context.Context, from time.Time, days int) ([]*domain.Session, error)
}

// SessionSeeder keeps the next horizon days of sessions generated.
type SessionSeeder struct {
	seeder  Seeder
	cal     *calendar.Calendar
	horizon int
	logger  *slog.Logger
	now     func() time.Time

	scheduler gocron.Scheduler
}

func NewSessionSeeder(seeder Seeder, cal *calendar.Calendar, horizon int, logger *slog.Logger) (*SessionSeeder, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("seed horizon must be at least 1 day, got %d", horizon)
	}
	s, err := gocron.NewScheduler(gocron.WithLocation(cal.Location()))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &SessionSeeder{
		seeder:    seeder,
		cal:       cal,
		horizon:   horizon,
		logger:    logger,
		now:       time.Now,
		scheduler: s,
	}, nil
}

// RunOnce generates sessions from today through the horizon and returns how
// many were created.
func (s *SessionSeeder) RunOnce(ctx context.Context) (int, error) {
	today := s.cal.Today(s.now())
	created, err := s.seeder.GenerateSessions(ctx, today, s.horizon)
	if err != nil {
		s.logger.ErrorContext(ctx, "session seeding failed", "from", today.Format(time.DateOnly), "days", s.horizon, "err", err)
		return 0, err
	}
	s.logger.InfoContext(ctx, "session seeding done", "from", today.Format(time.DateOnly), "days", s.horizon, "created", len(created))
	return len(created), nil
}

// Start registers the daily job and starts the scheduler. The job runs with
// ctx until Stop is called.
func (s *SessionSeeder) Start(ctx context.Context) error {
	_, err := s.scheduler.NewJob(
		gocron.DailyJob(
			1,
			gocron.NewAtTimes(
				gocron.NewAtTime(seedHour, seedMinute, 0),
			),
		),
		gocron.NewTask(func() {
			_, _ = s.RunOnce(ctx)
		}),
		gocron.WithName("seed-sessions"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("register seed job: %w", err)
	}
	s.scheduler.Start()
	s.logger.Info("session seeder started", "at", fmt.Sprintf("%02d:%02d", seedHour, seedMinute), "tz", s.cal.Location().String(), "horizon_days", s.horizon)
	return nil
}

// NextRun reports when the seed job fires next.
func (s *SessionSeeder) NextRun() (time.Time, error) {
	jobs := s.scheduler.Jobs()
	if len(jobs) == 0 {
		return time.Time{}, errors.New("seed job not registered")
	}
	return jobs[0].NextRun()
}

// Stop shuts the scheduler down, waiting for a running job to return.
func (s *SessionSeeder) Stop() error {
	return s.scheduler.Shutdown()
}
