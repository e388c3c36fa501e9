package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"seatrotation/config"
	"seatrotation/internal/adapters/events"
	"seatrotation/internal/calendar"
	"seatrotation/internal/domain"
	"seatrotation/internal/repository/memory"
	"seatrotation/internal/repository/postgres"
)

// stores is the repository pair selected by STORE_DRIVER. db is nil for the
// memory driver.
type stores struct {
	sessions domain.SessionRepository
	users    domain.UserRepository
	db       *sql.DB
}

func (s *stores) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func openDB(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		return &stores{
			sessions: memory.NewSessionRepository(),
			users:    memory.NewUserRepository(),
		}, nil
	default:
		db, err := openDB(ctx, cfg.DBUrl)
		if err != nil {
			return nil, err
		}
		return &stores{
			sessions: postgres.NewSessionRepository(db),
			users:    postgres.NewUserRepository(db),
			db:       db,
		}, nil
	}
}

func newCalendar(cfg *config.Config) (*calendar.Calendar, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	recurring, dated := cfg.HolidaysRecurring, cfg.HolidaysDated
	if recurring == nil {
		recurring = calendar.DefaultRecurringHolidays
	}
	if dated == nil {
		dated = calendar.DefaultDatedHolidays
	}
	return calendar.New(loc, recurring, dated)
}

// newPublisher returns the RabbitMQ publisher when AMQP_URL is set and the
// broker is reachable, otherwise a publisher that only logs.
func newPublisher(cfg *config.Config, logger *slog.Logger) (domain.BookingEventPublisher, func() error) {
	noop := func() error { return nil }
	if cfg.AMQPURL == "" {
		return events.LogPublisher{Logger: logger}, noop
	}
	pub, err := events.NewRabbitPublisher(cfg.AMQPURL, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Warn("rabbitmq unavailable, booking events will only be logged", "err", err)
		return events.LogPublisher{Logger: logger}, noop
	}
	return pub, pub.Close
}
