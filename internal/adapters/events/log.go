package events

import (
	"context"
	"log/slog"

	"seatrotation/internal/domain"
)

// LogPublisher writes booking events to the logger. It is used when no
// broker is configured.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p LogPublisher) Publish(ctx context.Context, ev domain.BookingEvent) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "booking event",
		"kind", ev.Kind,
		"id", ev.ID,
		"session_id", ev.SessionID,
		"session_date", ev.SessionDate,
		"user_id", ev.UserID,
		"seat", ev.SeatNumber,
		"type", ev.Type,
	)
	return nil
}
