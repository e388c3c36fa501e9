package domain

import (
	"context"
	"time"
)

// BookingEventKind names what happened to a seat.
type BookingEventKind string

const (
	EventSeatBooked    BookingEventKind = "seat.booked"
	EventSeatCancelled BookingEventKind = "seat.cancelled"
)

// BookingEvent is emitted after a booking change has been committed. It is an
// audit feed for downstream readers, not a user notification.
type BookingEvent struct {
	ID          string           `json:"id"`
	Kind        BookingEventKind `json:"kind"`
	SessionID   string           `json:"session_id"`
	SessionDate string           `json:"session_date"`
	UserID      string           `json:"user_id"`
	SeatNumber  int              `json:"seat_number"`
	Type        BookingType      `json:"type"`
	OccurredAt  time.Time        `json:"occurred_at"`
}

// BookingEventPublisher delivers committed booking events to a broker.
type BookingEventPublisher interface {
	Publish(ctx context.Context, event BookingEvent) error
}
