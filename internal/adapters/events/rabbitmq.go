// Package events publishes booking events to RabbitMQ as an audit feed.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"seatrotation/internal/domain"
)

// DefaultQueue is the durable queue booking events are routed to.
const DefaultQueue = "seat.bookings"

// channel is the subset of *amqp.Channel the publisher needs.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitPublisher publishes BookingEvents as persistent JSON messages on the
// default exchange. The channel is opened lazily and reopened after a failure.
type RabbitPublisher struct {
	queue  string
	logger *slog.Logger
	open   func() (channel, error)

	mu   sync.Mutex
	conn *amqp.Connection
	ch   channel
}

// NewRabbitPublisher dials url and declares queue. An empty queue uses DefaultQueue.
func NewRabbitPublisher(url, queue string, logger *slog.Logger) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	p := newPublisher(queue, logger, func() (channel, error) {
		return conn.Channel()
	})
	p.conn = conn
	if _, err := p.channel(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return p, nil
}

func newPublisher(queue string, logger *slog.Logger, open func() (channel, error)) *RabbitPublisher {
	if queue == "" {
		queue = DefaultQueue
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RabbitPublisher{queue: queue, logger: logger, open: open}
}

// channel returns the current channel, opening and declaring the queue if needed. Callers hold mu
// or are the constructor.
func (p *RabbitPublisher) channel() (channel, error) {
	if p.ch != nil {
		return p.ch, nil
	}
	ch, err := p.open()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel open: %w", err)
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	p.ch = ch
	return ch, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, ev domain.BookingEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal booking event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.channel()
	if err != nil {
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Type:         string(ev.Kind),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		_ = ch.Close()
		p.ch = nil
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	p.logger.DebugContext(ctx, "booking event published", "kind", ev.Kind, "id", ev.ID, "queue", p.queue)
	return nil
}

// Close releases the channel and the connection.
func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
