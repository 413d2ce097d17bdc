package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/warp/booking-engine/hotel"
)

// =============================================================================
// AMQP PUBLISHER
// =============================================================================

// Queues declared on connect. Routing key = queue name on the default exchange.
var Queues = []hotel.EventType{
	hotel.EventRequested,
	hotel.EventConfirmed,
	hotel.EventCancelled,
	hotel.EventCheckedIn,
	hotel.EventCheckedOut,
	hotel.EventNoShow,
}

// AMQPPublisher keeps one connection and channel and redials lazily after
// the broker drops them.
type AMQPPublisher struct {
	url string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPPublisher(url string) *AMQPPublisher {
	return &AMQPPublisher{url: url}
}

// Connect dials eagerly so startup can report a bad URL.
func (p *AMQPPublisher) Connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.channel()
	return err
}

func (p *AMQPPublisher) Notify(ctx context.Context, e hotel.Event) error {
	msg, err := NewPublishing(e)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	if err := ch.PublishWithContext(ctx,
		"",             // default exchange
		string(e.Type), // routing key = queue name
		false,          // mandatory
		false,          // immediate
		msg,
	); err != nil {
		p.reset()
		return fmt.Errorf("failed to publish %s: %w", e.Type, err)
	}
	return nil
}

// NewPublishing encodes an event as a persistent JSON message.
func NewPublishing(e hotel.Event) (amqp.Publishing, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to encode event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    string(e.ReservationID) + ":" + string(e.Type),
		Type:         string(e.Type),
		Timestamp:    e.OccurredAt.UTC(),
		Body:         body,
	}, nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn, p.ch = nil, nil
	return err
}

// channel must be called with p.mu held.
func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(5 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("failed to dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	for _, q := range Queues {
		// Durable so messages survive broker restarts
		if _, err := ch.QueueDeclare(string(q), true, false, false, false, nil); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to declare queue %s: %w", q, err)
		}
	}
	log.Printf("[Notify] connected to broker, %d queues declared", len(Queues))
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *AMQPPublisher) reset() {
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}
