package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher sends domain events to RabbitMQ. Notify only queues a message;
// one background worker publishes the queue in order, dialing per message,
// so a broker outage never outlives the failed publish and never delays the
// request that produced the event.
type Publisher struct {
	url     string
	log     logrus.FieldLogger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan Message
	done   chan struct{}
}

// QueueSize is how many messages Notify buffers before it starts dropping.
const QueueSize = 256

// NewPublisher returns a Publisher for the broker at url and starts its
// worker. Close stops it.
func NewPublisher(url string, log logrus.FieldLogger) *Publisher {
	p := &Publisher{
		url:     url,
		log:     log,
		timeout: 5 * time.Second,
		queue:   make(chan Message, QueueSize),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *Publisher) run() {
	defer close(p.done)
	for m := range p.queue {
		if err := p.Publish(context.Background(), m); err != nil {
			p.log.WithError(err).WithFields(logrus.Fields{
				"type":     m.Type,
				"event_id": m.EventID,
			}).Warn("domain event not published")
		}
	}
}

// Publish delivers m as a persistent JSON message to QueueName.
func (p *Publisher) Publish(ctx context.Context, m Message) error {
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(p.timeout)})
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := declare(ch); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	err = ch.PublishWithContext(ctx,
		"",        // default exchange
		QueueName, // routing key = queue name
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Type:         m.Type,
			Timestamp:    m.OccurredAt,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("publish %s: %w", m.Type, err)
	}
	return nil
}

// Notify queues m and returns at once. The request that produced m has
// already committed, so a full queue drops m with a warning instead of
// blocking.
func (p *Publisher) Notify(_ context.Context, m Message) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.log.WithField("type", m.Type).Warn("publisher closed, domain event dropped")
		return
	}
	select {
	case p.queue <- m:
	default:
		p.log.WithFields(logrus.Fields{
			"type":     m.Type,
			"event_id": m.EventID,
		}).Warn("event queue full, domain event dropped")
	}
}

// Close stops accepting messages and waits until the queued ones have been
// published or ctx is done.
func (p *Publisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// declare creates the durable event queue if it does not exist.
func declare(ch *amqp.Channel) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		QueueName, // name
		true,      // durable
		false,     // autoDelete
		false,     // exclusive
		false,     // noWait
		nil,       // args
	)
	if err != nil {
		return q, fmt.Errorf("queue declare: %w", err)
	}
	return q, nil
}

// Nop discards every message. The server uses it when events are disabled.
type Nop struct{}

func (Nop) Notify(context.Context, Message) {}
