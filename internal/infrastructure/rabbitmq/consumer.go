package rabbitmq

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/baechuer/cityevents/services/analytics-service/internal/contracts/event"
	"github.com/baechuer/cityevents/services/analytics-service/internal/domain"
	"github.com/baechuer/cityevents/services/analytics-service/internal/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const supportedVersion = event.EnvelopeVersion

// Consumer is the Interaction Worker: it claims queued ingestion jobs,
// writes the durable record, acknowledges, then attempts the best-effort
// outbound notification.
//
// Per job: persist -> ack -> notify. The store write is the durability
// checkpoint; a failed write leaves the job unacknowledged so the broker
// redelivers it. Notification runs after the ack and can never cause
// redelivery. Redelivered jobs produce duplicate rows: the store logs
// occurrences, it is not a deduplicated ledger.
type Consumer struct {
	rabbitURL string
	exchange  string
	queue     string
	repo      domain.EventRepository
	notifier  domain.Notifier
}

func NewConsumer(rabbitURL, exchange, queue string, repo domain.EventRepository, notifier domain.Notifier) *Consumer {
	return &Consumer{
		rabbitURL: strings.TrimSpace(rabbitURL),
		exchange:  strings.TrimSpace(exchange),
		queue:     strings.TrimSpace(queue),
		repo:      repo,
		notifier:  notifier,
	}
}

func (c *Consumer) Start(ctx context.Context) error {
	log := logger.Logger.With().Str("component", "interaction_worker").Logger()

	conn, err := amqp.Dial(c.rabbitURL)
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}

	// Ensure exchange exists (idempotent)
	if err := ch.ExchangeDeclare(c.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	q, err := ch.QueueDeclare(
		c.queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	if err := ch.QueueBind(q.Name, event.RoutingKeyInteraction, c.exchange, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	if err := ch.Qos(10, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	deliveries, err := ch.Consume(q.Name, "analytics-service", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	go func() {
		defer func() {
			_ = ch.Close()
			_ = conn.Close()
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				c.handleDelivery(ctx, d, log)
			}
		}
	}()

	log.Info().Str("queue", q.Name).Msg("worker started")
	return nil
}

func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery, baseLog zerolog.Logger) {
	log := baseLog.With().
		Str("message_id", strings.TrimSpace(d.MessageId)).
		Str("trace_id", strings.TrimSpace(d.CorrelationId)).
		Logger()

	ev, err := persistDelivery(ctx, c.repo, d.Body, log)
	if err != nil {
		// Persistence failed: do not ack, let the broker redeliver.
		// There is deliberately no retry cutoff or dead-letter hop here.
		log.Error().Err(err).Msg("persist failed (requeue)")
		_ = d.Nack(false, true)
		return
	}

	// Acknowledge only after the durable write. A crash before this line
	// means redelivery and a possible duplicate row, never a lost record.
	_ = d.Ack(false)

	if ev == nil {
		return // dropped (poison or invalid), already logged
	}

	status, nerr := c.notifier.Notify(ctx, *ev)
	switch status {
	case domain.NotifyDelivered:
		log.Info().Int64("event_id", ev.ID).Str("action", string(ev.Action)).Msg("analytics webhook sent")
	case domain.NotifySkipped:
		log.Debug().Int64("event_id", ev.ID).Msg("analytics webhook not configured; skipped")
	case domain.NotifyFailed:
		// Best effort: the local record is the source of truth.
		log.Warn().Err(nerr).Int64("event_id", ev.ID).Str("action", string(ev.Action)).Msg("analytics webhook failed")
	}
}

// persistDelivery decodes one queued job and writes the interaction row.
// It returns (nil, nil) for messages that can never succeed (undecodable
// body, unsupported version, action outside the allowed set): requeueing
// those would loop forever, so they are dropped with a log.
func persistDelivery(ctx context.Context, repo domain.EventRepository, body []byte, log zerolog.Logger) (*domain.InteractionEvent, error) {
	var env event.Envelope[event.InteractionPayload]
	if err := json.Unmarshal(body, &env); err != nil {
		log.Warn().Err(err).Msg("invalid envelope json; dropping")
		return nil, nil
	}
	if env.Version != supportedVersion {
		log.Warn().Int("version", env.Version).Msg("unsupported envelope version; dropping")
		return nil, nil
	}

	action, err := domain.ParseAction(env.Payload.Action)
	if err != nil {
		// The producer validates before enqueueing; reaching this means a
		// foreign or corrupted message.
		log.Warn().Str("action", env.Payload.Action).Msg("action outside allowed set; dropping")
		return nil, nil
	}

	ev, err := repo.Insert(ctx, domain.IngestionJob{
		ContentID: env.Payload.ContentID,
		Action:    action,
		SessionID: env.Payload.SessionID,
		IPAddress: env.Payload.IPAddress,
		UserAgent: env.Payload.UserAgent,
	})
	if err != nil {
		return nil, err
	}
	return &ev, nil
}
