package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/xavierca1/ligue-leads/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-leads/internal/infra/integration/kommo"
)

// ErrMalformed marks a delivery that can never succeed. It goes straight to the DLQ.
var ErrMalformed = errors.New("malformed message")

// HandlerFunc processes one delivery body.
type HandlerFunc func(ctx context.Context, body []byte) error

type Worker struct {
	Channel *amqp.Channel
	Logger  zerolog.Logger
}

func NewWorker(ch *amqp.Channel, logger zerolog.Logger) *Worker {
	return &Worker{Channel: ch, Logger: logger}
}

// Start consumes queueName until ctx is cancelled or the channel closes.
func (w *Worker) Start(ctx context.Context, queueName string, handler HandlerFunc) error {
	msgs, err := w.Channel.Consume(
		queueName,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("register consumer on %s: %w", queueName, err)
	}

	log := w.Logger.With().Str("queue", queueName).Logger()
	log.Info().Msg("worker waiting for messages")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("worker stopping")
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", queueName)
			}
			handleDelivery(ctx, d, handler, log)
		}
	}
}

// handleDelivery acks on success. A failed first delivery is requeued once;
// malformed bodies and failed redeliveries are dead-lettered.
func handleDelivery(ctx context.Context, d amqp.Delivery, handler HandlerFunc, log zerolog.Logger) {
	log = log.With().Str("message_id", d.MessageId).Logger()

	err := handler(ctx, d.Body)
	if err == nil {
		if ackErr := d.Ack(false); ackErr != nil {
			log.Error().Err(ackErr).Msg("ack failed")
		}
		return
	}

	requeue := !d.Redelivered && !errors.Is(err, ErrMalformed)
	log.Error().Err(err).Bool("requeue", requeue).Msg("message processing failed")
	if nackErr := d.Nack(false, requeue); nackErr != nil {
		log.Error().Err(nackErr).Msg("nack failed")
	}
}

// SMSSender is satisfied by the Twilio client.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) (string, error)
}

// NotificationHandler delivers ready notifications over SMS.
func NotificationHandler(sender SMSSender, logger zerolog.Logger) HandlerFunc {
	return func(ctx context.Context, body []byte) error {
		var payload NotificationPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			middleware.RecordNotificationDelivery("malformed")
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if payload.To == "" {
			middleware.RecordNotificationDelivery("malformed")
			return fmt.Errorf("%w: notification %s has no recipient", ErrMalformed, payload.ID)
		}

		sid, err := sender.SendSMS(ctx, payload.To, payload.Body)
		if err != nil {
			middleware.RecordNotificationDelivery("failed")
			return fmt.Errorf("send notification %s: %w", payload.ID, err)
		}

		middleware.RecordNotificationDelivery("sent")
		logger.Info().
			Str("notification_id", payload.ID).
			Str("sid", sid).
			Time("scheduled_for", payload.ScheduledFor).
			Msg("notification delivered")
		return nil
	}
}

// CRMClient is satisfied by the Kommo client.
type CRMClient interface {
	CreateLead(ctx context.Context, input kommo.CreateLeadInput) (int, error)
}

// CRMSyncHandler mirrors lead.created events into the CRM.
func CRMSyncHandler(crm CRMClient, logger zerolog.Logger) HandlerFunc {
	return func(ctx context.Context, body []byte) error {
		var event LeadEventPayload
		if err := json.Unmarshal(body, &event); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if event.Lead.ID == "" || event.Lead.Name == "" {
			return fmt.Errorf("%w: event %s has no lead", ErrMalformed, event.EventID)
		}

		crmID, err := crm.CreateLead(ctx, kommo.CreateLeadInput{
			Name:       event.Lead.Name,
			Phone:      event.Lead.Phone,
			Email:      event.Lead.Email,
			Status:     string(event.Lead.Status),
			Source:     event.Lead.Source,
			ExternalID: event.Lead.ID,
		})
		if errors.Is(err, kommo.ErrNotConfigured) {
			logger.Debug().Str("lead_id", event.Lead.ID).Msg("crm not configured, skipping")
			return nil
		}
		if err != nil {
			middleware.RecordIntegrationError("kommo")
			return fmt.Errorf("mirror lead %s: %w", event.Lead.ID, err)
		}

		logger.Info().Str("lead_id", event.Lead.ID).Int("crm_id", crmID).Msg("lead mirrored")
		return nil
	}
}
