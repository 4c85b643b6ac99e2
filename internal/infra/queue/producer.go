package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

type NotificationPayload struct {
	ID           string    `json:"id"`
	To           string    `json:"to"`
	Body         string    `json:"body"`
	ScheduledFor time.Time `json:"scheduled_for"`
	CreatedAt    time.Time `json:"created_at"`
}

type LeadEventPayload struct {
	EventID    string            `json:"event_id"`
	Kind       usecase.EventKind `json:"kind"`
	OccurredAt time.Time         `json:"occurred_at"`
	Lead       entity.Lead       `json:"lead"`
}

// RabbitMQProducer implements usecase.NotificationScheduler and usecase.EventSink.
type RabbitMQProducer struct {
	Rabbit *RabbitMQ
	Now    func() time.Time
}

func NewProducer(rabbit *RabbitMQ) *RabbitMQProducer {
	return &RabbitMQProducer{Rabbit: rabbit, Now: time.Now}
}

// ScheduleMessage publishes straight to the ready queue when delay is zero and
// through the per-delay wait queue otherwise.
func (p *RabbitMQProducer) ScheduleMessage(ctx context.Context, toPhone, body string, delay time.Duration) error {
	if strings.TrimSpace(toPhone) == "" {
		return fmt.Errorf("notification recipient is empty")
	}
	if delay < 0 {
		delay = 0
	}

	now := p.Now()
	payload := NotificationPayload{
		ID:           ulid.Make().String(),
		To:           toPhone,
		Body:         body,
		ScheduledFor: now.Add(delay),
		CreatedAt:    now,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	p.Rabbit.mu.Lock()
	defer p.Rabbit.mu.Unlock()

	exchange, key := NotificationExchange, NotificationKey
	if delay > 0 {
		queue, err := p.Rabbit.declareWaitQueue(delay)
		if err != nil {
			middleware.RecordNotificationScheduled("failed")
			return err
		}
		// Default exchange routes by queue name.
		exchange, key = "", queue
	}

	err = p.Rabbit.Ch.PublishWithContext(ctx, exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    payload.ID,
		Timestamp:    now,
		Body:         data,
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		middleware.RecordNotificationScheduled("failed")
		return fmt.Errorf("publish notification: %w", err)
	}

	middleware.RecordNotificationScheduled("ok")
	return nil
}

func (p *RabbitMQProducer) Emit(ctx context.Context, kind usecase.EventKind, lead *entity.Lead) error {
	payload := LeadEventPayload{
		EventID:    ulid.Make().String(),
		Kind:       kind,
		OccurredAt: p.Now(),
		Lead:       *lead,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode lead event: %w", err)
	}

	p.Rabbit.mu.Lock()
	defer p.Rabbit.mu.Unlock()

	err = p.Rabbit.Ch.PublishWithContext(ctx, LeadExchange, routingKeyFor(kind), false, false, amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    payload.EventID,
		Timestamp:    payload.OccurredAt,
		Body:         data,
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		return fmt.Errorf("publish lead event: %w", err)
	}
	return nil
}

func routingKeyFor(kind usecase.EventKind) string {
	if kind == usecase.EventCreate {
		return LeadCreatedKey
	}
	return LeadUpdatedKey
}
