package memory

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

type ScheduledMessage struct {
	To    string
	Body  string
	Delay time.Duration
}

type Event struct {
	Kind usecase.EventKind
	Lead entity.Lead
}

// Outbox stands in for the message broker when running without RabbitMQ. It
// records what would have been published and logs it.
type Outbox struct {
	mu       sync.Mutex
	messages []ScheduledMessage
	events   []Event
	logger   zerolog.Logger
}

func NewOutbox(logger zerolog.Logger) *Outbox {
	return &Outbox{logger: logger}
}

func (o *Outbox) ScheduleMessage(ctx context.Context, toPhone, body string, delay time.Duration) error {
	o.mu.Lock()
	o.messages = append(o.messages, ScheduledMessage{To: toPhone, Body: body, Delay: delay})
	o.mu.Unlock()

	o.logger.Info().Str("to", toPhone).Dur("delay", delay).Msg("notification recorded")
	return nil
}

func (o *Outbox) Emit(ctx context.Context, kind usecase.EventKind, lead *entity.Lead) error {
	o.mu.Lock()
	o.events = append(o.events, Event{Kind: kind, Lead: *lead})
	o.mu.Unlock()

	o.logger.Debug().Str("event", string(kind)).Str("lead_id", lead.ID).Msg("lead event recorded")
	return nil
}

func (o *Outbox) Messages() []ScheduledMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]ScheduledMessage(nil), o.messages...)
}

func (o *Outbox) Events() []Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Event(nil), o.events...)
}
