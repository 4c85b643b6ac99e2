package usecase

import (
	"context"
	"time"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

type EventKind string

const (
	EventCreate EventKind = "create"
	EventUpdate EventKind = "update"
)

// NotificationScheduler delivers body to toPhone after delay. The core's job
// ends once ScheduleMessage returns nil.
type NotificationScheduler interface {
	ScheduleMessage(ctx context.Context, toPhone, body string, delay time.Duration) error
}

// EventSink receives lead change events. Delivery is fire-and-forget.
type EventSink interface {
	Emit(ctx context.Context, kind EventKind, lead *entity.Lead) error
}

// ClaimStore is the fast-path duplicate guard for inbound message ids.
type ClaimStore interface {
	// Claim is a test-and-set: true only for the first caller while the key lives.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// ReleaseAfter shortens the remaining life of a claim to grace.
	ReleaseAfter(ctx context.Context, key string, grace time.Duration) error
}

type EmailService interface {
	SendLink(to, leadName, linkLabel, link string) error
	SendNewLeadAlert(to, agentName string, lead *entity.Lead) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
}
