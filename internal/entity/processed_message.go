package entity

import (
	"context"
	"time"
)

type MessageStatus string

const (
	MessageProcessing MessageStatus = "processing"
	MessageCompleted  MessageStatus = "completed"
	MessageFailed     MessageStatus = "failed"
)

// MessageRetention is how long processed-message rows are kept around.
const MessageRetention = 7 * 24 * time.Hour

// ProcessedMessage is the idempotency ledger row of one inbound SMS.
type ProcessedMessage struct {
	MessageID  string        `json:"message_id"`
	Sender     string        `json:"sender"`
	Body       string        `json:"body"`
	Status     MessageStatus `json:"status"`
	Reply      string        `json:"reply,omitempty"`
	Command    string        `json:"command,omitempty"`
	ReceivedAt time.Time     `json:"received_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

func NewProcessedMessage(messageID, sender, body string) *ProcessedMessage {
	now := time.Now()
	return &ProcessedMessage{
		MessageID:  messageID,
		Sender:     sender,
		Body:       body,
		Status:     MessageProcessing,
		ReceivedAt: now,
		UpdatedAt:  now,
	}
}

type ProcessedMessageRepositoryInterface interface {
	// InsertIfAbsent reports false when the message id was already recorded.
	InsertIfAbsent(ctx context.Context, msg *ProcessedMessage) (bool, error)
	UpdateStatus(ctx context.Context, messageID string, status MessageStatus, reply, command string) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
