package memory

import (
	"context"
	"sync"
	"time"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

type ProcessedMessageRepository struct {
	mu   sync.Mutex
	rows map[string]*entity.ProcessedMessage
}

func NewProcessedMessageRepository() *ProcessedMessageRepository {
	return &ProcessedMessageRepository{rows: make(map[string]*entity.ProcessedMessage)}
}

func (r *ProcessedMessageRepository) InsertIfAbsent(ctx context.Context, msg *entity.ProcessedMessage) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[msg.MessageID]; ok {
		return false, nil
	}
	c := *msg
	r.rows[msg.MessageID] = &c
	return true, nil
}

func (r *ProcessedMessageRepository) UpdateStatus(ctx context.Context, messageID string, status entity.MessageStatus, reply, command string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[messageID]
	if !ok {
		return nil
	}
	row.Status = status
	row.Reply = reply
	row.Command = command
	row.UpdatedAt = time.Now()
	return nil
}

func (r *ProcessedMessageRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, row := range r.rows {
		if row.ReceivedAt.Before(cutoff) {
			delete(r.rows, id)
			n++
		}
	}
	return n, nil
}

func (r *ProcessedMessageRepository) Get(messageID string) (entity.ProcessedMessage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[messageID]
	if !ok {
		return entity.ProcessedMessage{}, false
	}
	return *row, true
}
