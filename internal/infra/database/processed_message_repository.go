package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

const purgeBatchSize = 500

type ProcessedMessageRepository struct {
	DB *sql.DB
}

func NewProcessedMessageRepository(db *sql.DB) *ProcessedMessageRepository {
	return &ProcessedMessageRepository{DB: db}
}

// InsertIfAbsent is the durable claim. The primary key on message_id makes it
// a single test-and-set.
func (r *ProcessedMessageRepository) InsertIfAbsent(ctx context.Context, msg *entity.ProcessedMessage) (bool, error) {
	query := `
		INSERT INTO processed_messages (message_id, sender, body, status, received_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (message_id) DO NOTHING
	`
	res, err := r.DB.ExecContext(ctx, query,
		msg.MessageID,
		msg.Sender,
		msg.Body,
		string(msg.Status),
		msg.ReceivedAt,
		msg.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("claim message %s: %w", msg.MessageID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *ProcessedMessageRepository) UpdateStatus(ctx context.Context, messageID string, status entity.MessageStatus, reply, command string) error {
	query := `
		UPDATE processed_messages
		SET status = $2, reply = $3, command = $4, updated_at = NOW()
		WHERE message_id = $1
	`
	_, err := r.DB.ExecContext(ctx, query, messageID, string(status), reply, command)
	if err != nil {
		return fmt.Errorf("update message %s: %w", messageID, err)
	}
	return nil
}

// DeleteOlderThan removes rows in batches so a large backlog does not hold
// one long lock on the table.
func (r *ProcessedMessageRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64
	for {
		ids, err := r.expiredIDs(ctx, cutoff)
		if err != nil {
			return total, err
		}
		if len(ids) == 0 {
			return total, nil
		}

		res, err := r.DB.ExecContext(ctx, `DELETE FROM processed_messages WHERE message_id = ANY($1)`, pq.Array(ids))
		if err != nil {
			return total, fmt.Errorf("delete processed messages: %w", err)
		}
		n, _ := res.RowsAffected()
		total += n

		if len(ids) < purgeBatchSize {
			return total, nil
		}
	}
}

func (r *ProcessedMessageRepository) expiredIDs(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT message_id FROM processed_messages WHERE received_at < $1 ORDER BY received_at LIMIT $2`,
		cutoff, purgeBatchSize)
	if err != nil {
		return nil, fmt.Errorf("select expired messages: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
