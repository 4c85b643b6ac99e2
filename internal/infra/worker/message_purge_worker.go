package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

const (
	DefaultMessageRetention = 7 * 24 * time.Hour
	DefaultPurgeInterval    = time.Hour
)

// MessagePurgeWorker trims the processed-message ledger. Ids older than the
// retention window can no longer be redelivered by the SMS provider.
type MessagePurgeWorker struct {
	ledger       entity.ProcessedMessageRepositoryInterface
	retention    time.Duration
	tickInterval time.Duration
	now          func() time.Time
	logger       zerolog.Logger
}

func NewMessagePurgeWorker(ledger entity.ProcessedMessageRepositoryInterface, retention time.Duration, logger zerolog.Logger) *MessagePurgeWorker {
	if retention <= 0 {
		retention = DefaultMessageRetention
	}
	return &MessagePurgeWorker{
		ledger:       ledger,
		retention:    retention,
		tickInterval: DefaultPurgeInterval,
		now:          time.Now,
		logger:       logger,
	}
}

func (w *MessagePurgeWorker) Start(ctx context.Context) {
	w.logger.Info().Dur("retention", w.retention).Msg("message purge worker started")

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.purge(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("message purge worker stopped")
			return
		case <-ticker.C:
			w.purge(ctx)
		}
	}
}

func (w *MessagePurgeWorker) purge(ctx context.Context) {
	cutoff := w.now().Add(-w.retention)

	deleted, err := w.ledger.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		w.logger.Error().Err(err).Time("cutoff", cutoff).Msg("failed to purge processed messages")
		return
	}
	if deleted > 0 {
		w.logger.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("processed messages purged")
	}
}
