package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/xavierca1/ligue-leads/internal/command"
	"github.com/xavierca1/ligue-leads/internal/entity"
)

const (
	DefaultClaimTTL   = 5 * time.Minute
	DefaultClaimGrace = 60 * time.Second
)

type InboundMessageInput struct {
	MessageID string
	From      string
	Body      string
}

type InboundMessageOutput struct {
	Reply     string
	Command   command.Kind
	Duplicate bool
}

// HandleInboundMessageUseCase runs one inbound SMS at most once per message id
// and returns the text to send back.
type HandleInboundMessageUseCase struct {
	Claims   ClaimStore
	Ledger   entity.ProcessedMessageRepositoryInterface
	Parser   command.Parser
	Executor *ExecuteCommandUseCase
	ClaimTTL time.Duration
	Grace    time.Duration
	Logger   zerolog.Logger
}

func NewHandleInboundMessageUseCase(
	claims ClaimStore,
	ledger entity.ProcessedMessageRepositoryInterface,
	parser command.Parser,
	executor *ExecuteCommandUseCase,
	logger zerolog.Logger,
) *HandleInboundMessageUseCase {
	return &HandleInboundMessageUseCase{
		Claims:   claims,
		Ledger:   ledger,
		Parser:   parser,
		Executor: executor,
		ClaimTTL: DefaultClaimTTL,
		Grace:    DefaultClaimGrace,
		Logger:   logger,
	}
}

func (uc *HandleInboundMessageUseCase) Execute(ctx context.Context, input InboundMessageInput) *InboundMessageOutput {
	log := uc.Logger.With().Str("message_id", input.MessageID).Str("from", input.From).Logger()

	if input.MessageID == "" {
		log.Warn().Msg("inbound message without id, processing unguarded")
		out, _ := uc.process(ctx, input)
		return out
	}

	key := "sms:" + input.MessageID

	if uc.Claims != nil {
		claimed, err := uc.Claims.Claim(ctx, key, uc.claimTTL())
		switch {
		case err != nil:
			log.Error().Err(err).Msg("claim store unavailable, continuing without fast-path claim")
		case !claimed:
			log.Info().Msg("duplicate message suppressed by claim store")
			return &InboundMessageOutput{Duplicate: true}
		default:
			defer uc.release(key, log)
		}
	}

	durable := false
	if uc.Ledger != nil {
		inserted, err := uc.Ledger.InsertIfAbsent(ctx, entity.NewProcessedMessage(input.MessageID, input.From, input.Body))
		switch {
		case err != nil:
			log.Error().Err(err).Msg("message ledger unavailable, continuing without durable claim")
		case !inserted:
			log.Info().Msg("duplicate message suppressed by ledger")
			return &InboundMessageOutput{Duplicate: true}
		default:
			durable = true
		}
	}

	out, execErr := uc.process(ctx, input)

	if durable {
		status := entity.MessageCompleted
		if execErr != nil {
			status = entity.MessageFailed
		}
		// The reply is already decided; a cancelled request must not skip
		// the ledger update.
		if err := uc.Ledger.UpdateStatus(context.WithoutCancel(ctx), input.MessageID, status, out.Reply, string(out.Command)); err != nil {
			log.Error().Err(err).Str("status", string(status)).Msg("failed to record message status")
		}
	}
	return out
}

func (uc *HandleInboundMessageUseCase) process(ctx context.Context, input InboundMessageInput) (*InboundMessageOutput, error) {
	cmd := uc.Parser.Parse(ctx, input.Body)
	res := uc.Executor.Execute(ctx, ExecuteCommandInput{AgentPhone: input.From, Command: cmd})
	return &InboundMessageOutput{Reply: res.Reply, Command: cmd.Kind}, res.Err
}

func (uc *HandleInboundMessageUseCase) release(key string, log zerolog.Logger) {
	grace := uc.Grace
	if grace <= 0 {
		grace = DefaultClaimGrace
	}
	if err := uc.Claims.ReleaseAfter(context.Background(), key, grace); err != nil {
		log.Warn().Err(err).Msg("failed to shorten claim ttl")
	}
}

func (uc *HandleInboundMessageUseCase) claimTTL() time.Duration {
	if uc.ClaimTTL > 0 {
		return uc.ClaimTTL
	}
	return DefaultClaimTTL
}
