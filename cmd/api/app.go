package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/xavierca1/ligue-leads/internal/command"
	"github.com/xavierca1/ligue-leads/internal/config"
	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/infra/cache"
	"github.com/xavierca1/ligue-leads/internal/infra/database"
	"github.com/xavierca1/ligue-leads/internal/infra/http/handlers"
	"github.com/xavierca1/ligue-leads/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-leads/internal/infra/integration/gemini"
	"github.com/xavierca1/ligue-leads/internal/infra/integration/kommo"
	"github.com/xavierca1/ligue-leads/internal/infra/integration/twilio"
	"github.com/xavierca1/ligue-leads/internal/infra/mail"
	"github.com/xavierca1/ligue-leads/internal/infra/memory"
	"github.com/xavierca1/ligue-leads/internal/infra/queue"
	"github.com/xavierca1/ligue-leads/internal/infra/worker"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

const (
	agentRateLimit   = 10
	agentRateWindow  = time.Minute
	consumerPrefetch = 10
)

// app holds everything main wires together.
type app struct {
	Inbound  *usecase.HandleInboundMessageUseCase
	Register *usecase.RegisterAgentUseCase
	Health   *handlers.HealthHandler
	Limiter  *middleware.RateLimiter

	// Webhook signature check runs only when both are set.
	SignatureToken string
	PublicBaseURL  string

	workers []func(ctx context.Context)
	closers []func() error
	logger  zerolog.Logger
}

func buildApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (a *app, err error) {
	a = &app{
		SignatureToken: cfg.TwilioAuthToken,
		PublicBaseURL:  cfg.PublicBaseURL,
		logger:         logger,
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	var (
		leads  entity.LeadRepositoryInterface
		agents entity.AgentRepositoryInterface
		ledger entity.ProcessedMessageRepositoryInterface

		dbPing     handlers.Pinger
		brokerConn handlers.BrokerConnection
		redisPing  handlers.RedisPinger
	)

	switch cfg.StoreDriver {
	case config.DriverMemory:
		logger.Warn().Msg("using in-memory store, data is lost on restart")
		leads = memory.NewLeadRepository()
		agents = memory.NewAgentRepository()
		ledger = memory.NewProcessedMessageRepository()
	case config.DriverPostgres:
		logger.Info().Msg("running database migrations...")
		if err := database.MigrateUp(cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info().Msg("migrations completed")

		db, err := database.NewDBConnection(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		logger.Info().Msg("connected to PostgreSQL")

		leads = database.NewLeadRepository(db)
		agents = database.NewAgentRepository(db)
		ledger = database.NewProcessedMessageRepository(db)
		dbPing = db
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	var claims usecase.ClaimStore
	if cfg.RedisURL != "" {
		redisStore, err := cache.NewRedisClaimStore(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.closers = append(a.closers, redisStore.Close)
		logger.Info().Msg("connected to Redis")
		claims = redisStore
		redisPing = redisStore
	} else {
		memClaims := memory.NewClaimStore(memory.DefaultClaimCapacity)
		a.closers = append(a.closers, func() error { memClaims.Close(); return nil })
		claims = memClaims
	}

	sms := twilio.NewClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, logger)
	if !sms.Configured() {
		logger.Warn().Msg("twilio not configured, outbound SMS disabled")
	}

	var (
		scheduler usecase.NotificationScheduler
		events    usecase.EventSink
	)
	if cfg.RabbitMQURL != "" {
		rabbit, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq: %w", err)
		}
		a.closers = append(a.closers, rabbit.Close)
		logger.Info().Msg("connected to RabbitMQ")

		producer := queue.NewProducer(rabbit)
		scheduler, events = producer, producer
		brokerConn = rabbit

		if err := a.addConsumers(rabbit, sms, cfg); err != nil {
			return nil, err
		}
	} else {
		outbox := memory.NewOutbox(logger)
		scheduler, events = outbox, outbox
	}

	var emailService usecase.EmailService
	if sender := mail.NewEmailSender(cfg.MailHost, cfg.MailPort, cfg.MailUser, cfg.MailPass, cfg.MailFrom, cfg.DashboardURL); sender.Configured() {
		emailService = sender
	}

	var model command.ModelParser
	if cfg.GeminiAPIKey != "" {
		p, err := gemini.NewParser(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("AI parser unavailable, using regex grammar only")
		} else {
			model = p
		}
	}
	parser := command.NewFallbackParser(model, cfg.AIParserTimeout, logger)

	hasher := usecase.NewBcryptHasher()
	resolver := usecase.NewLeadResolver(leads, agents, hasher)

	executor := usecase.NewExecuteCommandUseCase(
		resolver,
		leads,
		scheduler,
		events,
		emailService,
		usecase.LinkConfig{BookingURL: cfg.BookingLink, ReviewURL: cfg.ReviewLink},
		cfg.DashboardURL,
		logger,
	)
	executor.WelcomeMessage = cfg.WelcomeMessage
	executor.Location = cfg.Location()

	a.Inbound = usecase.NewHandleInboundMessageUseCase(claims, ledger, parser, executor, logger)
	a.Inbound.Grace = cfg.IdempotencyGrace

	a.Register = usecase.NewRegisterAgentUseCase(agents, hasher)
	a.Health = handlers.NewHealthHandler(dbPing, brokerConn, redisPing)
	a.Limiter = middleware.NewRateLimiter(agentRateLimit, agentRateWindow)

	purge := worker.NewMessagePurgeWorker(ledger, cfg.MessageRetention, logger)
	a.workers = append(a.workers,
		purge.Start,
		func(ctx context.Context) { a.Limiter.Cleanup(ctx, agentRateWindow) },
	)

	return a, nil
}

func (a *app) addConsumers(rabbit *queue.RabbitMQ, sms *twilio.Client, cfg *config.Config) error {
	if sms.Configured() {
		ch, err := rabbit.Consumer(consumerPrefetch)
		if err != nil {
			return fmt.Errorf("notification consumer: %w", err)
		}
		w := queue.NewWorker(ch, a.logger)
		handler := queue.NotificationHandler(sms, a.logger)
		a.workers = append(a.workers, func(ctx context.Context) {
			if err := w.Start(ctx, queue.NotificationQueue, handler); err != nil {
				a.logger.Error().Err(err).Msg("notification worker stopped")
			}
		})
	}

	crm := kommo.NewClient(cfg.KommoAPIToken, cfg.KommoBaseURL, a.logger)
	if crm.Configured() {
		ch, err := rabbit.Consumer(consumerPrefetch)
		if err != nil {
			return fmt.Errorf("crm consumer: %w", err)
		}
		w := queue.NewWorker(ch, a.logger)
		handler := queue.CRMSyncHandler(crm, a.logger)
		a.workers = append(a.workers, func(ctx context.Context) {
			if err := w.Start(ctx, queue.CRMSyncQueue, handler); err != nil {
				a.logger.Error().Err(err).Msg("crm sync worker stopped")
			}
		})
	}
	return nil
}

func (a *app) StartWorkers(ctx context.Context) {
	for _, run := range a.workers {
		go run(ctx)
	}
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn().Err(err).Msg("close failed")
		}
	}
	a.closers = nil
}
