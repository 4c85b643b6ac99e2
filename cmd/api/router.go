package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/xavierca1/ligue-leads/internal/infra/http/handlers"
	"github.com/xavierca1/ligue-leads/internal/infra/http/middleware"
)

func newRouter(a *app, logger zerolog.Logger) http.Handler {
	smsHandler := handlers.NewSMSWebhookHandler(a.Inbound, logger)
	agentHandler := handlers.NewAgentHandler(a.Register, logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", a.Health.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if a.SignatureToken != "" && a.PublicBaseURL != "" {
			r.Use(middleware.TwilioSignature(a.SignatureToken, a.PublicBaseURL, logger))
		} else {
			logger.Warn().Msg("twilio signature check disabled (set TWILIO_AUTH_TOKEN and PUBLIC_BASE_URL)")
		}
		r.Post("/sms/webhook", smsHandler.Handle)
	})
	r.With(a.Limiter.Limit).Post("/agents", agentHandler.Register)

	return r
}
