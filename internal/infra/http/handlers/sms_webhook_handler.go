package handlers

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/xavierca1/ligue-leads/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

type InboundMessageProcessor interface {
	Execute(ctx context.Context, input usecase.InboundMessageInput) *usecase.InboundMessageOutput
}

type SMSWebhookHandler struct {
	Processor InboundMessageProcessor
	Logger    zerolog.Logger
}

func NewSMSWebhookHandler(processor InboundMessageProcessor, logger zerolog.Logger) *SMSWebhookHandler {
	return &SMSWebhookHandler{Processor: processor, Logger: logger}
}

type twimlMessage struct {
	XMLName xml.Name `xml:"Message"`
	Body    string   `xml:",chardata"`
}

type twimlResponse struct {
	XMLName  xml.Name       `xml:"Response"`
	Messages []twimlMessage `xml:"Message"`
}

// Handle always answers 200 with TwiML. Any other status makes the provider
// retry, and retries are what the idempotency guard exists to absorb.
func (h *SMSWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.Logger.Warn().Err(err).Msg("invalid sms webhook form")
		writeTwiML(w, "", h.Logger)
		return
	}

	input := usecase.InboundMessageInput{
		MessageID: r.PostForm.Get("MessageSid"),
		From:      r.PostForm.Get("From"),
		Body:      r.PostForm.Get("Body"),
	}
	if input.MessageID == "" {
		input.MessageID = r.PostForm.Get("SmsMessageSid")
	}

	out := h.Processor.Execute(r.Context(), input)

	if out.Duplicate {
		middleware.RecordDuplicateMessage()
		writeTwiML(w, "", h.Logger)
		return
	}

	middleware.RecordInboundMessage(string(out.Command))
	writeTwiML(w, out.Reply, h.Logger)
}

func writeTwiML(w http.ResponseWriter, reply string, logger zerolog.Logger) {
	resp := twimlResponse{}
	if reply != "" {
		resp.Messages = []twimlMessage{{Body: reply}}
	}

	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, xml.Header); err != nil {
		logger.Error().Err(err).Msg("failed to write twiml header")
		return
	}
	if err := xml.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Msg("failed to write twiml")
	}
}
