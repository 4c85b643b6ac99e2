// Package gemini implements the AI-assisted command parser on top of the
// Gemini API.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/xavierca1/ligue-leads/internal/command"
	"github.com/xavierca1/ligue-leads/internal/entity"
)

const DefaultModel = "gemini-2.0-flash"

var ErrEmptyResponse = errors.New("gemini returned an empty response")

const systemPrompt = `You convert SMS messages from real-estate and sales agents into JSON commands.
Reply with a single JSON object and nothing else. Fields:
  "command": one of create_lead, update_lead, set_followup, get_lead_status, list_leads, help, send_booking_link, send_review_link, unknown
  "name", "email", "phone": lead details for create_lead
  "status": one of new, contacted, qualified, proposal_sent, closed, lost
  "identifier": the name, email, phone or id that points at an existing lead
  "updates": list of {"field": "status"|"email"|"phone", "value": string} for update_lead
  "follow_up_days": integer number of days for set_followup or create_lead
  "status_filter": a status or "all" for list_leads
Use "unknown" when the message is not one of these commands. Only use "help" when the message is exactly "help".`

// Parser implements command.ModelParser.
type Parser struct {
	client *genai.Client
	model  string
	logger zerolog.Logger
}

func NewParser(ctx context.Context, apiKey, model string, logger zerolog.Logger) (*Parser, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Parser{client: client, model: model, logger: logger}, nil
}

func (p *Parser) ParseCommand(ctx context.Context, text string) (command.Command, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		Temperature:       genai.Ptr[float32](0),
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(text), config)
	if err != nil {
		return command.Command{}, fmt.Errorf("generate content: %w", err)
	}

	raw := resp.Text()
	p.logger.Debug().Str("model", p.model).Str("raw", raw).Msg("model parser response")
	return decodeCommand(raw)
}

type modelCommand struct {
	Command      string                `json:"command"`
	Name         string                `json:"name"`
	Email        string                `json:"email"`
	Phone        string                `json:"phone"`
	Status       string                `json:"status"`
	Identifier   string                `json:"identifier"`
	Updates      []command.FieldUpdate `json:"updates"`
	FollowUpDays int                   `json:"follow_up_days"`
	StatusFilter string                `json:"status_filter"`
}

// decodeCommand maps the model's JSON onto a Command. Values are left raw;
// command.Normalize is applied by the caller.
func decodeCommand(raw string) (command.Command, error) {
	raw = stripCodeFence(raw)
	if raw == "" {
		return command.Command{}, ErrEmptyResponse
	}

	var mc modelCommand
	if err := json.Unmarshal([]byte(raw), &mc); err != nil {
		return command.Command{}, fmt.Errorf("decode model output: %w", err)
	}

	cmd := command.Command{
		Kind:         command.Kind(strings.ToLower(strings.TrimSpace(mc.Command))),
		Name:         strings.TrimSpace(mc.Name),
		Email:        strings.TrimSpace(mc.Email),
		Phone:        strings.TrimSpace(mc.Phone),
		Status:       entity.LeadStatus(strings.ToLower(strings.TrimSpace(mc.Status))),
		Identifier:   strings.TrimSpace(mc.Identifier),
		Updates:      mc.Updates,
		StatusFilter: strings.ToLower(strings.TrimSpace(mc.StatusFilter)),
	}
	if mc.FollowUpDays != 0 {
		cmd.FollowUp = &command.FollowUp{Days: mc.FollowUpDays}
	}
	return cmd, nil
}

// Some models wrap JSON in a markdown fence even when asked not to.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
