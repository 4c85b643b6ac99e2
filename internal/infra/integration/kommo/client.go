package kommo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var ErrNotConfigured = errors.New("kommo is not configured")

type Client struct {
	apiToken   string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient takes the account API root, e.g. https://example.kommo.com/api/v4.
func NewClient(apiToken, baseURL string, logger zerolog.Logger) *Client {
	return &Client{
		apiToken:   apiToken,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

func (c *Client) Configured() bool {
	return c.apiToken != "" && c.baseURL != ""
}

// CreateLead mirrors a lead into Kommo, reusing the contact when one with
// the same phone already exists. It returns the Kommo lead id.
func (c *Client) CreateLead(ctx context.Context, input CreateLeadInput) (int, error) {
	if !c.Configured() {
		return 0, ErrNotConfigured
	}

	contactID, err := c.findOrCreateContact(ctx, input)
	if err != nil {
		return 0, fmt.Errorf("find or create contact: %w", err)
	}

	tags := []map[string]any{{"name": "sms_lead"}}
	if input.Status != "" {
		tags = append(tags, map[string]any{"name": "status_" + input.Status})
	}
	if input.Source != "" {
		tags = append(tags, map[string]any{"name": "source_" + input.Source})
	}

	name := input.Name
	if input.AgentName != "" {
		name = fmt.Sprintf("%s - %s", input.Name, input.AgentName)
	}

	leadData := []map[string]any{
		{
			"name": name,
			"_embedded": map[string]any{
				"tags":     tags,
				"contacts": []map[string]any{{"id": contactID}},
			},
		},
	}

	var result embeddedIDs
	if err := c.do(ctx, http.MethodPost, "/leads", leadData, &result); err != nil {
		return 0, fmt.Errorf("create lead: %w", err)
	}
	if len(result.Embedded.Leads) == 0 {
		return 0, errors.New("kommo returned no lead id")
	}

	leadID := result.Embedded.Leads[0].ID
	c.logger.Info().Int("kommo_lead_id", leadID).Str("lead_id", input.ExternalID).Msg("lead mirrored to kommo")
	return leadID, nil
}

func (c *Client) findOrCreateContact(ctx context.Context, input CreateLeadInput) (int, error) {
	query := input.Phone
	if query == "" {
		query = input.Email
	}
	if query != "" {
		if id, err := c.findContact(ctx, query); err == nil && id > 0 {
			c.logger.Debug().Int("contact_id", id).Msg("existing kommo contact found")
			return id, nil
		}
	}
	return c.createContact(ctx, input)
}

func (c *Client) findContact(ctx context.Context, query string) (int, error) {
	var result embeddedIDs
	if err := c.do(ctx, http.MethodGet, "/contacts?query="+url.QueryEscape(query), nil, &result); err != nil {
		return 0, err
	}
	if len(result.Embedded.Contacts) == 0 {
		return 0, errors.New("contact not found")
	}
	return result.Embedded.Contacts[0].ID, nil
}

func (c *Client) createContact(ctx context.Context, input CreateLeadInput) (int, error) {
	var fields []map[string]any
	if input.Phone != "" {
		fields = append(fields, map[string]any{
			"field_code": "PHONE",
			"values":     []map[string]any{{"value": input.Phone, "enum_code": "WORK"}},
		})
	}
	if input.Email != "" {
		fields = append(fields, map[string]any{
			"field_code": "EMAIL",
			"values":     []map[string]any{{"value": input.Email, "enum_code": "WORK"}},
		})
	}

	contact := map[string]any{"name": input.Name}
	if len(fields) > 0 {
		contact["custom_fields_values"] = fields
	}

	var result embeddedIDs
	if err := c.do(ctx, http.MethodPost, "/contacts", []map[string]any{contact}, &result); err != nil {
		return 0, fmt.Errorf("create contact: %w", err)
	}
	if len(result.Embedded.Contacts) == 0 {
		return 0, errors.New("kommo returned no contact id")
	}
	return result.Embedded.Contacts[0].ID, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	c.addAuthHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("kommo %s %s: %d - %s", method, path, resp.StatusCode, string(respBody))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

func (c *Client) addAuthHeaders(req *http.Request) {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiToken))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}
