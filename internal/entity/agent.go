package entity

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAgentAlreadyExists = errors.New("agent already exists")
	ErrAgentNotFound      = errors.New("agent not found")
)

type AgentRole string

const (
	RoleAgent AgentRole = "agent"
	RoleAdmin AgentRole = "admin"
)

// PlaceholderEmailDomain marks emails of agents created from an unknown SMS sender.
const PlaceholderEmailDomain = "auto.placeholder.local"

type Agent struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Phone             string    `json:"phone"`
	Email             string    `json:"email,omitempty"`
	PasswordHash      string    `json:"-"`
	Role              AgentRole `json:"role"`
	Active            bool      `json:"active"`
	MustResetPassword bool      `json:"must_reset_password"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func NewAgent(name, phone, email, passwordHash string, role AgentRole) (*Agent, error) {
	if role == "" {
		role = RoleAgent
	}
	a := &Agent{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(name),
		Phone:        NormalizePhone(phone),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: passwordHash,
		Role:         role,
		Active:       true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// NewProvisionedAgent is the agent created the first time an unknown phone
// number texts in. It must reset its password before an interactive login.
func NewProvisionedAgent(phone, tempPasswordHash string) (*Agent, error) {
	normalized := NormalizePhone(phone)
	digits := DigitsOnly(normalized)
	a, err := NewAgent("Agent "+lastDigits(digits, 4), normalized, digits+"@"+PlaceholderEmailDomain, tempPasswordHash, RoleAgent)
	if err != nil {
		return nil, err
	}
	a.MustResetPassword = true
	return a, nil
}

func (a *Agent) Validate() error {
	if a.Phone == "" {
		return errors.New("agent phone is required")
	}
	if a.Name == "" {
		return errors.New("agent name is required")
	}
	if a.Role != RoleAgent && a.Role != RoleAdmin {
		return errors.New("invalid agent role: " + string(a.Role))
	}
	return nil
}

// HasRealEmail is false for auto-provisioned placeholder addresses.
func (a *Agent) HasRealEmail() bool {
	return a.Email != "" && !strings.HasSuffix(a.Email, "@"+PlaceholderEmailDomain)
}

var nonDigit = regexp.MustCompile(`\D`)

func DigitsOnly(s string) string {
	return nonDigit.ReplaceAllString(s, "")
}

// NormalizePhone returns a +<digits> form. Ten-digit numbers are assumed to be
// North American.
func NormalizePhone(phone string) string {
	digits := DigitsOnly(phone)
	if digits == "" {
		return ""
	}
	if len(digits) == 10 {
		digits = "1" + digits
	}
	return "+" + digits
}

func lastDigits(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

type AgentRepositoryInterface interface {
	// FindOrCreateByPhone is an atomic upsert keyed on the phone number. When
	// the phone is already registered the stored agent is returned untouched.
	FindOrCreateByPhone(ctx context.Context, candidate *Agent) (*Agent, error)
	Create(ctx context.Context, agent *Agent) error
	FindByPhone(ctx context.Context, phone string) (*Agent, error)
}
