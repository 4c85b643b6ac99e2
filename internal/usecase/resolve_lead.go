package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/xavierca1/ligue-leads/internal/command"
	"github.com/xavierca1/ligue-leads/internal/entity"
)

// LeadResolver finds the single lead an identifier points at, inside the
// scope of one agent.
type LeadResolver struct {
	Leads  entity.LeadRepositoryInterface
	Agents entity.AgentRepositoryInterface
	Hasher PasswordHasher
}

func NewLeadResolver(leads entity.LeadRepositoryInterface, agents entity.AgentRepositoryInterface, hasher PasswordHasher) *LeadResolver {
	return &LeadResolver{Leads: leads, Agents: agents, Hasher: hasher}
}

// Agent returns the agent owning phone, provisioning one on first contact.
func (r *LeadResolver) Agent(ctx context.Context, phone string) (*entity.Agent, error) {
	if entity.DigitsOnly(phone) == "" {
		return nil, NewAccountError(entity.ErrAgentNotFound)
	}

	// Known senders skip the bcrypt work below. Creation itself is always
	// the repository's atomic upsert.
	if agent, err := r.Agents.FindByPhone(ctx, phone); err == nil {
		return activeAgent(agent)
	} else if !errors.Is(err, entity.ErrAgentNotFound) {
		return nil, NewAccountError(err)
	}

	temp, err := temporaryPassword()
	if err != nil {
		return nil, NewAccountError(err)
	}
	hash, err := r.Hasher.Hash(temp)
	if err != nil {
		return nil, NewAccountError(err)
	}

	candidate, err := entity.NewProvisionedAgent(phone, hash)
	if err != nil {
		return nil, NewAccountError(err)
	}

	agent, err := r.Agents.FindOrCreateByPhone(ctx, candidate)
	if err != nil {
		return nil, NewAccountError(err)
	}
	return activeAgent(agent)
}

func activeAgent(agent *entity.Agent) (*entity.Agent, error) {
	if !agent.Active {
		return nil, NewAccountError(errInactiveAgent)
	}
	return agent, nil
}

// Resolve returns exactly one lead or a NOT_FOUND / AMBIGUOUS DomainError.
func (r *LeadResolver) Resolve(ctx context.Context, agentID, identifier string, idType command.IdentifierType) (*entity.Lead, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, NewValidationError("identifier is required")
	}

	q := entity.LeadQuery{AgentID: agentID}
	switch idType {
	case command.IdentifierID:
		q.ID = strings.ToLower(identifier)
	case command.IdentifierEmail:
		q.Email = identifier
	case command.IdentifierPhone:
		q.PhoneDigits = entity.DigitsOnly(identifier)
	default:
		idType = command.IdentifierName
		q.NameContains = identifier
	}

	leads, err := r.Leads.FindMany(ctx, q)
	if err != nil {
		return nil, NewTransientError("find leads", err)
	}

	switch len(leads) {
	case 0:
		return nil, NewNotFoundError(identifier)
	case 1:
		return leads[0], nil
	default:
		return nil, NewAmbiguousError(len(leads), idType.Label(), identifier)
	}
}
