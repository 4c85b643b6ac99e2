package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

type RegisterAgentUseCase struct {
	Agents entity.AgentRepositoryInterface
	Hasher PasswordHasher
}

func NewRegisterAgentUseCase(agents entity.AgentRepositoryInterface, hasher PasswordHasher) *RegisterAgentUseCase {
	return &RegisterAgentUseCase{Agents: agents, Hasher: hasher}
}

func (uc *RegisterAgentUseCase) Execute(ctx context.Context, input RegisterAgentInput) (*RegisterAgentOutput, error) {
	validationErrors := ValidateRegisterAgentInput(input)
	if len(validationErrors) > 0 {
		msgs := make([]string, 0, len(validationErrors))
		for _, e := range validationErrors {
			msgs = append(msgs, e.Error())
		}
		return nil, NewValidationError("validation failed: " + strings.Join(msgs, ", "))
	}

	hash, err := uc.Hasher.Hash(input.Password)
	if err != nil {
		return nil, NewTransientError("hash password", err)
	}

	agent, err := entity.NewAgent(input.Name, input.Phone, input.Email, hash, entity.RoleAgent)
	if err != nil {
		return nil, NewValidationError(err.Error())
	}

	if err := uc.Agents.Create(ctx, agent); err != nil {
		if errors.Is(err, entity.ErrAgentAlreadyExists) {
			return nil, &DomainError{
				Code:    CodeConflict,
				Message: "an agent with this phone or email already exists",
				Err:     err,
			}
		}
		return nil, NewTransientError("create agent", err)
	}

	return &RegisterAgentOutput{
		ID:    agent.ID,
		Name:  agent.Name,
		Phone: agent.Phone,
		Email: agent.Email,
		Role:  string(agent.Role),
	}, nil
}
