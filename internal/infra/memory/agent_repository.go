package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

type AgentRepository struct {
	mu      sync.Mutex
	byPhone map[string]*entity.Agent
}

func NewAgentRepository() *AgentRepository {
	return &AgentRepository{byPhone: make(map[string]*entity.Agent)}
}

// FindOrCreateByPhone holds the lock across lookup and insert, so concurrent
// first contacts from one phone produce one agent.
func (r *AgentRepository) FindOrCreateByPhone(ctx context.Context, candidate *entity.Agent) (*entity.Agent, error) {
	phone := entity.NormalizePhone(candidate.Phone)

	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.byPhone[phone]; ok {
		c := *a
		return &c, nil
	}
	stored := *candidate
	stored.Phone = phone
	r.byPhone[phone] = &stored
	c := stored
	return &c, nil
}

func (r *AgentRepository) Create(ctx context.Context, agent *entity.Agent) error {
	phone := entity.NormalizePhone(agent.Phone)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byPhone[phone]; ok {
		return entity.ErrAgentAlreadyExists
	}
	if agent.Email != "" {
		for _, a := range r.byPhone {
			if strings.EqualFold(a.Email, agent.Email) {
				return entity.ErrAgentAlreadyExists
			}
		}
	}
	stored := *agent
	stored.Phone = phone
	r.byPhone[phone] = &stored
	return nil
}

func (r *AgentRepository) FindByPhone(ctx context.Context, phone string) (*entity.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byPhone[entity.NormalizePhone(phone)]
	if !ok {
		return nil, entity.ErrAgentNotFound
	}
	c := *a
	return &c, nil
}

// Count is used by tests checking the provisioning race.
func (r *AgentRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byPhone)
}
