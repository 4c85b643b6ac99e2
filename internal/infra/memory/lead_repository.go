package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

// LeadRepository keeps leads in a map. Matching mirrors the Postgres
// repository: substring for name and email, digit containment for phone.
type LeadRepository struct {
	mu    sync.RWMutex
	leads map[string]*entity.Lead
	seq   map[string]int
	next  int
}

func NewLeadRepository() *LeadRepository {
	return &LeadRepository{
		leads: make(map[string]*entity.Lead),
		seq:   make(map[string]int),
	}
}

func (r *LeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	if err := lead.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.leads[lead.ID]; ok {
		return errors.New("lead already exists: " + lead.ID)
	}
	r.leads[lead.ID] = cloneLead(lead)
	r.next++
	r.seq[lead.ID] = r.next
	return nil
}

func (r *LeadRepository) FindMany(ctx context.Context, q entity.LeadQuery) ([]*entity.Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entity.Lead
	for _, l := range r.leads {
		if matches(l, q) {
			out = append(out, cloneLead(l))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return r.seq[out[i].ID] > r.seq[out[j].ID]
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *LeadRepository) Update(ctx context.Context, agentID, leadID string, patch entity.LeadPatch) (*entity.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.leads[leadID]
	if !ok || l.AgentID != agentID {
		return nil, nil
	}
	patch.Apply(l, time.Now())
	return cloneLead(l), nil
}

func matches(l *entity.Lead, q entity.LeadQuery) bool {
	if l.AgentID != q.AgentID {
		return false
	}
	if q.ID != "" && l.ID != q.ID {
		return false
	}
	if q.Email != "" && !containsFold(l.Email, q.Email) {
		return false
	}
	if q.PhoneDigits != "" && !strings.Contains(entity.DigitsOnly(l.Phone), q.PhoneDigits) {
		return false
	}
	if q.NameContains != "" && !containsFold(l.Name, q.NameContains) {
		return false
	}
	if q.Status != "" && l.Status != q.Status {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func cloneLead(l *entity.Lead) *entity.Lead {
	c := *l
	c.Notes = append([]entity.Note{}, l.Notes...)
	c.FollowUps = append([]entity.FollowUp{}, l.FollowUps...)
	return &c
}
