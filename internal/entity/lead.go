package entity

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrLeadNameRequired = errors.New("lead name is required")

type LeadStatus string

const (
	StatusNew          LeadStatus = "new"
	StatusContacted    LeadStatus = "contacted"
	StatusQualified    LeadStatus = "qualified"
	StatusProposalSent LeadStatus = "proposal_sent"
	StatusClosed       LeadStatus = "closed"
	StatusLost         LeadStatus = "lost"
)

var leadStatuses = []LeadStatus{
	StatusNew, StatusContacted, StatusQualified, StatusProposalSent, StatusClosed, StatusLost,
}

// ParseLeadStatus accepts "proposal sent", "Proposal-Sent" and similar spellings.
func ParseLeadStatus(raw string) (LeadStatus, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	for _, st := range leadStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

func (s LeadStatus) Valid() bool {
	_, ok := ParseLeadStatus(string(s))
	return ok
}

type Note struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type FollowUp struct {
	ScheduledDate time.Time `json:"scheduled_date"`
	Completed     bool      `json:"completed"`
	Note          string    `json:"note,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type Lead struct {
	ID        string     `json:"id"`
	AgentID   string     `json:"agent_id"`
	Name      string     `json:"name"`
	Email     string     `json:"email,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Status    LeadStatus `json:"status"`
	Source    string     `json:"source"`
	Notes     []Note     `json:"notes"`
	FollowUps []FollowUp `json:"follow_ups"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewLead builds a lead owned by agentID. An empty status means StatusNew.
func NewLead(agentID, name, email, phone string, status LeadStatus, source string) (*Lead, error) {
	now := time.Now()
	if status == "" {
		status = StatusNew
	}
	lead := &Lead{
		ID:        primitive.NewObjectID().Hex(),
		AgentID:   agentID,
		Name:      strings.TrimSpace(name),
		Email:     strings.TrimSpace(email),
		Phone:     strings.TrimSpace(phone),
		Status:    status,
		Source:    source,
		Notes:     []Note{},
		FollowUps: []FollowUp{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := lead.Validate(); err != nil {
		return nil, err
	}
	return lead, nil
}

func (l *Lead) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return ErrLeadNameRequired
	}
	if !l.Status.Valid() {
		return errors.New("invalid lead status: " + string(l.Status))
	}
	if l.AgentID == "" {
		return errors.New("lead agent is required")
	}
	for _, f := range l.FollowUps {
		if f.ScheduledDate.IsZero() {
			return errors.New("follow-up scheduled date is required")
		}
	}
	return nil
}

// LatestFollowUp returns the most recently added follow-up entry.
func (l *Lead) LatestFollowUp() (FollowUp, bool) {
	if len(l.FollowUps) == 0 {
		return FollowUp{}, false
	}
	return l.FollowUps[len(l.FollowUps)-1], true
}

// LeadQuery selects leads of a single agent. Empty fields are not filtered on.
// Results are always ordered by creation time, newest first.
type LeadQuery struct {
	AgentID      string
	ID           string
	Email        string
	PhoneDigits  string
	NameContains string
	Status       LeadStatus
	Limit        int
}

// LeadPatch is applied as a single update. Nil fields are left untouched.
type LeadPatch struct {
	Status         *LeadStatus
	Email          *string
	Phone          *string
	AppendFollowUp *FollowUp
	AppendNote     *Note
}

func (p LeadPatch) Empty() bool {
	return p.Status == nil && p.Email == nil && p.Phone == nil && p.AppendFollowUp == nil && p.AppendNote == nil
}

// Apply mutates l in place. Repositories without native partial updates use it.
func (p LeadPatch) Apply(l *Lead, now time.Time) {
	if p.Status != nil {
		l.Status = *p.Status
	}
	if p.Email != nil {
		l.Email = *p.Email
	}
	if p.Phone != nil {
		l.Phone = *p.Phone
	}
	if p.AppendFollowUp != nil {
		l.FollowUps = append(l.FollowUps, *p.AppendFollowUp)
	}
	if p.AppendNote != nil {
		l.Notes = append(l.Notes, *p.AppendNote)
	}
	l.UpdatedAt = now
}

type LeadRepositoryInterface interface {
	Create(ctx context.Context, lead *Lead) error
	FindMany(ctx context.Context, q LeadQuery) ([]*Lead, error)
	// Update returns (nil, nil) when no lead with that id belongs to agentID.
	Update(ctx context.Context, agentID, leadID string, patch LeadPatch) (*Lead, error)
}
