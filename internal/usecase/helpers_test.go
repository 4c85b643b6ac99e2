package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-leads/internal/command"
	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/infra/memory"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

const (
	agentPhone   = "+15550001111"
	dashboardURL = "https://crm.example.com/dashboard"
)

var fixedNow = time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)

type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "hashed:" + p, nil }

// MockEmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendLink(to, leadName, linkLabel, link string) error {
	args := m.Called(to, leadName, linkLabel, link)
	return args.Error(0)
}

func (m *MockEmailService) SendNewLeadAlert(to, agentName string, lead *entity.Lead) error {
	args := m.Called(to, agentName, lead)
	return args.Error(0)
}

type harness struct {
	leads    *memory.LeadRepository
	agents   *memory.AgentRepository
	outbox   *memory.Outbox
	parser   *command.RegexParser
	executor *usecase.ExecuteCommandUseCase
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		leads:  memory.NewLeadRepository(),
		agents: memory.NewAgentRepository(),
		outbox: memory.NewOutbox(zerolog.Nop()),
		parser: command.NewRegexParser(),
	}
	resolver := usecase.NewLeadResolver(h.leads, h.agents, plainHasher{})
	h.executor = usecase.NewExecuteCommandUseCase(
		resolver, h.leads, h.outbox, h.outbox, nil,
		usecase.LinkConfig{BookingURL: "https://book.example.com", ReviewURL: "https://review.example.com"},
		dashboardURL, zerolog.Nop(),
	)
	h.executor.Now = func() time.Time { return fixedNow }
	return h
}

func (h *harness) send(t *testing.T, text string) string {
	t.Helper()
	cmd := h.parser.Parse(context.Background(), text)
	return h.executor.Execute(context.Background(), usecase.ExecuteCommandInput{AgentPhone: agentPhone, Command: cmd}).Reply
}

func (h *harness) agentID(t *testing.T) string {
	t.Helper()
	a, err := h.agents.FindByPhone(context.Background(), agentPhone)
	require.NoError(t, err)
	return a.ID
}

func (h *harness) seed(t *testing.T, name, email, phone string) *entity.Lead {
	t.Helper()
	ctx := context.Background()
	agent, err := h.executor.Resolver.Agent(ctx, agentPhone)
	require.NoError(t, err)

	l, err := entity.NewLead(agent.ID, name, email, phone, entity.StatusNew, "test")
	require.NoError(t, err)
	require.NoError(t, h.leads.Create(ctx, l))
	return l
}

func (h *harness) all(t *testing.T) []*entity.Lead {
	t.Helper()
	leads, err := h.leads.FindMany(context.Background(), entity.LeadQuery{AgentID: h.agentID(t)})
	require.NoError(t, err)
	return leads
}
