package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-leads/internal/command"
	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

func dateOnly(t time.Time) string {
	return t.Format("2006-01-02")
}

func TestCreateLead(t *testing.T) {
	h := newHarness(t)

	reply := h.send(t, "Add lead: Jane Smith, jane@example.com, 555-987-6543")

	assert.Equal(t, "✅ Created: Jane Smith\n\n📊 Dashboard: "+dashboardURL, reply)
	leads := h.all(t)
	require.Len(t, leads, 1)
	assert.Equal(t, "Jane Smith", leads[0].Name)
	assert.Equal(t, "jane@example.com", leads[0].Email)
	assert.Equal(t, "555-987-6543", leads[0].Phone)
	assert.Equal(t, entity.StatusNew, leads[0].Status)
	assert.Empty(t, leads[0].FollowUps)

	events := h.outbox.Events()
	require.Len(t, events, 1)
	assert.Equal(t, usecase.EventCreate, events[0].Kind)
	assert.Empty(t, h.outbox.Messages())
}

func TestCreateLeadWithStatusShowsIt(t *testing.T) {
	h := newHarness(t)

	reply := h.send(t, "Add lead: Bob Stone, status qualified")

	assert.True(t, strings.HasPrefix(reply, "✅ Created: Bob Stone (qualified)"), reply)
}

func TestCreateLeadWithFollowUp(t *testing.T) {
	h := newHarness(t)

	reply := h.send(t, "Add lead: Jane Smith, jane@example.com, 555-987-6543, follow up in 5 days")

	assert.Contains(t, reply, "Follow-up in 5 days")
	assert.True(t, strings.HasSuffix(reply, "📊 Dashboard: "+dashboardURL))

	leads := h.all(t)
	require.Len(t, leads, 1)
	require.Len(t, leads[0].FollowUps, 1)
	assert.Equal(t, dateOnly(fixedNow.AddDate(0, 0, 5)), dateOnly(leads[0].FollowUps[0].ScheduledDate))

	msgs := h.outbox.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "555-987-6543", msgs[0].To)
	assert.Equal(t, 5*24*time.Hour, msgs[0].Delay)
}

func TestCreateLeadFollowUpWithoutPhoneSkipsNotification(t *testing.T) {
	h := newHarness(t)

	reply := h.send(t, "Add lead: Sam Lee, follow up in 1 week")

	assert.Contains(t, reply, "Follow-up in 7 days")
	require.Len(t, h.all(t)[0].FollowUps, 1)
	assert.Empty(t, h.outbox.Messages())
}

func TestCreateLeadRequiresName(t *testing.T) {
	for _, text := range []string{"Add lead", "Add lead: , jane@example.com", "add lead 555-987-6543"} {
		h := newHarness(t)
		reply := h.send(t, text)
		assert.True(t, strings.HasPrefix(reply, "❌ Please provide a lead name."), "input %q got %q", text, reply)

		_, err := h.agents.FindByPhone(context.Background(), agentPhone)
		assert.ErrorIs(t, err, entity.ErrAgentNotFound, "nothing should be provisioned for %q", text)
	}
}

func TestCreateLeadSendsWelcomeAsync(t *testing.T) {
	h := newHarness(t)
	h.executor.WelcomeMessage = "Hi {name}, thanks for reaching out!"

	h.send(t, "Add lead: Jane Smith, 555-987-6543")

	assert.Eventually(t, func() bool {
		for _, m := range h.outbox.Messages() {
			if m.Body == "Hi Jane, thanks for reaching out!" && m.Delay == 0 {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestCreateLeadAlertsAgentWithRealEmail(t *testing.T) {
	h := newHarness(t)
	mailer := new(MockEmailService)
	done := make(chan struct{})
	mailer.On("SendNewLeadAlert", "ann@example.com", "Ann", mock.Anything).
		Return(errors.New("smtp down")).
		Run(func(mock.Arguments) { close(done) })
	h.executor.EmailService = mailer

	agent, err := entity.NewAgent("Ann", agentPhone, "ann@example.com", "h", entity.RoleAgent)
	require.NoError(t, err)
	require.NoError(t, h.agents.Create(context.Background(), agent))

	reply := h.send(t, "Add lead: Jane Smith")
	assert.True(t, strings.HasPrefix(reply, "✅ Created: Jane Smith"), "alert failure must not change the reply")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("alert email was not sent")
	}
}

func TestUpdateLead(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "Jane Smith", "jane@example.com", "")

	reply := h.send(t, "Update lead Jane Smith status contacted, email jane@new.com, status qualified")

	assert.Equal(t, "✅ Updated Jane Smith: status, email\n\n📊 Dashboard: "+dashboardURL, reply)
	lead := h.all(t)[0]
	assert.Equal(t, entity.StatusQualified, lead.Status)
	assert.Equal(t, "jane@new.com", lead.Email)

	events := h.outbox.Events()
	require.Len(t, events, 1)
	assert.Equal(t, usecase.EventUpdate, events[0].Kind)
}

func TestUpdateLeadNotFound(t *testing.T) {
	h := newHarness(t)

	reply := h.send(t, "Update lead Ghost status lost")

	assert.Equal(t, "❌ Lead not found: Ghost", reply)
	assert.Empty(t, h.outbox.Events())
}

func TestAmbiguousIdentifierAcrossCommands(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "John Doe", "john1@example.com", "")
	h.seed(t, "John Doe", "john2@example.com", "")

	for _, text := range []string{
		"Update lead John Doe status qualified",
		"Show status for John Doe",
		"Follow up John Doe in 3 days",
	} {
		reply := h.send(t, text)
		assert.Contains(t, reply, "2", text)
		assert.Contains(t, reply, "John Doe", text)
		assert.Contains(t, reply, "more specific", text)
	}

	for _, l := range h.all(t) {
		assert.Equal(t, entity.StatusNew, l.Status)
		assert.Empty(t, l.FollowUps)
	}
}

func TestMissingIdentifierReplies(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "Jane Smith", "", "")

	cases := []struct {
		cmd  command.Command
		want string
	}{
		{command.Command{Kind: command.KindUpdateLead, Updates: []command.FieldUpdate{{Field: command.FieldStatus, Value: "lost"}}}, "❌ Please provide a lead name, email, phone, or ID to update."},
		{command.Command{Kind: command.KindSetFollowUp, FollowUp: &command.FollowUp{Days: 1}}, "❌ Please provide a lead name, email, phone, or ID to follow up with."},
		{command.Command{Kind: command.KindGetLeadStatus}, "Please provide a lead name, email, phone, or ID."},
	}

	for _, c := range cases {
		out := h.executor.Execute(context.Background(), usecase.ExecuteCommandInput{AgentPhone: agentPhone, Command: c.cmd})
		assert.True(t, strings.HasPrefix(out.Reply, c.want), "%s: %q", c.cmd.Kind, out.Reply)
		assert.NotContains(t, out.Reply, "not found")
		assert.NotContains(t, out.Reply, "Found")
	}

	assert.Equal(t, "❌ Please specify what to update (status, email, or phone). Example: Update lead Jane Smith status qualified",
		h.send(t, "Update lead Jane Smith"))
}

func TestSetFollowUp(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "Jane Smith", "", "555-987-6543")

	reply := h.send(t, "Follow up Jane Smith in 2 weeks")

	assert.Equal(t, "📅 Follow-up set for Jane Smith on 3/24/2024\n\n📊 Dashboard: "+dashboardURL, reply)
	lead := h.all(t)[0]
	require.Len(t, lead.FollowUps, 1)
	assert.Equal(t, "2024-03-24", dateOnly(lead.FollowUps[0].ScheduledDate))

	msgs := h.outbox.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, 14*24*time.Hour, msgs[0].Delay)
	require.Len(t, h.outbox.Events(), 1)
}

func TestSetFollowUpDefaultsToOneDay(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "Jane Smith", "", "")

	reply := h.send(t, "Follow up Jane Smith")

	assert.Contains(t, reply, "3/11/2024")
}

func TestSetFollowUpRequiresDays(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "Jane Smith", "", "")

	out := h.executor.Execute(context.Background(), usecase.ExecuteCommandInput{
		AgentPhone: agentPhone,
		Command:    command.Command{Kind: command.KindSetFollowUp, Identifier: "Jane Smith"},
	})

	assert.True(t, strings.HasPrefix(out.Reply, "❌ Please specify when to follow up"))
}

func TestFollowUpDaysOutOfRange(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "Jane Smith", "", "555-987-6543")

	for _, text := range []string{
		"Follow up Jane Smith in 0 days",
		"Follow up Jane Smith in 300000000 days",
		"Follow up Jane Smith in 9223372036854775807 months",
		"Follow up Jane Smith in 200 months",
	} {
		reply := h.send(t, text)
		assert.True(t, strings.HasPrefix(reply, "❌ Please specify when to follow up"), text)
	}

	reply := h.send(t, "Add lead: Bob Stone, follow up in 0 days")
	assert.True(t, strings.HasPrefix(reply, "❌ Please specify when to follow up"), reply)

	leads := h.all(t)
	require.Len(t, leads, 1)
	assert.Empty(t, leads[0].FollowUps)
	assert.Empty(t, h.outbox.Messages())
}

func TestFollowUpDaysFromModelAreBounded(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "Jane Smith", "", "")

	cmd := command.Normalize(command.Command{
		Kind:       command.KindSetFollowUp,
		Identifier: "Jane Smith",
		FollowUp:   &command.FollowUp{Days: command.MaxFollowUpDays + 1},
	})
	out := h.executor.Execute(context.Background(), usecase.ExecuteCommandInput{AgentPhone: agentPhone, Command: cmd})

	assert.True(t, strings.HasPrefix(out.Reply, "❌ Please specify when to follow up"))
	assert.Empty(t, h.outbox.Messages())
}

func TestGetLeadStatus(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "Jane Smith", "jane@example.com", "555-987-6543")
	h.send(t, "Follow up jane@example.com in 3 days")
	h.send(t, "Follow up jane@example.com in 5 days")

	reply := h.send(t, "Show status for 5559876543")

	assert.Equal(t, "📋 Jane Smith\nStatus: new\nEmail: jane@example.com\nPhone: 555-987-6543\nFollow-up: 3/15/2024\n\n📊 Dashboard: "+dashboardURL, reply)
}

func TestListLeads(t *testing.T) {
	t.Run("empty scope", func(t *testing.T) {
		h := newHarness(t)
		assert.Equal(t, "No leads found.", h.send(t, "List leads"))
	})

	t.Run("most recent only", func(t *testing.T) {
		h := newHarness(t)
		h.seed(t, "Older Lead", "", "")
		newer := h.seed(t, "Newer Lead", "newer@example.com", "")

		reply := h.send(t, "List leads")
		assert.Contains(t, reply, "Name: Newer Lead")
		assert.NotContains(t, reply, "Older Lead")
		assert.Contains(t, reply, "ID: "+newer.ID)
		assert.Contains(t, reply, dashboardURL)
	})

	t.Run("status filter without matches", func(t *testing.T) {
		h := newHarness(t)
		h.seed(t, "Jane Smith", "", "")
		assert.Equal(t, "No leads found.", h.send(t, "List qualified leads"))
	})
}

func TestSendLinks(t *testing.T) {
	t.Run("sms and email", func(t *testing.T) {
		h := newHarness(t)
		mailer := new(MockEmailService)
		mailer.On("SendLink", "jane@example.com", "Jane Smith", "booking", "https://book.example.com").Return(nil)
		h.executor.EmailService = mailer
		h.seed(t, "Jane Smith", "jane@example.com", "555-987-6543")

		reply := h.send(t, "Send booking link to Jane Smith")

		assert.Equal(t, "✅ Booking link sent to Jane Smith via SMS and email.", reply)
		msgs := h.outbox.Messages()
		require.Len(t, msgs, 1)
		assert.Contains(t, msgs[0].Body, "https://book.example.com")
		assert.Equal(t, time.Duration(0), msgs[0].Delay)
		mailer.AssertExpectations(t)
	})

	t.Run("usage", func(t *testing.T) {
		h := newHarness(t)
		assert.Equal(t, "❌ Usage: Send review link to <lead name, email, phone, or ID>", h.send(t, "Send review link"))
	})

	t.Run("not configured", func(t *testing.T) {
		h := newHarness(t)
		h.executor.Links.ReviewURL = ""
		assert.Contains(t, h.send(t, "Send review link to Jane"), "No review link is configured")
	})

	t.Run("lead without phone", func(t *testing.T) {
		h := newHarness(t)
		h.seed(t, "Jane Smith", "", "")
		assert.Equal(t, "❌ Jane Smith has no phone number on file.", h.send(t, "Send review link to Jane"))
		assert.Empty(t, h.outbox.Messages())
	})
}

func TestHelpAndUnknown(t *testing.T) {
	h := newHarness(t)

	help := h.send(t, "HELP")
	for _, want := range []string{"Add lead", "Update lead", "Follow up", "Show status", "List leads", "booking link", "review link", "name, email, phone number, or ID"} {
		assert.Contains(t, help, want)
	}

	assert.Equal(t, "❓ Unknown command. Send \"help\" to see what I can do.", h.send(t, "what's up"))
}

// MockLeadRepository
type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

func (m *MockLeadRepository) FindMany(ctx context.Context, q entity.LeadQuery) ([]*entity.Lead, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) Update(ctx context.Context, agentID, leadID string, patch entity.LeadPatch) (*entity.Lead, error) {
	args := m.Called(ctx, agentID, leadID, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func TestStoreFailureYieldsGenericReply(t *testing.T) {
	h := newHarness(t)
	repo := new(MockLeadRepository)
	repo.On("FindMany", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))
	h.executor.Leads = repo
	h.executor.Resolver.Leads = repo

	out := h.executor.Execute(context.Background(), usecase.ExecuteCommandInput{
		AgentPhone: agentPhone,
		Command:    h.parser.Parse(context.Background(), "List leads"),
	})

	assert.Equal(t, "❌ Error processing request: list leads: connection reset", out.Reply)
	assert.Equal(t, usecase.CodeTransient, usecase.ErrorCode(out.Err))
}

func TestPanicIsRecovered(t *testing.T) {
	h := newHarness(t)
	repo := new(MockLeadRepository)
	repo.On("Create", mock.Anything, mock.Anything).Run(func(mock.Arguments) { panic("boom") })
	h.executor.Leads = repo

	out := h.executor.Execute(context.Background(), usecase.ExecuteCommandInput{
		AgentPhone: agentPhone,
		Command:    h.parser.Parse(context.Background(), "Add lead: Jane"),
	})

	assert.True(t, strings.HasPrefix(out.Reply, "❌ Error processing request"))
	assert.Error(t, out.Err)
}

func TestAccountErrorReply(t *testing.T) {
	h := newHarness(t)

	out := h.executor.Execute(context.Background(), usecase.ExecuteCommandInput{
		AgentPhone: "",
		Command:    h.parser.Parse(context.Background(), "List leads"),
	})

	assert.Equal(t, "❌ There is a problem with your account. Please contact support.", out.Reply)
	assert.Equal(t, usecase.CodeAccount, usecase.ErrorCode(out.Err))
}
