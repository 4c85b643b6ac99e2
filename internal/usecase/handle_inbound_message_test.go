package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-leads/internal/command"
	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/infra/memory"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

// MockClaimStore
type MockClaimStore struct {
	mock.Mock
}

func (m *MockClaimStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockClaimStore) ReleaseAfter(ctx context.Context, key string, grace time.Duration) error {
	args := m.Called(ctx, key, grace)
	return args.Error(0)
}

// MockLedger
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) InsertIfAbsent(ctx context.Context, msg *entity.ProcessedMessage) (bool, error) {
	args := m.Called(ctx, msg)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedger) UpdateStatus(ctx context.Context, id string, status entity.MessageStatus, reply, cmd string) error {
	args := m.Called(ctx, id, status, reply, cmd)
	return args.Error(0)
}

func (m *MockLedger) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type guardHarness struct {
	*harness
	claims *memory.ClaimStore
	ledger *memory.ProcessedMessageRepository
	guard  *usecase.HandleInboundMessageUseCase
}

func newGuardHarness(t *testing.T) *guardHarness {
	t.Helper()
	h := newHarness(t)
	claims := memory.NewClaimStore(100)
	t.Cleanup(claims.Close)
	ledger := memory.NewProcessedMessageRepository()

	return &guardHarness{
		harness: h,
		claims:  claims,
		ledger:  ledger,
		guard:   usecase.NewHandleInboundMessageUseCase(claims, ledger, h.parser, h.executor, zerolog.Nop()),
	}
}

func (g *guardHarness) deliver(id, body string) *usecase.InboundMessageOutput {
	return g.guard.Execute(context.Background(), usecase.InboundMessageInput{MessageID: id, From: agentPhone, Body: body})
}

func TestDuplicateDeliveryIsSuppressed(t *testing.T) {
	g := newGuardHarness(t)
	body := "Add lead: Jane Smith, 555-987-6543, follow up in 2 days"

	first := g.deliver("SM1", body)
	second := g.deliver("SM1", body)

	assert.NotEmpty(t, first.Reply)
	assert.False(t, first.Duplicate)
	assert.Equal(t, command.KindCreateLead, first.Command)
	assert.Empty(t, second.Reply)
	assert.True(t, second.Duplicate)

	assert.Len(t, g.all(t), 1)
	assert.Len(t, g.outbox.Messages(), 1)

	row, ok := g.ledger.Get("SM1")
	require.True(t, ok)
	assert.Equal(t, entity.MessageCompleted, row.Status)
	assert.Equal(t, first.Reply, row.Reply)
	assert.Equal(t, string(command.KindCreateLead), row.Command)
}

func TestDuplicateSuppressedByLedgerAfterClaimExpires(t *testing.T) {
	g := newGuardHarness(t)
	g.guard.Claims = nil

	first := g.deliver("SM1", "Add lead: Jane Smith")
	second := g.deliver("SM1", "Add lead: Jane Smith")

	assert.NotEmpty(t, first.Reply)
	assert.Empty(t, second.Reply)
	assert.Len(t, g.all(t), 1)
}

func TestConcurrentDuplicatesExecuteOnce(t *testing.T) {
	g := newGuardHarness(t)

	const deliveries = 20
	replies := make([]string, deliveries)
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			replies[i] = g.deliver("SM-race", "Add lead: Jane Smith").Reply
		}(i)
	}
	wg.Wait()

	nonEmpty := 0
	for _, r := range replies {
		if r != "" {
			nonEmpty++
		}
	}
	assert.Equal(t, 1, nonEmpty)
	assert.Len(t, g.all(t), 1)
}

func TestDistinctMessagesAreIndependent(t *testing.T) {
	g := newGuardHarness(t)

	assert.NotEmpty(t, g.deliver("SM1", "Add lead: Jane Smith").Reply)
	assert.NotEmpty(t, g.deliver("SM2", "Add lead: Jane Smith").Reply)
	assert.Len(t, g.all(t), 2)
}

func TestClaimStoreFailureFailsOpen(t *testing.T) {
	g := newGuardHarness(t)
	claims := new(MockClaimStore)
	claims.On("Claim", mock.Anything, "sms:SM1", mock.Anything).Return(false, errors.New("redis down"))
	g.guard.Claims = claims

	out := g.deliver("SM1", "help")

	assert.Contains(t, out.Reply, "Commands")
	row, ok := g.ledger.Get("SM1")
	require.True(t, ok)
	assert.Equal(t, entity.MessageCompleted, row.Status)
	claims.AssertNotCalled(t, "ReleaseAfter", mock.Anything, mock.Anything, mock.Anything)
}

func TestLedgerFailureFailsOpenWithoutStatusWrite(t *testing.T) {
	g := newGuardHarness(t)
	ledger := new(MockLedger)
	ledger.On("InsertIfAbsent", mock.Anything, mock.Anything).Return(false, errors.New("db down"))
	g.guard.Ledger = ledger

	out := g.deliver("SM1", "help")

	assert.Contains(t, out.Reply, "Commands")
	ledger.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFailedExecutionIsRecorded(t *testing.T) {
	g := newGuardHarness(t)

	out := g.guard.Execute(context.Background(), usecase.InboundMessageInput{MessageID: "SM1", From: "unknown", Body: "List leads"})

	assert.Equal(t, "❌ There is a problem with your account. Please contact support.", out.Reply)
	row, ok := g.ledger.Get("SM1")
	require.True(t, ok)
	assert.Equal(t, entity.MessageFailed, row.Status)
	assert.Equal(t, out.Reply, row.Reply)
}

func TestClaimIsReleasedWithGrace(t *testing.T) {
	g := newGuardHarness(t)
	claims := new(MockClaimStore)
	claims.On("Claim", mock.Anything, "sms:SM1", usecase.DefaultClaimTTL).Return(true, nil)
	claims.On("ReleaseAfter", mock.Anything, "sms:SM1", usecase.DefaultClaimGrace).Return(nil)
	g.guard.Claims = claims

	g.deliver("SM1", "help")

	claims.AssertExpectations(t)
}

func TestMissingMessageIDIsProcessedUnguarded(t *testing.T) {
	g := newGuardHarness(t)

	assert.NotEmpty(t, g.deliver("", "help").Reply)
	assert.NotEmpty(t, g.deliver("", "help").Reply)
	assert.Equal(t, 0, g.claims.Len())
}
