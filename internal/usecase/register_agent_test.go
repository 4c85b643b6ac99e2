package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-leads/internal/infra/memory"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

func TestRegisterAgent(t *testing.T) {
	agents := memory.NewAgentRepository()
	uc := usecase.NewRegisterAgentUseCase(agents, plainHasher{})
	ctx := context.Background()

	out, err := uc.Execute(ctx, usecase.RegisterAgentInput{
		Name:     "Ann Broker",
		Phone:    "(555) 000-1111",
		Email:    "Ann@Example.com",
		Password: "s3cretpass",
	})
	require.NoError(t, err)
	assert.Equal(t, "+15550001111", out.Phone)
	assert.Equal(t, "ann@example.com", out.Email)
	assert.Equal(t, "agent", out.Role)

	stored, err := agents.FindByPhone(ctx, "5550001111")
	require.NoError(t, err)
	assert.Equal(t, "hashed:s3cretpass", stored.PasswordHash)
	assert.False(t, stored.MustResetPassword)

	_, err = uc.Execute(ctx, usecase.RegisterAgentInput{Name: "Dup", Phone: "+1 555 000 1111", Password: "another-pass"})
	assert.Equal(t, usecase.CodeConflict, usecase.ErrorCode(err))
}

func TestRegisterAgentValidation(t *testing.T) {
	uc := usecase.NewRegisterAgentUseCase(memory.NewAgentRepository(), plainHasher{})

	cases := map[string]usecase.RegisterAgentInput{
		"missing name":   {Phone: "5550001111", Password: "longenough"},
		"short phone":    {Name: "Ann", Phone: "555-1234", Password: "longenough"},
		"bad email":      {Name: "Ann", Phone: "5550001111", Email: "nope", Password: "longenough"},
		"reserved email": {Name: "Ann", Phone: "5550001111", Email: "x@auto.placeholder.local", Password: "longenough"},
		"short password": {Name: "Ann", Phone: "5550001111", Password: "short"},
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := uc.Execute(context.Background(), input)
			assert.Equal(t, usecase.CodeValidation, usecase.ErrorCode(err))
		})
	}
}
