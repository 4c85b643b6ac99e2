package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

const agentColumns = `id, name, phone, email, password_hash, role, active, must_reset_password, created_at, updated_at`

type AgentRepository struct {
	DB *sql.DB
}

func NewAgentRepository(db *sql.DB) *AgentRepository {
	return &AgentRepository{DB: db}
}

func (r *AgentRepository) Create(ctx context.Context, a *entity.Agent) error {
	query := `
		INSERT INTO agents (` + agentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.DB.ExecContext(ctx, query, agentArgs(a)...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return entity.ErrAgentAlreadyExists
		}
		return fmt.Errorf("insert agent: %w", err)
	}
	return nil
}

// FindOrCreateByPhone relies on the unique phone index. The no-op DO UPDATE
// makes RETURNING yield the existing row when the phone is taken.
func (r *AgentRepository) FindOrCreateByPhone(ctx context.Context, candidate *entity.Agent) (*entity.Agent, error) {
	c := *candidate
	c.Phone = entity.NormalizePhone(c.Phone)

	query := `
		INSERT INTO agents (` + agentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (phone) DO UPDATE SET phone = EXCLUDED.phone
		RETURNING ` + agentColumns

	agent, err := scanAgent(r.DB.QueryRowContext(ctx, query, agentArgs(&c)...))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("provision agent %s: %w", c.Phone, entity.ErrAgentAlreadyExists)
		}
		return nil, fmt.Errorf("provision agent %s: %w", c.Phone, err)
	}
	return agent, nil
}

func (r *AgentRepository) FindByPhone(ctx context.Context, phone string) (*entity.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE phone = $1`

	agent, err := scanAgent(r.DB.QueryRowContext(ctx, query, entity.NormalizePhone(phone)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrAgentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find agent: %w", err)
	}
	return agent, nil
}

func agentArgs(a *entity.Agent) []any {
	return []any{
		a.ID,
		a.Name,
		a.Phone,
		nullString(a.Email),
		a.PasswordHash,
		string(a.Role),
		a.Active,
		a.MustResetPassword,
		a.CreatedAt,
		a.UpdatedAt,
	}
}

func scanAgent(row *sql.Row) (*entity.Agent, error) {
	var (
		a     entity.Agent
		email sql.NullString
		role  string
	)
	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Phone,
		&email,
		&a.PasswordHash,
		&role,
		&a.Active,
		&a.MustResetPassword,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Email = email.String
	a.Role = entity.AgentRole(role)
	return &a, nil
}
