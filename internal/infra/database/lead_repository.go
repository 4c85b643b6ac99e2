package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

const leadColumns = `id, agent_id, name, email, phone, status, source, notes, follow_ups, created_at, updated_at`

type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

// Create inserts the lead together with any follow-ups it already carries.
func (r *LeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	notes, err := json.Marshal(nonNilNotes(lead.Notes))
	if err != nil {
		return fmt.Errorf("encode notes: %w", err)
	}
	followUps, err := json.Marshal(nonNilFollowUps(lead.FollowUps))
	if err != nil {
		return fmt.Errorf("encode follow-ups: %w", err)
	}

	query := `
		INSERT INTO leads (` + leadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9::jsonb, $10, $11)
	`
	_, err = r.DB.ExecContext(ctx, query,
		lead.ID,
		lead.AgentID,
		lead.Name,
		lead.Email,
		lead.Phone,
		string(lead.Status),
		lead.Source,
		string(notes),
		string(followUps),
		lead.CreatedAt,
		lead.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

// FindMany matches name and email as case-insensitive substrings and phone by
// digits only, so "555-123-4567" and "5551234567" find each other.
func (r *LeadRepository) FindMany(ctx context.Context, q entity.LeadQuery) ([]*entity.Lead, error) {
	var (
		where = []string{"agent_id = $1"}
		args  = []any{q.AgentID}
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, strings.ReplaceAll(clause, "?", fmt.Sprintf("$%d", len(args))))
	}

	if q.ID != "" {
		add("id = ?", strings.ToLower(q.ID))
	}
	if q.Email != "" {
		add(`email ILIKE '%' || ? || '%' ESCAPE '\'`, escapeLike(q.Email))
	}
	if q.PhoneDigits != "" {
		add(`regexp_replace(phone, '\D', '', 'g') LIKE '%' || ? || '%'`, q.PhoneDigits)
	}
	if q.NameContains != "" {
		add(`name ILIKE '%' || ? || '%' ESCAPE '\'`, escapeLike(q.NameContains))
	}
	if q.Status != "" {
		add("status = ?", string(q.Status))
	}

	query := `SELECT ` + leadColumns + ` FROM leads WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at DESC, id DESC`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query leads: %w", err)
	}
	defer rows.Close()

	var leads []*entity.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// Update applies patch in one statement. Follow-ups and notes are appended to
// the JSONB arrays, never replaced.
func (r *LeadRepository) Update(ctx context.Context, agentID, leadID string, patch entity.LeadPatch) (*entity.Lead, error) {
	var status *string
	if patch.Status != nil {
		s := string(*patch.Status)
		status = &s
	}

	followUp, err := appendArg(patch.AppendFollowUp)
	if err != nil {
		return nil, fmt.Errorf("encode follow-up: %w", err)
	}
	note, err := appendArg(patch.AppendNote)
	if err != nil {
		return nil, fmt.Errorf("encode note: %w", err)
	}

	query := `
		UPDATE leads SET
			status     = COALESCE($3, status),
			email      = COALESCE($4, email),
			phone      = COALESCE($5, phone),
			follow_ups = COALESCE(follow_ups || $6::jsonb, follow_ups),
			notes      = COALESCE(notes || $7::jsonb, notes),
			updated_at = $8
		WHERE id = $1 AND agent_id = $2
		RETURNING ` + leadColumns

	row := r.DB.QueryRowContext(ctx, query,
		leadID,
		agentID,
		status,
		patch.Email,
		patch.Phone,
		followUp,
		note,
		time.Now(),
	)

	lead, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return lead, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(s rowScanner) (*entity.Lead, error) {
	var (
		l         entity.Lead
		status    string
		notes     []byte
		followUps []byte
	)
	err := s.Scan(
		&l.ID,
		&l.AgentID,
		&l.Name,
		&l.Email,
		&l.Phone,
		&status,
		&l.Source,
		&notes,
		&followUps,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan lead: %w", err)
	}

	l.ID = strings.TrimSpace(l.ID)
	l.Status = entity.LeadStatus(status)
	if err := json.Unmarshal(notes, &l.Notes); err != nil {
		return nil, fmt.Errorf("decode notes of lead %s: %w", l.ID, err)
	}
	if err := json.Unmarshal(followUps, &l.FollowUps); err != nil {
		return nil, fmt.Errorf("decode follow-ups of lead %s: %w", l.ID, err)
	}
	return &l, nil
}

// appendArg encodes v as a one-element JSON array, or nil for SQL NULL.
func appendArg[T any](v *T) (*string, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal([]T{*v})
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func nonNilNotes(n []entity.Note) []entity.Note {
	if n == nil {
		return []entity.Note{}
	}
	return n
}

func nonNilFollowUps(f []entity.FollowUp) []entity.FollowUp {
	if f == nil {
		return []entity.FollowUp{}
	}
	return f
}
