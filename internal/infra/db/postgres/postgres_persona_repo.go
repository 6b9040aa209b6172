package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/TSHgroup/hh25-backend/internal/domain"
	"github.com/TSHgroup/hh25-backend/internal/domain/model"
	"github.com/TSHgroup/hh25-backend/internal/domain/ports/repository"
)

var _ repository.PersonaRepository = (*PersonaRepo)(nil)

type PersonaRepo struct {
	pool *pgxpool.Pool
}

func NewPersonaRepo(pool *pgxpool.Pool) *PersonaRepo {
	return &PersonaRepo{pool: pool}
}

const personaColumns = `id, created_by, name, role, personality, voice, response_style, informations,
	emotion_baseline, emotion_adapt, max_response_tokens, public, created_at, updated_at`

func scanPersona(row pgx.Row) (*model.Persona, error) {
	var p model.Persona
	if err := row.Scan(&p.ID, &p.CreatedBy, &p.Name, &p.Role, &p.Personality, &p.Voice, &p.ResponseStyle,
		&p.Informations, &p.EmotionModel.Baseline, &p.EmotionModel.Adapt, &p.MaxResponseTokens, &p.Public,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan persona: %w", err)
	}
	return &p, nil
}

func (r *PersonaRepo) Save(ctx context.Context, qx any, p *model.Persona) error {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO personas (` + personaColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (id) DO UPDATE SET
  name = EXCLUDED.name,
  role = EXCLUDED.role,
  personality = EXCLUDED.personality,
  voice = EXCLUDED.voice,
  response_style = EXCLUDED.response_style,
  informations = EXCLUDED.informations,
  emotion_baseline = EXCLUDED.emotion_baseline,
  emotion_adapt = EXCLUDED.emotion_adapt,
  max_response_tokens = EXCLUDED.max_response_tokens,
  public = EXCLUDED.public,
  updated_at = EXCLUDED.updated_at;`
	_, err = ex.Exec(ctx, q, p.ID, p.CreatedBy, p.Name, p.Role, p.Personality, p.Voice, p.ResponseStyle,
		p.Informations, p.EmotionModel.Baseline, p.EmotionModel.Adapt, p.MaxResponseTokens, p.Public,
		p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save persona: %w", mapWriteErr(err))
	}
	return nil
}

func (r *PersonaRepo) FindByID(ctx context.Context, qx any, id string) (*model.Persona, error) {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return nil, err
	}
	return scanPersona(ex.QueryRow(ctx, `SELECT `+personaColumns+` FROM personas WHERE id = $1;`, id))
}

func (r *PersonaRepo) Delete(ctx context.Context, qx any, id string) error {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, `DELETE FROM personas WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PersonaRepo) ListPublic(ctx context.Context, qx any, page model.PageRequest) ([]*model.Persona, int, error) {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := ex.QueryRow(ctx, `SELECT COUNT(*) FROM personas WHERE public;`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count personas: %w", err)
	}
	rows, err := ex.Query(ctx, `SELECT `+personaColumns+` FROM personas WHERE public ORDER BY created_at, id OFFSET $1 LIMIT $2;`,
		page.Offset(), page.Limit)
	if err != nil {
		return nil, 0, err
	}
	out, err := collectPersonas(rows)
	return out, total, err
}

func (r *PersonaRepo) ListByOwner(ctx context.Context, qx any, ownerID string, publicOnly bool) ([]*model.Persona, error) {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, `SELECT `+personaColumns+` FROM personas WHERE created_by = $1 AND (public OR NOT $2) ORDER BY created_at, id;`,
		ownerID, publicOnly)
	if err != nil {
		return nil, err
	}
	return collectPersonas(rows)
}

func collectPersonas(rows pgx.Rows) ([]*model.Persona, error) {
	defer rows.Close()
	out := make([]*model.Persona, 0)
	for rows.Next() {
		p, err := scanPersona(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
