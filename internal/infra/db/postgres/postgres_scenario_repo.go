package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/TSHgroup/hh25-backend/internal/domain"
	"github.com/TSHgroup/hh25-backend/internal/domain/model"
	"github.com/TSHgroup/hh25-backend/internal/domain/ports/repository"
)

var _ repository.ScenarioRepository = (*ScenarioRepo)(nil)

type ScenarioRepo struct {
	pool     *pgxpool.Pool
	personas repository.PersonaRepository
}

func NewScenarioRepo(pool *pgxpool.Pool, personas repository.PersonaRepository) *ScenarioRepo {
	return &ScenarioRepo{pool: pool, personas: personas}
}

const scenarioColumns = `id, title, subtitle, description, category, tags, languages, public, status, created_by,
	created_at, last_updated_at, objectives, persona_id, opening_prompt, closing_prompt, ai_provider, ai_model, rounds`

func scanScenario(row pgx.Row) (*model.Scenario, error) {
	var s model.Scenario
	var category, status string
	var updated sql.NullTime
	var personaID sql.NullString
	var rounds []byte
	if err := row.Scan(&s.ID, &s.Title, &s.Subtitle, &s.Description, &category, &s.Tags, &s.Languages, &s.Public,
		&status, &s.CreatedBy, &s.CreatedAt, &updated, &s.Objectives, &personaID, &s.OpeningPrompt,
		&s.ClosingPrompt, &s.AI.Provider, &s.AI.Model, &rounds); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan scenario: %w", err)
	}
	s.Category = model.Category(category)
	s.Status = model.ScenarioStatus(status)
	s.PersonaID = personaID.String
	if updated.Valid {
		t := updated.Time
		s.LastUpdatedAt = &t
	}
	s.Rounds = []model.Round{}
	if len(rounds) > 0 {
		if err := json.Unmarshal(rounds, &s.Rounds); err != nil {
			return nil, fmt.Errorf("decode rounds: %w", err)
		}
	}
	return &s, nil
}

func (r *ScenarioRepo) Save(ctx context.Context, qx any, s *model.Scenario) error {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	rounds, err := json.Marshal(s.Rounds)
	if err != nil {
		return fmt.Errorf("encode rounds: %w", err)
	}
	var updated sql.NullTime
	if s.LastUpdatedAt != nil {
		updated = sql.NullTime{Time: *s.LastUpdatedAt, Valid: true}
	}
	const q = `
INSERT INTO scenarios (` + scenarioColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,NULLIF($14,''),$15,$16,$17,$18,$19)
ON CONFLICT (id) DO UPDATE SET
  title = EXCLUDED.title,
  subtitle = EXCLUDED.subtitle,
  description = EXCLUDED.description,
  category = EXCLUDED.category,
  tags = EXCLUDED.tags,
  languages = EXCLUDED.languages,
  public = EXCLUDED.public,
  status = EXCLUDED.status,
  last_updated_at = EXCLUDED.last_updated_at,
  objectives = EXCLUDED.objectives,
  persona_id = EXCLUDED.persona_id,
  opening_prompt = EXCLUDED.opening_prompt,
  closing_prompt = EXCLUDED.closing_prompt,
  ai_provider = EXCLUDED.ai_provider,
  ai_model = EXCLUDED.ai_model,
  rounds = EXCLUDED.rounds;`
	_, err = ex.Exec(ctx, q, s.ID, s.Title, s.Subtitle, s.Description, string(s.Category), s.Tags, s.Languages,
		s.Public, string(s.Status), s.CreatedBy, s.CreatedAt, updated, s.Objectives, s.PersonaID,
		s.OpeningPrompt, s.ClosingPrompt, s.AI.Provider, s.AI.Model, string(rounds))
	if err != nil {
		return fmt.Errorf("save scenario: %w", mapWriteErr(err))
	}
	return nil
}

func (r *ScenarioRepo) FindByID(ctx context.Context, qx any, id string) (*model.Scenario, error) {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return nil, err
	}
	s, err := scanScenario(ex.QueryRow(ctx, `SELECT `+scenarioColumns+` FROM scenarios WHERE id = $1;`, id))
	if err != nil {
		return nil, err
	}
	if s.PersonaID != "" && r.personas != nil {
		p, err := r.personas.FindByID(ctx, qx, s.PersonaID)
		switch {
		case err == nil:
			s.Persona = p
		case !errors.Is(err, domain.ErrNotFound):
			return nil, fmt.Errorf("expand persona: %w", err)
		}
	}
	return s, nil
}

func (r *ScenarioRepo) Delete(ctx context.Context, qx any, id string) error {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, `DELETE FROM scenarios WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ScenarioRepo) ListPublic(ctx context.Context, qx any, page model.PageRequest) ([]*model.Scenario, int, error) {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := ex.QueryRow(ctx, `SELECT COUNT(*) FROM scenarios WHERE public;`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count scenarios: %w", err)
	}
	rows, err := ex.Query(ctx, `SELECT `+scenarioColumns+` FROM scenarios WHERE public ORDER BY created_at, id OFFSET $1 LIMIT $2;`,
		page.Offset(), page.Limit)
	if err != nil {
		return nil, 0, err
	}
	out, err := collectScenarios(rows)
	return out, total, err
}

func (r *ScenarioRepo) ListByOwner(ctx context.Context, qx any, ownerID string, publicOnly bool) ([]*model.Scenario, error) {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, `SELECT `+scenarioColumns+` FROM scenarios WHERE created_by = $1 AND (public OR NOT $2) ORDER BY created_at, id;`,
		ownerID, publicOnly)
	if err != nil {
		return nil, err
	}
	return collectScenarios(rows)
}

func collectScenarios(rows pgx.Rows) ([]*model.Scenario, error) {
	defer rows.Close()
	out := make([]*model.Scenario, 0)
	for rows.Next() {
		s, err := scanScenario(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
