package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/TSHgroup/hh25-backend/internal/domain"
	"github.com/TSHgroup/hh25-backend/internal/domain/model"
	"github.com/TSHgroup/hh25-backend/internal/domain/ports/repository"
)

var _ repository.ProfileRepository = (*ProfileRepo)(nil)

type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

const profileColumns = `account_id, username, display_name, avatar_url, language, bio, goals, gender, created_at, updated_at`

func (r *ProfileRepo) GetOrCreate(ctx context.Context, qx any, def *model.Profile) (*model.Profile, error) {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return nil, err
	}
	// The no-op update makes RETURNING yield the existing row on conflict.
	const q = `
INSERT INTO profiles (account_id, language, goals, gender, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (account_id) DO UPDATE SET account_id = EXCLUDED.account_id
RETURNING ` + profileColumns + `;`
	goals := def.Goals
	if goals == nil {
		goals = []string{}
	}
	row := ex.QueryRow(ctx, q, def.AccountID, def.Language, goals, string(def.Gender), def.CreatedAt, def.UpdatedAt)

	var p model.Profile
	var username sql.NullString
	var gender string
	if err := row.Scan(&p.AccountID, &username, &p.DisplayName, &p.AvatarURL, &p.Language, &p.Bio,
		&p.Goals, &gender, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	if username.Valid {
		p.Username = &username.String
	}
	p.Gender = model.Gender(gender)
	return &p, nil
}

func (r *ProfileRepo) Update(ctx context.Context, qx any, p *model.Profile) error {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	const q = `
UPDATE profiles SET username = $2, display_name = $3, avatar_url = $4, language = $5, bio = $6,
	goals = $7, gender = $8, updated_at = $9
WHERE account_id = $1;`
	var username sql.NullString
	if p.Username != nil {
		username = sql.NullString{String: *p.Username, Valid: true}
	}
	goals := p.Goals
	if goals == nil {
		goals = []string{}
	}
	tag, err := ex.Exec(ctx, q, p.AccountID, username, p.DisplayName, p.AvatarURL, p.Language, p.Bio,
		goals, string(p.Gender), p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update profile: %w", mapWriteErr(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
