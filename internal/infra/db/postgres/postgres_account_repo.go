package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/TSHgroup/hh25-backend/internal/domain"
	"github.com/TSHgroup/hh25-backend/internal/domain/model"
	"github.com/TSHgroup/hh25-backend/internal/domain/ports/repository"
)

var _ repository.AccountRepository = (*AccountRepo)(nil)

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

const accountColumns = `id, email, given_name, family_name, password_hash, email_verified, google_id, ips, created_at, updated_at`

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	var googleID sql.NullString
	if err := row.Scan(&a.ID, &a.Email, &a.Name.GivenName, &a.Name.FamilyName, &a.PasswordHash,
		&a.EmailVerified, &googleID, &a.IPs, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	a.GoogleID = googleID.String
	return &a, nil
}

func (r *AccountRepo) Create(ctx context.Context, qx any, a *model.Account) error {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO accounts (id, email, given_name, family_name, password_hash, email_verified, google_id, ips, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7,''),$8,$9,$10);`
	ips := a.IPs
	if ips == nil {
		ips = []string{}
	}
	_, err = ex.Exec(ctx, q, a.ID, a.Email, a.Name.GivenName, a.Name.FamilyName, a.PasswordHash,
		a.EmailVerified, a.GoogleID, ips, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create account: %w", mapWriteErr(err))
	}
	return nil
}

func (r *AccountRepo) FindByID(ctx context.Context, qx any, id string) (*model.Account, error) {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return nil, err
	}
	return scanAccount(ex.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1;`, id))
}

func (r *AccountRepo) FindByEmail(ctx context.Context, qx any, email string) (*model.Account, error) {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return nil, err
	}
	return scanAccount(ex.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email=$1;`, model.NormalizeEmail(email)))
}

func (r *AccountRepo) UpsertGoogle(ctx context.Context, qx any, email, googleID string, name model.Name) (*model.Account, error) {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return nil, err
	}
	// Name is only set on insert; an existing account keeps its own.
	const q = `
INSERT INTO accounts (id, email, given_name, family_name, google_id, email_verified)
VALUES ($1,$2,$3,$4,$5,TRUE)
ON CONFLICT (email) DO UPDATE SET google_id = EXCLUDED.google_id, updated_at = NOW()
RETURNING ` + accountColumns + `;`
	return scanAccount(ex.QueryRow(ctx, q, model.NewID(), model.NormalizeEmail(email), name.GivenName, name.FamilyName, googleID))
}

func (r *AccountRepo) AddIP(ctx context.Context, qx any, id, ip string) error {
	if ip == "" {
		return nil
	}
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	const q = `
UPDATE accounts SET ips = array_append(ips, $2), updated_at = NOW()
WHERE id = $1 AND NOT ($2 = ANY(ips));`
	_, err = ex.Exec(ctx, q, id, ip)
	return err
}

func (r *AccountRepo) MarkEmailVerified(ctx context.Context, qx any, id string) error {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, `UPDATE accounts SET email_verified = TRUE, updated_at = NOW() WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *AccountRepo) AddRefreshToken(ctx context.Context, qx any, accountID, tokenHash string, expiresAt time.Time) error {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO refresh_tokens (account_id, token_hash, expires_at) VALUES ($1,$2,$3)
ON CONFLICT (account_id, token_hash) DO NOTHING;`
	_, err = ex.Exec(ctx, q, accountID, tokenHash, expiresAt)
	return err
}

func (r *AccountRepo) ConsumeRefreshToken(ctx context.Context, qx any, accountID, tokenHash string) (bool, error) {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return false, err
	}
	tag, err := ex.Exec(ctx, `DELETE FROM refresh_tokens WHERE account_id = $1 AND token_hash = $2 AND expires_at > NOW();`, accountID, tokenHash)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
