package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/TSHgroup/hh25-backend/internal/domain"
	"github.com/TSHgroup/hh25-backend/internal/domain/model"
	"github.com/TSHgroup/hh25-backend/internal/domain/ports/repository"
)

var _ repository.VerificationRepository = (*VerificationRepo)(nil)

type VerificationRepo struct {
	pool *pgxpool.Pool
}

func NewVerificationRepo(pool *pgxpool.Pool) *VerificationRepo {
	return &VerificationRepo{pool: pool}
}

func (r *VerificationRepo) Create(ctx context.Context, qx any, v *model.VerificationRequest) error {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	const q = `INSERT INTO verification_requests (id, account_id, token_hash, code, expires_at) VALUES ($1,$2,$3,$4,$5);`
	if _, err := ex.Exec(ctx, q, v.ID, v.AccountID, v.TokenHash, v.Code, v.ExpiresAt); err != nil {
		return fmt.Errorf("create verification: %w", mapWriteErr(err))
	}
	return nil
}

func (r *VerificationRepo) DeleteByAccount(ctx context.Context, qx any, accountID string) error {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, `DELETE FROM verification_requests WHERE account_id = $1;`, accountID)
	return err
}

func (r *VerificationRepo) FindValidByTokenHash(ctx context.Context, qx any, tokenHash string, now time.Time) (*model.VerificationRequest, error) {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return nil, err
	}
	const q = `
SELECT id, account_id, token_hash, code, expires_at
FROM verification_requests WHERE token_hash = $1 AND expires_at > $2;`
	var v model.VerificationRequest
	if err := ex.QueryRow(ctx, q, tokenHash, now).Scan(&v.ID, &v.AccountID, &v.TokenHash, &v.Code, &v.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan verification: %w", err)
	}
	return &v, nil
}

func (r *VerificationRepo) Delete(ctx context.Context, qx any, id string) error {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, `DELETE FROM verification_requests WHERE id = $1;`, id)
	return err
}

func (r *VerificationRepo) DeleteExpired(ctx context.Context, qx any, now time.Time) (int64, error) {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return 0, err
	}
	tag, err := ex.Exec(ctx, `DELETE FROM verification_requests WHERE expires_at <= $1;`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
