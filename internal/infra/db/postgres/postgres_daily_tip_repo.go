package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/TSHgroup/hh25-backend/internal/domain"
	"github.com/TSHgroup/hh25-backend/internal/domain/ports/repository"
)

var _ repository.DailyTipRepository = (*DailyTipRepo)(nil)

type DailyTipRepo struct {
	pool *pgxpool.Pool
}

func NewDailyTipRepo(pool *pgxpool.Pool) *DailyTipRepo {
	return &DailyTipRepo{pool: pool}
}

func (r *DailyTipRepo) Count(ctx context.Context, qx any) (int, error) {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return 0, err
	}
	var n int
	err = ex.QueryRow(ctx, `SELECT COUNT(*) FROM daily_tips;`).Scan(&n)
	return n, err
}

func (r *DailyTipRepo) At(ctx context.Context, qx any, offset int) (string, error) {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return "", err
	}
	var tip string
	err = ex.QueryRow(ctx, `SELECT tip FROM daily_tips ORDER BY id OFFSET $1 LIMIT 1;`, offset).Scan(&tip)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	return tip, err
}

// Add appends a tip; used by the seed command.
func (r *DailyTipRepo) Add(ctx context.Context, qx any, tip string) error {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, `INSERT INTO daily_tips (tip) VALUES ($1);`, tip)
	return err
}
