package sched

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/TSHgroup/hh25-backend/internal/infra/metrics"
)

// PoolStats samples the connection pool into the db_pool_stats gauge.
type PoolStats struct {
	stat func() (total, idle, inUse int32)
}

func NewPoolStats(pool *pgxpool.Pool) *PoolStats {
	return &PoolStats{stat: func() (int32, int32, int32) {
		s := pool.Stat()
		return s.TotalConns(), s.IdleConns(), s.AcquiredConns()
	}}
}

func (p *PoolStats) Name() string { return "db_pool_stats" }

func (p *PoolStats) Run(_ context.Context) (int, error) {
	total, idle, inUse := p.stat()
	metrics.SetDBPoolStats(total, idle, inUse)
	return int(total), nil
}
