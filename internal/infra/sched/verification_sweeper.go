package sched

import (
	"context"
	"time"

	"github.com/TSHgroup/hh25-backend/internal/domain/ports/repository"
	"github.com/TSHgroup/hh25-backend/internal/infra/metrics"
)

// VerificationSweeper deletes expired email verification requests.
type VerificationSweeper struct {
	repo repository.VerificationRepository
	now  func() time.Time
}

func NewVerificationSweeper(repo repository.VerificationRepository) *VerificationSweeper {
	return &VerificationSweeper{repo: repo, now: time.Now}
}

func (w *VerificationSweeper) Name() string { return "verification_sweep" }

func (w *VerificationSweeper) Run(ctx context.Context) (int, error) {
	n, err := w.repo.DeleteExpired(ctx, nil, w.now().UTC())
	if err != nil {
		metrics.IncJob(w.Name(), "failed")
		return 0, err
	}
	metrics.IncJob(w.Name(), "completed")
	return int(n), nil
}
