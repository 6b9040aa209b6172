package ai

import (
	"context"
	"errors"

	"github.com/TSHgroup/hh25-backend/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.AIServiceAdapter = (*limitedAI)(nil)

type limitedAI struct {
	inner   adapter.AIServiceAdapter
	sem     chan struct{}
	retries int
}

// NewLimitedAI bounds concurrent chat calls and retries failed ones up to retries times.
// Context cancellation is never retried.
func NewLimitedAI(inner adapter.AIServiceAdapter, maxConcurrent, retries int) adapter.AIServiceAdapter {
	if maxConcurrent <= 0 && retries <= 0 {
		return inner
	}
	l := &limitedAI{inner: inner, retries: retries}
	if maxConcurrent > 0 {
		l.sem = make(chan struct{}, maxConcurrent)
	}
	return l
}

func (l *limitedAI) acquire(ctx context.Context) error {
	if l.sem == nil {
		return nil
	}
	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *limitedAI) release() {
	if l.sem != nil {
		<-l.sem
	}
}

func (l *limitedAI) ChatWithUsage(ctx context.Context, req adapter.ChatRequest) (string, adapter.Usage, error) {
	if err := l.acquire(ctx); err != nil {
		return "", adapter.Usage{}, err
	}
	defer l.release()

	var (
		reply string
		usage adapter.Usage
		err   error
	)
	for attempt := 0; attempt <= l.retries; attempt++ {
		reply, usage, err = l.inner.ChatWithUsage(ctx, req)
		if err == nil || ctx.Err() != nil || errors.Is(err, context.Canceled) {
			break
		}
	}
	return reply, usage, err
}
