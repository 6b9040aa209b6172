package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/TSHgroup/hh25-backend/internal/domain"
	"github.com/TSHgroup/hh25-backend/internal/domain/model"
	"github.com/TSHgroup/hh25-backend/internal/domain/ports/repository"
	"github.com/TSHgroup/hh25-backend/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ AnalyticsUseCase = (*analyticsUC)(nil)

const DefaultSpan = "7d"

type AnalyticsUseCase interface {
	// Report compares the window [now-span, now) against the one before it.
	Report(ctx context.Context, userID, span string) (*model.AnalyticsReport, error)
}

type analyticsUC struct {
	conversations repository.ConversationRepository
	log           *zerolog.Logger
	now           func() time.Time
}

func NewAnalyticsUseCase(conversations repository.ConversationRepository, logger *zerolog.Logger) *analyticsUC {
	return &analyticsUC{conversations: conversations, log: logger, now: time.Now}
}

func (a *analyticsUC) Report(ctx context.Context, userID, span string) (*model.AnalyticsReport, error) {
	defer logging.TraceDuration(a.log, "AnalyticsUC.Report")()

	if span == "" {
		span = DefaultSpan
	}
	window, err := ParseSpan(span)
	if err != nil {
		return nil, err
	}

	now := a.now().UTC()
	from := now.Add(-window)
	before := from.Add(-window)

	current, err := a.conversations.ListByUserBetween(ctx, repository.NoTX, userID, from, now.Add(time.Second))
	if err != nil {
		return nil, err
	}
	previous, err := a.conversations.ListByUserBetween(ctx, repository.NoTX, userID, before, from)
	if err != nil {
		return nil, err
	}
	times, err := a.conversations.CreatedTimes(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}

	cur := model.Analyze(current)
	return &model.AnalyticsReport{
		Trends:        model.CalculateTrends(model.Analyze(previous), cur),
		CurrentStreak: model.Streak(times, now),
		Analytics:     cur,
	}, nil
}

var spanPattern = regexp.MustCompile(`^(\d+)(ms|s|m|h|d|w|y)$`)

var spanUnits = map[string]time.Duration{
	"ms": time.Millisecond,
	"s":  time.Second,
	"m":  time.Minute,
	"h":  time.Hour,
	"d":  24 * time.Hour,
	"w":  7 * 24 * time.Hour,
	"y":  time.Duration(365.25 * float64(24*time.Hour)),
}

// ParseSpan reads a compact duration such as "30d" or "12h".
func ParseSpan(s string) (time.Duration, error) {
	m := spanPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid time span %q: %w", s, domain.ErrInvalidArgument)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid time span %q: %w", s, domain.ErrInvalidArgument)
	}
	unit := spanUnits[m[2]]
	if n > int64(1<<62)/int64(unit) {
		return 0, fmt.Errorf("time span %q too large: %w", s, domain.ErrInvalidArgument)
	}
	return time.Duration(n) * unit, nil
}

// ---- Daily tips ----

type TipUseCase interface {
	// Today returns the tip of the current UTC day; domain.ErrNotFound when none exist.
	Today(ctx context.Context) (string, error)
}

type tipUC struct {
	tips repository.DailyTipRepository
	now  func() time.Time
}

func NewTipUseCase(tips repository.DailyTipRepository) *tipUC {
	return &tipUC{tips: tips, now: time.Now}
}

func (t *tipUC) Today(ctx context.Context) (string, error) {
	total, err := t.tips.Count(ctx, repository.NoTX)
	if err != nil {
		return "", err
	}
	if total == 0 {
		return "", domain.ErrNotFound
	}
	return t.tips.At(ctx, repository.NoTX, t.now().UTC().YearDay()%total)
}
