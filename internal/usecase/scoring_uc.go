package usecase

import (
	"context"
	"fmt"

	"github.com/TSHgroup/hh25-backend/internal/domain/model"
	"github.com/TSHgroup/hh25-backend/internal/domain/ports/adapter"
	"github.com/TSHgroup/hh25-backend/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Scoring assesses one user utterance. It never fails: any upstream or parse
// problem yields the neutral score as a degraded outcome.
type Scoring struct {
	scorer adapter.Scorer
	rubric string
	log    *zerolog.Logger
}

func NewScoring(scorer adapter.Scorer, rubric string, logger *zerolog.Logger) *Scoring {
	return &Scoring{scorer: scorer, rubric: rubric, log: logger}
}

// Score prefers the audio reference when one is given.
func (s *Scoring) Score(ctx context.Context, text string, audio *adapter.FileRef) model.Outcome[model.Score] {
	if text == "" && audio == nil {
		return s.degraded(fmt.Errorf("nothing to score"))
	}
	raw, err := s.scorer.Score(ctx, adapter.ScoreRequest{Text: text, Audio: audio, Rubric: s.rubric})
	if err != nil {
		return s.degraded(fmt.Errorf("score: %w", err))
	}
	sc, err := model.ParseScore(raw)
	if err != nil {
		return s.degraded(err)
	}
	return model.Ok(sc)
}

func (s *Scoring) degraded(cause error) model.Outcome[model.Score] {
	metrics.IncDegraded("score")
	s.log.Warn().Err(cause).Msg("scoring degraded to neutral")
	return model.Degraded(model.DefaultScore(), cause)
}
