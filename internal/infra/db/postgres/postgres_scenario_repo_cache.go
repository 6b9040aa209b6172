package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/TSHgroup/hh25-backend/internal/domain/model"
	"github.com/TSHgroup/hh25-backend/internal/domain/ports/repository"
	"github.com/TSHgroup/hh25-backend/internal/infra/metrics"
	red "github.com/TSHgroup/hh25-backend/internal/infra/redis"
)

var _ repository.ScenarioRepository = (*scenarioRepoCacheDecorator)(nil)

// Scenario.Persona is not part of the public JSON shape, so the cached value carries it alongside.
type cachedScenario struct {
	Scenario *model.Scenario `json:"scenario"`
	Persona  *model.Persona  `json:"persona,omitempty"`
}

type scenarioRepoCacheDecorator struct {
	inner repository.ScenarioRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewScenarioRepoCacheDecorator(inner repository.ScenarioRepository, cache red.RedisClient, ttl time.Duration, log *zerolog.Logger) repository.ScenarioRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	l := log.With().Str("component", "scenarioCache").Logger()
	return &scenarioRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: &l}
}

func scenarioKey(id string) string { return fmt.Sprintf("scenario:%s", id) }

// FindByID serves from cache only outside a transaction.
func (d *scenarioRepoCacheDecorator) FindByID(ctx context.Context, qx any, id string) (*model.Scenario, error) {
	if qx != nil {
		return d.inner.FindByID(ctx, qx, id)
	}
	key := scenarioKey(id)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var env cachedScenario
		if json.Unmarshal([]byte(val), &env) == nil && env.Scenario != nil {
			metrics.IncCacheRequest("scenario", "hit")
			env.Scenario.Persona = env.Persona
			return env.Scenario, nil
		}
	} else if !errors.Is(err, red.Nil) {
		d.log.Warn().Err(err).Str("key", key).Msg("cache get failed")
	}

	metrics.IncCacheRequest("scenario", "miss")
	s, err := d.inner.FindByID(ctx, qx, id)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(cachedScenario{Scenario: s, Persona: s.Persona}); err == nil {
		if err := d.cache.Set(ctx, key, b, d.ttl); err != nil {
			d.log.Warn().Err(err).Str("key", key).Msg("cache set failed")
		}
	}
	return s, nil
}

func (d *scenarioRepoCacheDecorator) Save(ctx context.Context, qx any, s *model.Scenario) error {
	if err := d.inner.Save(ctx, qx, s); err != nil {
		return err
	}
	d.invalidate(ctx, s.ID)
	return nil
}

func (d *scenarioRepoCacheDecorator) Delete(ctx context.Context, qx any, id string) error {
	if err := d.inner.Delete(ctx, qx, id); err != nil {
		return err
	}
	d.invalidate(ctx, id)
	return nil
}

func (d *scenarioRepoCacheDecorator) ListPublic(ctx context.Context, qx any, page model.PageRequest) ([]*model.Scenario, int, error) {
	return d.inner.ListPublic(ctx, qx, page)
}

func (d *scenarioRepoCacheDecorator) ListByOwner(ctx context.Context, qx any, ownerID string, publicOnly bool) ([]*model.Scenario, error) {
	return d.inner.ListByOwner(ctx, qx, ownerID, publicOnly)
}

func (d *scenarioRepoCacheDecorator) invalidate(ctx context.Context, id string) {
	if err := d.cache.Del(ctx, scenarioKey(id)); err != nil {
		d.log.Warn().Err(err).Str("scenario_id", id).Msg("cache invalidate failed")
	}
}
