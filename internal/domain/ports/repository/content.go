package repository

import (
	"context"

	"github.com/TSHgroup/hh25-backend/internal/domain/model"
)

type PersonaRepository interface {
	Save(ctx context.Context, qx any, p *model.Persona) error
	FindByID(ctx context.Context, qx any, id string) (*model.Persona, error)
	Delete(ctx context.Context, qx any, id string) error
	ListPublic(ctx context.Context, qx any, page model.PageRequest) ([]*model.Persona, int, error)
	ListByOwner(ctx context.Context, qx any, ownerID string, publicOnly bool) ([]*model.Persona, error)
}

type ScenarioRepository interface {
	Save(ctx context.Context, qx any, s *model.Scenario) error
	// FindByID expands the persona reference when it resolves.
	FindByID(ctx context.Context, qx any, id string) (*model.Scenario, error)
	Delete(ctx context.Context, qx any, id string) error
	ListPublic(ctx context.Context, qx any, page model.PageRequest) ([]*model.Scenario, int, error)
	ListByOwner(ctx context.Context, qx any, ownerID string, publicOnly bool) ([]*model.Scenario, error)
}

type DailyTipRepository interface {
	Count(ctx context.Context, qx any) (int, error)
	At(ctx context.Context, qx any, offset int) (string, error)
}
