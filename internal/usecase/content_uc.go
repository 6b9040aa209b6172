package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/TSHgroup/hh25-backend/internal/domain"
	"github.com/TSHgroup/hh25-backend/internal/domain/model"
	"github.com/TSHgroup/hh25-backend/internal/domain/ports/repository"
	"github.com/TSHgroup/hh25-backend/internal/infra/logging"

	"github.com/rs/zerolog"
)

// owned is implemented by author-owned documents.
type owned interface {
	OwnerID() string
	IsPublic() bool
}

func canRead(o owned, callerID string) error {
	if !o.IsPublic() && o.OwnerID() != callerID {
		return domain.ErrPrivate
	}
	return nil
}

func canWrite(o owned, callerID string) error {
	if o.OwnerID() != callerID {
		return domain.ErrForbidden
	}
	return nil
}

// ---- Personas ----

// Compile-time check
var _ PersonaUseCase = (*personaUC)(nil)

type PersonaUseCase interface {
	ListPublic(ctx context.Context, page model.PageRequest) (model.Page[*model.Persona], error)
	Create(ctx context.Context, callerID string, in model.PersonaInput) (*model.Persona, error)
	Get(ctx context.Context, callerID, id string) (*model.Persona, error)
	Update(ctx context.Context, callerID, id string, in model.PersonaInput) (*model.Persona, error)
	SetPublic(ctx context.Context, callerID, id string, public bool) (*model.Persona, error)
	Delete(ctx context.Context, callerID, id string) (*model.Persona, error)
	// ListByOwner returns every persona of the owner, or only the public ones for other callers.
	ListByOwner(ctx context.Context, callerID, ownerID string) ([]*model.Persona, error)
}

type VoiceCatalog interface {
	IsVoice(name string) bool
}

type personaUC struct {
	personas repository.PersonaRepository
	voices   VoiceCatalog
	log      *zerolog.Logger
}

func NewPersonaUseCase(personas repository.PersonaRepository, voices VoiceCatalog, logger *zerolog.Logger) *personaUC {
	return &personaUC{personas: personas, voices: voices, log: logger}
}

func (p *personaUC) ListPublic(ctx context.Context, page model.PageRequest) (model.Page[*model.Persona], error) {
	defer logging.TraceDuration(p.log, "PersonaUC.ListPublic")()
	items, total, err := p.personas.ListPublic(ctx, repository.NoTX, page)
	if err != nil {
		return model.Page[*model.Persona]{}, err
	}
	return model.NewPage(items, page, total), nil
}

func (p *personaUC) validate(in model.PersonaInput) error {
	if in.Voice != "" && !p.voices.IsVoice(in.Voice) {
		return fmt.Errorf("unknown voice %q: %w", in.Voice, domain.ErrInvalidArgument)
	}
	return nil
}

func (p *personaUC) Create(ctx context.Context, callerID string, in model.PersonaInput) (*model.Persona, error) {
	defer logging.TraceDuration(p.log, "PersonaUC.Create")()
	if err := p.validate(in); err != nil {
		return nil, err
	}
	persona, err := model.NewPersona(callerID, in)
	if err != nil {
		return nil, err
	}
	if err := p.personas.Save(ctx, repository.NoTX, persona); err != nil {
		return nil, err
	}
	return persona, nil
}

func (p *personaUC) Get(ctx context.Context, callerID, id string) (*model.Persona, error) {
	persona, err := p.personas.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	if err := canRead(persona, callerID); err != nil {
		return nil, err
	}
	return persona, nil
}

// owned loads the persona and checks the caller may modify it.
func (p *personaUC) owned(ctx context.Context, callerID, id string) (*model.Persona, error) {
	persona, err := p.personas.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	if err := canWrite(persona, callerID); err != nil {
		return nil, err
	}
	return persona, nil
}

func (p *personaUC) Update(ctx context.Context, callerID, id string, in model.PersonaInput) (*model.Persona, error) {
	defer logging.TraceDuration(p.log, "PersonaUC.Update")()
	if err := p.validate(in); err != nil {
		return nil, err
	}
	persona, err := p.owned(ctx, callerID, id)
	if err != nil {
		return nil, err
	}
	persona.Apply(in)
	if err := p.personas.Save(ctx, repository.NoTX, persona); err != nil {
		return nil, err
	}
	return persona, nil
}

func (p *personaUC) SetPublic(ctx context.Context, callerID, id string, public bool) (*model.Persona, error) {
	persona, err := p.owned(ctx, callerID, id)
	if err != nil {
		return nil, err
	}
	persona.Public = public
	if err := p.personas.Save(ctx, repository.NoTX, persona); err != nil {
		return nil, err
	}
	return persona, nil
}

func (p *personaUC) Delete(ctx context.Context, callerID, id string) (*model.Persona, error) {
	persona, err := p.owned(ctx, callerID, id)
	if err != nil {
		return nil, err
	}
	if err := p.personas.Delete(ctx, repository.NoTX, id); err != nil {
		return nil, err
	}
	return persona, nil
}

func (p *personaUC) ListByOwner(ctx context.Context, callerID, ownerID string) ([]*model.Persona, error) {
	return p.personas.ListByOwner(ctx, repository.NoTX, ownerID, callerID != ownerID)
}

// ---- Scenarios ----

// Compile-time check
var _ ScenarioUseCase = (*scenarioUC)(nil)

type ScenarioUseCase interface {
	ListPublic(ctx context.Context, page model.PageRequest) (model.Page[*model.Scenario], error)
	Create(ctx context.Context, callerID string, in model.ScenarioInput) (*model.Scenario, error)
	Get(ctx context.Context, callerID, id string) (*model.Scenario, error)
	Update(ctx context.Context, callerID, id string, in model.ScenarioInput) (*model.Scenario, error)
	SetPublic(ctx context.Context, callerID, id string, public bool) (*model.Scenario, error)
	Delete(ctx context.Context, callerID, id string) (*model.Scenario, error)
	ListByOwner(ctx context.Context, callerID, ownerID string) ([]*model.Scenario, error)
}

type ScenarioCatalog interface {
	LanguageCatalog
	IsProvider(p string) bool
	IsModel(provider, model string) bool
}

type scenarioUC struct {
	scenarios repository.ScenarioRepository
	personas  repository.PersonaRepository
	catalog   ScenarioCatalog
	log       *zerolog.Logger
}

func NewScenarioUseCase(scenarios repository.ScenarioRepository, personas repository.PersonaRepository, catalog ScenarioCatalog, logger *zerolog.Logger) *scenarioUC {
	return &scenarioUC{scenarios: scenarios, personas: personas, catalog: catalog, log: logger}
}

func (s *scenarioUC) ListPublic(ctx context.Context, page model.PageRequest) (model.Page[*model.Scenario], error) {
	defer logging.TraceDuration(s.log, "ScenarioUC.ListPublic")()
	items, total, err := s.scenarios.ListPublic(ctx, repository.NoTX, page)
	if err != nil {
		return model.Page[*model.Scenario]{}, err
	}
	return model.NewPage(items, page, total), nil
}

// validate checks the catalog-backed fields and that the persona is usable by the caller.
func (s *scenarioUC) validate(ctx context.Context, callerID string, in model.ScenarioInput) error {
	if !s.catalog.IsProvider(in.AI.Provider) || !s.catalog.IsModel(in.AI.Provider, in.AI.Model) {
		return domain.ErrInvalidModel
	}
	for _, code := range in.Languages {
		if !s.catalog.IsLanguage(code) {
			return fmt.Errorf("unknown language %q: %w", code, domain.ErrInvalidArgument)
		}
	}
	if in.PersonaID == "" {
		return nil
	}
	persona, err := s.personas.FindByID(ctx, repository.NoTX, in.PersonaID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrInvalidPersona
		}
		return err
	}
	if canRead(persona, callerID) != nil {
		return domain.ErrInvalidPersona
	}
	return nil
}

func (s *scenarioUC) Create(ctx context.Context, callerID string, in model.ScenarioInput) (*model.Scenario, error) {
	defer logging.TraceDuration(s.log, "ScenarioUC.Create")()
	if err := s.validate(ctx, callerID, in); err != nil {
		return nil, err
	}
	sc, err := model.NewScenario(callerID, in)
	if err != nil {
		return nil, err
	}
	if err := s.scenarios.Save(ctx, repository.NoTX, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

func (s *scenarioUC) Get(ctx context.Context, callerID, id string) (*model.Scenario, error) {
	sc, err := s.scenarios.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	if err := canRead(sc, callerID); err != nil {
		return nil, err
	}
	return sc, nil
}

func (s *scenarioUC) owned(ctx context.Context, callerID, id string) (*model.Scenario, error) {
	sc, err := s.scenarios.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	if err := canWrite(sc, callerID); err != nil {
		return nil, err
	}
	return sc, nil
}

func (s *scenarioUC) Update(ctx context.Context, callerID, id string, in model.ScenarioInput) (*model.Scenario, error) {
	defer logging.TraceDuration(s.log, "ScenarioUC.Update")()
	if err := s.validate(ctx, callerID, in); err != nil {
		return nil, err
	}
	sc, err := s.owned(ctx, callerID, id)
	if err != nil {
		return nil, err
	}
	if err := sc.Apply(in); err != nil {
		return nil, err
	}
	if err := s.scenarios.Save(ctx, repository.NoTX, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

func (s *scenarioUC) SetPublic(ctx context.Context, callerID, id string, public bool) (*model.Scenario, error) {
	sc, err := s.owned(ctx, callerID, id)
	if err != nil {
		return nil, err
	}
	sc.Public = public
	if err := s.scenarios.Save(ctx, repository.NoTX, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

func (s *scenarioUC) Delete(ctx context.Context, callerID, id string) (*model.Scenario, error) {
	sc, err := s.owned(ctx, callerID, id)
	if err != nil {
		return nil, err
	}
	if err := s.scenarios.Delete(ctx, repository.NoTX, id); err != nil {
		return nil, err
	}
	return sc, nil
}

func (s *scenarioUC) ListByOwner(ctx context.Context, callerID, ownerID string) ([]*model.Scenario, error) {
	return s.scenarios.ListByOwner(ctx, repository.NoTX, ownerID, callerID != ownerID)
}
