package usecase

import (
	"context"
	"fmt"

	"github.com/TSHgroup/hh25-backend/internal/domain"
	"github.com/TSHgroup/hh25-backend/internal/domain/model"
	"github.com/TSHgroup/hh25-backend/internal/domain/ports/repository"
	"github.com/TSHgroup/hh25-backend/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ ProfileUseCase = (*profileUC)(nil)

type ProfileUseCase interface {
	// Me returns the caller's profile, creating the default one on first access.
	Me(ctx context.Context, accountID string) (*model.Profile, error)
	Update(ctx context.Context, accountID string, patch model.ProfilePatch) (*model.Profile, error)
	Conversations(ctx context.Context, accountID string, page model.PageRequest) (model.Page[*model.Conversation], error)
}

// LanguageCatalog is the subset of the catalog profile and scenario checks need.
type LanguageCatalog interface {
	IsLanguage(code string) bool
}

type profileUC struct {
	profiles      repository.ProfileRepository
	conversations repository.ConversationRepository
	langs         LanguageCatalog
	log           *zerolog.Logger
}

func NewProfileUseCase(profiles repository.ProfileRepository, conversations repository.ConversationRepository, langs LanguageCatalog, logger *zerolog.Logger) *profileUC {
	return &profileUC{profiles: profiles, conversations: conversations, langs: langs, log: logger}
}

func (p *profileUC) Me(ctx context.Context, accountID string) (*model.Profile, error) {
	defer logging.TraceDuration(p.log, "ProfileUC.Me")()
	return p.profiles.GetOrCreate(ctx, repository.NoTX, model.NewProfile(accountID))
}

func (p *profileUC) Update(ctx context.Context, accountID string, patch model.ProfilePatch) (*model.Profile, error) {
	defer logging.TraceDuration(p.log, "ProfileUC.Update")()

	if patch.Language != nil && !p.langs.IsLanguage(*patch.Language) {
		return nil, fmt.Errorf("unknown language %q: %w", *patch.Language, domain.ErrInvalidArgument)
	}
	prof, err := p.profiles.GetOrCreate(ctx, repository.NoTX, model.NewProfile(accountID))
	if err != nil {
		return nil, err
	}
	prof.Apply(patch)
	if err := p.profiles.Update(ctx, repository.NoTX, prof); err != nil {
		return nil, err
	}
	return prof, nil
}

func (p *profileUC) Conversations(ctx context.Context, accountID string, page model.PageRequest) (model.Page[*model.Conversation], error) {
	defer logging.TraceDuration(p.log, "ProfileUC.Conversations")()

	items, total, err := p.conversations.ListByUser(ctx, repository.NoTX, accountID, page)
	if err != nil {
		return model.Page[*model.Conversation]{}, err
	}
	return model.NewPage(items, page, total), nil
}
