//go:build !integration

package web

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/TSHgroup/hh25-backend/internal/domain"
	"github.com/TSHgroup/hh25-backend/internal/domain/model"
	"github.com/TSHgroup/hh25-backend/internal/domain/ports/adapter"
	"github.com/TSHgroup/hh25-backend/internal/infra/catalog"
	"github.com/TSHgroup/hh25-backend/internal/usecase"
)

// newTestLogger creates a silent logger for tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

// --- auth ---

type mockAuthUC struct {
	usecase.AuthUseCase // unimplemented methods panic
	mu                  sync.Mutex
	registered          map[string]bool
	lastIP              string
	refreshErr          error
}

func (m *mockAuthUC) Register(_ context.Context, in usecase.RegisterInput) (*usecase.RegisterResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.registered == nil {
		m.registered = map[string]bool{}
	}
	if m.registered[in.Email] {
		return nil, domain.ErrAlreadyExists
	}
	m.registered[in.Email] = true
	m.lastIP = in.IP
	return &usecase.RegisterResult{
		TokenPair:         adapter.TokenPair{AccessToken: "a", RefreshToken: "r"},
		VerificationToken: "vt",
		Message:           "Verification email sent",
	}, nil
}

func (m *mockAuthUC) Login(_ context.Context, email, password, _ string) (*usecase.LoginResult, error) {
	if email != "jan@example.com" || password != "Secret#123" {
		return nil, domain.ErrInvalidCredentials
	}
	return &usecase.LoginResult{TokenPair: adapter.TokenPair{AccessToken: "a", RefreshToken: "r"}, EmailVerified: true}, nil
}

func (m *mockAuthUC) Refresh(_ context.Context, _ string) (adapter.TokenPair, error) {
	if m.refreshErr != nil {
		return adapter.TokenPair{}, m.refreshErr
	}
	return adapter.TokenPair{AccessToken: "a2", RefreshToken: "r2"}, nil
}

func (m *mockAuthUC) GoogleAuthURL(context.Context) (string, error) {
	return "", domain.ErrGoogleSignInDisabled
}

// --- content ---

type mockScenarioUC struct {
	usecase.ScenarioUseCase
	mu        sync.Mutex
	scenarios map[string]*model.Scenario
	createErr error
	lastPage  model.PageRequest
}

func newMockScenarioUC() *mockScenarioUC {
	return &mockScenarioUC{scenarios: map[string]*model.Scenario{}}
}

func (m *mockScenarioUC) ListPublic(_ context.Context, page model.PageRequest) (model.Page[*model.Scenario], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastPage = page
	var pub []*model.Scenario
	for _, s := range m.scenarios {
		if s.Public {
			pub = append(pub, s)
		}
	}
	return model.NewPage(pub, page, len(pub)), nil
}

func (m *mockScenarioUC) Create(_ context.Context, caller string, in model.ScenarioInput) (*model.Scenario, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &model.Scenario{
		ID:         "sc-" + in.Title,
		Title:      in.Title,
		Category:   in.Category,
		Languages:  in.Languages,
		Status:     in.Status,
		Objectives: in.Objectives,
		PersonaID:  in.PersonaID,
		AI:         in.AI,
		CreatedBy:  caller,
		CreatedAt:  time.Now().UTC(),
	}
	m.scenarios[s.ID] = s
	return s, nil
}

func (m *mockScenarioUC) Get(_ context.Context, caller, id string) (*model.Scenario, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scenarios[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !s.Public && s.CreatedBy != caller {
		return nil, domain.ErrPrivate
	}
	return s, nil
}

func (m *mockScenarioUC) ListByOwner(_ context.Context, _, _ string) ([]*model.Scenario, error) {
	return nil, nil
}

type mockPersonaUC struct {
	usecase.PersonaUseCase
	deleteErr error
}

func (m *mockPersonaUC) Delete(_ context.Context, caller, id string) (*model.Persona, error) {
	if m.deleteErr != nil {
		return nil, m.deleteErr
	}
	return &model.Persona{ID: id, CreatedBy: caller, Name: "Anna"}, nil
}

// --- user ---

type mockProfileUC struct {
	usecase.ProfileUseCase
	taken string
}

func (m *mockProfileUC) Me(_ context.Context, id string) (*model.Profile, error) {
	return model.NewProfile(id), nil
}

func (m *mockProfileUC) Update(_ context.Context, id string, patch model.ProfilePatch) (*model.Profile, error) {
	if patch.Username != nil && *patch.Username == m.taken {
		return nil, domain.ErrAlreadyExists
	}
	p := model.NewProfile(id)
	p.Username = patch.Username
	if patch.GoalsSet {
		p.Goals = patch.Goals
	}
	return p, nil
}

type mockAnalyticsUC struct {
	lastSpan string
}

func (m *mockAnalyticsUC) Report(_ context.Context, _, span string) (*model.AnalyticsReport, error) {
	m.lastSpan = span
	if span == "bogus" {
		return nil, domain.ErrInvalidArgument
	}
	return &model.AnalyticsReport{}, nil
}

type mockTipUC struct {
	tip string
}

func (m *mockTipUC) Today(context.Context) (string, error) {
	if m.tip == "" {
		return "", domain.ErrNotFound
	}
	return m.tip, nil
}

type mockVoices struct{}

func (mockVoices) Voices() []catalog.Voice {
	return []catalog.Voice{{Name: "Puck", Style: "Upbeat"}, {Name: "Kore", Style: "Firm"}}
}

// --- chat ---

type mockChatUC struct {
	mu      sync.Mutex
	started int
	ended   []string
	replies []string
}

func (m *mockChatUC) Start(_ context.Context, user, scenarioID, roundID string) (*model.ChatSession, error) {
	if scenarioID == "missing" {
		return nil, domain.ErrNotFound
	}
	m.mu.Lock()
	m.started++
	m.mu.Unlock()
	if roundID == "" {
		roundID = "round-gen"
	}
	return &model.ChatSession{UserID: user, ScenarioID: scenarioID, ConversationID: "conv-1", RoundID: roundID}, nil
}

func (m *mockChatUC) Transcribe(_ context.Context, _ *model.ChatSession, data []byte, _ string) (string, *adapter.FileRef, error) {
	return "heard " + string(data), &adapter.FileRef{URI: "files/1"}, nil
}

func (m *mockChatUC) Reply(_ context.Context, _ *model.ChatSession, text string, _ *adapter.FileRef) (*usecase.TurnResult, error) {
	if text == "" {
		return nil, domain.ErrInvalidArgument
	}
	m.mu.Lock()
	m.replies = append(m.replies, text)
	m.mu.Unlock()
	res := &usecase.TurnResult{Content: "echo: " + text, Score: model.Ok(model.DefaultScore())}
	if text == "mute" {
		res.Audio = model.Degraded("", errors.New("tts unavailable"))
	} else {
		res.Audio = model.Ok("UklGRg==")
	}
	return res, nil
}

func (m *mockChatUC) End(_ context.Context, s *model.ChatSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ended = append(m.ended, s.ConversationID)
	return nil
}

func (m *mockChatUC) endedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ended)
}

// --- limiter ---

type fakeLimiter struct {
	mu    sync.Mutex
	hits  map[string]int
	err   error
	limit int
}

func (f *fakeLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hits == nil {
		f.hits = map[string]int{}
	}
	f.hits[key]++
	f.limit = limit
	return f.hits[key] <= limit, nil
}
