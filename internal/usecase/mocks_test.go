//go:build !integration

package usecase

import (
	"context"
	"errors"
	"io"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/TSHgroup/hh25-backend/internal/domain"
	"github.com/TSHgroup/hh25-backend/internal/domain/model"
	"github.com/TSHgroup/hh25-backend/internal/domain/ports/adapter"
	"github.com/TSHgroup/hh25-backend/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// fakeTM runs fn inline without a real transaction.
type fakeTM struct{}

func (fakeTM) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}

// ---- accounts ----

type memAccounts struct {
	mu       sync.Mutex
	byID     map[string]*model.Account
	refresh  map[string]map[string]bool
	createFn func(*model.Account) error
}

func newMemAccounts() *memAccounts {
	return &memAccounts{byID: map[string]*model.Account{}, refresh: map[string]map[string]bool{}}
}

func (m *memAccounts) Create(_ context.Context, _ any, a *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createFn != nil {
		if err := m.createFn(a); err != nil {
			return err
		}
	}
	for _, x := range m.byID {
		if x.Email == a.Email {
			return domain.ErrAlreadyExists
		}
	}
	cp := *a
	m.byID[a.ID] = &cp
	return nil
}

func (m *memAccounts) FindByID(_ context.Context, _ any, id string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAccounts) FindByEmail(_ context.Context, _ any, email string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memAccounts) UpsertGoogle(_ context.Context, _ any, email, googleID string, name model.Name) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Email == email {
			a.GoogleID = googleID
			cp := *a
			return &cp, nil
		}
	}
	a, _ := model.NewAccount(email, name, "", "")
	a.GoogleID = googleID
	m.byID[a.ID] = a
	cp := *a
	return &cp, nil
}

func (m *memAccounts) AddIP(_ context.Context, _ any, id, ip string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	for _, x := range a.IPs {
		if x == ip {
			return nil
		}
	}
	a.IPs = append(a.IPs, ip)
	return nil
}

func (m *memAccounts) MarkEmailVerified(_ context.Context, _ any, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.EmailVerified = true
	return nil
}

func (m *memAccounts) AddRefreshToken(_ context.Context, _ any, accountID, hash string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refresh[accountID] == nil {
		m.refresh[accountID] = map[string]bool{}
	}
	m.refresh[accountID][hash] = true
	return nil
}

func (m *memAccounts) ConsumeRefreshToken(_ context.Context, _ any, accountID, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.refresh[accountID][hash] {
		return false, nil
	}
	delete(m.refresh[accountID], hash)
	return true, nil
}

// ---- verifications ----

type memVerifications struct {
	mu   sync.Mutex
	byID map[string]*model.VerificationRequest
}

func newMemVerifications() *memVerifications {
	return &memVerifications{byID: map[string]*model.VerificationRequest{}}
}

func (m *memVerifications) Create(_ context.Context, _ any, v *model.VerificationRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *v
	m.byID[v.ID] = &cp
	return nil
}

func (m *memVerifications) DeleteByAccount(_ context.Context, _ any, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, v := range m.byID {
		if v.AccountID == accountID {
			delete(m.byID, id)
		}
	}
	return nil
}

func (m *memVerifications) FindValidByTokenHash(_ context.Context, _ any, hash string, now time.Time) (*model.VerificationRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.byID {
		if v.TokenHash == hash && !v.Expired(now) {
			cp := *v
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memVerifications) Delete(_ context.Context, _ any, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}

func (m *memVerifications) DeleteExpired(_ context.Context, _ any, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, v := range m.byID {
		if v.Expired(now) {
			delete(m.byID, id)
			n++
		}
	}
	return n, nil
}

func (m *memVerifications) forAccount(accountID string) []*model.VerificationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.VerificationRequest
	for _, v := range m.byID {
		if v.AccountID == accountID {
			out = append(out, v)
		}
	}
	return out
}

// ---- profiles ----

type memProfiles struct {
	mu   sync.Mutex
	byID map[string]*model.Profile
}

func newMemProfiles() *memProfiles { return &memProfiles{byID: map[string]*model.Profile{}} }

func (m *memProfiles) GetOrCreate(_ context.Context, _ any, def *model.Profile) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[def.AccountID]
	if !ok {
		cp := *def
		m.byID[def.AccountID] = &cp
		p = &cp
	}
	cp := *p
	return &cp, nil
}

func (m *memProfiles) Update(_ context.Context, _ any, p *model.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, x := range m.byID {
		if id != p.AccountID && x.Username != nil && p.Username != nil && *x.Username == *p.Username {
			return domain.ErrAlreadyExists
		}
	}
	cp := *p
	m.byID[p.AccountID] = &cp
	return nil
}

// ---- personas / scenarios ----

type memPersonas struct {
	mu   sync.Mutex
	byID map[string]*model.Persona
}

func newMemPersonas() *memPersonas { return &memPersonas{byID: map[string]*model.Persona{}} }

func (m *memPersonas) Save(_ context.Context, _ any, p *model.Persona) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *memPersonas) FindByID(_ context.Context, _ any, id string) (*model.Persona, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPersonas) Delete(_ context.Context, _ any, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memPersonas) ListPublic(_ context.Context, _ any, page model.PageRequest) ([]*model.Persona, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*model.Persona
	for _, p := range m.byID {
		if p.Public {
			all = append(all, p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return pageOf(all, page), len(all), nil
}

func (m *memPersonas) ListByOwner(_ context.Context, _ any, owner string, publicOnly bool) ([]*model.Persona, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Persona
	for _, p := range m.byID {
		if p.CreatedBy == owner && (!publicOnly || p.Public) {
			out = append(out, p)
		}
	}
	return out, nil
}

type memScenarios struct {
	mu       sync.Mutex
	byID     map[string]*model.Scenario
	personas *memPersonas
}

func newMemScenarios(personas *memPersonas) *memScenarios {
	return &memScenarios{byID: map[string]*model.Scenario{}, personas: personas}
}

func (m *memScenarios) Save(_ context.Context, _ any, s *model.Scenario) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	cp.Persona = nil
	m.byID[s.ID] = &cp
	return nil
}

func (m *memScenarios) FindByID(ctx context.Context, _ any, id string) (*model.Scenario, error) {
	m.mu.Lock()
	s, ok := m.byID[id]
	m.mu.Unlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	if cp.PersonaID != "" && m.personas != nil {
		if p, err := m.personas.FindByID(ctx, nil, cp.PersonaID); err == nil {
			cp.Persona = p
		}
	}
	return &cp, nil
}

func (m *memScenarios) Delete(_ context.Context, _ any, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memScenarios) ListPublic(_ context.Context, _ any, page model.PageRequest) ([]*model.Scenario, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*model.Scenario
	for _, s := range m.byID {
		if s.Public {
			all = append(all, s)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return pageOf(all, page), len(all), nil
}

func (m *memScenarios) ListByOwner(_ context.Context, _ any, owner string, publicOnly bool) ([]*model.Scenario, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Scenario
	for _, s := range m.byID {
		if s.CreatedBy == owner && (!publicOnly || s.Public) {
			out = append(out, s)
		}
	}
	return out, nil
}

func pageOf[T any](all []T, page model.PageRequest) []T {
	off := page.Offset()
	if off >= len(all) {
		return nil
	}
	end := off + page.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[off:end]
}

// ---- conversations ----

type memConversations struct {
	mu        sync.Mutex
	byID      map[string]*model.Conversation
	appendErr error
}

func newMemConversations() *memConversations {
	return &memConversations{byID: map[string]*model.Conversation{}}
}

func (m *memConversations) Create(_ context.Context, _ any, c *model.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	cp.Rounds = append([]model.ConversationRound(nil), c.Rounds...)
	m.byID[c.ID] = &cp
	return nil
}

func (m *memConversations) FindByID(_ context.Context, _ any, id string) (*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memConversations) AppendTurn(_ context.Context, _ any, convID, roundID string, turn model.Turn, stats model.Stats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	c, ok := m.byID[convID]
	if !ok {
		return domain.ErrNotFound
	}
	for i := range c.Rounds {
		if c.Rounds[i].RoundID == roundID {
			e := turn.Entries()
			c.Rounds[i].Transcript = append(c.Rounds[i].Transcript, e[0], e[1])
			c.Stats = stats
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memConversations) SetLength(_ context.Context, _ any, convID string, seconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[convID]
	if !ok {
		return domain.ErrNotFound
	}
	c.Length = seconds
	return nil
}

func (m *memConversations) ListByUser(_ context.Context, _ any, userID string, page model.PageRequest) ([]*model.Conversation, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.userConvs(userID)
	return pageOf(all, page), len(all), nil
}

func (m *memConversations) ListByUserBetween(_ context.Context, _ any, userID string, from, to time.Time) ([]*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Conversation
	for _, c := range m.userConvs(userID) {
		if !c.CreatedAt.Before(from) && c.CreatedAt.Before(to) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memConversations) CreatedTimes(_ context.Context, _ any, userID string) ([]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []time.Time
	for _, c := range m.userConvs(userID) {
		out = append(out, c.CreatedAt)
	}
	return out, nil
}

// userConvs returns the user's conversations newest first. Caller holds mu.
func (m *memConversations) userConvs(userID string) []*model.Conversation {
	var out []*model.Conversation
	for _, c := range m.byID {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

type memTips struct{ tips []string }

func (m *memTips) Count(context.Context, any) (int, error) { return len(m.tips), nil }
func (m *memTips) At(_ context.Context, _ any, i int) (string, error) {
	if i < 0 || i >= len(m.tips) {
		return "", domain.ErrNotFound
	}
	return m.tips[i], nil
}

// ---- auth collaborators ----

// fakeTokens issues predictable, unique tokens of the form "<kind>:<account>:<n>".
type fakeTokens struct {
	mu sync.Mutex
	n  int
}

func (f *fakeTokens) Issue(accountID string) (adapter.TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	return adapter.TokenPair{
		AccessToken:      "access:" + accountID + ":" + strconv.Itoa(f.n),
		RefreshToken:     "refresh:" + accountID + ":" + strconv.Itoa(f.n),
		RefreshExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func (f *fakeTokens) ParseRefresh(token string) (string, error) {
	const prefix = "refresh:"
	if len(token) <= len(prefix) || token[:len(prefix)] != prefix {
		return "", errors.New("bad token")
	}
	rest := token[len(prefix):]
	for i := len(rest) - 1; i >= 0; i-- {
		if rest[i] == ':' {
			return rest[:i], nil
		}
	}
	return "", errors.New("bad token")
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []adapter.Mail
}

func (f *fakeMailer) Send(_ context.Context, m adapter.Mail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, m)
	return nil
}

type fakeTemplates struct{}

func (fakeTemplates) Render(name string, data any) (string, error) {
	return name + ":" + data.(map[string]string)["Code"], nil
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (f *fakeLocker) TryLock(_ context.Context, key string, _ time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held == nil {
		f.held = map[string]bool{}
	}
	if f.held[key] {
		return "", domain.ErrRegistrationInProgress
	}
	f.held[key] = true
	return key, nil
}

func (f *fakeLocker) Unlock(_ context.Context, key, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, key)
	return nil
}

type memStates struct {
	mu sync.Mutex
	m  map[string]bool
}

func (s *memStates) Put(_ context.Context, nonce string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m == nil {
		s.m = map[string]bool{}
	}
	s.m[nonce] = true
	return nil
}

func (s *memStates) Consume(_ context.Context, nonce string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.m[nonce]
	delete(s.m, nonce)
	return ok, nil
}

// plainCipher reverses the text so tests can inspect and forge states.
type plainCipher struct{}

func (plainCipher) Encrypt(s string) (string, error) { return reverse(s), nil }
func (plainCipher) Decrypt(s string) (string, error) { return reverse(s), nil }

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

type fakeGoogle struct {
	ident    adapter.GoogleIdentity
	err      error
	lastCode string
}

func (f *fakeGoogle) AuthCodeURL(state string) string {
	return "https://accounts.example/o/oauth2/auth?state=" + state
}

func (f *fakeGoogle) Exchange(_ context.Context, code string) (adapter.GoogleIdentity, error) {
	f.lastCode = code
	return f.ident, f.err
}

func (f *fakeGoogle) VerifyIDToken(_ context.Context, _ string) (adapter.GoogleIdentity, error) {
	return f.ident, f.err
}

// ---- AI ----

type fakeChatAI struct {
	mu       sync.Mutex
	replies  []string
	requests []adapter.ChatRequest
	err      error
}

func (f *fakeChatAI) ChatWithUsage(_ context.Context, req adapter.ChatRequest) (string, adapter.Usage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", adapter.Usage{}, f.err
	}
	reply := "reply " + strconv.Itoa(len(f.requests))
	if len(f.replies) > 0 {
		reply, f.replies = f.replies[0], f.replies[1:]
	}
	return reply, adapter.Usage{}, nil
}

type fakeMedia struct {
	mu          sync.Mutex
	uploaded    []byte
	uploadName  string
	transcript  string
	pcm         []byte
	synthErr    error
	voices      []string
	transcribed []adapter.FileRef
}

func (f *fakeMedia) Upload(_ context.Context, r io.Reader, mimeType, name string) (adapter.FileRef, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return adapter.FileRef{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploaded, f.uploadName = b, name
	return adapter.FileRef{URI: "files/" + name, MIMEType: mimeType}, nil
}

func (f *fakeMedia) Transcribe(_ context.Context, ref adapter.FileRef) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transcribed = append(f.transcribed, ref)
	return f.transcript, nil
}

func (f *fakeMedia) Synthesize(_ context.Context, _ string, voice string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.voices = append(f.voices, voice)
	if f.synthErr != nil {
		return nil, f.synthErr
	}
	return f.pcm, nil
}

type fakeScorer struct {
	mu    sync.Mutex
	raws  []string
	err   error
	calls []adapter.ScoreRequest
}

func (f *fakeScorer) Score(_ context.Context, req adapter.ScoreRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.err != nil {
		return "", f.err
	}
	if len(f.raws) == 0 {
		return "{}", nil
	}
	raw := f.raws[0]
	if len(f.raws) > 1 {
		f.raws = f.raws[1:]
	}
	return raw, nil
}
