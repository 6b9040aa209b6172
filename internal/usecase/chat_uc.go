package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/TSHgroup/hh25-backend/internal/domain"
	"github.com/TSHgroup/hh25-backend/internal/domain/model"
	"github.com/TSHgroup/hh25-backend/internal/domain/ports/adapter"
	"github.com/TSHgroup/hh25-backend/internal/domain/ports/repository"
	"github.com/TSHgroup/hh25-backend/internal/infra/audio"
	"github.com/TSHgroup/hh25-backend/internal/infra/catalog"
	"github.com/TSHgroup/hh25-backend/internal/infra/logging"
	"github.com/TSHgroup/hh25-backend/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ ChatUseCase = (*chatUC)(nil)

// ChatUseCase drives one turn-based conversation. The session value is owned by
// the caller's connection; methods must not be called concurrently for one session.
type ChatUseCase interface {
	Start(ctx context.Context, userID, scenarioID, roundID string) (*model.ChatSession, error)
	// Transcribe stores and uploads a spoken utterance and returns its text.
	Transcribe(ctx context.Context, s *model.ChatSession, data []byte, mimeType string) (string, *adapter.FileRef, error)
	// Reply runs one turn. ref, when set, is scored instead of the text.
	Reply(ctx context.Context, s *model.ChatSession, text string, ref *adapter.FileRef) (*TurnResult, error)
	End(ctx context.Context, s *model.ChatSession) error
}

// TurnResult is what one turn produced. Audio holds a base64 WAV rendering of Content.
type TurnResult struct {
	Content string
	Audio   model.Outcome[string]
	Score   model.Outcome[model.Score]
}

// MediaAI covers the audio side of a turn.
type MediaAI interface {
	adapter.MediaUploader
	adapter.Transcriber
	adapter.SpeechSynthesizer
}

type ChatDeps struct {
	Scenarios     repository.ScenarioRepository
	Profiles      repository.ProfileRepository
	Accounts      repository.AccountRepository
	Conversations repository.ConversationRepository
	Chat          adapter.AIServiceAdapter
	Media         MediaAI
	Tokens        adapter.TokenCounter
	Scoring       *Scoring
	Prompts       *catalog.Prompts
}

type ChatOptions struct {
	DefaultVoice string
	UploadsDir   string
}

const (
	defaultAudioMIME   = "audio/webm"
	untranscribable    = "[Unable to transcribe audio]"
	noAudioReturned    = "No audio data returned from API"
	defaultVoiceOption = "Kore"
)

type chatUC struct {
	deps ChatDeps
	opts ChatOptions
	log  *zerolog.Logger
	now  func() time.Time
}

func NewChatUseCase(deps ChatDeps, opts ChatOptions, logger *zerolog.Logger) *chatUC {
	if opts.DefaultVoice == "" {
		opts.DefaultVoice = defaultVoiceOption
	}
	if opts.UploadsDir == "" {
		opts.UploadsDir = "uploads"
	}
	l := logger.With().Str("component", "chat").Logger()
	return &chatUC{deps: deps, opts: opts, log: &l, now: time.Now}
}

func (c *chatUC) Start(ctx context.Context, userID, scenarioID, roundID string) (*model.ChatSession, error) {
	defer logging.TraceDuration(c.log, "ChatUC.Start")()

	if scenarioID == "" {
		return nil, fmt.Errorf("scenarioId is required: %w", domain.ErrInvalidArgument)
	}
	sc, err := c.deps.Scenarios.FindByID(ctx, repository.NoTX, scenarioID)
	if err != nil {
		return nil, err
	}
	if err := canRead(sc, userID); err != nil {
		return nil, err
	}
	if roundID == "" {
		roundID = model.NewID()
	}

	prof, err := c.deps.Profiles.GetOrCreate(ctx, repository.NoTX, model.NewProfile(userID))
	if err != nil {
		return nil, err
	}
	var name string
	if acc, err := c.deps.Accounts.FindByID(ctx, repository.NoTX, userID); err == nil {
		name = strings.TrimSpace(acc.Name.GivenName + " " + acc.Name.FamilyName)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	data := catalog.PromptData{Scenario: sc, Profile: prof, Name: name, Round: sc.Round(roundID)}
	voice := c.opts.DefaultVoice
	maxTokens := 0
	if sc.Persona != nil {
		data.Persona = *sc.Persona
		if sc.Persona.Voice != "" {
			voice = sc.Persona.Voice
		}
		maxTokens = sc.Persona.MaxResponseTokens
	}
	prompt, err := c.deps.Prompts.System(data)
	if err != nil {
		return nil, err
	}

	conv := model.NewConversation(userID, sc.ID, roundID)
	if err := c.deps.Conversations.Create(ctx, repository.NoTX, conv); err != nil {
		return nil, err
	}

	s := model.NewChatSession(userID, sc.ID, conv.ID, roundID, prompt)
	s.Voice = voice
	s.Provider = sc.AI.Provider
	s.Model = sc.AI.Model
	s.MaxTokens = maxTokens
	s.StartedAt = c.now()

	metrics.IncChatTurn("start", "ok")
	c.log.Info().Str("user_id", userID).Str("conversation_id", conv.ID).Str("voice", voice).Msg("chat started")
	return s, nil
}

func (c *chatUC) Transcribe(ctx context.Context, s *model.ChatSession, data []byte, mimeType string) (string, *adapter.FileRef, error) {
	defer logging.TraceDuration(c.log, "ChatUC.Transcribe")()

	if len(data) == 0 {
		return "", nil, fmt.Errorf("audio data is required: %w", domain.ErrInvalidArgument)
	}
	if mimeType == "" {
		mimeType = defaultAudioMIME
	}
	name := fmt.Sprintf("%s_%d.%s", s.UserID, c.now().UnixMilli(), audioExtension(mimeType))
	path := filepath.Join(c.opts.UploadsDir, "audio", name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", nil, fmt.Errorf("create uploads dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", nil, fmt.Errorf("store upload: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()
	ref, err := c.deps.Media.Upload(ctx, f, mimeType, name)
	if err != nil {
		metrics.IncChatTurn("audio", "upload_failed")
		return "", nil, err
	}
	if ref.MIMEType == "" {
		ref.MIMEType = mimeType
	}
	text, err := c.deps.Media.Transcribe(ctx, ref)
	if err != nil {
		metrics.IncChatTurn("audio", "transcribe_failed")
		return "", nil, err
	}
	if text == "" {
		text = untranscribable
	}
	return text, &ref, nil
}

// audioExtension derives a file extension from a mime type such as "audio/ogg; codecs=opus".
func audioExtension(mimeType string) string {
	_, sub, ok := strings.Cut(mimeType, "/")
	if !ok || sub == "" {
		return "webm"
	}
	if i := strings.IndexAny(sub, ";+ "); i >= 0 {
		sub = sub[:i]
	}
	if sub == "" {
		return "webm"
	}
	return sub
}

func (c *chatUC) Reply(ctx context.Context, s *model.ChatSession, text string, ref *adapter.FileRef) (*TurnResult, error) {
	defer logging.TraceDuration(c.log, "ChatUC.Reply")()

	kind := "message"
	if ref != nil {
		kind = "audio"
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("message content is required: %w", domain.ErrInvalidArgument)
	}

	prompt := s.Prompt(text)
	if c.deps.Tokens != nil {
		metrics.ObserveTranscriptTokens(c.deps.Tokens.Count(s.Model, prompt))
	}
	reply, _, err := c.deps.Chat.ChatWithUsage(ctx, adapter.ChatRequest{
		Model:     s.Model,
		Messages:  []adapter.Message{{Role: "user", Content: prompt}},
		MaxTokens: s.MaxTokens,
	})
	if err != nil {
		metrics.IncChatTurn(kind, "ai_failed")
		return nil, err
	}

	res := &TurnResult{Content: reply}
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		res.Audio = c.speak(ctx, reply, s.Voice)
	}()
	go func() {
		defer wg.Done()
		res.Score = c.deps.Scoring.Score(ctx, text, ref)
	}()
	wg.Wait()

	turn := model.Turn{User: text, Reply: reply}
	if err := c.deps.Conversations.AppendTurn(ctx, repository.NoTX, s.ConversationID, s.RoundID, turn, model.StatsFrom(res.Score.Value)); err != nil {
		metrics.IncChatTurn(kind, "persist_failed")
		return nil, err
	}
	// the rolling transcript only carries turns the conversation record has
	s.AddUser(text)
	s.AddAssistant(reply)
	metrics.IncChatTurn(kind, "ok")
	return res, nil
}

// speak renders the reply as a base64 WAV; failures degrade to text only.
func (c *chatUC) speak(ctx context.Context, text, voice string) model.Outcome[string] {
	pcm, err := c.deps.Media.Synthesize(ctx, text, voice)
	if err == nil && len(pcm) == 0 {
		err = errors.New(noAudioReturned)
	}
	if err != nil {
		metrics.IncDegraded("tts")
		c.log.Warn().Err(err).Str("voice", voice).Msg("speech synthesis degraded")
		return model.Degraded("", err)
	}
	wav, err := audio.EncodeWAV(pcm, audio.OutputRate)
	if err != nil {
		metrics.IncDegraded("tts")
		return model.Degraded("", err)
	}
	return model.Ok(base64.StdEncoding.EncodeToString(wav))
}

func (c *chatUC) End(ctx context.Context, s *model.ChatSession) error {
	defer logging.TraceDuration(c.log, "ChatUC.End")()

	secs := s.ElapsedSeconds(c.now())
	if err := c.deps.Conversations.SetLength(ctx, repository.NoTX, s.ConversationID, secs); err != nil {
		return err
	}
	c.log.Info().Str("conversation_id", s.ConversationID).Int("length", secs).Int("turns", s.Turns()).Msg("chat ended")
	return nil
}
