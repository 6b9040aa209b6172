// File: internal/infra/adapters/ai/gemini_adapter.go
package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/TSHgroup/hh25-backend/internal/domain/ports/adapter"
	"github.com/TSHgroup/hh25-backend/internal/infra/metrics"
)

var (
	_ adapter.AIServiceAdapter  = (*GeminiAdapter)(nil)
	_ adapter.MediaUploader     = (*GeminiAdapter)(nil)
	_ adapter.Transcriber       = (*GeminiAdapter)(nil)
	_ adapter.SpeechSynthesizer = (*GeminiAdapter)(nil)
	_ adapter.Scorer            = (*GeminiAdapter)(nil)
	_ adapter.LiveDialer        = (*GeminiAdapter)(nil)
)

const (
	transcribeInstruction = "Transcribe this audio to text. Only provide the transcription, nothing else."
	speakInstruction      = "Say naturally and conversationally: "
)

type GeminiOptions struct {
	ChatModel       string
	TTSModel        string
	ScoringModel    string
	LiveModel       string
	LiveInstruction string
	Timeout         time.Duration // per upstream call; 0 = caller's deadline only
}

type GeminiAdapter struct {
	client *genai.Client
	opts   GeminiOptions
	log    *zerolog.Logger
}

// NewGeminiAdapter creates a Gemini adapter using the official SDK.
func NewGeminiAdapter(ctx context.Context, apiKey string, opts GeminiOptions, log *zerolog.Logger) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	l := log.With().Str("component", "gemini").Logger()
	return &GeminiAdapter{client: c, opts: opts, log: &l}, nil
}

func (g *GeminiAdapter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.opts.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.opts.Timeout)
}

func noThinking() *genai.ThinkingConfig {
	return &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](0)}
}

func (g *GeminiAdapter) ChatWithUsage(ctx context.Context, req adapter.ChatRequest) (string, adapter.Usage, error) {
	if len(req.Messages) == 0 {
		return "", adapter.Usage{}, errors.New("gemini: no messages")
	}
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	start := time.Now()

	model := modelOrDefault(req.Model, g.opts.ChatModel)
	system, history := toGenAIHistory(req.Messages)
	cfg := &genai.GenerateContentConfig{
		ThinkingConfig:    noThinking(),
		SystemInstruction: system,
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	resp, err := g.client.Models.GenerateContent(ctx, model, history, cfg)
	metrics.ObserveAICall("gemini", "chat", time.Since(start).Milliseconds(), err == nil)
	if err != nil {
		return "", adapter.Usage{}, fmt.Errorf("gemini chat: %w", err)
	}

	u := adapter.Usage{}
	if resp.UsageMetadata != nil {
		u.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		u.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		u.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	metrics.ObserveChatUsage("gemini", model, u.PromptTokens, u.CompletionTokens, u.TotalTokens)
	return resp.Text(), u, nil
}

func (g *GeminiAdapter) Upload(ctx context.Context, r io.Reader, mimeType, displayName string) (adapter.FileRef, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	start := time.Now()

	f, err := g.client.Files.Upload(ctx, r, &genai.UploadFileConfig{MIMEType: mimeType, DisplayName: displayName})
	metrics.ObserveAICall("gemini", "upload", time.Since(start).Milliseconds(), err == nil)
	if err != nil {
		return adapter.FileRef{}, fmt.Errorf("gemini upload: %w", err)
	}
	ref := adapter.FileRef{URI: f.URI, MIMEType: f.MIMEType}
	if ref.MIMEType == "" {
		ref.MIMEType = mimeType
	}
	return ref, nil
}

func (g *GeminiAdapter) Transcribe(ctx context.Context, ref adapter.FileRef) (string, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	start := time.Now()

	contents := []*genai.Content{genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromURI(ref.URI, ref.MIMEType),
		genai.NewPartFromText(transcribeInstruction),
	}, genai.RoleUser)}
	resp, err := g.client.Models.GenerateContent(ctx, g.opts.ChatModel, contents, &genai.GenerateContentConfig{ThinkingConfig: noThinking()})
	metrics.ObserveAICall("gemini", "transcribe", time.Since(start).Milliseconds(), err == nil)
	if err != nil {
		return "", fmt.Errorf("gemini transcribe: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

// Synthesize returns 16-bit mono PCM at 24 kHz.
func (g *GeminiAdapter) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	start := time.Now()

	contents := []*genai.Content{genai.NewContentFromText(speakInstruction+text, genai.RoleUser)}
	resp, err := g.client.Models.GenerateContent(ctx, g.opts.TTSModel, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityAudio)},
		SpeechConfig:       speechConfig(voice),
	})
	metrics.ObserveAICall("gemini", "tts", time.Since(start).Milliseconds(), err == nil)
	if err != nil {
		return nil, fmt.Errorf("gemini tts: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("gemini tts: empty response")
	}
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && p.InlineData != nil && len(p.InlineData.Data) > 0 {
			return p.InlineData.Data, nil
		}
	}
	return nil, errors.New("gemini tts: no audio in response")
}

func (g *GeminiAdapter) Score(ctx context.Context, req adapter.ScoreRequest) (string, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	start := time.Now()

	var parts []*genai.Part
	if req.Audio != nil {
		parts = []*genai.Part{
			genai.NewPartFromURI(req.Audio.URI, req.Audio.MIMEType),
			genai.NewPartFromText(req.Rubric),
		}
	} else {
		parts = []*genai.Part{genai.NewPartFromText(fmt.Sprintf("User said: %q\n\n%s", req.Text, req.Rubric))}
	}
	resp, err := g.client.Models.GenerateContent(ctx, modelOrDefault(g.opts.ScoringModel, g.opts.ChatModel),
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{ThinkingConfig: noThinking(), ResponseMIMEType: "application/json"})
	metrics.ObserveAICall("gemini", "score", time.Since(start).Milliseconds(), err == nil)
	if err != nil {
		return "", fmt.Errorf("gemini score: %w", err)
	}
	return resp.Text(), nil
}

func speechConfig(voice string) *genai.SpeechConfig {
	if voice == "" {
		return nil
	}
	return &genai.SpeechConfig{VoiceConfig: &genai.VoiceConfig{
		PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
	}}
}

// --- internal ---

// toGenAIHistory splits system messages into a system instruction; Gemini has no system role in history.
func toGenAIHistory(msgs []adapter.Message) (*genai.Content, []*genai.Content) {
	var system []string
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := genai.Role(genai.RoleUser)
		switch strings.ToLower(m.Role) {
		case "assistant", "model":
			role = genai.RoleModel
		case "system":
			system = append(system, m.Content)
			continue
		}
		out = append(out, genai.NewContentFromText(m.Content, role))
	}
	if len(system) == 0 {
		return nil, out
	}
	return genai.NewContentFromText(strings.Join(system, "\n"), genai.RoleUser), out
}

func modelOrDefault(model, def string) string {
	if strings.TrimSpace(model) != "" {
		return model
	}
	return def
}
