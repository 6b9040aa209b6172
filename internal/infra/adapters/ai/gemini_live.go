package ai

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/TSHgroup/hh25-backend/internal/domain/ports/adapter"
	"github.com/TSHgroup/hh25-backend/internal/infra/metrics"
)

var _ adapter.LiveSession = (*liveSession)(nil)

// Dial opens a Live API session answering in audio with the configured system instruction.
func (g *GeminiAdapter) Dial(ctx context.Context) (adapter.LiveSession, error) {
	start := time.Now()
	cfg := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
	}
	if g.opts.LiveInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(g.opts.LiveInstruction, genai.RoleUser)
	}
	s, err := g.client.Live.Connect(ctx, g.opts.LiveModel, cfg)
	metrics.ObserveAICall("gemini", "live", time.Since(start).Milliseconds(), err == nil)
	if err != nil {
		return nil, fmt.Errorf("gemini live connect: %w", err)
	}
	return &liveSession{s: s}, nil
}

type liveSession struct {
	s    *genai.Session
	once sync.Once
	err  error
}

func (l *liveSession) SendAudio(pcm []byte, mimeType string) error {
	return l.s.SendRealtimeInput(genai.LiveRealtimeInput{
		Audio: &genai.Blob{Data: pcm, MIMEType: mimeType},
	})
}

func (l *liveSession) Receive() (adapter.LiveEvent, error) {
	msg, err := l.s.Receive()
	if err != nil {
		return adapter.LiveEvent{}, err
	}
	return toLiveEvent(msg), nil
}

func (l *liveSession) Close() error {
	l.once.Do(func() { l.err = l.s.Close() })
	return l.err
}

func toLiveEvent(msg *genai.LiveServerMessage) adapter.LiveEvent {
	var ev adapter.LiveEvent
	if msg == nil || msg.ServerContent == nil {
		return ev
	}
	sc := msg.ServerContent
	ev.TurnComplete = sc.TurnComplete
	ev.Interrupted = sc.Interrupted
	if sc.ModelTurn != nil {
		for _, p := range sc.ModelTurn.Parts {
			if p != nil && p.InlineData != nil {
				ev.Audio = append(ev.Audio, p.InlineData.Data...)
			}
		}
	}
	return ev
}
