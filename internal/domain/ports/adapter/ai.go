package adapter

import (
	"context"
	"io"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Usage for a single chat call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type ChatRequest struct {
	Model     string
	Messages  []Message
	MaxTokens int // 0 = provider default
}

// AIServiceAdapter is the port for text generation.
type AIServiceAdapter interface {
	// ChatWithUsage returns assistant text + usage as reported by the provider.
	ChatWithUsage(ctx context.Context, req ChatRequest) (string, Usage, error)
}

// TokenCounter estimates prompt size locally, without a provider round trip.
type TokenCounter interface {
	Count(model, text string) int
}

// FileRef points at media already uploaded to the provider.
type FileRef struct {
	URI      string
	MIMEType string
}

type MediaUploader interface {
	Upload(ctx context.Context, r io.Reader, mimeType, displayName string) (FileRef, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, ref FileRef) (string, error)
}

// SpeechSynthesizer renders text as raw 16-bit mono PCM at the provider's output rate.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (pcm []byte, err error)
}

// ScoreRequest carries either an audio reference or plain text plus the rubric.
type ScoreRequest struct {
	Text   string
	Audio  *FileRef
	Rubric string
}

// Scorer returns the provider's raw JSON assessment; parsing is the caller's job.
type Scorer interface {
	Score(ctx context.Context, req ScoreRequest) (string, error)
}

// LiveEvent is one upstream message of a realtime voice session.
type LiveEvent struct {
	Audio        []byte // PCM fragments carried by this message, in order
	TurnComplete bool
	Interrupted  bool
}

// LiveSession is a bidirectional streaming audio session.
// Receive blocks until the next event; it returns an error once Close was called.
type LiveSession interface {
	SendAudio(pcm []byte, mimeType string) error
	Receive() (LiveEvent, error)
	Close() error
}

type LiveDialer interface {
	Dial(ctx context.Context) (LiveSession, error)
}
