package ai

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/TSHgroup/hh25-backend/internal/domain/ports/adapter"
)

var _ adapter.TokenCounter = (*TiktokenCounter)(nil)

// TiktokenCounter estimates token counts with the model's BPE, or cl100k_base for models tiktoken
// does not know (Gemini). Falls back to len/4 when no encoding can be loaded.
type TiktokenCounter struct {
	mu   sync.Mutex
	encs map[string]*tiktoken.Tiktoken
}

func NewTiktokenCounter() *TiktokenCounter {
	return &TiktokenCounter{encs: map[string]*tiktoken.Tiktoken{}}
}

func (c *TiktokenCounter) Count(model, text string) int {
	if text == "" {
		return 0
	}
	if enc := c.encoding(model); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return (len(text) + 3) / 4
}

func (c *TiktokenCounter) encoding(model string) *tiktoken.Tiktoken {
	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encs[model]; ok {
		return enc
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil {
		enc = nil
	}
	c.encs[model] = enc
	return enc
}
