package providers

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter estimates prompt and reply sizes for the audit log. The
// encoding is loaded lazily on first use; when it cannot be loaded the
// counter falls back to a characters-per-token estimate.
type TokenCounter struct {
	model string

	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewTokenCounter creates a counter for model
func NewTokenCounter(model string) *TokenCounter {
	return &TokenCounter{model: model}
}

// Count returns the number of tokens in text
func (c *TokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	c.once.Do(c.load)
	if c.enc == nil {
		return estimateTokens(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}

func (c *TokenCounter) load() {
	enc, err := tiktoken.EncodingForModel(c.model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err == nil {
		c.enc = enc
	}
}

// estimateTokens uses the usual four characters per token rule of thumb
func estimateTokens(text string) int {
	return (len(text) + 3) / 4
}
