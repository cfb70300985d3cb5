package providers

import (
	"context"
)

// Provider is the completion provider as seen by the two pipelines. Every
// call takes the credential explicitly; providers never hold one.
type Provider interface {
	// Complete sends text as a single user message and returns the first
	// choice. Failures are *HTTPError, *NetworkError or *MalformedResponseError.
	Complete(ctx context.Context, text, credential string) (*CompletionResponse, error)

	// CheckCredential issues the lightweight models-listing probe. A nil
	// error means the provider answered 2xx.
	CheckCredential(ctx context.Context, credential string) error

	// Get provider info
	GetInfo() ProviderInfo
}

// UnifiedRequest is the chat-completion request body
type UnifiedRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UnifiedResponse is the subset of the chat-completion response we read.
// Content is a pointer so a missing field can be told apart from "".
type UnifiedResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message *struct {
			Role    string  `json:"role"`
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

// Usage tracks token usage
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResponse contains the reply and metadata from one completion call
type CompletionResponse struct {
	Content      string
	Model        string
	FinishReason string
	Usage        Usage
}

// ProviderInfo contains provider metadata
type ProviderInfo struct {
	Name    string
	Version string
	BaseURL string
	Model   string
}
