package models

import (
	"strings"
	"time"
)

// ProviderType selects the transport used to reach the completion provider
type ProviderType string

const (
	// ProviderHTTP speaks the OpenAI-compatible REST API directly over net/http
	ProviderHTTP ProviderType = "http"
	// ProviderOpenAISDK goes through the official openai-go client
	ProviderOpenAISDK ProviderType = "openai_sdk"
)

// Valid reports whether the provider type is one we know how to build
func (p ProviderType) Valid() bool {
	switch p {
	case ProviderHTTP, ProviderOpenAISDK:
		return true
	}
	return false
}

// Endpoint describes the fixed provider every request goes to.
// It deliberately carries no credential: callers pass the credential
// with each call.
type Endpoint struct {
	Provider  ProviderType  `json:"provider" yaml:"provider"`
	BaseURL   string        `json:"base_url" yaml:"base_url"` // e.g. https://api.openai.com/v1
	Model     string        `json:"model" yaml:"model"`
	MaxTokens int           `json:"max_tokens" yaml:"max_tokens"`
	Timeout   time.Duration `json:"timeout" yaml:"timeout"`
}

// CompletionsURL is the chat-completion endpoint
func (e Endpoint) CompletionsURL() string {
	return strings.TrimRight(e.BaseURL, "/") + "/chat/completions"
}

// ModelsURL is the model-listing endpoint used for credential probes
func (e Endpoint) ModelsURL() string {
	return strings.TrimRight(e.BaseURL, "/") + "/models"
}
