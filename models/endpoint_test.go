package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEndpointURLs(t *testing.T) {
	e := Endpoint{BaseURL: "https://api.openai.com/v1/"}
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", e.CompletionsURL())
	assert.Equal(t, "https://api.openai.com/v1/models", e.ModelsURL())

	e = Endpoint{BaseURL: "http://localhost:8000/v1///"}
	assert.Equal(t, "http://localhost:8000/v1/chat/completions", e.CompletionsURL())
	assert.Equal(t, "http://localhost:8000/v1/models", e.ModelsURL())
}

func TestProviderTypeValid(t *testing.T) {
	assert.True(t, ProviderHTTP.Valid())
	assert.True(t, ProviderOpenAISDK.Valid())
	assert.False(t, ProviderType("oneapi").Valid())
}

func TestStatusFromProbe(t *testing.T) {
	assert.Equal(t, StatusValid, StatusFromProbe(true))
	assert.Equal(t, StatusInvalid, StatusFromProbe(false))
}

func TestTurnCSSClass(t *testing.T) {
	assert.Equal(t, "user-message", NewUserTurn("hi").CSSClass())
	assert.Equal(t, "ai-message", NewAssistantTurn("hi").CSSClass())
}
