package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatwidget/models"
)

func TestOpenAISDKProviderComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-3.5-turbo", body["model"])
		assert.EqualValues(t, 150, body["max_tokens"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"gpt-3.5-turbo","choices":[{"index":0,"message":{"role":"assistant","content":"hi"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	ep := testEndpoint(srv.URL)
	ep.Provider = models.ProviderOpenAISDK
	p := NewOpenAISDKProvider(ep, nil)

	resp, err := p.Complete(context.Background(), "hello", "sk-test")
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Content)
}

func TestOpenAISDKProviderDoesNotRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"boom"}}`))
	}))
	defer srv.Close()

	p := NewOpenAISDKProvider(testEndpoint(srv.URL), nil)
	_, err := p.Complete(context.Background(), "hello", "sk-test")

	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestOpenAISDKProviderCheckCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer sk-good" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"invalid key"}}`))
			return
		}
		w.Write([]byte(`{"object":"list","data":[]}`))
	}))
	defer srv.Close()

	p := NewOpenAISDKProvider(testEndpoint(srv.URL), nil)
	assert.NoError(t, p.CheckCredential(context.Background(), "sk-good"))
	assert.Equal(t, http.StatusUnauthorized, StatusCode(p.CheckCredential(context.Background(), "sk-bad")))
}
