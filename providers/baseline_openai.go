package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"chatwidget/models"
)

// maxResponseBytes caps how much of a completion body we read
const maxResponseBytes = 4 * 1024 * 1024

// HTTPProvider talks to an OpenAI-compatible API directly over net/http.
// It issues exactly one request per call and never retries.
type HTTPProvider struct {
	endpoint models.Endpoint
	client   *http.Client
}

// NewHTTPProvider creates a provider for endpoint. A nil client gets one
// with the endpoint timeout.
func NewHTTPProvider(endpoint models.Endpoint, client *http.Client) *HTTPProvider {
	if client == nil {
		client = &http.Client{
			Timeout: endpoint.Timeout,
		}
	}
	return &HTTPProvider{
		endpoint: endpoint,
		client:   client,
	}
}

// Complete posts text as a single user message and extracts the first choice
func (p *HTTPProvider) Complete(ctx context.Context, text, credential string) (*CompletionResponse, error) {
	if credential == "" {
		return nil, ErrMissingCredential
	}

	body := UnifiedRequest{
		Model: p.endpoint.Model,
		Messages: []Message{
			{Role: "user", Content: text},
		},
		MaxTokens: p.endpoint.MaxTokens,
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint.CompletionsURL(), bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	if !isSuccess(resp.StatusCode) {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: truncateBody(raw)}
	}

	return parseCompletion(raw)
}

// CheckCredential lists models with the credential; only the status matters
func (p *HTTPProvider) CheckCredential(ctx context.Context, credential string) error {
	if credential == "" {
		return ErrMissingCredential
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint.ModelsURL(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := p.client.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if !isSuccess(resp.StatusCode) {
		return &HTTPError{StatusCode: resp.StatusCode}
	}
	return nil
}

// GetInfo returns provider information
func (p *HTTPProvider) GetInfo() ProviderInfo {
	return ProviderInfo{
		Name:    "OpenAI-compatible HTTP",
		Version: "1.0",
		BaseURL: p.endpoint.BaseURL,
		Model:   p.endpoint.Model,
	}
}

// parseCompletion pulls choices[0].message.content out of a response body
func parseCompletion(raw []byte) (*CompletionResponse, error) {
	var resp UnifiedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &MalformedResponseError{Reason: "invalid JSON", Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &MalformedResponseError{Reason: "no choices"}
	}
	first := resp.Choices[0]
	if first.Message == nil || first.Message.Content == nil {
		return nil, &MalformedResponseError{Reason: "first choice has no message content"}
	}
	return &CompletionResponse{
		Content:      *first.Message.Content,
		Model:        resp.Model,
		FinishReason: first.FinishReason,
		Usage:        resp.Usage,
	}, nil
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}
