package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"chatwidget/models"
)

// OpenAISDKProvider reaches the provider through the official openai-go client.
// A client is built per call because the credential changes per call.
type OpenAISDKProvider struct {
	endpoint models.Endpoint
	base     []option.RequestOption
}

// NewOpenAISDKProvider creates an SDK-backed provider. Retries are disabled
// so one user action maps to one request.
func NewOpenAISDKProvider(endpoint models.Endpoint, client *http.Client) *OpenAISDKProvider {
	if client == nil {
		client = &http.Client{Timeout: endpoint.Timeout}
	}
	return &OpenAISDKProvider{
		endpoint: endpoint,
		base: []option.RequestOption{
			option.WithBaseURL(strings.TrimRight(endpoint.BaseURL, "/") + "/"),
			option.WithHTTPClient(client),
			option.WithMaxRetries(0),
		},
	}
}

func (p *OpenAISDKProvider) client(credential string) openai.Client {
	opts := make([]option.RequestOption, 0, len(p.base)+1)
	opts = append(opts, p.base...)
	opts = append(opts, option.WithAPIKey(credential))
	return openai.NewClient(opts...)
}

// Complete sends text as a single user message
func (p *OpenAISDKProvider) Complete(ctx context.Context, text, credential string) (*CompletionResponse, error) {
	if credential == "" {
		return nil, ErrMissingCredential
	}

	c := p.client(credential)
	completion, err := c.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(text),
		},
		Model:     shared.ChatModel(p.endpoint.Model),
		MaxTokens: openai.Int(int64(p.endpoint.MaxTokens)),
	})
	if err != nil {
		return nil, translateSDKError(err)
	}

	if len(completion.Choices) == 0 {
		return nil, &MalformedResponseError{Reason: "no choices"}
	}

	first := completion.Choices[0]
	return &CompletionResponse{
		Content:      first.Message.Content,
		Model:        completion.Model,
		FinishReason: string(first.FinishReason),
		Usage: Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}, nil
}

// CheckCredential lists models through the SDK
func (p *OpenAISDKProvider) CheckCredential(ctx context.Context, credential string) error {
	if credential == "" {
		return ErrMissingCredential
	}
	c := p.client(credential)
	if _, err := c.Models.List(ctx); err != nil {
		return translateSDKError(err)
	}
	return nil
}

// GetInfo returns provider information
func (p *OpenAISDKProvider) GetInfo() ProviderInfo {
	return ProviderInfo{
		Name:    "openai-go SDK",
		Version: "3",
		BaseURL: p.endpoint.BaseURL,
		Model:   p.endpoint.Model,
	}
}

// translateSDKError maps SDK failures onto the provider error taxonomy
func translateSDKError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &HTTPError{StatusCode: apiErr.StatusCode}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &MalformedResponseError{Reason: "invalid JSON", Err: err}
	}

	return &NetworkError{Err: err}
}
