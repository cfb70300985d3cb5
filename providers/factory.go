package providers

import (
	"fmt"
	"net/http"
	"time"

	"chatwidget/models"
)

// DefaultTimeout applies when the endpoint leaves the timeout unset
const DefaultTimeout = 60 * time.Second

// New builds the provider selected by endpoint.Provider
func New(endpoint models.Endpoint, client *http.Client) (Provider, error) {
	if endpoint.Timeout <= 0 {
		endpoint.Timeout = DefaultTimeout
	}
	switch endpoint.Provider {
	case models.ProviderHTTP, "":
		return NewHTTPProvider(endpoint, client), nil
	case models.ProviderOpenAISDK:
		return NewOpenAISDKProvider(endpoint, client), nil
	}
	return nil, fmt.Errorf("unknown provider %q", endpoint.Provider)
}
