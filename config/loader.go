package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/codingconcepts/env"
	"gopkg.in/yaml.v3"

	"chatwidget/models"
)

// DefaultPath is read when no config file is named and it exists
const DefaultPath = "chatwidget.yaml"

// Config represents the complete configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Provider ProviderConfig `yaml:"provider"`
	Audit    AuditConfig    `yaml:"audit"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig from YAML
type ServerConfig struct {
	Address    string  `yaml:"address" env:"CHATWIDGET_ADDR"`
	TLSCert    string  `yaml:"tls_cert" env:"CHATWIDGET_TLS_CERT"`
	TLSKey     string  `yaml:"tls_key" env:"CHATWIDGET_TLS_KEY"`
	SessionTTL string  `yaml:"session_ttl" env:"CHATWIDGET_SESSION_TTL"`
	RateLimit  float64 `yaml:"rate_limit" env:"CHATWIDGET_RATE_LIMIT"` // requests per second per client
	RateBurst  int     `yaml:"rate_burst" env:"CHATWIDGET_RATE_BURST"`
	TrustProxy bool    `yaml:"trust_proxy" env:"CHATWIDGET_TRUST_PROXY"` // honour X-Forwarded-For
}

// ProviderConfig from YAML. There is no credential here: the credential
// always comes from the user with each request.
type ProviderConfig struct {
	Kind      string `yaml:"kind" env:"CHATWIDGET_PROVIDER"`
	BaseURL   string `yaml:"base_url" env:"CHATWIDGET_BASE_URL"`
	Model     string `yaml:"model" env:"CHATWIDGET_MODEL"`
	MaxTokens int    `yaml:"max_tokens" env:"CHATWIDGET_MAX_TOKENS"`
	Timeout   string `yaml:"timeout" env:"CHATWIDGET_TIMEOUT"`
}

// AuditConfig from YAML
type AuditConfig struct {
	Path string `yaml:"path" env:"CHATWIDGET_AUDIT_PATH"` // empty disables auditing
}

// LogConfig from YAML
type LogConfig struct {
	Debug bool `yaml:"debug" env:"CHATWIDGET_DEBUG"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:    ":8080",
			SessionTTL: "30m",
			RateLimit:  2,
			RateBurst:  10,
		},
		Provider: ProviderConfig{
			Kind:      string(models.ProviderHTTP),
			BaseURL:   "https://api.openai.com/v1",
			Model:     "gpt-3.5-turbo",
			MaxTokens: 150,
			Timeout:   "60s",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file, then
// environment variables. An empty path reads DefaultPath if present.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	if err := loadYAMLFile(path, cfg); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	expandEnvVars(cfg)

	for _, section := range []any{&cfg.Server, &cfg.Provider, &cfg.Audit, &cfg.Log} {
		if err := env.Set(section); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with
func (c *Config) Validate() error {
	if !models.ProviderType(c.Provider.Kind).Valid() {
		return fmt.Errorf("unknown provider kind %q", c.Provider.Kind)
	}
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider base_url is required")
	}
	if c.Provider.Model == "" {
		return fmt.Errorf("provider model is required")
	}
	if c.Provider.MaxTokens <= 0 {
		return fmt.Errorf("provider max_tokens must be positive, got %d", c.Provider.MaxTokens)
	}
	if _, err := time.ParseDuration(c.Provider.Timeout); err != nil {
		return fmt.Errorf("invalid provider timeout %q: %w", c.Provider.Timeout, err)
	}
	if _, err := time.ParseDuration(c.Server.SessionTTL); err != nil {
		return fmt.Errorf("invalid session_ttl %q: %w", c.Server.SessionTTL, err)
	}
	if (c.Server.TLSCert == "") != (c.Server.TLSKey == "") {
		return fmt.Errorf("tls_cert and tls_key must be set together")
	}
	return nil
}

// Endpoint converts the provider section into the endpoint descriptor
func (c *Config) Endpoint() models.Endpoint {
	timeout, _ := time.ParseDuration(c.Provider.Timeout)
	return models.Endpoint{
		Provider:  models.ProviderType(c.Provider.Kind),
		BaseURL:   c.Provider.BaseURL,
		Model:     c.Provider.Model,
		MaxTokens: c.Provider.MaxTokens,
		Timeout:   timeout,
	}
}

// SessionTTL returns the idle lifetime of a page session
func (c *Config) SessionTTL() time.Duration {
	ttl, _ := time.ParseDuration(c.Server.SessionTTL)
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return ttl
}

// loadYAMLFile loads a YAML file into a structure
func loadYAMLFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, v)
}

// expandEnvVars expands environment variables in configuration
func expandEnvVars(cfg *Config) {
	cfg.Provider.BaseURL = expandEnv(cfg.Provider.BaseURL)
	cfg.Audit.Path = expandEnv(cfg.Audit.Path)
	cfg.Server.TLSCert = expandEnv(cfg.Server.TLSCert)
	cfg.Server.TLSKey = expandEnv(cfg.Server.TLSKey)
}

// expandEnv expands environment variables in a string
func expandEnv(s string) string {
	if strings.Contains(s, "${") {
		return os.Expand(s, func(key string) string {
			// Handle default values like ${VAR:-default}
			parts := strings.SplitN(key, ":-", 2)
			value := os.Getenv(parts[0])
			if value == "" && len(parts) > 1 {
				return parts[1]
			}
			return value
		})
	}
	return s
}
