package main

import (
	"fmt"

	"go.uber.org/zap"

	"chatwidget/audit"
	"chatwidget/chat"
	"chatwidget/config"
	"chatwidget/credential"
	"chatwidget/providers"
	"chatwidget/telemetry"
)

// pipelines bundles the message and credential pipelines built from config
type pipelines struct {
	provider   providers.Provider
	dispatcher *chat.Dispatcher
	watcher    *credential.Watcher
	audit      *audit.Store
}

// newPipelines builds the provider and both pipelines. metrics may be nil.
func newPipelines(cfg *config.Config, logger *zap.Logger, metrics *telemetry.Metrics) (*pipelines, error) {
	endpoint := cfg.Endpoint()
	provider, err := providers.New(endpoint, nil)
	if err != nil {
		return nil, err
	}

	p := &pipelines{provider: provider}
	opts := []chat.DispatcherOption{
		chat.WithLogger(logger),
		chat.WithMetrics(metrics),
	}
	if cfg.Audit.Path != "" {
		store, err := audit.Open(cfg.Audit.Path, logger.Named("audit"))
		if err != nil {
			return nil, fmt.Errorf("failed to open audit store: %w", err)
		}
		p.audit = store
		opts = append(opts, chat.WithAuditor(store, providers.NewTokenCounter(endpoint.Model)))
	}

	p.dispatcher = chat.NewDispatcher(provider, opts...)
	p.watcher = credential.NewWatcher(credential.NewValidator(provider, logger), metrics)

	info := provider.GetInfo()
	logger.Info("provider configured",
		zap.String("provider", info.Name),
		zap.String("base_url", info.BaseURL),
		zap.String("model", info.Model),
		zap.Int("max_tokens", endpoint.MaxTokens),
		zap.Duration("timeout", endpoint.Timeout),
		zap.Bool("audit", p.audit != nil))
	return p, nil
}

// Close releases the audit store, if any
func (p *pipelines) Close() error {
	if p.audit == nil {
		return nil
	}
	return p.audit.Close()
}
