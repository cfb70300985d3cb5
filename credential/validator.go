// Package credential implements the settings-panel pipeline: every change of
// the credential field is probed against the provider and the newest result
// drives the status dot and the apply button.
package credential

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"chatwidget/models"
	"chatwidget/providers"
	"chatwidget/telemetry"
)

// Notices returned by Apply
const (
	ApplyMissingNotice = "Please enter a valid API Key."
	ApplySuccessNotice = "API Key applied successfully!"
)

// Validator probes a credential against the provider's model listing
type Validator struct {
	provider providers.Provider
	logger   *zap.Logger
}

// NewValidator creates a validator
func NewValidator(provider providers.Provider, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{provider: provider, logger: logger.Named("probe")}
}

// Probe reports whether the provider accepted the credential. Rejections and
// transport failures both read as false; the difference is only logged.
func (v *Validator) Probe(ctx context.Context, credential string) bool {
	err := v.provider.CheckCredential(ctx, credential)
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		v.logger.Debug("probe cancelled")
		return false
	}
	v.logger.Debug("probe rejected",
		zap.String("kind", providers.Kind(err)),
		zap.Int("status", providers.StatusCode(err)),
		zap.Error(err))
	return false
}

// Result is the outcome of one credential change
type Result struct {
	Generation uint64    `json:"generation"`
	Indicator  Indicator `json:"indicator"`
	// Stale is set when a newer change superseded this probe before it
	// finished; Indicator then reflects the newer state.
	Stale bool `json:"stale"`
}

// Watcher wires credential-field changes through the validator into a tracker
type Watcher struct {
	validator *Validator
	metrics   *telemetry.Metrics
}

// NewWatcher creates a watcher
func NewWatcher(validator *Validator, metrics *telemetry.Metrics) *Watcher {
	return &Watcher{validator: validator, metrics: metrics}
}

// OnChange handles one change of the credential field. An empty value resets
// the indicator without contacting the provider.
func (w *Watcher) OnChange(ctx context.Context, tracker *Tracker, credential string) Result {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		gen := tracker.Reset()
		return Result{Generation: gen, Indicator: IndicatorFor(models.StatusUnknown)}
	}

	gen, probeCtx, cancel := tracker.Begin(ctx)
	defer cancel()

	ok := w.validator.Probe(probeCtx, credential)
	status, applied := tracker.Resolve(gen, ok)
	if !applied {
		w.metrics.ObserveProbe(telemetry.ProbeStale)
		return Result{Generation: gen, Indicator: IndicatorFor(status), Stale: true}
	}

	if ok {
		w.metrics.ObserveProbe(telemetry.ProbeValid)
	} else {
		w.metrics.ObserveProbe(telemetry.ProbeInvalid)
	}
	return Result{Generation: gen, Indicator: IndicatorFor(status)}
}

// Apply acknowledges the credential. It has no network effect: completion
// requests read the credential from the field at send time anyway.
func Apply(credential string) (string, error) {
	if strings.TrimSpace(credential) == "" {
		return ApplyMissingNotice, providers.ErrMissingCredential
	}
	return ApplySuccessNotice, nil
}
