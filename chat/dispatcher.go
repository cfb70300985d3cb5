package chat

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"chatwidget/audit"
	"chatwidget/models"
	"chatwidget/providers"
	"chatwidget/telemetry"
)

// User-visible notices. Provider error details never reach the transcript.
const (
	MissingCredentialNotice = "Error: API key is missing. Please enter your OpenAI API key in settings."
	FailureNotice           = "Error fetching response from OpenAI API."
)

// Auditor records request outcomes
type Auditor interface {
	Record(ctx context.Context, e audit.Entry) error
}

// Exchange is what one send appended to the transcript
type Exchange struct {
	// Turns appended by this send, in order
	Turns []models.Turn
	// Reply is the assistant turn (a notice when the call did not succeed)
	Reply models.Turn
	// Err is the underlying failure, kept for diagnostics only
	Err error
}

// Dispatcher runs the message pipeline: append the user turn, call the
// provider, append the reply.
type Dispatcher struct {
	provider providers.Provider
	logger   *zap.Logger
	metrics  *telemetry.Metrics
	auditor  Auditor
	tokens   *providers.TokenCounter
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = l.Named("dispatch") }
}

// WithMetrics sets the metrics sink
func WithMetrics(m *telemetry.Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithAuditor enables outcome auditing; tokens sizes prompts and replies
// when the provider does not report usage.
func WithAuditor(a Auditor, tokens *providers.TokenCounter) DispatcherOption {
	return func(d *Dispatcher) {
		d.auditor = a
		d.tokens = tokens
	}
}

// NewDispatcher creates a dispatcher for provider
func NewDispatcher(provider providers.Provider, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		provider: provider,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Send submits text with the credential supplied alongside it. Text that is
// empty after trimming is a no-op and returns ok=false. Provider failures
// never surface as errors: they become the generic failure notice.
func (d *Dispatcher) Send(ctx context.Context, sessionID string, transcript *Transcript, text, credential string) (ex *Exchange, ok bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		d.metrics.ObserveSend(telemetry.OutcomeEmpty)
		return nil, false
	}

	credential = strings.TrimSpace(credential)
	if credential == "" {
		reply := models.NewAssistantTurn(MissingCredentialNotice)
		transcript.Append(reply)
		d.metrics.ObserveSend(telemetry.OutcomeMissingCredential)
		return &Exchange{
			Turns: []models.Turn{reply},
			Reply: reply,
			Err:   providers.ErrMissingCredential,
		}, true
	}

	// The user turn lands before the provider is contacted
	user := models.NewUserTurn(text)
	transcript.Append(user)

	start := time.Now()
	resp, err := d.provider.Complete(ctx, text, credential)
	elapsed := time.Since(start)
	d.metrics.ObserveCompletion(elapsed)

	var reply models.Turn
	if err != nil {
		d.logger.Warn("completion failed",
			zap.String("session", sessionID),
			zap.String("kind", providers.Kind(err)),
			zap.Int("status", providers.StatusCode(err)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		reply = models.NewAssistantTurn(FailureNotice)
		d.metrics.ObserveSend(telemetry.OutcomeFailure)
	} else {
		d.logger.Debug("completion received",
			zap.String("session", sessionID),
			zap.String("model", resp.Model),
			zap.String("finish_reason", resp.FinishReason),
			zap.Duration("elapsed", elapsed))
		reply = models.NewAssistantTurn(resp.Content)
		d.metrics.ObserveSend(telemetry.OutcomeOK)
	}
	transcript.Append(reply)

	d.record(ctx, sessionID, text, resp, err, elapsed)

	return &Exchange{
		Turns: []models.Turn{user, reply},
		Reply: reply,
		Err:   err,
	}, true
}

func (d *Dispatcher) record(ctx context.Context, sessionID, text string, resp *providers.CompletionResponse, err error, elapsed time.Duration) {
	if d.auditor == nil {
		return
	}
	info := d.provider.GetInfo()
	entry := audit.Entry{
		SessionID:  sessionID,
		Model:      info.Model,
		Provider:   info.Name,
		Outcome:    providers.Kind(err),
		StatusCode: providers.StatusCode(err),
		Duration:   elapsed,
	}
	if resp != nil {
		entry.InputTokens = resp.Usage.PromptTokens
		entry.OutputTokens = resp.Usage.CompletionTokens
		if d.tokens != nil && resp.Usage.TotalTokens == 0 {
			entry.InputTokens = d.tokens.Count(text)
			entry.OutputTokens = d.tokens.Count(resp.Content)
		}
	} else if d.tokens != nil {
		entry.InputTokens = d.tokens.Count(text)
	}
	// Audit is best effort; the store logs its own failures
	_ = d.auditor.Record(context.WithoutCancel(ctx), entry)
}
