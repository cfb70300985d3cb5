package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatwidget/chat"
	"chatwidget/config"
	"chatwidget/credential"
	"chatwidget/models"
	"chatwidget/providers"
	"chatwidget/telemetry"
)

type fakeProvider struct {
	mu          sync.Mutex
	reply       string
	err         error
	credentials []string
	valid       map[string]bool
}

func (f *fakeProvider) Complete(ctx context.Context, text, credential string) (*providers.CompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credentials = append(f.credentials, credential)
	if f.err != nil {
		return nil, f.err
	}
	return &providers.CompletionResponse{Content: f.reply, Model: "test-model"}, nil
}

func (f *fakeProvider) CheckCredential(ctx context.Context, credential string) error {
	if f.valid[credential] {
		return nil
	}
	return &providers.HTTPError{StatusCode: http.StatusUnauthorized}
}

func (f *fakeProvider) GetInfo() providers.ProviderInfo {
	return providers.ProviderInfo{Name: "fake", Model: "test-model"}
}

func (f *fakeProvider) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.credentials...)
}

func newTestServer(t *testing.T, p *fakeProvider, rateLimit float64, burst int) *Server {
	t.Helper()
	metrics := telemetry.NewMetrics()
	return NewServer(ServerConfig{
		Dispatcher: chat.NewDispatcher(p, chat.WithMetrics(metrics)),
		Watcher:    credential.NewWatcher(credential.NewValidator(p, nil), metrics),
		Sessions:   NewSessionStore(time.Hour, metrics),
		Metrics:    metrics,
		Provider:   p.GetInfo(),
		RateLimit:  rateLimit,
		RateBurst:  burst,
	})
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeTurns(t *testing.T, rec *httptest.ResponseRecorder) []chat.RenderedTurn {
	t.Helper()
	var resp turnsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Turns
}

func TestIndexMintsSession(t *testing.T) {
	srv := newTestServer(t, &fakeProvider{}, 0, 0)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Equal(t, contentSecurityPolicy, rec.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, rec.Body.String(), `data-session="`)
	assert.Equal(t, 1, srv.Sessions().Len())

	// Every page load is a new session
	srv.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, 2, srv.Sessions().Len())
}

func TestSendEmptyTextIsNoop(t *testing.T) {
	p := &fakeProvider{reply: "hi"}
	srv := newTestServer(t, p, 0, 0)
	sess := srv.Sessions().Create()

	rec := postJSON(t, srv.Handler(), "/api/send", sendRequest{Session: sess.ID, Text: "  \n\t ", Credential: "sk-test"})

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, sess.Transcript.Len())
	assert.Empty(t, p.calls())
}

func TestSendMissingCredential(t *testing.T) {
	p := &fakeProvider{reply: "hi"}
	srv := newTestServer(t, p, 0, 0)
	sess := srv.Sessions().Create()

	rec := postJSON(t, srv.Handler(), "/api/send", sendRequest{Session: sess.ID, Text: "hello", Credential: "   "})

	require.Equal(t, http.StatusOK, rec.Code)
	turns := decodeTurns(t, rec)
	require.Len(t, turns, 1)
	assert.Equal(t, models.SenderAssistant, turns[0].Sender)
	assert.Equal(t, chat.MissingCredentialNotice, turns[0].Text)
	assert.Empty(t, p.calls())
	assert.Equal(t, 1, sess.Transcript.Len())
}

func TestSendRendersEscapedReply(t *testing.T) {
	p := &fakeProvider{reply: "<b>bold</b>\nnext"}
	srv := newTestServer(t, p, 0, 0)
	sess := srv.Sessions().Create()

	rec := postJSON(t, srv.Handler(), "/api/send", sendRequest{Session: sess.ID, Text: "a & b", Credential: "sk-test"})

	require.Equal(t, http.StatusOK, rec.Code)
	turns := decodeTurns(t, rec)
	require.Len(t, turns, 2)
	assert.Equal(t, models.SenderUser, turns[0].Sender)
	assert.Equal(t, `<div class="user-message">a &amp; b</div>`, string(turns[0].HTML))
	assert.Equal(t, models.SenderAssistant, turns[1].Sender)
	assert.Equal(t, `<div class="ai-message">&lt;b&gt;bold&lt;/b&gt;<br>next</div>`, string(turns[1].HTML))
}

func TestSendFailureShowsGenericNotice(t *testing.T) {
	p := &fakeProvider{err: &providers.MalformedResponseError{Reason: "no choices"}}
	srv := newTestServer(t, p, 0, 0)
	sess := srv.Sessions().Create()

	rec := postJSON(t, srv.Handler(), "/api/send", sendRequest{Session: sess.ID, Text: "hello", Credential: "sk-test"})

	require.Equal(t, http.StatusOK, rec.Code)
	turns := decodeTurns(t, rec)
	require.Len(t, turns, 2)
	assert.Equal(t, "hello", turns[0].Text)
	assert.Equal(t, chat.FailureNotice, turns[1].Text)
	assert.NotContains(t, rec.Body.String(), "no choices")
}

func TestSendUsesCredentialFromEachRequest(t *testing.T) {
	p := &fakeProvider{reply: "ok"}
	srv := newTestServer(t, p, 0, 0)
	sess := srv.Sessions().Create()

	postJSON(t, srv.Handler(), "/api/send", sendRequest{Session: sess.ID, Text: "one", Credential: "sk-first"})
	postJSON(t, srv.Handler(), "/api/send", sendRequest{Session: sess.ID, Text: "two", Credential: "sk-second"})

	assert.Equal(t, []string{"sk-first", "sk-second"}, p.calls())
}

func TestUnknownSession(t *testing.T) {
	srv := newTestServer(t, &fakeProvider{}, 0, 0)

	rec := postJSON(t, srv.Handler(), "/api/send", sendRequest{Session: "missing", Text: "hi", Credential: "sk"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = postJSON(t, srv.Handler(), "/api/credential", credentialRequest{Session: "missing", Credential: "sk"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/transcript?session=missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInvalidJSON(t *testing.T) {
	srv := newTestServer(t, &fakeProvider{}, 0, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/send", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid JSON")
}

func TestCredentialIndicator(t *testing.T) {
	p := &fakeProvider{valid: map[string]bool{"sk-good": true}}
	srv := newTestServer(t, p, 0, 0)
	sess := srv.Sessions().Create()

	decode := func(rec *httptest.ResponseRecorder) credentialResponse {
		var resp credentialResponse
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp
	}

	good := decode(postJSON(t, srv.Handler(), "/api/credential", credentialRequest{Session: sess.ID, Credential: "sk-good"}))
	assert.Equal(t, models.StatusValid, good.Status)
	assert.Equal(t, "green", good.Color)
	assert.True(t, good.ApplyEnabled)

	bad := decode(postJSON(t, srv.Handler(), "/api/credential", credentialRequest{Session: sess.ID, Credential: "sk-bad"}))
	assert.Equal(t, models.StatusInvalid, bad.Status)
	assert.Equal(t, "red", bad.Color)
	assert.False(t, bad.ApplyEnabled)
	assert.Greater(t, bad.Generation, good.Generation)

	empty := decode(postJSON(t, srv.Handler(), "/api/credential", credentialRequest{Session: sess.ID, Credential: ""}))
	assert.Equal(t, models.StatusUnknown, empty.Status)
	assert.Equal(t, "transparent", empty.Color)
	assert.False(t, empty.ApplyEnabled)

	status, _ := sess.Credential.Status()
	assert.Equal(t, models.StatusUnknown, status)
}

func TestApply(t *testing.T) {
	srv := newTestServer(t, &fakeProvider{}, 0, 0)

	rec := postJSON(t, srv.Handler(), "/api/credential/apply", credentialRequest{Credential: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), credential.ApplyMissingNotice)

	rec = postJSON(t, srv.Handler(), "/api/credential/apply", credentialRequest{Credential: "sk-anything"})
	assert.Equal(t, http.StatusOK, rec.Code)
	var resp applyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, credential.ApplySuccessNotice, resp.Message)
}

func TestTranscriptReturnsAllTurns(t *testing.T) {
	p := &fakeProvider{reply: "pong"}
	srv := newTestServer(t, p, 0, 0)
	sess := srv.Sessions().Create()

	postJSON(t, srv.Handler(), "/api/send", sendRequest{Session: sess.ID, Text: "ping", Credential: "sk"})
	postJSON(t, srv.Handler(), "/api/send", sendRequest{Session: sess.ID, Text: "ping again", Credential: ""})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/transcript?session="+sess.ID, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	turns := decodeTurns(t, rec)
	require.Len(t, turns, 3)
	assert.Equal(t, "ping", turns[0].Text)
	assert.Equal(t, "pong", turns[1].Text)
	assert.Equal(t, chat.MissingCredentialNotice, turns[2].Text)
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, &fakeProvider{}, 1, 1)

	first := postJSON(t, srv.Handler(), "/api/credential/apply", credentialRequest{Credential: "sk"})
	assert.Equal(t, http.StatusOK, first.Code)

	second := postJSON(t, srv.Handler(), "/api/credential/apply", credentialRequest{Credential: "sk"})
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// The page itself is not limited
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	p := &fakeProvider{reply: "ok"}
	srv := newTestServer(t, p, 0, 0)
	sess := srv.Sessions().Create()
	postJSON(t, srv.Handler(), "/api/send", sendRequest{Session: sess.ID, Text: "hi", Credential: "sk"})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var health map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])
	assert.EqualValues(t, 1, health["sessions"])

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `chatwidget_sends_total{outcome="ok"} 1`)
}

func TestCredentialTypedPerKeystrokeUnderDefaultLimits(t *testing.T) {
	const key = "sk-abcdefghijklmnopqrst"
	p := &fakeProvider{valid: map[string]bool{key: true}}
	defaults := config.Default()
	srv := newTestServer(t, p, defaults.Server.RateLimit, defaults.Server.RateBurst)
	sess := srv.Sessions().Create()

	var last credentialResponse
	for i := 1; i <= len(key); i++ {
		rec := postJSON(t, srv.Handler(), "/api/credential", credentialRequest{Session: sess.ID, Credential: key[:i]})
		require.Equal(t, http.StatusOK, rec.Code, "keystroke %d", i)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &last))
	}

	assert.Equal(t, models.StatusValid, last.Status)
	assert.True(t, last.ApplyEnabled)
	status, _ := sess.Credential.Status()
	assert.Equal(t, models.StatusValid, status)

	// Apply is still limited
	codes := map[int]int{}
	for i := 0; i < defaults.Server.RateBurst+5; i++ {
		rec := postJSON(t, srv.Handler(), "/api/credential/apply", credentialRequest{Credential: key})
		codes[rec.Code]++
	}
	assert.Positive(t, codes[http.StatusTooManyRequests])
}

func TestForwardedForIgnoredByDefault(t *testing.T) {
	srv := newTestServer(t, &fakeProvider{}, 1, 1)

	allowed := 0
	for i := 0; i < 20; i++ {
		raw, err := json.Marshal(credentialRequest{Credential: "sk"})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/api/credential/apply", bytes.NewReader(raw))
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		req.Header.Set("X-Real-IP", fmt.Sprintf("198.51.100.%d", i+1))
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusTooManyRequests {
			allowed++
		}
	}

	assert.Equal(t, 1, allowed)
	assert.Len(t, srv.limiter.clients, 1)
}

func TestForwardedForHonouredBehindTrustedProxy(t *testing.T) {
	p := &fakeProvider{}
	srv := NewServer(ServerConfig{
		Dispatcher: chat.NewDispatcher(p),
		Watcher:    credential.NewWatcher(credential.NewValidator(p, nil), nil),
		RateLimit:  1,
		RateBurst:  1,
		TrustProxy: true,
	})

	for _, ip := range []string{"203.0.113.1", "203.0.113.2"} {
		raw, err := json.Marshal(credentialRequest{Credential: "sk"})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/api/credential/apply", bytes.NewReader(raw))
		req.Header.Set("X-Forwarded-For", ip)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, ip)
	}
	assert.Len(t, srv.limiter.clients, 2)
}

func TestPageScriptHandlesFailures(t *testing.T) {
	srv := newTestServer(t, &fakeProvider{}, 0, 0)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	// Non-OK sends fall back to the generic notice
	assert.Contains(t, body, `var failureNotice = "`+chat.FailureNotice+`";`)
	assert.Contains(t, body, "if (!res.ok) {")
	assert.Contains(t, body, ".catch(appendFailure)")
	// Superseded checks never repaint the dot and failed checks reset it
	assert.Contains(t, body, "if (res.stale || res.generation < latestGeneration)")
	assert.Contains(t, body, "resetIndicator();")
}
