package server

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"chatwidget/chat"
	"chatwidget/credential"
	"chatwidget/models"
)

type sendRequest struct {
	Session    string `json:"session"`
	Text       string `json:"text"`
	Credential string `json:"credential"`
}

type turnsResponse struct {
	Turns []chat.RenderedTurn `json:"turns"`
}

type credentialRequest struct {
	Session    string `json:"session"`
	Credential string `json:"credential"`
}

type credentialResponse struct {
	Generation   uint64                  `json:"generation"`
	Status       models.ValidationStatus `json:"status"`
	Color        string                  `json:"color"`
	ApplyEnabled bool                    `json:"apply_enabled"`
	Stale        bool                    `json:"stale"`
}

type applyResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := pageTemplate.Execute(w, pageData{SessionID: sess.ID, FailureNotice: chat.FailureNotice}); err != nil {
		s.logger.Error("render page", zap.Error(err))
	}
}

// handleSend is the message pipeline entry point. The credential travels
// with the request and is used for this call only.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, ok := s.sessions.Get(req.Session)
	if !ok {
		respondError(w, http.StatusNotFound, "Unknown session")
		return
	}

	ex, ok := s.cfg.Dispatcher.Send(r.Context(), sess.ID, sess.Transcript, req.Text, req.Credential)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondJSON(w, http.StatusOK, turnsResponse{Turns: chat.RenderTurns(ex.Turns)})
}

// handleCredential is fired on every change of the credential field
func (s *Server) handleCredential(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, ok := s.sessions.Get(req.Session)
	if !ok {
		respondError(w, http.StatusNotFound, "Unknown session")
		return
	}

	res := s.cfg.Watcher.OnChange(r.Context(), sess.Credential, req.Credential)
	respondJSON(w, http.StatusOK, credentialResponse{
		Generation:   res.Generation,
		Status:       res.Indicator.Status,
		Color:        res.Indicator.Color,
		ApplyEnabled: res.Indicator.ApplyEnabled,
		Stale:        res.Stale,
	})
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	msg, err := credential.Apply(req.Credential)
	if err != nil {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	respondJSON(w, http.StatusOK, applyResponse{Message: msg})
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Get(r.URL.Query().Get("session"))
	if !ok {
		respondError(w, http.StatusNotFound, "Unknown session")
		return
	}
	respondJSON(w, http.StatusOK, turnsResponse{Turns: chat.RenderTurns(sess.Transcript.Turns())})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	info := s.cfg.Provider
	health := map[string]interface{}{
		"status":   "healthy",
		"time":     time.Now().UTC().Format(time.RFC3339),
		"sessions": s.sessions.Len(),
		"provider": map[string]string{
			"name":     info.Name,
			"version":  info.Version,
			"base_url": info.BaseURL,
			"model":    info.Model,
		},
		"rate_limit": map[string]interface{}{
			"enabled":    s.limiter != nil,
			"per_second": s.cfg.RateLimit,
			"burst":      s.cfg.RateBurst,
		},
		"privacy": map[string]interface{}{
			"audit_logging":      s.cfg.AuditEnabled,
			"stores_messages":    false,
			"stores_credentials": false,
		},
		"endpoints": map[string]interface{}{
			"send":       map[string]string{"url": "/api/send", "method": "POST"},
			"credential": map[string]string{"url": "/api/credential", "method": "POST"},
			"apply":      map[string]string{"url": "/api/credential/apply", "method": "POST"},
			"transcript": map[string]string{"url": "/api/transcript", "method": "GET"},
			"metrics":    map[string]string{"url": "/metrics", "method": "GET"},
		},
	}
	respondJSON(w, http.StatusOK, health)
}
