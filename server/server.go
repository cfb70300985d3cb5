// Package server exposes the chat widget over HTTP: the widget page, the
// JSON API behind it, health and metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"chatwidget/chat"
	"chatwidget/credential"
	"chatwidget/providers"
	"chatwidget/telemetry"
)

// contentSecurityPolicy allows the inline page script and style and nothing else
const contentSecurityPolicy = "default-src 'self'; script-src 'unsafe-inline'; object-src 'none'; base-uri 'none'; style-src 'unsafe-inline'"

// ServerConfig holds the dependencies and settings of the HTTP server
type ServerConfig struct {
	Address    string
	Dispatcher *chat.Dispatcher
	Watcher    *credential.Watcher
	Sessions   *SessionStore
	Metrics    *telemetry.Metrics
	Logger     *zap.Logger
	// Provider describes the upstream endpoint for /health
	Provider providers.ProviderInfo
	// ProviderTimeout bounds one upstream call; the write timeout is derived from it
	ProviderTimeout time.Duration
	RateLimit       float64
	RateBurst       int
	AuditEnabled    bool
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Only enable it behind a proxy that overwrites those headers.
	TrustProxy bool
}

// Server is the widget HTTP server
type Server struct {
	cfg      ServerConfig
	logger   *zap.Logger
	sessions *SessionStore
	limiter  *rateLimiter
	router   chi.Router
}

// NewServer builds the router and handlers
func NewServer(cfg ServerConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Sessions == nil {
		cfg.Sessions = NewSessionStore(30*time.Minute, cfg.Metrics)
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = providers.DefaultTimeout
	}

	s := &Server{
		cfg:      cfg,
		logger:   cfg.Logger.Named("http"),
		sessions: cfg.Sessions,
		limiter:  newRateLimiter(cfg.RateLimit, cfg.RateBurst),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	if s.cfg.TrustProxy {
		router.Use(middleware.RealIP)
	}
	router.Use(s.requestLogger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeaders)

	router.Get("/", s.handleIndex)
	router.Get("/health", s.handleHealth)
	router.Method(http.MethodGet, "/metrics", s.cfg.Metrics.Handler())

	router.Route("/api", func(r chi.Router) {
		// The key field checks on every keystroke and each check cancels the
		// one before it, so these are not counted against the limit.
		r.Post("/credential", s.handleCredential)

		r.Group(func(r chi.Router) {
			r.Use(s.limiter.middleware)
			r.Post("/send", s.handleSend)
			r.Post("/credential/apply", s.handleApply)
			r.Get("/transcript", s.handleTranscript)
		})
	})
	return router
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Sessions returns the session store
func (s *Server) Sessions() *SessionStore {
	return s.sessions
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
// TLS is used when both certFile and keyFile are set.
func (s *Server) ListenAndServe(ctx context.Context, certFile, keyFile string) error {
	srv := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.cfg.ProviderTimeout + 15*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go s.sessions.Run(janitorCtx, time.Minute)
	go s.forgetIdleClients(janitorCtx)

	errCh := make(chan error, 1)
	go func() {
		var err error
		if certFile != "" && keyFile != "" {
			s.logger.Info("listening", zap.String("addr", srv.Addr), zap.Bool("tls", true))
			err = srv.ListenAndServeTLS(certFile, keyFile)
		} else {
			s.logger.Info("listening", zap.String("addr", srv.Addr), zap.Bool("tls", false))
			err = srv.ListenAndServe()
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) forgetIdleClients(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.limiter.forget(10 * time.Minute)
		case <-ctx.Done():
			return
		}
	}
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		headers.Set("X-Content-Type-Options", "nosniff")
		headers.Set("X-Frame-Options", "DENY")
		headers.Set("Referrer-Policy", "no-referrer")
		headers.Set("Content-Security-Policy", contentSecurityPolicy)
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one line per request. Bodies are never logged: they
// carry credentials.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)))
	})
}
