// Package api provides the HTTP surface of vtubot.
//
// It exposes the auto-reply webhook that drives the dialogue engine, a
// health check, and an admin endpoint that refreshes the services catalog.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sregle/vtubot/internal/catalog"
	"github.com/sregle/vtubot/internal/engine"
	"github.com/sregle/vtubot/internal/store"
)

// Timeout and sweep defaults for the API server.
const (
	DefaultAddr = ":8080"

	// DefaultSessionTTL bounds how long an idle dialogue survives before
	// the sweeper removes it.
	DefaultSessionTTL   = 24 * time.Hour
	sessionSweepEvery   = time.Hour
	readHeaderTimeout   = 10 * time.Second
	shutdownGracePeriod = 10 * time.Second
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr       string
	WebhookKey string
	AdminKey   string
	SessionTTL time.Duration
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithWebhookKey sets the shared secret expected in the webhook
// Authorization header. Empty disables webhook authentication.
func WithWebhookKey(key string) Option {
	return func(o *Opts) { o.WebhookKey = key }
}

// WithAdminKey sets the shared secret for admin endpoints. Empty disables
// them.
func WithAdminKey(key string) Option {
	return func(o *Opts) { o.AdminKey = key }
}

// WithSessionTTL sets the idle lifetime of dialogue sessions.
func WithSessionTTL(ttl time.Duration) Option {
	return func(o *Opts) { o.SessionTTL = ttl }
}

// Server wires the dialogue engine to HTTP.
type Server struct {
	engine  *engine.Engine
	store   store.Store
	catalog *catalog.Provider

	addr       string
	webhookKey string
	adminKey   string
	sessionTTL time.Duration
}

// NewServer creates the API server.
func NewServer(eng *engine.Engine, st store.Store, cat *catalog.Provider, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr, SessionTTL: DefaultSessionTTL}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		engine:     eng,
		store:      st,
		catalog:    cat,
		addr:       cfg.Addr,
		webhookKey: cfg.WebhookKey,
		adminKey:   cfg.AdminKey,
		sessionTTL: cfg.SessionTTL,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.webhookHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/admin/refresh-services", s.refreshServicesHandler)
	return mux
}

// Run serves until the context is cancelled, then shuts down gracefully.
// The idle-session sweeper runs for the lifetime of the server.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go s.sweepSessions(ctx)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}
}

// sweepSessions periodically deletes dialogues idle past the TTL.
func (s *Server) sweepSessions(ctx context.Context) {
	if s.sessionTTL <= 0 {
		return
	}
	ticker := time.NewTicker(sessionSweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-s.sessionTTL)
			n, err := s.store.DeleteSessionsIdleSince(cutoff)
			if err != nil {
				slog.Error("session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("idle sessions removed", "count", n)
			}
		}
	}
}

// healthHandler reports liveness plus a storage ping.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	healthData := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	statusCode := http.StatusOK
	if err := s.store.Ping(); err != nil {
		slog.Warn("health check: store ping failed", "error", err)
		healthData["status"] = "degraded"
		healthData["error"] = "storage unreachable"
		statusCode = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, statusCode, healthData)
}

// refreshServicesHandler re-fetches the provider catalog with admin
// credentials. Guarded by the admin key; disabled when none is configured.
func (s *Server) refreshServicesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.adminKey == "" || !secureEquals(r.Header.Get("Authorization"), s.adminKey) {
		writeJSONResponse(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	if err := s.catalog.RefreshServices(r.Context()); err != nil {
		slog.Error("catalog refresh failed", "error", err)
		writeJSONResponse(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "refreshed"})
}
