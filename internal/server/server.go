package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/scopestore/internal/counters"
	"github.com/vango-dev/scopestore/pkg/observe"
	"github.com/vango-dev/scopestore/pkg/store"
	"github.com/vango-dev/scopestore/pkg/storeevents"
	"github.com/vango-dev/scopestore/pkg/storemetrics"
	"github.com/vango-dev/scopestore/pkg/storetrace"
)

// Server is the counters demo server.
type Server struct {
	settings *Settings
	counters *store.Store[counters.State]
	registry *prometheus.Registry
	logger   *slog.Logger
	upgrader websocket.Upgrader
	router   chi.Router

	mu       sync.Mutex
	sessions map[string]*Session
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithRegistry sets the registry store metrics are registered with and
// served from. The default is a fresh registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// New builds a server from the current settings. Observers are chosen by
// the metrics, tracing and events settings when New is called.
func New(settings *Settings, opts ...Option) *Server {
	s := &Server{
		settings: settings,
		logger:   slog.Default(),
		sessions: make(map[string]*Session),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}

	cfg := settings.Current()
	observers := []observe.Observer{observe.Logger(s.logger)}
	if cfg.Metrics.Enabled {
		observers = append(observers, storemetrics.New(
			storemetrics.WithNamespace(cfg.Metrics.Namespace),
			storemetrics.WithRegistry(s.registry),
		))
	}
	if cfg.Tracing.Enabled {
		observers = append(observers, storetrace.New(storetrace.WithTracerName(cfg.Tracing.TracerName)))
	}
	if cfg.Events.Enabled {
		var eventOpts []storeevents.Option
		if !cfg.Events.Selections {
			eventOpts = append(eventOpts, storeevents.WithoutSelections())
		}
		observers = append(observers, storeevents.New(eventOpts...))
	}
	s.counters = counters.NewStore(store.WithObserver[counters.State](observe.Multi(observers...)))

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)
	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Counters returns the store every session scope is opened from.
func (s *Server) Counters() *store.Store[counters.State] {
	return s.counters
}

// SessionCount returns the number of open sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// ListenAndServe serves on the configured address until ctx is done, then
// shuts down and closes every session.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.settings.Current().Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close closes every open session.
func (s *Server) Close() {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"sessions": s.SessionCount(),
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	sess, err := newSession(conn, s.counters, s.settings.Initial(), s.logger)
	if err != nil {
		s.logger.Error("session start failed", "error", err)
		conn.Close()
		return
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	s.logger.Info("session opened", "session", sess.id)

	sess.push(ServerMessage{Type: TypeHello, Session: sess.id})
	go sess.WriteLoop()
	sess.ReadLoop()

	s.mu.Lock()
	delete(s.sessions, sess.id)
	s.mu.Unlock()
}
