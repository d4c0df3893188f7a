// Package httpserver wires the docsync handlers into an http.Server.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	derrors "github.com/evolvinglmms-lab/docsync/internal/foundation/errors"
	"github.com/evolvinglmms-lab/docsync/internal/logfields"
	"github.com/evolvinglmms-lab/docsync/internal/server/handlers"
	smw "github.com/evolvinglmms-lab/docsync/internal/server/middleware"
)

const (
	defaultSyncPath    = "/api/sync-docs"
	readHeaderTimeout  = 10 * time.Second
	defaultIdleTimeout = 60 * time.Second
)

// Options configures the server's routes and credentials.
type Options struct {
	Addr          string
	SyncPath      string
	APIKey        string
	WebhookSecret string
	// Pipelines are synced when a request names none; empty means all.
	Pipelines []string
	// MetricsPath and MetricsHandler mount a metrics endpoint when both are set.
	MetricsPath    string
	MetricsHandler http.Handler
}

// Server serves the sync trigger, history, health and metrics endpoints.
type Server struct {
	opts         Options
	errorAdapter *derrors.HTTPErrorAdapter
	handler      http.Handler

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
	done     chan struct{}
}

// New constructs the server and its route table.
func New(runner handlers.Runner, opts Options) *Server {
	if opts.SyncPath == "" {
		opts.SyncPath = defaultSyncPath
	}
	opts.SyncPath = "/" + strings.Trim(opts.SyncPath, "/")

	s := &Server{
		opts:         opts,
		errorAdapter: derrors.NewHTTPErrorAdapter(slog.Default()),
	}

	syncH := handlers.NewSyncHandlers(runner, handlers.SyncConfig{
		WebhookSecret: opts.WebhookSecret,
		APIKey:        opts.APIKey,
		Pipelines:     opts.Pipelines,
	})
	history := handlers.NewHistoryHandlers(runner, opts.APIKey)
	monitoring := handlers.NewMonitoringHandlers(runner, time.Now())

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+opts.SyncPath, syncH.HandleWebhook)
	mux.HandleFunc("GET "+opts.SyncPath, syncH.HandleManual)
	mux.HandleFunc("GET "+opts.SyncPath+"/history", history.HandleHistory)
	mux.HandleFunc("GET /healthz", monitoring.HandleHealthCheck)
	if opts.MetricsPath != "" && opts.MetricsHandler != nil {
		mux.Handle("GET "+opts.MetricsPath, opts.MetricsHandler)
	}

	s.handler = smw.Chain(slog.Default(), s.errorAdapter)(mux)
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler { return s.handler }

// Start binds the listen address and serves in the background. It fails fast
// when the address cannot be bound.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return derrors.DaemonError("http server already started").Build()
	}

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.opts.Addr)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryNetwork, "failed to bind http listener").
			WithContext("addr", s.opts.Addr).Build()
	}

	s.srv = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       defaultIdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	s.listener = ln
	s.done = make(chan struct{})

	go func(srv *http.Server, done chan struct{}) {
		defer close(done)
		if serr := srv.Serve(ln); serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			slog.Error("HTTP server stopped unexpectedly", logfields.Error(serr))
		}
	}(s.srv, s.done)

	slog.Info("HTTP server started", slog.String("addr", ln.Addr().String()), slog.String("sync_path", s.opts.SyncPath))
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts the server down and waits for the serve loop to exit.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.srv, s.done
	s.srv, s.listener, s.done = nil, nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	<-done
	return nil
}
