// Package server provides the HTTP server for runboard.
//
// The server holds one run store per configured entry (typically "all" and
// "mine"), fills each from its upstream through a fetcher, and exposes the
// stores over a JSON API for the UI.
//
// # Endpoints
//
//   - GET /health - Simple health check, returns "ok"
//   - GET /api/version - Build properties
//   - GET /metrics - Prometheus metrics
//   - GET /api/config - Current configuration as YAML, credentials redacted (?store= for one store)
//   - GET, PUT /api/log-level - Read or change the log level
//   - GET /api/stores/{store} - Snapshot of a store
//   - GET /api/stores/{store}/runs/{id} - A single run
//   - PUT /api/stores/{store}/runs - Insert or merge a run
//   - POST /api/stores/{store}/runs - Append a page of runs
//   - DELETE /api/stores/{store}/runs - Clear the runs
//   - PUT /api/stores/{store}/total - Set the upstream run count
//   - PATCH /api/stores/{store}/filters - Merge filters
//   - DELETE /api/stores/{store}/filters/{key} - Remove a filter
//   - POST /api/stores/{store}/load - Fetch the next page
//   - POST /api/stores/{store}/reset - Clear and fetch the first page
//   - POST /api/stores/{store}/refresh - Merge the first page into loaded runs
//   - GET /api/stores/{store}/events?since=N - Store events after sequence N
//
// # Example
//
//	srv, err := server.New("/etc/runboard/server.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nomis52/runboard/fetch"
	"github.com/nomis52/runboard/journal"
	"github.com/nomis52/runboard/logging"
	"github.com/nomis52/runboard/metrics"
	"github.com/nomis52/runboard/runs"
	"github.com/nomis52/runboard/server/config"
	"github.com/nomis52/runboard/server/cron"
	"github.com/nomis52/runboard/server/handlers"
)

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 60 * time.Second
	defaultShutdownTimeout = 5 * time.Second
	defaultJournalSize     = 1000
)

// Server is the HTTP server for the runboard API.
type Server struct {
	cfg        *config.ServerConfig
	configPath string
	logger     *logging.Logger
	httpClient *http.Client

	stores   map[string]*runs.Store
	fetchers map[string]*fetch.Fetcher
	order    []string

	journal  *journal.Journal
	scrape   *metrics.ScrapeRegistry
	push     *metrics.PushRegistry
	triggers *cron.Manager

	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server) error

// WithHTTPClient sets the client fetchers use to reach upstream.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Server) error {
		s.httpClient = c
		return nil
	}
}

// WithListenAddr overrides the configured listen address.
func WithListenAddr(addr string) Option {
	return func(s *Server) error {
		s.cfg.Listener.Addr = addr
		return nil
	}
}

// New loads the config at configPath and builds the stores, fetchers,
// metrics and refresh triggers it describes.
func New(configPath string, opts ...Option) (*Server, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	s := &Server{
		cfg:        cfg,
		configPath: configPath,
		logger:     logger,
		httpClient: &http.Client{},
		stores:     make(map[string]*runs.Store),
		fetchers:   make(map[string]*fetch.Fetcher),
		journal:    journal.New(defaultJournalSize),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if err := s.build(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) build() error {
	log := s.logger.Logger

	scrape, err := metrics.NewScrapeRegistry(s.cfg.Metrics.Prefix)
	if err != nil {
		return fmt.Errorf("creating metrics registry: %w", err)
	}
	s.scrape = scrape

	exporters := make([]*metrics.StoreExporter, 0, 2)
	exporter, err := metrics.NewStoreExporter(scrape)
	if err != nil {
		return fmt.Errorf("creating store exporter: %w", err)
	}
	exporters = append(exporters, exporter)

	if s.cfg.Metrics.PushURL != "" {
		s.push = metrics.NewPushRegistry(metrics.PushConfig{
			URL:      s.cfg.Metrics.PushURL,
			Prefix:   s.cfg.Metrics.Prefix,
			Job:      s.cfg.Metrics.Job,
			Instance: s.cfg.Metrics.Instance,
			Interval: s.cfg.Metrics.Interval,
		}, log)
		pushExporter, err := metrics.NewStoreExporter(s.push)
		if err != nil {
			return fmt.Errorf("creating push exporter: %w", err)
		}
		exporters = append(exporters, pushExporter)
	}

	s.triggers = cron.NewManager(log)

	for _, sc := range s.cfg.Stores {
		storeOpts := []runs.Option{runs.WithLogger(log)}
		if sc.EmptyFilters {
			storeOpts = append(storeOpts, runs.WithEmptyFilters())
		}
		store := runs.New(sc.Name, storeOpts...)

		fetcher := fetch.New(store, sc.Upstream,
			fetch.WithHTTPClient(s.httpClient),
			fetch.WithPageSize(sc.PageSize),
			fetch.WithTimeout(sc.Timeout),
			fetch.WithLogger(log),
		)

		for _, e := range exporters {
			e.Watch(store)
		}
		s.journal.Attach(store)

		if sc.Refresh != "" {
			if err := s.triggers.Add(sc.Name, sc.Refresh, fetcher); err != nil {
				return err
			}
		}

		s.stores[sc.Name] = store
		s.fetchers[sc.Name] = fetcher
		s.order = append(s.order, sc.Name)
	}

	return nil
}

// Logger returns the server's logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger.Logger
}

// Config returns the loaded configuration.
func (s *Server) Config() *config.ServerConfig {
	return s.cfg
}

// Store returns the named store.
func (s *Server) Store(name string) (*runs.Store, bool) {
	store, ok := s.stores[name]
	return store, ok
}

// StoreNames returns the store names in configuration order.
func (s *Server) StoreNames() []string {
	return append([]string(nil), s.order...)
}

// Loader returns the fetcher for the named store.
func (s *Server) Loader(name string) (handlers.Loader, bool) {
	f, ok := s.fetchers[name]
	if !ok {
		return nil, false
	}
	return f, true
}

// LogLevel returns the current log level, e.g. "info".
func (s *Server) LogLevel() string {
	return strings.ToLower(s.logger.Level().String())
}

// SetLogLevel changes the server's log level at runtime.
func (s *Server) SetLogLevel(level string) error {
	return s.logger.SetLevel(level)
}

// Handler returns the server's routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	return handlers.WithRequestLogging(s.logger.Logger, mux)
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It performs a graceful shutdown when the context is done.
// Refresh triggers and metric pushing start with the server.
func (s *Server) Run(ctx context.Context) error {
	log := s.logger.Logger

	s.httpServer = &http.Server{
		Addr:         s.cfg.Listener.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	}

	tlsEnabled := s.cfg.Listener.TLSCert != ""
	if tlsEnabled {
		loader, err := NewCertLoader(s.cfg.Listener.TLSCert, s.cfg.Listener.TLSKey, log)
		if err != nil {
			return err
		}
		s.httpServer.TLSConfig = loader.TLSConfig()
	}

	s.triggers.Start(ctx)
	if s.push != nil {
		log.Info("pushing metrics", "url", s.cfg.Redacted().Metrics.PushURL)
		s.push.Start(ctx)
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server",
			"addr", s.cfg.Listener.Addr,
			"config_path", s.configPath,
			"stores", s.order,
			"tls", tlsEnabled,
		)
		var err error
		if tlsEnabled {
			err = s.httpServer.ListenAndServeTLS("", "")
		} else {
			err = s.httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or server error
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	log := s.logger.Logger

	mux.HandleFunc("GET /health", handlers.HandleHealth)
	mux.HandleFunc("GET /api/version", handlers.HandleVersion)
	mux.Handle("GET /metrics", s.scrape.Handler())
	mux.Handle("GET /api/config", handlers.NewConfigHandler(s))

	logLevelHandler := handlers.NewLogLevelHandler(log, s)
	mux.Handle("GET /api/log-level", logLevelHandler)
	mux.Handle("PUT /api/log-level", logLevelHandler)

	mux.Handle("GET /api/stores/{store}", handlers.NewSnapshotHandler(s))
	mux.Handle("GET /api/stores/{store}/runs/{id}", handlers.NewRunHandler(s))
	mux.Handle("PUT /api/stores/{store}/runs", handlers.NewUpsertHandler(s))
	mux.Handle("POST /api/stores/{store}/runs", handlers.NewAppendHandler(s))
	mux.Handle("DELETE /api/stores/{store}/runs", handlers.NewClearHandler(s))
	mux.Handle("PUT /api/stores/{store}/total", handlers.NewTotalHandler(s))
	mux.Handle("PATCH /api/stores/{store}/filters", handlers.NewApplyFilterHandler(s))
	mux.Handle("DELETE /api/stores/{store}/filters/{key}", handlers.NewRemoveFilterHandler(s))
	mux.Handle("POST /api/stores/{store}/load", handlers.NewLoadHandler(log, s, s, handlers.ActionLoadMore))
	mux.Handle("POST /api/stores/{store}/reset", handlers.NewLoadHandler(log, s, s, handlers.ActionReset))
	mux.Handle("POST /api/stores/{store}/refresh", handlers.NewLoadHandler(log, s, s, handlers.ActionRefresh))
	mux.Handle("GET /api/stores/{store}/events", handlers.NewEventsHandler(s, s.journal))
}
