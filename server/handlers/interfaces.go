// Package handlers provides HTTP handlers for the runboard server.
//
// Each handler is in its own file and implements http.Handler.
// Handlers use interfaces to access server dependencies, avoiding
// circular imports.
package handlers

import (
	"context"

	"github.com/nomis52/runboard/journal"
	"github.com/nomis52/runboard/runs"
	"github.com/nomis52/runboard/server/config"
)

// StoreProvider looks up run stores by name.
type StoreProvider interface {
	Store(name string) (*runs.Store, bool)
}

// Loader fills a store from its upstream.
type Loader interface {
	LoadMore(ctx context.Context) error
	Reset(ctx context.Context) error
	Refresh(ctx context.Context) error
}

// LoaderProvider looks up the Loader for a store.
type LoaderProvider interface {
	Loader(name string) (Loader, bool)
}

// EventSource provides access to recorded store events.
type EventSource interface {
	Since(store string, seq uint64) []journal.Entry
	LastSeq() uint64
}

// LevelController reads and changes the log level at runtime.
type LevelController interface {
	LogLevel() string
	SetLogLevel(level string) error
}

// ConfigProvider provides access to the current configuration.
type ConfigProvider interface {
	Config() *config.ServerConfig
}
