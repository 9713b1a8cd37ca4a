// Package store persists the lobby's named documents (the room registry and
// the account ledger). Every Save rewrites a whole document atomically.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"peer-arcade/internal/config"
)

var (
	ErrUnknownBackend = errors.New("unknown_store_backend")
	ErrInvalidName    = errors.New("invalid_document_name")
)

// Documents loads and saves JSON-encoded documents by name.
type Documents interface {
	// Load decodes the named document into dst. It reports false when the
	// document has never been saved.
	Load(ctx context.Context, name string, dst any) (bool, error)
	Save(ctx context.Context, name string, v any) error
	Close() error
}

// Pinger is implemented by backends that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks docs when the backend supports it.
func Ping(ctx context.Context, docs Documents) error {
	if p, ok := docs.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Open selects the backend named by cfg.StoreBackend.
func Open(ctx context.Context, cfg config.LobbyConfig) (Documents, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.StoreBackend)) {
	case "", "file":
		return NewFileStore(cfg.StoreDir)
	case "sqlite":
		return OpenSQLite(cfg.SQLitePath)
	case "postgres":
		return OpenPostgres(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.StoreBackend)
	}
}

func validName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\.`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
