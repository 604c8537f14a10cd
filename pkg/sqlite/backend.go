// Package sqlite provides the public API for the SQLite BeanBase store.
// This package exposes the factory function for creating SQLite stores
// while keeping implementation details internal.
package sqlite

import (
	"go.uber.org/zap"

	"github.com/mesh-intelligence/beanbase/internal/sqlite"
	"github.com/mesh-intelligence/beanbase/pkg/types"
)

// Store is a types.Store backed by a SQLite file that can also export and
// import its contents as JSONL.
type Store = sqlite.Backend

// NewBackend creates a new SQLite store instance.
// The store is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	store := sqlite.NewBackend(nil)
//	err := store.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".beanbase-db",
//	})
//	defer store.Detach()
func NewBackend(logger *zap.Logger) *Store {
	return sqlite.NewBackend(logger)
}

// Open creates a store and attaches it with config.
func Open(config types.Config, logger *zap.Logger) (*Store, error) {
	s := sqlite.NewBackend(logger)
	if err := s.Attach(config); err != nil {
		return nil, err
	}
	return s, nil
}
