// Package sqlite implements the SQLite Store backend for BeanBase.
//
// Beans of every type share one table; attributes are stored as a JSON
// document and queried with json_extract. Join links live in a links table
// with a UNIQUE index over the canonical endpoint pair.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/beanbase/pkg/types"
)

// DBFileName is the database file created inside Config.DataDir.
const DBFileName = "beanbase.db"

var _ types.Store = (*Backend)(nil)

// Backend implements types.Store on a SQLite database file.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	logger   *zap.Logger
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
// A nil logger disables logging.
func NewBackend(logger *zap.Logger) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{logger: logger}
}

// Attach opens (creating if needed) DataDir/beanbase.db and applies the
// schema. Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return ErrAlreadyAttached
	}

	if err := config.Validate(); err != nil {
		return err
	}
	if config.Backend != types.BackendSQLite {
		return fmt.Errorf("%w: %q is not %q", types.ErrBackendUnknown, config.Backend, types.BackendSQLite)
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	dbPath := filepath.Join(dataDir, DBFileName)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return fmt.Errorf("apply %q: %w", stmt, err)
		}
	}
	for _, stmt := range append(append([]string{}, schemaDDL...), indexDDL...) {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	b.db = db
	b.config = config
	b.config.DataDir = dataDir
	b.attached = true

	b.logger.Info("attached sqlite store", zap.String("path", dbPath))
	return nil
}

// Detach closes the database. Detach is idempotent; after it, every Store
// operation returns types.ErrStoreClosed.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	b.attached = false

	b.logger.Info("detached sqlite store")
	return nil
}

// Close implements types.Store by detaching.
func (b *Backend) Close() error {
	return b.Detach()
}

// DataDir returns the directory holding the database file.
func (b *Backend) DataDir() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config.DataDir
}

// ErrAlreadyAttached is returned by Attach on an attached backend.
var ErrAlreadyAttached = errors.New("sqlite backend is already attached")

// conn returns the open database, or types.ErrStoreClosed when detached.
// Callers hold b.mu.
func (b *Backend) conn() (*sql.DB, error) {
	if !b.attached || b.db == nil {
		return nil, types.ErrStoreClosed
	}
	return b.db, nil
}
