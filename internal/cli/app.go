package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/beanbase/internal/logging"
	"github.com/mesh-intelligence/beanbase/internal/memory"
	"github.com/mesh-intelligence/beanbase/internal/model"
	"github.com/mesh-intelligence/beanbase/internal/paths"
	"github.com/mesh-intelligence/beanbase/internal/relation"
	"github.com/mesh-intelligence/beanbase/internal/sqlite"
	"github.com/mesh-intelligence/beanbase/pkg/types"
)

// session is an open store with the configured models registered.
type session struct {
	store    types.Store
	sqlite   *sqlite.Backend
	registry *model.Registry
	logger   *zap.Logger
}

// storeConfig resolves the backend and data directory for this invocation.
func (a *app) storeConfig() (types.Config, error) {
	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, a.cfg.DataDir)
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	cfg := types.Config{
		Backend: a.cfg.Backend,
		DataDir: dataDir,
		Debug:   a.cfg.Debug || a.flags.debug,
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("%w: %q", err, cfg.Backend)
	}
	return cfg, nil
}

// open attaches the configured store and registers the models of
// config.yaml. The caller must close the session.
func (a *app) open() (*session, error) {
	cfg, err := a.storeConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return nil, err
	}

	s := &session{logger: logger}
	switch cfg.Backend {
	case types.BackendMemory:
		logger.Warn("memory backend: data is discarded when the command exits")
		s.store = memory.New(logger)
	default:
		backend := sqlite.NewBackend(logger)
		if err := backend.Attach(cfg); err != nil {
			return nil, fmt.Errorf("attach backend: %w", err)
		}
		s.store = backend
		s.sqlite = backend
	}

	engine := relation.New(s.store, logger)
	s.registry = model.NewRegistry(engine,
		model.WithClock(a.now),
		model.WithLogger(logger))
	for _, def := range a.cfg.Models {
		if _, err := s.registry.Register(def); err != nil {
			s.close()
			return nil, err
		}
	}
	return s, nil
}

func (s *session) close() error {
	defer s.logger.Sync()
	return s.store.Close()
}

// withModel opens a session, resolves the model for beanType and runs fn.
func (a *app) withModel(beanType string, fn func(ctx context.Context, m *model.Model) error) error {
	s, err := a.open()
	if err != nil {
		return err
	}
	defer s.close()

	m, err := s.registry.Model(beanType)
	if err != nil {
		return err
	}
	return fn(context.Background(), m)
}
