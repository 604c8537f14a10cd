package model

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/beanbase/internal/relation"
	"github.com/mesh-intelligence/beanbase/pkg/types"
)

// Registry holds the models of one store, keyed by bean type. Types
// without a registered definition get a bare model on first use.
type Registry struct {
	mu     sync.RWMutex
	engine *relation.Engine
	models map[string]*Model
	opts   []Option
}

// NewRegistry returns an empty registry whose models share engine and opts.
func NewRegistry(engine *relation.Engine, opts ...Option) *Registry {
	return &Registry{
		engine: engine,
		models: make(map[string]*Model),
		opts:   opts,
	}
}

// Register builds and adds a model for def. Registering a type twice is
// an error.
func (r *Registry) Register(def Definition) (*Model, error) {
	m, err := New(r.engine, def, r.opts...)
	if err != nil {
		return nil, fmt.Errorf("model %q: %w", def.Type, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.models[def.Type]; ok {
		return nil, fmt.Errorf("%w: model %q registered twice", types.ErrInvalidArgument, def.Type)
	}
	r.models[def.Type] = m
	return m, nil
}

// Model returns the model for beanType, creating a bare one (no relations,
// no constraints) when none is registered.
func (r *Registry) Model(beanType string) (*Model, error) {
	r.mu.RLock()
	m, ok := r.models[beanType]
	r.mu.RUnlock()
	if ok {
		return m, nil
	}

	m, err := New(r.engine, Definition{Type: beanType}, r.opts...)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.models[beanType]; ok {
		return existing, nil
	}
	r.models[beanType] = m
	m.logger.Debug("using bare model", zap.String("bean_type", beanType))
	return m, nil
}

// Types returns the types with a model, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.models))
	for t := range r.models {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
