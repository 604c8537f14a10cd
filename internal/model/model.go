// Package model is the CRUD facade over a Store: one Model per bean type,
// configured with its relation rules and field constraints.
package model

import (
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/beanbase/internal/relation"
	"github.com/mesh-intelligence/beanbase/pkg/types"
)

// DefaultReserved lists the request fields a caller cannot set directly.
var DefaultReserved = []string{
	types.FieldDeleted,
	types.FieldCreated,
	types.FieldUpdated,
	types.FieldRelation,
}

// Definition configures a Model.
type Definition struct {
	// Type is the bean type the model manages.
	Type string

	// Relations lists the accepted relations in application order.
	Relations types.Filter

	// PostFields must be present and non-empty when creating.
	PostFields []string

	// PutFields must be present and non-empty when updating.
	PutFields []string

	// UniqueFields may not repeat a value held by another bean of Type.
	UniqueFields []string

	// Reserved fields are stripped from request data. Nil means
	// DefaultReserved.
	Reserved []string
}

// Clock returns the current time for timestamps.
type Clock func() time.Time

// Option configures a Model.
type Option func(*Model)

// WithClock replaces time.Now for timestamps.
func WithClock(c Clock) Option {
	return func(m *Model) { m.clock = c }
}

// WithLogger sets the model's logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Model) { m.logger = l }
}

// Model serves CRUD requests for one bean type.
type Model struct {
	def    Definition
	engine *relation.Engine
	store  types.Store
	plan   *relation.Plan
	strip  []string
	clock  Clock
	logger *zap.Logger
}

// New validates def and compiles its relations against engine.
func New(engine *relation.Engine, def Definition, opts ...Option) (*Model, error) {
	if !types.ValidFieldName(def.Type) {
		return nil, fmt.Errorf("%w: bean type %q", types.ErrInvalidArgument, def.Type)
	}
	for _, list := range [][]string{def.PostFields, def.PutFields, def.UniqueFields} {
		for _, f := range list {
			if !types.ValidFieldName(f) {
				return nil, fmt.Errorf("%w: field name %q", types.ErrInvalidArgument, f)
			}
		}
	}

	def.Relations = slices.Clone(def.Relations)
	def.PostFields = slices.Clone(def.PostFields)
	def.PutFields = slices.Clone(def.PutFields)
	def.UniqueFields = slices.Clone(def.UniqueFields)
	if def.Reserved == nil {
		def.Reserved = DefaultReserved
	}
	def.Reserved = slices.Clone(def.Reserved)

	plan, err := engine.Compile(def.Type, def.Relations)
	if err != nil {
		return nil, err
	}
	if err := plan.Check(); err != nil {
		return nil, err
	}

	m := &Model{
		def:    def,
		engine: engine,
		store:  engine.Store(),
		plan:   plan,
		strip:  append(slices.Clone(def.Reserved), types.FieldRelation, types.IDField),
		clock:  time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Type returns the managed bean type.
func (m *Model) Type() string { return m.def.Type }

// Definition returns a copy of the model's configuration.
func (m *Model) Definition() Definition {
	d := m.def
	d.Relations = m.plan.Filter()
	d.PostFields = slices.Clone(d.PostFields)
	d.PutFields = slices.Clone(d.PutFields)
	d.UniqueFields = slices.Clone(d.UniqueFields)
	d.Reserved = slices.Clone(d.Reserved)
	return d
}

func (m *Model) reserves(field string) bool {
	return slices.Contains(m.def.Reserved, field)
}

func (m *Model) now() time.Time { return m.clock() }
