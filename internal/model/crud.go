package model

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/beanbase/pkg/types"
)

// Post creates a bean from data.
//
// PostFields are checked against the raw data. The relation sub-document is
// split off and reserved fields are dropped before the attributes are
// imported. Unique fields are checked against existing beans, the created
// stamp is set when created is reserved, relations are applied and the bean
// is stored.
func (m *Model) Post(ctx context.Context, data map[string]any) (*types.Bean, error) {
	if err := CheckComplete(data, m.def.PostFields); err != nil {
		return nil, err
	}
	rels, attrs, err := m.split(data)
	if err != nil {
		return nil, err
	}

	bean := m.store.Dispense(m.def.Type).Import(attrs)
	if err := m.checkUnique(ctx, bean, m.def.UniqueFields); err != nil {
		return nil, err
	}
	m.stamp(bean, types.FieldCreated)

	if err := m.plan.Relate(ctx, bean, rels); err != nil {
		return bean, err
	}
	if err := m.persist(ctx, bean); err != nil {
		return bean, err
	}

	m.logger.Info("created bean", zap.String("bean_type", bean.Type()), zap.Int64("bean_id", bean.ID()))
	return bean, nil
}

// Get returns the bean with the given id.
func (m *Model) Get(ctx context.Context, id int64) (*types.Bean, error) {
	return m.store.Load(ctx, m.def.Type, id)
}

// Put updates the bean with the given id from data.
//
// Keys whose value equals the stored one are ignored, so only changed
// unique fields are checked. The updated stamp is set when updated is
// reserved.
func (m *Model) Put(ctx context.Context, id int64, data map[string]any) (*types.Bean, error) {
	if err := CheckComplete(data, m.def.PutFields); err != nil {
		return nil, err
	}
	bean, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	rels, attrs, err := m.split(data)
	if err != nil {
		return nil, err
	}

	changed := make([]string, 0, len(attrs))
	for k, v := range attrs {
		if stored, ok := bean.Get(k); ok && types.EqualValues(stored, v) {
			continue
		}
		bean.Set(k, v)
		changed = append(changed, k)
	}

	var unique []string
	for _, f := range m.def.UniqueFields {
		if slices.Contains(changed, f) {
			unique = append(unique, f)
		}
	}
	if err := m.checkUnique(ctx, bean, unique); err != nil {
		return nil, err
	}
	m.stamp(bean, types.FieldUpdated)

	if err := m.plan.Relate(ctx, bean, rels); err != nil {
		return bean, err
	}
	if err := m.persist(ctx, bean); err != nil {
		return bean, err
	}

	m.logger.Info("updated bean",
		zap.String("bean_type", bean.Type()),
		zap.Int64("bean_id", bean.ID()),
		zap.Strings("fields", changed))
	return bean, nil
}

// Delete removes the bean with the given id. A soft delete sets the deleted
// flag, stamps updated when that field is reserved, stores and returns the
// bean. A hard delete trashes the bean and its links and returns nil.
func (m *Model) Delete(ctx context.Context, id int64, soft bool) (*types.Bean, error) {
	bean, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !soft {
		if err := m.store.Trash(ctx, bean); err != nil {
			return nil, err
		}
		m.logger.Info("deleted bean", zap.String("bean_type", bean.Type()), zap.Int64("bean_id", id))
		return nil, nil
	}

	bean.Set(types.FieldDeleted, true)
	m.stamp(bean, types.FieldUpdated)
	if err := m.persist(ctx, bean); err != nil {
		return bean, err
	}
	m.logger.Info("soft-deleted bean", zap.String("bean_type", bean.Type()), zap.Int64("bean_id", id))
	return bean, nil
}

// Recover clears the deleted flag of a soft-deleted bean.
func (m *Model) Recover(ctx context.Context, id int64) (*types.Bean, error) {
	bean, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if deleted, _ := bean.Get(types.FieldDeleted); deleted != true {
		return bean, nil
	}

	bean.Set(types.FieldDeleted, false)
	m.stamp(bean, types.FieldUpdated)
	if err := m.persist(ctx, bean); err != nil {
		return bean, err
	}
	m.logger.Info("recovered bean", zap.String("bean_type", bean.Type()), zap.Int64("bean_id", id))
	return bean, nil
}

// Relate applies a relation request map to an existing bean.
func (m *Model) Relate(ctx context.Context, id int64, rels types.RelationMap) (*types.Bean, error) {
	bean, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.plan.Relate(ctx, bean, rels); err != nil {
		return bean, err
	}
	return bean, m.persist(ctx, bean)
}

// Related returns the beans of relatedType associated with the bean by the
// kind declared in the model's relations.
func (m *Model) Related(ctx context.Context, id int64, relatedType string) ([]*types.Bean, error) {
	slot, ok := m.plan.Slot(relatedType)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no relation to %q", types.ErrInvalidArgument, m.def.Type, relatedType)
	}
	bean, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.engine.Related(ctx, bean, relatedType, slot.Kind)
}

// split separates the relation sub-document from the attributes and drops
// reserved fields.
func (m *Model) split(data map[string]any) (types.RelationMap, map[string]any, error) {
	rels, err := splitRelation(data)
	if err != nil {
		return nil, nil, err
	}
	attrs := StripOut(data, m.strip)
	if err := checkFieldNames(attrs); err != nil {
		return nil, nil, err
	}
	return rels, attrs, nil
}

// checkUnique fails with types.ErrUniqueViolation when another bean of the
// type holds the same value in one of fields.
func (m *Model) checkUnique(ctx context.Context, bean *types.Bean, fields []string) error {
	for _, f := range fields {
		v, ok := bean.Get(f)
		if !ok || v == nil {
			continue
		}
		matches, err := m.store.Find(ctx, m.def.Type, f, v)
		if err != nil {
			return err
		}
		for _, other := range matches {
			if other.ID() != bean.ID() {
				return fmt.Errorf("%w: %s with %s = %v already exists", types.ErrUniqueViolation, m.def.Type, f, v)
			}
		}
	}
	return nil
}

// stamp sets field to the current time when the model reserves it.
func (m *Model) stamp(bean *types.Bean, field string) {
	if m.reserves(field) {
		InsertTimestamp(bean, field, m.now())
	}
}

func (m *Model) persist(ctx context.Context, bean *types.Bean) error {
	if !m.store.IsDirty(bean) {
		return nil
	}
	_, err := m.store.Store(ctx, bean)
	return err
}
