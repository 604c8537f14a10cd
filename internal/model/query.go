package model

import (
	"context"

	"github.com/mesh-intelligence/beanbase/pkg/types"
)

// Count returns the number of beans of the model's type.
func (m *Model) Count(ctx context.Context) (int, error) {
	return m.store.Count(ctx, m.def.Type, "", nil)
}

// CountBy returns the number of beans whose field equals value.
func (m *Model) CountBy(ctx context.Context, field string, value any) (int, error) {
	return m.store.Count(ctx, m.def.Type, field, value)
}

// BatchGet returns one page of beans ordered by id.
func (m *Model) BatchGet(ctx context.Context, offset, limit int) ([]*types.Bean, error) {
	return m.store.FindAll(ctx, m.def.Type, offset, limit)
}
