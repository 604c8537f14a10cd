package relation

import (
	"context"

	"github.com/mesh-intelligence/beanbase/pkg/types"
)

// Related returns the beans of relatedType associated with bean by kind.
// Join kinds come back in link order, child kinds in id order.
func (e *Engine) Related(ctx context.Context, bean *types.Bean, relatedType string, kind types.Kind) ([]*types.Bean, error) {
	slot, err := SlotFor(bean.Type(), relatedType, kind)
	if err != nil {
		return nil, err
	}
	if slot.Join() {
		return e.store.Linked(ctx, slot.LinkType, bean, relatedType)
	}

	if slot.OnRelated {
		if bean.Transient() {
			return nil, nil
		}
		return e.store.Find(ctx, relatedType, slot.Field, bean.ID())
	}

	v, ok := bean.Get(slot.Field)
	if !ok || v == nil {
		return nil, nil
	}
	id, err := types.ParseID(v)
	if err != nil {
		return nil, err
	}
	parent, err := e.store.Load(ctx, relatedType, id)
	if err != nil {
		return nil, err
	}
	return []*types.Bean{parent}, nil
}

// RelatedCount returns len(Related(...)).
func (e *Engine) RelatedCount(ctx context.Context, bean *types.Bean, relatedType string, kind types.Kind) (int, error) {
	related, err := e.Related(ctx, bean, relatedType, kind)
	if err != nil {
		return 0, err
	}
	return len(related), nil
}
