package relation

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/beanbase/pkg/types"
)

// Engine applies associations through a Store. It is safe for concurrent
// use to the extent the Store is; see the package doc for the race window.
type Engine struct {
	store  types.Store
	logger *zap.Logger
}

// New returns an Engine over store. A nil logger disables logging.
func New(store types.Store, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: store, logger: logger}
}

// Store returns the Store the engine writes through.
func (e *Engine) Store() types.Store { return e.store }

// Associate records an association of kind between bean and rel and returns
// both beans as they stand afterwards.
//
// A transient side is persisted first when its identity is needed for the
// association. After the association is written, each side the Store
// reports dirty is persisted; a failure on one side does not undo the other.
func (e *Engine) Associate(ctx context.Context, bean, rel *types.Bean, kind types.Kind) (*types.Bean, *types.Bean, error) {
	if bean == nil || rel == nil {
		return bean, rel, fmt.Errorf("%w: associate needs two beans", types.ErrInvalidArgument)
	}
	slot, err := SlotFor(bean.Type(), rel.Type(), kind)
	if err != nil {
		return bean, rel, err
	}
	if err := e.apply(ctx, bean, rel, slot); err != nil {
		return bean, rel, err
	}
	return bean, rel, e.persist(ctx, bean, rel)
}

// Relate applies data to bean for every rule in filter. See Plan.Relate.
func (e *Engine) Relate(ctx context.Context, bean *types.Bean, data types.RelationMap, filter types.Filter) error {
	if bean == nil {
		return fmt.Errorf("%w: relate needs a bean", types.ErrInvalidArgument)
	}
	plan, err := e.Compile(bean.Type(), filter)
	if err != nil {
		return err
	}
	return plan.Relate(ctx, bean, data)
}

func (e *Engine) apply(ctx context.Context, bean, rel *types.Bean, slot Slot) error {
	if slot.Join() {
		return e.join(ctx, bean, rel, slot)
	}
	return e.fill(ctx, bean, rel, slot)
}

// join links bean and rel with a Store link after checking neither side is
// already associated.
func (e *Engine) join(ctx context.Context, bean, rel *types.Bean, slot Slot) error {
	switch slot.Kind {
	case types.HasOne:
		// Either side holding a one-link to the other's type blocks the join.
		for _, pair := range [][2]*types.Bean{{bean, rel}, {rel, bean}} {
			if pair[0].Transient() {
				continue
			}
			linked, err := e.store.Linked(ctx, slot.LinkType, pair[0], pair[1].Type())
			if err != nil {
				return err
			}
			if len(linked) > 0 {
				return e.conflict(bean, rel, slot, fmt.Sprintf("%s already has one %s", pair[0], pair[1].Type()))
			}
		}
	default:
		linked, err := e.store.AreLinked(ctx, slot.LinkType, bean, rel)
		if err != nil {
			return err
		}
		if linked {
			return e.conflict(bean, rel, slot, "already joined")
		}
	}

	if err := e.ensureStored(ctx, bean, rel); err != nil {
		return err
	}
	if err := e.store.Link(ctx, slot.LinkType, bean, rel); err != nil {
		return err
	}
	e.logApplied(bean, rel, slot)
	return nil
}

// fill writes the target's id into the holder's slot field after checking
// the field is free.
func (e *Engine) fill(ctx context.Context, bean, rel *types.Bean, slot Slot) error {
	holder, target := bean, rel
	if slot.OnRelated {
		holder, target = rel, bean
	}

	if occupied(holder, slot.Field) {
		return e.conflict(bean, rel, slot, fmt.Sprintf("%s.%s is set", holder, slot.Field))
	}

	if slot.Kind == types.HasOneSelf {
		// A one-to-one self link is exclusive in both directions: neither
		// bean may point at another, nor be pointed at, nor pair with itself.
		if bean == rel || (!bean.Transient() && bean.ID() == rel.ID()) {
			return e.conflict(bean, rel, slot, fmt.Sprintf("%s cannot be its own partner", bean))
		}
		if occupied(bean, slot.Field) {
			return e.conflict(bean, rel, slot, fmt.Sprintf("%s.%s is set", bean, slot.Field))
		}
		for _, b := range []*types.Bean{bean, rel} {
			if b.Transient() {
				continue
			}
			found, err := e.store.FindOne(ctx, b.Type(), slot.Field, b.ID())
			if err != nil {
				return err
			}
			if found != nil {
				return e.conflict(bean, rel, slot, fmt.Sprintf("%s is referenced by %s", b, found))
			}
		}
	}

	if err := e.ensureStored(ctx, target); err != nil {
		return err
	}
	holder.Set(slot.Field, target.ID())
	e.logApplied(bean, rel, slot)
	return nil
}

// ensureStored persists each transient bean so it has an identity.
func (e *Engine) ensureStored(ctx context.Context, beans ...*types.Bean) error {
	for _, b := range beans {
		if !b.Transient() {
			continue
		}
		if _, err := e.store.Store(ctx, b); err != nil {
			return fmt.Errorf("storing %s: %w", b.Type(), err)
		}
	}
	return nil
}

// persist stores every dirty bean. Each bean is attempted even if an
// earlier one failed.
func (e *Engine) persist(ctx context.Context, beans ...*types.Bean) error {
	var errs []error
	for _, b := range beans {
		if !e.store.IsDirty(b) {
			continue
		}
		if _, err := e.store.Store(ctx, b); err != nil {
			errs = append(errs, fmt.Errorf("storing %s: %w", b, err))
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) conflict(bean, rel *types.Bean, slot Slot, reason string) error {
	e.logger.Debug("relation conflict",
		zap.String("bean_type", bean.Type()),
		zap.Int64("bean_id", bean.ID()),
		zap.String("rel_type", rel.Type()),
		zap.Int64("rel_id", rel.ID()),
		zap.Stringer("kind", slot.Kind),
		zap.String("reason", reason))
	return fmt.Errorf("%w: %s %s: %s", types.ErrRelationConflict, bean.Type(), slot.Kind, reason)
}

func (e *Engine) logApplied(bean, rel *types.Bean, slot Slot) {
	e.logger.Debug("associated",
		zap.String("bean_type", bean.Type()),
		zap.Int64("bean_id", bean.ID()),
		zap.String("rel_type", rel.Type()),
		zap.Int64("rel_id", rel.ID()),
		zap.Stringer("kind", slot.Kind))
}

// occupied reports whether b has a non-nil value in field.
func occupied(b *types.Bean, field string) bool {
	v, ok := b.Get(field)
	return ok && v != nil
}
