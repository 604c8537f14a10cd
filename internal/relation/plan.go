package relation

import (
	"context"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/beanbase/pkg/types"
)

// binding is one compiled rule of a Filter.
type binding struct {
	rule types.Rule
	key  string
	slot Slot
	err  error
}

// Plan is a Filter compiled for one owner type. Slots are resolved once at
// compile time. A Plan is immutable and may be shared across goroutines.
type Plan struct {
	engine   *Engine
	owner    string
	bindings []binding
}

// Compile validates filter and resolves the slot of every rule for beans of
// ownerType. Rules whose slot cannot be resolved (unknown or unimplemented
// kind, self kind naming another type) compile but fail when a request
// supplies their key; Check reports them up front.
func (e *Engine) Compile(ownerType string, filter types.Filter) (*Plan, error) {
	if ownerType == "" {
		return nil, fmt.Errorf("%w: owner type is empty", types.ErrInvalidArgument)
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	p := &Plan{engine: e, owner: ownerType, bindings: make([]binding, 0, len(filter))}
	for _, r := range filter {
		slot, err := SlotFor(ownerType, r.Type, r.Kind)
		p.bindings = append(p.bindings, binding{
			rule: r,
			key:  types.RelationKey(r.Type),
			slot: slot,
			err:  err,
		})
	}
	return p, nil
}

// Filter returns the rules of the plan in application order.
func (p *Plan) Filter() types.Filter {
	f := make(types.Filter, len(p.bindings))
	for i, b := range p.bindings {
		f[i] = b.rule
	}
	return f
}

// Slot returns the resolved slot for relatedType.
func (p *Plan) Slot(relatedType string) (Slot, bool) {
	for _, b := range p.bindings {
		if b.rule.Type == relatedType && b.err == nil {
			return b.slot, true
		}
	}
	return Slot{}, false
}

// Check returns the slot resolution errors of every rule, joined.
func (p *Plan) Check() error {
	var errs []error
	for _, b := range p.bindings {
		if b.err != nil {
			errs = append(errs, fmt.Errorf("relation %q: %w", b.rule.Type, b.err))
		}
	}
	return errors.Join(errs...)
}

// Relate applies a relation request map to bean.
//
// Rules are visited in filter order. A rule whose key is absent (or null)
// is skipped. A key holding a sequence of ids associates each id in
// sequence order; a scalar associates once. Loading a referenced bean that
// does not exist fails with ErrNotFound and stops processing; associations
// already applied by this call stay in place.
func (p *Plan) Relate(ctx context.Context, bean *types.Bean, data types.RelationMap) error {
	if bean == nil {
		return fmt.Errorf("%w: relate needs a bean", types.ErrInvalidArgument)
	}
	if bean.Type() != p.owner {
		return fmt.Errorf("%w: plan for %q applied to %q", types.ErrTypeMismatch, p.owner, bean.Type())
	}

	store := p.engine.store
	for _, b := range p.bindings {
		v, ok := data[b.key]
		if !ok || v == nil {
			continue
		}
		if b.err != nil {
			return b.err
		}

		ids, err := types.ParseIDs(v)
		if err != nil {
			return fmt.Errorf("%s: %w", b.key, err)
		}
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return err
			}
			rel, err := store.Load(ctx, b.rule.Type, id)
			if err != nil {
				return err
			}
			if err := p.engine.apply(ctx, bean, rel, b.slot); err != nil {
				return err
			}
			if err := p.engine.persist(ctx, bean, rel); err != nil {
				return err
			}
		}
	}
	return nil
}
