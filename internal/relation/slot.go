package relation

import (
	"fmt"

	"github.com/mesh-intelligence/beanbase/pkg/types"
)

// Slot says where an association of one Kind between an owner type and a
// related type is recorded.
type Slot struct {
	Kind types.Kind

	// Field is the id attribute holding the association. Empty for joins.
	Field string

	// OnRelated is true when Field lives on the related bean rather than on
	// the owner.
	OnRelated bool

	// LinkType is the Store link type for joins. Empty for field slots.
	LinkType string
}

// Join reports whether the slot is a Store link rather than a field.
func (s Slot) Join() bool { return s.LinkType != "" }

// SlotFor resolves the slot for (ownerType, relatedType, kind).
//
// Self-referential kinds require both types to match (ErrTypeMismatch).
// HaveManySelf fails with ErrUnimplemented and anything outside the Kind
// enumeration with ErrUnknownRelationKind.
func SlotFor(ownerType, relatedType string, kind types.Kind) (Slot, error) {
	if kind.SelfReferential() && ownerType != relatedType {
		return Slot{}, fmt.Errorf("%w: %s relation between %q and %q", types.ErrTypeMismatch, kind, ownerType, relatedType)
	}

	switch kind {
	case types.HasOne:
		return Slot{Kind: kind, LinkType: types.LinkOne}, nil
	case types.HaveMany:
		return Slot{Kind: kind, LinkType: types.LinkShared}, nil
	case types.HasMany:
		return Slot{Kind: kind, Field: types.RelationKey(ownerType), OnRelated: true}, nil
	case types.BelongsTo:
		return Slot{Kind: kind, Field: types.RelationKey(relatedType)}, nil
	case types.HasOneSelf, types.HasManySelf:
		return Slot{Kind: kind, Field: types.SelfRefField, OnRelated: true}, nil
	case types.BelongsToSelf:
		return Slot{Kind: kind, Field: types.SelfRefField}, nil
	case types.HaveManySelf:
		return Slot{}, fmt.Errorf("%w: %s", types.ErrUnimplemented, kind)
	default:
		return Slot{}, fmt.Errorf("%w: %s", types.ErrUnknownRelationKind, kind)
	}
}
