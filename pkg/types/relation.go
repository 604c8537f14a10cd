package types

import (
	"errors"
	"fmt"
)

// Kind is the association semantics applied between two beans.
type Kind int

// Relation kinds. The self-referential kinds link beans of one type through
// SelfRefField.
const (
	HasOne Kind = iota
	HasMany
	HaveMany
	BelongsTo
	HasOneSelf
	HasManySelf
	HaveManySelf
	BelongsToSelf
)

var kindNames = [...]string{
	HasOne:        "has_one",
	HasMany:       "has_many",
	HaveMany:      "have_many",
	BelongsTo:     "belongs_to",
	HasOneSelf:    "has_one_self",
	HasManySelf:   "has_many_self",
	HaveManySelf:  "have_many_self",
	BelongsToSelf: "belongs_to_self",
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return k >= HasOne && k <= BelongsToSelf
}

// SelfReferential reports whether k links two beans of the same type.
func (k Kind) SelfReferential() bool {
	return k >= HasOneSelf && k <= BelongsToSelf
}

// String returns the wire name of the kind, e.g. "has_many".
func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind translates a wire name into a Kind.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRelationKind, s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRelationKind, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Reserved request and bean fields.
const (
	FieldCreated  = "created"
	FieldUpdated  = "updated"
	FieldDeleted  = "deleted"
	FieldRelation = "relation"
)

// SelfRefField is the attribute holding a same-type reference for the
// self-referential kinds.
const SelfRefField = "self_id"

// RelationKey returns the request-map key carrying ids of the given type,
// which is also the parent slot attribute named after that type.
func RelationKey(beanType string) string {
	return beanType + "_id"
}

// Rule declares that a model accepts relations to beans of Type with Kind.
type Rule struct {
	Type string `json:"type" yaml:"type"`
	Kind Kind   `json:"kind" yaml:"kind"`
}

// Filter is the ordered list of relation rules of a model. Rules are applied
// in declaration order.
type Filter []Rule

// Validate checks that every rule names a type and that no type repeats.
// Unknown kinds are not rejected here; they fail when applied.
func (f Filter) Validate() error {
	seen := make(map[string]bool, len(f))
	for _, r := range f {
		if r.Type == "" {
			return fmt.Errorf("%w: relation rule without type", ErrInvalidArgument)
		}
		if seen[r.Type] {
			return fmt.Errorf("%w: duplicate relation type %q", ErrInvalidArgument, r.Type)
		}
		seen[r.Type] = true
	}
	return nil
}

// RelationMap is the relation sub-document of a request: RelationKey(type)
// mapped to one id or a sequence of ids.
type RelationMap map[string]any

// AsRelationMap converts the value found under FieldRelation into a
// RelationMap. Anything other than a string-keyed map is ErrInvalidArgument.
func AsRelationMap(v any) (RelationMap, error) {
	switch m := v.(type) {
	case RelationMap:
		return m, nil
	case map[string]any:
		return RelationMap(m), nil
	default:
		return nil, fmt.Errorf("%w: %s must be an object, got %T", ErrInvalidArgument, FieldRelation, v)
	}
}

// Relation errors.
var (
	ErrRelationConflict    = errors.New("relation already exists")
	ErrTypeMismatch        = errors.New("bean types differ")
	ErrUnknownRelationKind = errors.New("unknown relation kind")
	ErrUnimplemented       = errors.New("relation kind not implemented")
)
