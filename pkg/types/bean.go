package types

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// IDField is the exported name of a bean's identity. It is never stored as
// an attribute.
const IDField = "id"

// Bean is a dynamically typed record of a named type.
//
// A bean with ID 0 is transient. Identity is assigned once by a Store and
// never changes afterwards; attributes stay mutable. The Store records a
// fingerprint of the attributes each time it loads or persists the bean, and
// Dirty reports whether the attributes drifted from that snapshot.
type Bean struct {
	beanType string
	id       int64
	fields   map[string]any

	// clean is the fingerprint recorded by MarkClean; stored is false until
	// the first MarkClean.
	clean  uint64
	stored bool
}

// NewBean returns a transient bean of the given type with no attributes.
func NewBean(beanType string) *Bean {
	return &Bean{
		beanType: beanType,
		fields:   make(map[string]any),
	}
}

// Hydrate builds a clean, attached bean from persisted state. Stores use it
// when loading rows. The fields map is copied.
func Hydrate(beanType string, id int64, fields map[string]any) *Bean {
	b := NewBean(beanType)
	b.id = id
	for k, v := range fields {
		if k == IDField {
			continue
		}
		b.fields[k] = v
	}
	b.MarkClean()
	return b
}

// Type returns the bean type (table or collection name).
func (b *Bean) Type() string { return b.beanType }

// ID returns the identity, or 0 for a transient bean.
func (b *Bean) ID() int64 { return b.id }

// Transient reports whether the bean has not been persisted yet.
func (b *Bean) Transient() bool { return b.id == 0 }

// AssignID sets the identity. It succeeds when the bean is transient or when
// id equals the current identity; any other reassignment returns ErrInvalidID.
func (b *Bean) AssignID(id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidID, id)
	}
	if b.id != 0 && b.id != id {
		return fmt.Errorf("%w: %s already has id %d", ErrInvalidID, b.beanType, b.id)
	}
	b.id = id
	return nil
}

// Get returns the attribute value and whether the attribute exists.
func (b *Bean) Get(field string) (any, bool) {
	if field == IDField {
		return b.id, b.id != 0
	}
	v, ok := b.fields[field]
	return v, ok
}

// Has reports whether the attribute exists with a non-nil value.
func (b *Bean) Has(field string) bool {
	v, ok := b.Get(field)
	return ok && v != nil
}

// Int returns the attribute as an integer id. It fails when the attribute is
// missing or does not hold an integral value.
func (b *Bean) Int(field string) (int64, bool) {
	v, ok := b.Get(field)
	if !ok || v == nil {
		return 0, false
	}
	id, err := ParseID(v)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Set assigns an attribute. Writes to IDField are ignored.
func (b *Bean) Set(field string, value any) {
	if field == IDField {
		return
	}
	b.fields[field] = value
}

// Import sets every entry of data as an attribute.
func (b *Bean) Import(data map[string]any) *Bean {
	for k, v := range data {
		b.Set(k, v)
	}
	return b
}

// Fields returns a shallow copy of the attributes.
func (b *Bean) Fields() map[string]any {
	out := make(map[string]any, len(b.fields))
	for k, v := range b.fields {
		out[k] = v
	}
	return out
}

// FieldNames returns the attribute names in sorted order.
func (b *Bean) FieldNames() []string {
	names := make([]string, 0, len(b.fields))
	for k := range b.fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Export returns the attributes together with IDField.
func (b *Bean) Export() map[string]any {
	out := b.Fields()
	out[IDField] = b.id
	return out
}

// MarkClean records the current attributes as the persisted snapshot. Only
// Stores call it.
func (b *Bean) MarkClean() {
	fp, ok := b.fingerprint()
	b.clean = fp
	b.stored = ok
}

// Dirty reports whether the bean has changes a Store has not persisted.
// Transient beans are always dirty.
func (b *Bean) Dirty() bool {
	if b.id == 0 || !b.stored {
		return true
	}
	fp, ok := b.fingerprint()
	return !ok || fp != b.clean
}

// fingerprint hashes the canonical JSON encoding of the attributes.
// encoding/json sorts map keys, so equal maps hash equally.
func (b *Bean) fingerprint() (uint64, bool) {
	data, err := json.Marshal(b.fields)
	if err != nil {
		return 0, false
	}
	return xxhash.Sum64(data), true
}

// MarshalJSON renders the bean as its exported attribute map.
func (b *Bean) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Export())
}

// String returns "type#id".
func (b *Bean) String() string {
	return fmt.Sprintf("%s#%d", b.beanType, b.id)
}
