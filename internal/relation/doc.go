// Package relation wires associations between beans.
//
// An association is applied by Associate for one pair of beans and one
// Kind. Relate applies a relation request map against a Filter, loading each
// referenced bean and associating it with the owner in filter order.
//
// Associations are stored in one of two places, resolved once per rule as a
// Slot: an id field on one of the beans (parent and self-reference slots)
// or a join link kept by the Store (HasOne and HaveMany).
//
// The engine checks for an existing association and then writes a new one
// without holding a lock across the two steps. Two callers racing on the
// same pair can both pass the check; the SQLite store's UNIQUE index on
// links rejects the second join of that pair with ErrRelationConflict.
// Nothing else is guarded. HasOne exclusivity is a read before the write,
// so concurrent joins of A to B and of A to C can both succeed, and slot
// fields are last-writer-wins.
package relation
