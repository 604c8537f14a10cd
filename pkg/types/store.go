package types

import (
	"context"
	"errors"
)

// Link types used by join operations.
const (
	LinkOne    = "one"    // one-to-one join
	LinkShared = "shared" // many-to-many join
)

// Store is the key-addressed record store the relation engine and the model
// facade run on. Implementations are safe for concurrent use; they do not
// make check-then-act sequences of callers atomic.
type Store interface {
	// Dispense returns a new transient bean of the given type.
	Dispense(beanType string) *Bean

	// Load returns the bean with the given identity.
	// Returns ErrNotFound if no such bean exists.
	Load(ctx context.Context, beanType string, id int64) (*Bean, error)

	// Store persists the bean, assigning an identity when it is transient,
	// and returns the identity.
	Store(ctx context.Context, b *Bean) (int64, error)

	// Trash removes the bean and every join link touching it.
	// Returns ErrNotFound if the bean does not exist.
	Trash(ctx context.Context, b *Bean) error

	// IsDirty reports whether the bean has unpersisted changes.
	IsDirty(b *Bean) bool

	// FindOne returns the lowest-id bean whose field equals value, or nil
	// when none matches.
	FindOne(ctx context.Context, beanType, field string, value any) (*Bean, error)

	// Find returns every bean whose field equals value, ordered by id.
	Find(ctx context.Context, beanType, field string, value any) ([]*Bean, error)

	// Count returns the number of beans whose field equals value. An empty
	// field counts every bean of the type.
	Count(ctx context.Context, beanType, field string, value any) (int, error)

	// FindAll returns beans of the type ordered by id. A non-positive limit
	// means no limit.
	FindAll(ctx context.Context, beanType string, offset, limit int) ([]*Bean, error)

	// Link joins two persisted beans with the given link type. Linking an
	// already joined pair returns ErrRelationConflict.
	Link(ctx context.Context, linkType string, a, b *Bean) error

	// Linked returns the beans of relatedType joined to b with linkType, in
	// link creation order.
	Linked(ctx context.Context, linkType string, b *Bean, relatedType string) ([]*Bean, error)

	// AreLinked reports whether a and b are joined with linkType in either
	// direction.
	AreLinked(ctx context.Context, linkType string, a, b *Bean) (bool, error)

	// Close releases the store's resources.
	Close() error
}

// Store errors.
var (
	ErrNotFound        = errors.New("bean not found")
	ErrInvalidID       = errors.New("invalid bean id")
	ErrInvalidField    = errors.New("invalid field name")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrStoreClosed     = errors.New("store is closed")
)

// Model errors.
var (
	ErrIncompleteData  = errors.New("incomplete data")
	ErrUniqueViolation = errors.New("unique constraint violated")
)
