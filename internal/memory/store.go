// Package memory implements an in-process Store for BeanBase.
// Rows live in an ordered B-tree keyed by (type, id); join links live in an
// append-only slice so Linked returns them in creation order.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/tidwall/btree"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/beanbase/pkg/types"
)

var _ types.Store = (*Store)(nil)

// row is the stored form of a bean.
type row struct {
	Type   string
	ID     int64
	Fields map[string]any
}

func (r *row) clone() *row {
	var cp row
	if err := copier.CopyWithOption(&cp, r, copier.Option{DeepCopy: true}); err != nil {
		panic("could not copy row: " + err.Error())
	}
	return &cp
}

func (r *row) bean() *types.Bean {
	return types.Hydrate(r.Type, r.ID, r.Fields)
}

func byKey(a, b interface{}) bool {
	ra, rb := a.(*row), b.(*row)
	if ra.Type != rb.Type {
		return ra.Type < rb.Type
	}
	return ra.ID < rb.ID
}

// Store is an in-memory types.Store.
type Store struct {
	mu     sync.RWMutex
	rows   *btree.BTree
	seq    map[string]int64
	links  []types.Link
	closed bool
	logger *zap.Logger
}

// New creates an empty store. A nil logger disables logging.
func New(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		rows:   btree.NewNonConcurrent(byKey),
		seq:    make(map[string]int64),
		logger: logger,
	}
}

// Dispense returns a new transient bean.
func (s *Store) Dispense(beanType string) *types.Bean {
	return types.NewBean(beanType)
}

// Load returns the bean with the given identity.
func (s *Store) Load(ctx context.Context, beanType string, id int64) (*types.Bean, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, types.ErrStoreClosed
	}
	r := s.get(beanType, id)
	if r == nil {
		return nil, fmt.Errorf("%w: %s#%d", types.ErrNotFound, beanType, id)
	}
	return r.clone().bean(), nil
}

// Store persists b, assigning the next identity of its type when transient.
func (s *Store) Store(ctx context.Context, b *types.Bean) (int64, error) {
	if b == nil || b.Type() == "" {
		return 0, fmt.Errorf("%w: bean without type", types.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, types.ErrStoreClosed
	}

	id := b.ID()
	if id == 0 {
		id = s.seq[b.Type()] + 1
	}
	if id > s.seq[b.Type()] {
		s.seq[b.Type()] = id
	}

	r := &row{Type: b.Type(), ID: id, Fields: b.Fields()}
	s.rows.Set(r.clone())

	if err := b.AssignID(id); err != nil {
		return 0, err
	}
	b.MarkClean()

	s.logger.Debug("stored bean", zap.String("bean_type", b.Type()), zap.Int64("bean_id", id))
	return id, nil
}

// Trash removes b and its links.
func (s *Store) Trash(ctx context.Context, b *types.Bean) error {
	if b == nil || b.Transient() {
		return fmt.Errorf("%w: cannot trash a transient bean", types.ErrInvalidID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return types.ErrStoreClosed
	}
	if s.rows.Delete(&row{Type: b.Type(), ID: b.ID()}) == nil {
		return fmt.Errorf("%w: %s", types.ErrNotFound, b)
	}

	kept := s.links[:0]
	for _, l := range s.links {
		if !l.Touches(b.Type(), b.ID()) {
			kept = append(kept, l)
		}
	}
	s.links = kept
	return nil
}

// IsDirty reports whether b differs from its persisted snapshot.
func (s *Store) IsDirty(b *types.Bean) bool {
	return b.Dirty()
}

// FindOne returns the first bean whose field equals value.
func (s *Store) FindOne(ctx context.Context, beanType, field string, value any) (*types.Bean, error) {
	found, err := s.match(beanType, field, value, 1)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return found[0], nil
}

// Find returns every bean whose field equals value.
func (s *Store) Find(ctx context.Context, beanType, field string, value any) ([]*types.Bean, error) {
	return s.match(beanType, field, value, 0)
}

// Count counts beans whose field equals value; an empty field counts all.
func (s *Store) Count(ctx context.Context, beanType, field string, value any) (int, error) {
	if field == "" {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if s.closed {
			return 0, types.ErrStoreClosed
		}
		n := 0
		s.ascend(beanType, func(*row) bool {
			n++
			return true
		})
		return n, nil
	}
	found, err := s.match(beanType, field, value, 0)
	return len(found), err
}

// FindAll pages through beans of a type in id order.
func (s *Store) FindAll(ctx context.Context, beanType string, offset, limit int) ([]*types.Bean, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, types.ErrStoreClosed
	}
	if offset < 0 {
		offset = 0
	}

	var out []*types.Bean
	skipped := 0
	s.ascend(beanType, func(r *row) bool {
		if skipped < offset {
			skipped++
			return true
		}
		out = append(out, r.clone().bean())
		return limit <= 0 || len(out) < limit
	})
	return out, nil
}

// Link joins a and b. The pair is stored once, in canonical order.
func (s *Store) Link(ctx context.Context, linkType string, a, b *types.Bean) error {
	if a.Transient() || b.Transient() {
		return fmt.Errorf("%w: link endpoints must be persisted", types.ErrInvalidID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return types.ErrStoreClosed
	}
	if s.linkedLocked(linkType, a, b) {
		return fmt.Errorf("%w: %s %s and %s", types.ErrRelationConflict, linkType, a, b)
	}

	from, to := types.OrderEndpoints(a, b)
	s.links = append(s.links, types.Link{
		LinkID:    newLinkID(),
		LinkType:  linkType,
		FromType:  from.Type(),
		FromID:    from.ID(),
		ToType:    to.Type(),
		ToID:      to.ID(),
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

// Linked returns the beans of relatedType joined to b.
func (s *Store) Linked(ctx context.Context, linkType string, b *types.Bean, relatedType string) ([]*types.Bean, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, types.ErrStoreClosed
	}
	if b.Transient() {
		return nil, nil
	}

	var out []*types.Bean
	for _, l := range s.links {
		if l.LinkType != linkType || !l.Touches(b.Type(), b.ID()) {
			continue
		}
		otherType, otherID := l.Other(b.Type(), b.ID())
		if otherType != relatedType {
			continue
		}
		if r := s.get(otherType, otherID); r != nil {
			out = append(out, r.clone().bean())
		}
	}
	return out, nil
}

// AreLinked reports whether a and b are joined with linkType.
func (s *Store) AreLinked(ctx context.Context, linkType string, a, b *types.Bean) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, types.ErrStoreClosed
	}
	return s.linkedLocked(linkType, a, b), nil
}

// Close marks the store closed. Close is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) get(beanType string, id int64) *row {
	item := s.rows.Get(&row{Type: beanType, ID: id})
	if item == nil {
		return nil
	}
	return item.(*row)
}

// ascend visits rows of beanType in id order until fn returns false.
// The caller must hold s.mu.
func (s *Store) ascend(beanType string, fn func(*row) bool) {
	s.rows.Ascend(&row{Type: beanType, ID: 0}, func(item interface{}) bool {
		r := item.(*row)
		if r.Type != beanType {
			return false
		}
		return fn(r)
	})
}

func (s *Store) match(beanType, field string, value any, max int) ([]*types.Bean, error) {
	if !types.ValidFieldName(field) {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidField, field)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, types.ErrStoreClosed
	}

	var out []*types.Bean
	s.ascend(beanType, func(r *row) bool {
		var v any
		var ok bool
		if field == types.IDField {
			v, ok = r.ID, true
		} else {
			v, ok = r.Fields[field]
		}
		if value == nil {
			if ok && v != nil {
				return true
			}
		} else if !ok || !types.EqualValues(v, value) {
			return true
		}
		out = append(out, r.clone().bean())
		return max <= 0 || len(out) < max
	})
	return out, nil
}

func (s *Store) linkedLocked(linkType string, a, b *types.Bean) bool {
	if a.Transient() || b.Transient() {
		return false
	}
	from, to := types.OrderEndpoints(a, b)
	for _, l := range s.links {
		if l.LinkType == linkType &&
			l.FromType == from.Type() && l.FromID == from.ID() &&
			l.ToType == to.Type() && l.ToID == to.ID() {
			return true
		}
	}
	return false
}

// newLinkID generates a UUID v7 for link IDs.
func newLinkID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
