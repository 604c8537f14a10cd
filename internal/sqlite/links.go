// This file implements join links between beans.
package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/beanbase/pkg/types"
)

const (
	insertLink = `INSERT INTO links (link_id, link_type, from_type, from_id, to_type, to_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	selectLinkExists = `SELECT COUNT(*) FROM links
WHERE link_type = ? AND from_type = ? AND from_id = ? AND to_type = ? AND to_id = ?`

	selectLinked = `SELECT b.bean_id, b.fields FROM links l
JOIN beans b ON b.bean_type = ? AND b.bean_id = CASE
    WHEN l.from_type = ? AND l.from_id = ? THEN l.to_id ELSE l.from_id END
WHERE l.link_type = ?
  AND ((l.from_type = ? AND l.from_id = ? AND l.to_type = ?)
    OR (l.to_type = ? AND l.to_id = ? AND l.from_type = ?))
ORDER BY l.rowid`
)

// Link joins a and b. Endpoints are written in canonical order, so the
// UNIQUE index rejects a second link of the pair from either side.
func (b *Backend) Link(ctx context.Context, linkType string, x, y *types.Bean) error {
	if x == nil || y == nil || x.Transient() || y.Transient() {
		return fmt.Errorf("%w: link endpoints must be persisted", types.ErrInvalidID)
	}
	from, to := types.OrderEndpoints(x, y)

	b.mu.Lock()
	defer b.mu.Unlock()

	db, err := b.conn()
	if err != nil {
		return err
	}

	// Pre-check so the common conflict does not depend on driver error text.
	var n int
	if err := db.QueryRowContext(ctx, selectLinkExists,
		linkType, from.Type(), from.ID(), to.Type(), to.ID()).Scan(&n); err != nil {
		return fmt.Errorf("checking link: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%w: %s and %s already joined (%s)", types.ErrRelationConflict, from, to, linkType)
	}

	linkID, err := uuid.NewV7()
	if err != nil {
		linkID = uuid.New()
	}
	_, err = db.ExecContext(ctx, insertLink,
		linkID.String(), linkType, from.Type(), from.ID(), to.Type(), to.ID(),
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s and %s already joined (%s)", types.ErrRelationConflict, from, to, linkType)
		}
		return fmt.Errorf("inserting link: %w", err)
	}

	b.logger.Debug("linked beans",
		zap.String("link_type", linkType),
		zap.Stringer("from", from),
		zap.Stringer("to", to))
	return nil
}

// Linked returns the beans of relatedType joined to bean, oldest link first.
func (b *Backend) Linked(ctx context.Context, linkType string, bean *types.Bean, relatedType string) ([]*types.Bean, error) {
	if bean == nil || bean.Transient() {
		return nil, nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	db, err := b.conn()
	if err != nil {
		return nil, err
	}

	bt, bid := bean.Type(), bean.ID()
	rows, err := db.QueryContext(ctx, selectLinked,
		relatedType, bt, bid,
		linkType,
		bt, bid, relatedType,
		bt, bid, relatedType)
	if err != nil {
		return nil, fmt.Errorf("querying links of %s: %w", bean, err)
	}
	return collectBeans(relatedType, rows)
}

// AreLinked reports whether x and y are joined with linkType.
func (b *Backend) AreLinked(ctx context.Context, linkType string, x, y *types.Bean) (bool, error) {
	if x == nil || y == nil || x.Transient() || y.Transient() {
		return false, nil
	}
	from, to := types.OrderEndpoints(x, y)

	b.mu.RLock()
	defer b.mu.RUnlock()

	db, err := b.conn()
	if err != nil {
		return false, err
	}

	var n int
	if err := db.QueryRowContext(ctx, selectLinkExists,
		linkType, from.Type(), from.ID(), to.Type(), to.ID()).Scan(&n); err != nil {
		return false, fmt.Errorf("checking link: %w", err)
	}
	return n > 0, nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// failure.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
