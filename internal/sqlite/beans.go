// This file implements bean persistence and attribute lookups.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/beanbase/pkg/types"
)

const (
	selectBean = `SELECT bean_id, fields FROM beans WHERE bean_type = ? AND bean_id = ?`

	upsertBean = `INSERT INTO beans (bean_type, bean_id, fields) VALUES (?, ?, ?)
ON CONFLICT (bean_type, bean_id) DO UPDATE SET fields = excluded.fields`

	nextBeanID = `INSERT INTO bean_seq (bean_type, last_id) VALUES (?, 1)
ON CONFLICT (bean_type) DO UPDATE SET last_id = last_id + 1
RETURNING last_id`

	raiseBeanSeq = `INSERT INTO bean_seq (bean_type, last_id) VALUES (?, ?)
ON CONFLICT (bean_type) DO UPDATE SET last_id = MAX(last_id, excluded.last_id)`

	deleteBean  = `DELETE FROM beans WHERE bean_type = ? AND bean_id = ?`
	deleteLinks = `DELETE FROM links WHERE (from_type = ? AND from_id = ?) OR (to_type = ? AND to_id = ?)`
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBean(beanType string, s rowScanner) (*types.Bean, error) {
	var (
		id  int64
		raw string
	)
	if err := s.Scan(&id, &raw); err != nil {
		return nil, err
	}
	fields, err := decodeFields(raw)
	if err != nil {
		return nil, fmt.Errorf("%s#%d: %w", beanType, id, err)
	}
	return types.Hydrate(beanType, id, fields), nil
}

// Dispense returns a new transient bean.
func (b *Backend) Dispense(beanType string) *types.Bean {
	return types.NewBean(beanType)
}

// Load returns the bean with the given identity.
func (b *Backend) Load(ctx context.Context, beanType string, id int64) (*types.Bean, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	db, err := b.conn()
	if err != nil {
		return nil, err
	}

	bean, err := scanBean(beanType, db.QueryRowContext(ctx, selectBean, beanType, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s#%d", types.ErrNotFound, beanType, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s#%d: %w", beanType, id, err)
	}
	return bean, nil
}

// Store upserts the bean. A transient bean takes the next identity of its
// type; identities are never reused after a bean is trashed.
func (b *Backend) Store(ctx context.Context, bean *types.Bean) (int64, error) {
	if bean == nil || bean.Type() == "" {
		return 0, fmt.Errorf("%w: bean without type", types.ErrInvalidArgument)
	}
	data, err := encodeFields(bean.Fields())
	if err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	db, err := b.conn()
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	id := bean.ID()
	if id == 0 {
		if err := tx.QueryRowContext(ctx, nextBeanID, bean.Type()).Scan(&id); err != nil {
			return 0, fmt.Errorf("allocating id for %s: %w", bean.Type(), err)
		}
	} else if _, err := tx.ExecContext(ctx, raiseBeanSeq, bean.Type(), id); err != nil {
		return 0, fmt.Errorf("updating sequence for %s: %w", bean.Type(), err)
	}

	if _, err := tx.ExecContext(ctx, upsertBean, bean.Type(), id, data); err != nil {
		return 0, fmt.Errorf("storing %s#%d: %w", bean.Type(), id, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	if err := bean.AssignID(id); err != nil {
		return 0, err
	}
	bean.MarkClean()

	b.logger.Debug("stored bean", zap.String("bean_type", bean.Type()), zap.Int64("bean_id", id))
	return id, nil
}

// Trash deletes the bean and every link touching it in one transaction.
func (b *Backend) Trash(ctx context.Context, bean *types.Bean) error {
	if bean == nil || bean.Transient() {
		return fmt.Errorf("%w: cannot trash a transient bean", types.ErrInvalidID)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	db, err := b.conn()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, deleteBean, bean.Type(), bean.ID())
	if err != nil {
		return fmt.Errorf("deleting %s: %w", bean, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting %s: %w", bean, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", types.ErrNotFound, bean)
	}
	if _, err := tx.ExecContext(ctx, deleteLinks, bean.Type(), bean.ID(), bean.Type(), bean.ID()); err != nil {
		return fmt.Errorf("deleting links of %s: %w", bean, err)
	}
	return tx.Commit()
}

// IsDirty reports whether the bean differs from what was last loaded or
// stored.
func (b *Backend) IsDirty(bean *types.Bean) bool {
	return bean.Dirty()
}

// FindOne returns the lowest-id bean whose field equals value, or nil.
func (b *Backend) FindOne(ctx context.Context, beanType, field string, value any) (*types.Bean, error) {
	found, err := b.find(ctx, beanType, field, value, 1)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return found[0], nil
}

// Find returns every bean whose field equals value, ordered by id.
func (b *Backend) Find(ctx context.Context, beanType, field string, value any) ([]*types.Bean, error) {
	return b.find(ctx, beanType, field, value, 0)
}

// Count returns the number of matching beans. An empty field counts all
// beans of the type.
func (b *Backend) Count(ctx context.Context, beanType, field string, value any) (int, error) {
	query := `SELECT COUNT(*) FROM beans WHERE bean_type = ?`
	args := []any{beanType}
	if field != "" {
		clause, clauseArgs, err := fieldClause(field, value)
		if err != nil {
			return 0, err
		}
		query += " AND " + clause
		args = append(args, clauseArgs...)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	db, err := b.conn()
	if err != nil {
		return 0, err
	}

	var n int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", beanType, err)
	}
	return n, nil
}

// FindAll returns beans of the type ordered by id.
func (b *Backend) FindAll(ctx context.Context, beanType string, offset, limit int) ([]*types.Bean, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = -1
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	db, err := b.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT bean_id, fields FROM beans WHERE bean_type = ? ORDER BY bean_id LIMIT ? OFFSET ?`,
		beanType, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", beanType, err)
	}
	return collectBeans(beanType, rows)
}

func (b *Backend) find(ctx context.Context, beanType, field string, value any, max int) ([]*types.Bean, error) {
	clause, args, err := fieldClause(field, value)
	if err != nil {
		return nil, err
	}
	query := `SELECT bean_id, fields FROM beans WHERE bean_type = ? AND ` + clause + ` ORDER BY bean_id`
	args = append([]any{beanType}, args...)
	if max > 0 {
		query += ` LIMIT ?`
		args = append(args, max)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	db, err := b.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("finding %s by %s: %w", beanType, field, err)
	}
	return collectBeans(beanType, rows)
}

func collectBeans(beanType string, rows *sql.Rows) ([]*types.Bean, error) {
	defer rows.Close()

	var out []*types.Bean
	for rows.Next() {
		bean, err := scanBean(beanType, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, bean)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// fieldClause builds the WHERE fragment matching field against value. The
// field name is validated before it is placed in the JSON path. A nil value
// matches beans where the field is absent or null.
func fieldClause(field string, value any) (string, []any, error) {
	if !types.ValidFieldName(field) {
		return "", nil, fmt.Errorf("%w: %q", types.ErrInvalidField, field)
	}
	if field == types.IDField {
		if value == nil {
			return "bean_id IS NULL", nil, nil
		}
		id, err := types.ParseID(value)
		if err != nil {
			return "", nil, err
		}
		return "bean_id = ?", []any{id}, nil
	}

	path := "$." + field
	if value == nil {
		return "json_extract(fields, ?) IS NULL", []any{path}, nil
	}
	bound, err := bindValue(value)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", types.ErrInvalidArgument, err)
	}
	return "json_extract(fields, ?) = ?", []any{path, bound}, nil
}
