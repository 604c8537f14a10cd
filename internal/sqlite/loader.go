// This file implements JSONL export and import of a whole store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/beanbase/pkg/types"
)

// Export writes beans.jsonl and links.jsonl into dir. Each file is replaced
// atomically.
func (b *Backend) Export(ctx context.Context, dir string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	db, err := b.conn()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	beans, err := exportBeans(ctx, db)
	if err != nil {
		return err
	}
	links, err := exportLinks(ctx, db)
	if err != nil {
		return err
	}

	if err := writeJSONL(filepath.Join(dir, BeansFile), beans); err != nil {
		return fmt.Errorf("writing %s: %w", BeansFile, err)
	}
	if err := writeJSONL(filepath.Join(dir, LinksFile), links); err != nil {
		return fmt.Errorf("writing %s: %w", LinksFile, err)
	}

	b.logger.Info("exported store",
		zap.String("dir", dir),
		zap.Int("beans", len(beans)),
		zap.Int("links", len(links)))
	return nil
}

func exportBeans(ctx context.Context, db *sql.DB) ([]json.RawMessage, error) {
	rows, err := db.QueryContext(ctx, `SELECT bean_type, bean_id, fields FROM beans ORDER BY bean_type, bean_id`)
	if err != nil {
		return nil, fmt.Errorf("querying beans: %w", err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		var rec beanJSON
		var fields string
		if err := rows.Scan(&rec.Type, &rec.ID, &fields); err != nil {
			return nil, err
		}
		rec.Fields = json.RawMessage(fields)
		data, err := json.Marshal(rec)
		if err != nil {
			return nil, err
		}
		records = append(records, data)
	}
	return records, rows.Err()
}

func exportLinks(ctx context.Context, db *sql.DB) ([]json.RawMessage, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT link_id, link_type, from_type, from_id, to_type, to_id, created_at FROM links ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying links: %w", err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		var l types.Link
		var created string
		if err := rows.Scan(&l.LinkID, &l.LinkType, &l.FromType, &l.FromID, &l.ToType, &l.ToID, &created); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			l.CreatedAt = t
		}
		data, err := json.Marshal(l)
		if err != nil {
			return nil, err
		}
		records = append(records, data)
	}
	return records, rows.Err()
}

// Import loads beans.jsonl and links.jsonl from dir in one transaction.
// Missing files are treated as empty and malformed lines are skipped.
// Existing beans with the same identity are overwritten; links already
// present are kept. Links to missing beans and one-links that would give a
// bean a second partner are skipped. Returns the number of beans imported
// and of links inserted.
func (b *Backend) Import(ctx context.Context, dir string) (int, int, error) {
	beans, err := readOptionalJSONL(filepath.Join(dir, BeansFile))
	if err != nil {
		return 0, 0, err
	}
	links, err := readOptionalJSONL(filepath.Join(dir, LinksFile))
	if err != nil {
		return 0, 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	db, err := b.conn()
	if err != nil {
		return 0, 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("beginning import transaction: %w", err)
	}
	defer tx.Rollback()

	nBeans, err := importBeans(ctx, tx, beans)
	if err != nil {
		return 0, 0, err
	}
	nLinks, skipped, err := importLinks(ctx, tx, links)
	if err != nil {
		return 0, 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("committing import transaction: %w", err)
	}

	b.logger.Info("imported store",
		zap.String("dir", dir),
		zap.Int("beans", nBeans),
		zap.Int("links", nLinks),
		zap.Int("links_skipped", skipped))
	return nBeans, nLinks, nil
}

func readOptionalJSONL(path string) ([]json.RawMessage, error) {
	records, err := readJSONL(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return records, err
}

func importBeans(ctx context.Context, tx *sql.Tx, records []json.RawMessage) (int, error) {
	n := 0
	for _, raw := range records {
		var rec beanJSON
		if err := json.Unmarshal(raw, &rec); err != nil || rec.Type == "" || rec.ID <= 0 {
			continue
		}
		fields := string(rec.Fields)
		if len(rec.Fields) == 0 || fields == "null" {
			fields = "{}"
		}
		if _, err := decodeFields(fields); err != nil {
			continue
		}
		if _, err := tx.ExecContext(ctx, upsertBean, rec.Type, rec.ID, fields); err != nil {
			return n, fmt.Errorf("importing %s#%d: %w", rec.Type, rec.ID, err)
		}
		if _, err := tx.ExecContext(ctx, raiseBeanSeq, rec.Type, rec.ID); err != nil {
			return n, fmt.Errorf("updating sequence for %s: %w", rec.Type, err)
		}
		n++
	}
	return n, nil
}

const (
	selectBeanExists = `SELECT COUNT(*) FROM beans WHERE bean_type = ? AND bean_id = ?`

	// selectOnePartner counts one-links joining an endpoint to any bean of
	// the other endpoint's type.
	selectOnePartner = `SELECT COUNT(*) FROM links
WHERE link_type = ?
  AND ((from_type = ? AND from_id = ? AND to_type = ?)
    OR (to_type = ? AND to_id = ? AND from_type = ?))`

	insertLinkOrIgnore = `INSERT OR IGNORE INTO links (link_id, link_type, from_type, from_id, to_type, to_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
)

// importLinks inserts link records and returns how many were inserted and
// how many were skipped. A link is skipped when an endpoint does not exist,
// when it would give an endpoint a second one-link partner, or when the
// link (by id or by endpoint pair) is already present.
func importLinks(ctx context.Context, tx *sql.Tx, records []json.RawMessage) (int, int, error) {
	inserted, skipped := 0, 0
	for _, raw := range records {
		var l types.Link
		if err := json.Unmarshal(raw, &l); err != nil || l.LinkID == "" || l.LinkType == "" {
			skipped++
			continue
		}
		if l.ToType < l.FromType || (l.ToType == l.FromType && l.ToID < l.FromID) {
			l.FromType, l.FromID, l.ToType, l.ToID = l.ToType, l.ToID, l.FromType, l.FromID
		}

		ok, err := linkAdmissible(ctx, tx, l)
		if err != nil {
			return inserted, skipped, fmt.Errorf("checking link %s: %w", l.LinkID, err)
		}
		if !ok {
			skipped++
			continue
		}

		created := l.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		res, err := tx.ExecContext(ctx, insertLinkOrIgnore,
			l.LinkID, l.LinkType, l.FromType, l.FromID, l.ToType, l.ToID,
			created.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return inserted, skipped, fmt.Errorf("importing link %s: %w", l.LinkID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, skipped, fmt.Errorf("importing link %s: %w", l.LinkID, err)
		}
		if n == 0 {
			skipped++
			continue
		}
		inserted++
	}
	return inserted, skipped, nil
}

// linkAdmissible reports whether both endpoints of l exist and, for
// one-links, neither endpoint already has a partner of the other's type.
func linkAdmissible(ctx context.Context, tx *sql.Tx, l types.Link) (bool, error) {
	for _, end := range [][2]any{{l.FromType, l.FromID}, {l.ToType, l.ToID}} {
		var n int
		if err := tx.QueryRowContext(ctx, selectBeanExists, end[0], end[1]).Scan(&n); err != nil {
			return false, err
		}
		if n == 0 {
			return false, nil
		}
	}
	if l.LinkType != types.LinkOne {
		return true, nil
	}

	ends := [][3]any{
		{l.FromType, l.FromID, l.ToType},
		{l.ToType, l.ToID, l.FromType},
	}
	for _, end := range ends {
		var n int
		err := tx.QueryRowContext(ctx, selectOnePartner, l.LinkType,
			end[0], end[1], end[2],
			end[0], end[1], end[2]).Scan(&n)
		if err != nil {
			return false, err
		}
		if n > 0 {
			return false, nil
		}
	}
	return true, nil
}
