// Package sqlite implements the SQLite Store backend for BeanBase.
// This file holds the schema DDL.
package sqlite

// Schema DDL for all tables. Statements are idempotent so Attach can run
// them against an existing database file.
const (
	createBeans = `CREATE TABLE IF NOT EXISTS beans (
    bean_type TEXT NOT NULL,
    bean_id INTEGER NOT NULL,
    fields TEXT NOT NULL,
    PRIMARY KEY (bean_type, bean_id)
);`

	createBeanSeq = `CREATE TABLE IF NOT EXISTS bean_seq (
    bean_type TEXT PRIMARY KEY,
    last_id INTEGER NOT NULL
);`

	createLinks = `CREATE TABLE IF NOT EXISTS links (
    link_id TEXT PRIMARY KEY,
    link_type TEXT NOT NULL,
    from_type TEXT NOT NULL,
    from_id INTEGER NOT NULL,
    to_type TEXT NOT NULL,
    to_id INTEGER NOT NULL,
    created_at TEXT NOT NULL
);`
)

// Index DDL. idx_links_unique is the storage-level guard against two
// callers joining the same pair concurrently; endpoints are written in
// canonical order so it covers both directions.
const (
	idxLinksUnique = `CREATE UNIQUE INDEX IF NOT EXISTS idx_links_unique ON links(link_type, from_type, from_id, to_type, to_id);`
	idxLinksFrom   = `CREATE INDEX IF NOT EXISTS idx_links_from ON links(link_type, from_type, from_id);`
	idxLinksTo     = `CREATE INDEX IF NOT EXISTS idx_links_to ON links(link_type, to_type, to_id);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createBeans,
	createBeanSeq,
	createLinks,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxLinksUnique,
	idxLinksFrom,
	idxLinksTo,
}

// pragmas are applied to every new connection.
var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
}
