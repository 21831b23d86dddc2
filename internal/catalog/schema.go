// Package catalog implements the shared media catalog: SQLite rows describing
// media entries plus their files under a media root directory.
//
// Entries are created pending. Pending entries are invisible to every reader
// query and their bytes live in a hidden file next to the final location.
// Flipping an entry to visible moves the file into place and clears the flag
// in a single transaction, which is the only way an entry is published.
package catalog

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS media (
	id            TEXT PRIMARY KEY,
	display_name  TEXT NOT NULL,
	mime_type     TEXT NOT NULL,
	relative_path TEXT NOT NULL,
	path          TEXT NOT NULL UNIQUE,
	is_pending    INTEGER NOT NULL DEFAULT 1,
	size          INTEGER NOT NULL DEFAULT 0,
	checksum      TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_media_display_name ON media(display_name);
CREATE INDEX IF NOT EXISTS idx_media_pending ON media(is_pending);
`

// Catalog wraps the SQLite connection and the media root.
type Catalog struct {
	conn       *sql.DB
	blobs      *blobStore
	capability Capability
	listener   EventCallback
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithCapability sets the storage capability reported to clients.
func WithCapability(c Capability) Option {
	return func(cat *Catalog) {
		cat.capability = c
	}
}

// WithListener registers a callback invoked after entries are published or deleted.
func WithListener(cb EventCallback) Option {
	return func(cat *Catalog) {
		cat.listener = cb
	}
}

// Open opens (or creates) the catalog database at dsn and binds it to the
// media root directory, which must already exist.
func Open(dsn, root string, opts ...Option) (*Catalog, error) {
	blobs, err := newBlobStore(root)
	if err != nil {
		return nil, err
	}
	// _txlock=immediate serializes writers so unique path assignment cannot race.
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("catalog: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: apply schema: %w", err)
	}

	c := &Catalog{
		conn:       conn,
		blobs:      blobs,
		capability: ScopedStorage,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Capability reports the storage capability resolved at open time.
func (c *Catalog) Capability() Capability {
	return c.capability
}

// Root returns the absolute media root directory.
func (c *Catalog) Root() string {
	return c.blobs.root
}

// Close closes the underlying database connection.
func (c *Catalog) Close() error {
	return c.conn.Close()
}
