package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/mediabridge/internal/apperr"
)

const selectEntry = `SELECT id, display_name, mime_type, relative_path, path, is_pending,
	size, checksum, created_at, updated_at FROM media`

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*Entry, error) {
	var e Entry
	var pending int
	if err := s.Scan(&e.ID, &e.DisplayName, &e.MimeType, &e.RelativePath, &e.Path, &pending,
		&e.Size, &e.Checksum, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Pending = pending != 0
	return &e, nil
}

// lookup loads one entry. Pending entries are only returned when includePending is set.
func lookup(ctx context.Context, q querier, h Handle, includePending bool) (*Entry, error) {
	query := selectEntry + ` WHERE id = ?`
	if !includePending {
		query += ` AND is_pending = 0`
	}
	e, err := scanEntry(q.QueryRowContext(ctx, query, h))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalog: entry %s: %w", h, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: lookup %s: %w", h, err)
	}
	return e, nil
}

// Insert reserves a new pending entry and returns its handle. The entry's
// final path is reserved immediately so concurrent inserts with the same
// display name receive distinct paths.
func (c *Catalog) Insert(ctx context.Context, v Values) (Handle, error) {
	if v.Visibility != Pending {
		return "", fmt.Errorf("catalog: new entries must be pending: %w", apperr.ErrRefused)
	}
	if err := validateInsert(v); err != nil {
		return "", err
	}
	dir, err := c.destination(v)
	if err != nil {
		return "", err
	}
	name, err := normalizeDisplayName(v.DisplayName, v.MimeType)
	if err != nil {
		return "", err
	}

	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	p, err := c.reservePath(ctx, tx, dir, name)
	if err != nil {
		return "", err
	}

	id := Handle(uuid.NewString())
	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO media (id, display_name, mime_type, relative_path, path, is_pending, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)
	`, id, name, v.MimeType, dir, p, now, now)
	if err != nil {
		return "", fmt.Errorf("catalog: insert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("catalog: commit insert: %w", err)
	}
	return id, nil
}

func (c *Catalog) reservePath(ctx context.Context, tx *sql.Tx, dir, name string) (string, error) {
	for n := 0; n < maxNameAttempts; n++ {
		p := path.Join(dir, candidateName(name, n))
		var taken int
		if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM media WHERE path = ?`, p).Scan(&taken); err != nil {
			return "", fmt.Errorf("catalog: check path: %w", err)
		}
		if taken == 0 && !c.blobs.exists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("catalog: no free name for %s in %s: %w", name, dir, apperr.ErrRefused)
}

// OpenOutputStream opens a write stream for a pending entry. Each call
// truncates previously written bytes.
func (c *Catalog) OpenOutputStream(ctx context.Context, h Handle) (io.WriteCloser, error) {
	e, err := lookup(ctx, c.conn, h, true)
	if err != nil {
		return nil, err
	}
	if !e.Pending {
		return nil, fmt.Errorf("catalog: open stream %s: %w", h, apperr.ErrNotPending)
	}
	f, err := c.blobs.create(pendingPath(e.ID, e.Path))
	if err != nil {
		return nil, err
	}
	return newOutputStream(f, func(size int64, sum string) error {
		_, err := c.conn.Exec(`UPDATE media SET size = ?, checksum = ?, updated_at = ? WHERE id = ? AND is_pending = 1`,
			size, sum, time.Now().UTC(), h)
		if err != nil {
			return fmt.Errorf("catalog: record stream metadata: %w", err)
		}
		return nil
	}), nil
}

// Update applies v to the entry and returns the number of rows changed.
// Setting Visibility to Visible on a pending entry publishes it: the file is
// moved into place and the flag cleared in one transaction.
func (c *Catalog) Update(ctx context.Context, h Handle, v Values) (int, error) {
	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	e, err := lookup(ctx, tx, h, true)
	if errors.Is(err, apperr.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}
	if v.DisplayName != "" {
		sets = append(sets, "display_name = ?")
		args = append(args, v.DisplayName)
		e.DisplayName = v.DisplayName
	}
	if v.MimeType != "" {
		sets = append(sets, "mime_type = ?")
		args = append(args, v.MimeType)
		e.MimeType = v.MimeType
	}

	publish := false
	switch v.Visibility {
	case Pending:
		if !e.Pending {
			return 0, fmt.Errorf("catalog: entry %s is already visible: %w", h, apperr.ErrConflict)
		}
	case Visible:
		if e.Pending {
			sets = append(sets, "is_pending = 0")
			publish = true
		}
	}
	args = append(args, h)

	res, err := tx.ExecContext(ctx, `UPDATE media SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return 0, fmt.Errorf("catalog: update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("catalog: update rows affected: %w", err)
	}
	if publish {
		if err := c.blobs.publish(pendingPath(e.ID, e.Path), e.Path); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		if publish {
			_ = c.blobs.unpublish(pendingPath(e.ID, e.Path), e.Path)
		}
		return 0, fmt.Errorf("catalog: commit update: %w", err)
	}

	if publish {
		e.Pending = false
		c.notify(EventInserted, *e)
	}
	return int(n), nil
}

// Query lists visible entries, newest first.
func (c *Catalog) Query(ctx context.Context, q Query) ([]Entry, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	query := selectEntry + ` WHERE is_pending = 0`
	var args []any
	if q.DisplayName != "" {
		query += ` AND display_name = ?`
		args = append(args, q.DisplayName)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, q.Limit, q.Offset)

	rows, err := c.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: query: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// Get returns a visible entry.
func (c *Catalog) Get(ctx context.Context, h Handle) (*Entry, error) {
	return lookup(ctx, c.conn, h, false)
}

// Open returns the content of a visible entry.
func (c *Catalog) Open(ctx context.Context, h Handle) (io.ReadSeekCloser, *Entry, error) {
	e, err := c.Get(ctx, h)
	if err != nil {
		return nil, nil, err
	}
	f, err := c.blobs.open(e.Path)
	if err != nil {
		return nil, nil, err
	}
	return f, e, nil
}

// Delete removes a visible entry and its file.
func (c *Catalog) Delete(ctx context.Context, h Handle) error {
	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	e, err := lookup(ctx, tx, h, false)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM media WHERE id = ?`, h); err != nil {
		return fmt.Errorf("catalog: delete: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("catalog: commit delete: %w", err)
	}
	if err := c.blobs.remove(e.Path); err != nil {
		return err
	}
	c.notify(EventDeleted, *e)
	return nil
}

// CountPending returns the number of entries that were never published.
func (c *Catalog) CountPending(ctx context.Context) (int, error) {
	var n int
	if err := c.conn.QueryRowContext(ctx, `SELECT count(*) FROM media WHERE is_pending = 1`).Scan(&n); err != nil {
		return 0, fmt.Errorf("catalog: count pending: %w", err)
	}
	return n, nil
}

// visiblePaths maps the path of every visible entry to its handle.
func (c *Catalog) visiblePaths(ctx context.Context) (map[string]Handle, error) {
	rows, err := c.conn.QueryContext(ctx, `SELECT path, id FROM media WHERE is_pending = 0`)
	if err != nil {
		return nil, fmt.Errorf("catalog: visible paths: %w", err)
	}
	defer rows.Close()
	out := make(map[string]Handle)
	for rows.Next() {
		var p string
		var id Handle
		if err := rows.Scan(&p, &id); err != nil {
			return nil, err
		}
		out[p] = id
	}
	return out, rows.Err()
}

// forgetPath drops the visible row at rel without touching the file system.
// It reports whether a row was removed.
func (c *Catalog) forgetPath(ctx context.Context, rel string) (bool, error) {
	e, err := scanEntry(c.conn.QueryRowContext(ctx, selectEntry+` WHERE path = ? AND is_pending = 0`, rel))
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("catalog: lookup path %s: %w", rel, err)
	}
	res, err := c.conn.ExecContext(ctx, `DELETE FROM media WHERE id = ? AND is_pending = 0`, e.ID)
	if err != nil {
		return false, fmt.Errorf("catalog: forget %s: %w", rel, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("catalog: forget %s rows affected: %w", rel, err)
	}
	if n == 0 {
		return false, nil
	}
	c.notify(EventDeleted, *e)
	return true, nil
}

func (c *Catalog) notify(kind string, e Entry) {
	if c.listener != nil {
		c.listener(kind, e)
	}
}
