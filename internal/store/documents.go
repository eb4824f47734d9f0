package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// timeLayout is fixed width so stored timestamps sort lexically in time
// order. RFC3339Nano trims trailing zeros and does not.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// now is replaced in tests.
var now = time.Now

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

var (
	ErrNotFound        = errors.New("document not found")
	ErrInvalidDocument = errors.New("document body must be valid json")
)

// Document is an opaque JSON body keyed by (owner, collection, id).
type Document struct {
	Collection string          `json:"collection"`
	ID         string          `json:"id"`
	Body       json.RawMessage `json:"body"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type DocumentListOpts struct {
	Limit int // 0 means 200
}

// PutDocument inserts or replaces a document. CreatedAt survives updates.
func (d *DB) PutDocument(ctx context.Context, owner, collection, id string, body json.RawMessage) (Document, error) {
	if !json.Valid(body) {
		return Document{}, ErrInvalidDocument
	}
	ts := formatTime(now())

	_, err := d.Pool.ExecContext(ctx, `
INSERT INTO documents(owner, collection, id, body, created_at, updated_at)
VALUES(?,?,?,?,?,?)
ON CONFLICT(owner, collection, id) DO UPDATE SET
  body = excluded.body,
  updated_at = excluded.updated_at;`,
		owner, collection, id, string(body), ts, ts,
	)
	if err != nil {
		return Document{}, fmt.Errorf("put %s/%s: %w", collection, id, err)
	}
	return d.GetDocument(ctx, owner, collection, id)
}

func (d *DB) GetDocument(ctx context.Context, owner, collection, id string) (Document, error) {
	row := d.Pool.QueryRowContext(ctx, `
SELECT collection, id, body, created_at, updated_at
FROM documents
WHERE owner = ? AND collection = ? AND id = ?;`,
		owner, collection, id,
	)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

func (d *DB) DeleteDocument(ctx context.Context, owner, collection, id string) error {
	res, err := d.Pool.ExecContext(ctx, `
DELETE FROM documents
WHERE owner = ? AND collection = ? AND id = ?;`,
		owner, collection, id,
	)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListDocuments returns the owner's documents in collection, most recently
// updated first.
func (d *DB) ListDocuments(ctx context.Context, owner, collection string, opts DocumentListOpts) ([]Document, error) {
	limit := opts.Limit
	if limit <= 0 || limit > 1000 {
		limit = 200
	}

	rows, err := d.Pool.QueryContext(ctx, `
SELECT collection, id, body, created_at, updated_at
FROM documents
WHERE owner = ? AND collection = ?
ORDER BY updated_at DESC, id ASC
LIMIT ?;`,
		owner, collection, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	out := make([]Document, 0, 16)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(r rowScanner) (Document, error) {
	var (
		doc                  Document
		body                 string
		createdAt, updatedAt string
	)
	if err := r.Scan(&doc.Collection, &doc.ID, &body, &createdAt, &updatedAt); err != nil {
		return Document{}, err
	}
	doc.Body = json.RawMessage(body)
	doc.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	doc.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return doc, nil
}
