package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const schemaVersion = 2

// Migrate brings the schema up to schemaVersion, tracked in PRAGMA user_version.
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRowContext(ctx, `PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}

	if v >= schemaVersion {
		return tx.Commit()
	}

	if v < 1 {
		if err := migrateV1(ctx, tx); err != nil {
			return err
		}
	}
	if v < 2 {
		if err := migrateV2(ctx, tx); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d;`, schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

// ---- Schema v1 ----

func migrateV1(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS documents (
  owner TEXT NOT NULL,
  collection TEXT NOT NULL,
  id TEXT NOT NULL,
  body TEXT NOT NULL,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL,
  PRIMARY KEY (owner, collection, id)
);
`); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
CREATE INDEX IF NOT EXISTS idx_documents_updated
ON documents(owner, collection, updated_at);
`); err != nil {
		return err
	}

	return nil
}

// ---- Schema v2 ----

// migrateV2 rewrites timestamps in the fixed-width layout so that
// ORDER BY updated_at sorts chronologically.
func migrateV2(ctx context.Context, tx *sql.Tx) error {
	type stamp struct {
		owner, collection, id string
		createdAt, updatedAt  string
	}

	rows, err := tx.QueryContext(ctx, `SELECT owner, collection, id, created_at, updated_at FROM documents;`)
	if err != nil {
		return err
	}
	var all []stamp
	for rows.Next() {
		var s stamp
		if err := rows.Scan(&s.owner, &s.collection, &s.id, &s.createdAt, &s.updatedAt); err != nil {
			rows.Close()
			return err
		}
		all = append(all, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, s := range all {
		if _, err := tx.ExecContext(ctx, `
UPDATE documents SET created_at = ?, updated_at = ?
WHERE owner = ? AND collection = ? AND id = ?;`,
			reformatTime(s.createdAt), reformatTime(s.updatedAt), s.owner, s.collection, s.id,
		); err != nil {
			return fmt.Errorf("rewrite timestamps %s/%s: %w", s.collection, s.id, err)
		}
	}
	return nil
}

func reformatTime(v string) string {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return v
	}
	return formatTime(t)
}
