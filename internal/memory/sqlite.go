package memory

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	_ "modernc.org/sqlite"
)

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// SQLiteBackend stores records as rows of one table.
type SQLiteBackend struct {
	db    *sql.DB
	table string
}

func OpenSQLite(path, table string) (*SQLiteBackend, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("bad table name %q", table)
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	stmt := `CREATE TABLE IF NOT EXISTS ` + table + ` (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at TEXT NOT NULL
	);`
	if _, err := db.Exec(stmt); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteBackend{db: db, table: table}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func (b *SQLiteBackend) Load(ctx context.Context) (map[string][]byte, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT key, value FROM `+b.table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string][]byte{}
	for rows.Next() {
		var k string
		var v []byte
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

func (b *SQLiteBackend) Save(ctx context.Context, put map[string][]byte, del []string) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, k := range del {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+b.table+` WHERE key = ?`, k); err != nil {
			return err
		}
	}
	upsert := `INSERT INTO ` + b.table + `(key, value, updated_at) VALUES(?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	for k, v := range put {
		if _, err := tx.ExecContext(ctx, upsert, k, v, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (b *SQLiteBackend) Close() error { return b.db.Close() }
