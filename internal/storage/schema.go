package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"
)

type queries struct {
	createTable string
	indexes     []string
	tableInfo   string
	backfill    string
	selectAll   string
	selectOne   string
	insert      string
	update      string
	delete      string
	clear       string
}

type column struct {
	name string
	ddl  string
}

// Columns added after the first layout, checked by name on every upgrade.
var laterColumns = []column{
	{"completed", "ALTER TABLE %s ADD COLUMN completed INTEGER NOT NULL DEFAULT 0;"},
	{"priority", "ALTER TABLE %s ADD COLUMN priority TEXT NOT NULL DEFAULT 'medium';"},
	{"updated_at", "ALTER TABLE %s ADD COLUMN updated_at TEXT NOT NULL DEFAULT '';"},
}

func buildQueries(collection string) queries {
	tbl := `"` + collection + `"`
	const cols = `id, title, completed, priority, created_at, updated_at`
	q := queries{
		createTable: fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	completed INTEGER NOT NULL DEFAULT 0,
	priority TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`, tbl),
		tableInfo: fmt.Sprintf(`PRAGMA table_info(%s);`, tbl),
		backfill:  fmt.Sprintf(`UPDATE %s SET updated_at = created_at WHERE updated_at = '';`, tbl),
		selectAll: fmt.Sprintf(`SELECT %s FROM %s ORDER BY rowid;`, cols, tbl),
		selectOne: fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?;`, cols, tbl),
		insert: fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT(id) DO NOTHING;`,
			tbl, cols),
		update: fmt.Sprintf(`UPDATE %s SET title = ?, completed = ?, priority = ?, updated_at = ? WHERE id = ?;`, tbl),
		delete: fmt.Sprintf(`DELETE FROM %s WHERE id = ?;`, tbl),
		clear:  fmt.Sprintf(`DELETE FROM %s;`, tbl),
	}
	for _, field := range []string{"priority", "completed", "created_at"} {
		q.indexes = append(q.indexes, fmt.Sprintf(`CREATE INDEX IF NOT EXISTS "%s_%s" ON %s (%s);`,
			collection, field, tbl, field))
	}
	return q
}

// upgrade brings the schema to the configured version. It only creates what is
// missing and never drops data.
func (s *Store) upgrade(ctx context.Context, db *sql.DB) error {
	var current int
	if err := db.QueryRowContext(ctx, `PRAGMA user_version;`).Scan(&current); err != nil {
		return wrap(ErrStorageUnavailable, err)
	}
	if current == s.opts.Version {
		return nil
	}
	if current > s.opts.Version {
		return wrap(ErrStorageUnavailable,
			fmt.Errorf("database schema version %d is newer than configured version %d", current, s.opts.Version))
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return wrap(ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.q.createTable); err != nil {
		return wrap(ErrStorageUnavailable, err)
	}
	if err := s.ensureColumns(ctx, tx); err != nil {
		return wrap(ErrStorageUnavailable, err)
	}
	for _, ddl := range s.q.indexes {
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return wrap(ErrStorageUnavailable, err)
		}
	}
	// PRAGMA does not take bind parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d;`, s.opts.Version)); err != nil {
		return wrap(ErrStorageUnavailable, err)
	}
	if err := tx.Commit(); err != nil {
		return wrap(ErrStorageUnavailable, err)
	}
	s.log.WithFields(logrus.Fields{
		"from":       current,
		"to":         s.opts.Version,
		"collection": s.opts.Collection,
	}).Info("schema upgraded")
	return nil
}

func (s *Store) ensureColumns(ctx context.Context, tx *sql.Tx) error {
	existing, err := tableColumns(ctx, tx, s.q.tableInfo)
	if err != nil {
		return err
	}
	added := false
	for _, c := range laterColumns {
		if _, ok := existing[c.name]; ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(c.ddl, `"`+s.opts.Collection+`"`)); err != nil {
			return err
		}
		added = true
	}
	if !added {
		return nil
	}
	_, err = tx.ExecContext(ctx, s.q.backfill)
	return err
}

func tableColumns(ctx context.Context, tx *sql.Tx, query string) (map[string]struct{}, error) {
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	existing := map[string]struct{}{}
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		existing[name] = struct{}{}
	}
	return existing, rows.Err()
}
