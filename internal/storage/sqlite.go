package storage

import (
	"database/sql"
	"encoding/json"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteBackend stores each raw row as a JSON-encoded column array in a
// single table, with SQLite's own rowid providing dense, monotonically
// increasing row-ids. Rewrite stages the replacement into a sibling table
// and swaps it in with a single transaction, so readers never observe a
// partially-rewritten table.
type SQLiteBackend struct {
	mu sync.Mutex
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS points (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	row  TEXT NOT NULL
);`

// NewSQLiteBackend opens (creating if absent) the SQLite database at path.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, wrapIOError("failed to open sqlite backend", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, wrapIOError("failed to initialize sqlite schema", err)
	}
	return &SQLiteBackend{db: db}, nil
}

func (b *SQLiteBackend) Append(row RawRow) (int, error) {
	ids, err := b.AppendMany([]RawRow{row})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

func (b *SQLiteBackend) AppendMany(rows []RawRow) ([]int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tx, err := b.db.Begin()
	if err != nil {
		return nil, wrapIOError("failed to begin sqlite transaction", err)
	}

	stmt, err := tx.Prepare("INSERT INTO points (row) VALUES (?)")
	if err != nil {
		tx.Rollback()
		return nil, wrapIOError("failed to prepare sqlite insert", err)
	}
	defer stmt.Close()

	ids := make([]int, len(rows))
	for i, row := range rows {
		encoded, err := json.Marshal([]string(row))
		if err != nil {
			tx.Rollback()
			return nil, wrapIOError("failed to encode row", err)
		}
		res, err := stmt.Exec(string(encoded))
		if err != nil {
			tx.Rollback()
			return nil, wrapIOError("failed to insert row", err)
		}
		lastID, err := res.LastInsertId()
		if err != nil {
			tx.Rollback()
			return nil, wrapIOError("failed to read last insert id", err)
		}
		ids[i] = int(lastID) - 1
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapIOError("failed to commit sqlite transaction", err)
	}

	return ids, nil
}

func (b *SQLiteBackend) ReadAll() ([]StoredRow, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rows, err := b.db.Query("SELECT id, row FROM points ORDER BY id ASC")
	if err != nil {
		return nil, wrapIOError("failed to query sqlite backend", err)
	}
	defer rows.Close()

	var out []StoredRow
	minID := -1
	for rows.Next() {
		var id int
		var encoded string
		if err := rows.Scan(&id, &encoded); err != nil {
			return nil, wrapIOError("failed to scan sqlite row", err)
		}
		var raw []string
		if err := json.Unmarshal([]byte(encoded), &raw); err != nil {
			return nil, wrapIOError("failed to decode row", err)
		}
		if minID == -1 || id < minID {
			minID = id
		}
		out = append(out, StoredRow{ID: id, Raw: RawRow(raw)})
	}
	if err := rows.Err(); err != nil {
		return nil, wrapIOError("failed to iterate sqlite backend", err)
	}

	// Normalize ids to the dense 0..N-1 space AUTOINCREMENT does not
	// guarantee after deletions; row order is preserved.
	if minID > 0 {
		for i := range out {
			out[i].ID -= minID
		}
	}

	return out, nil
}

func (b *SQLiteBackend) Rewrite(rows []RawRow) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	tx, err := b.db.Begin()
	if err != nil {
		return swapFailedError("failed to begin sqlite rewrite transaction", err)
	}

	if _, err := tx.Exec("CREATE TABLE points_staging (id INTEGER PRIMARY KEY AUTOINCREMENT, row TEXT NOT NULL)"); err != nil {
		tx.Rollback()
		return swapFailedError("failed to create staging table", err)
	}

	stmt, err := tx.Prepare("INSERT INTO points_staging (row) VALUES (?)")
	if err != nil {
		tx.Rollback()
		return swapFailedError("failed to prepare staging insert", err)
	}
	for _, row := range rows {
		encoded, err := json.Marshal([]string(row))
		if err != nil {
			stmt.Close()
			tx.Rollback()
			return swapFailedError("failed to encode staged row", err)
		}
		if _, err := stmt.Exec(string(encoded)); err != nil {
			stmt.Close()
			tx.Rollback()
			return swapFailedError("failed to insert staged row", err)
		}
	}
	stmt.Close()

	if _, err := tx.Exec("DROP TABLE points"); err != nil {
		tx.Rollback()
		return swapFailedError("failed to drop prior table", err)
	}
	if _, err := tx.Exec("ALTER TABLE points_staging RENAME TO points"); err != nil {
		tx.Rollback()
		return swapFailedError("failed to promote staging table", err)
	}

	if err := tx.Commit(); err != nil {
		return swapFailedError("failed to commit sqlite rewrite", err)
	}

	return nil
}

func (b *SQLiteBackend) Len() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var count int
	if err := b.db.QueryRow("SELECT COUNT(*) FROM points").Scan(&count); err != nil {
		return 0, wrapIOError("failed to count sqlite rows", err)
	}
	return count, nil
}

func (b *SQLiteBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.db.Close(); err != nil {
		return wrapIOError("failed to close sqlite backend", err)
	}
	return nil
}
