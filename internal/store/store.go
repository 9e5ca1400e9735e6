// Package store provides SQLite-backed persistence for journal entries.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS entries (
	id              TEXT PRIMARY KEY,
	type            TEXT NOT NULL,
	status          TEXT NOT NULL,
	content         TEXT NOT NULL,
	priority        TEXT NOT NULL DEFAULT 'none',
	contexts        TEXT NOT NULL DEFAULT '[]',
	tags            TEXT NOT NULL DEFAULT '[]',
	collection      TEXT NOT NULL DEFAULT 'daily',
	collection_date TEXT NOT NULL,
	due_date        DATETIME,
	created_at      DATETIME NOT NULL,
	ocr_confidence  REAL NOT NULL DEFAULT 0,
	mood            TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_entries_collection_date ON entries(collection_date);
CREATE INDEX IF NOT EXISTS idx_entries_type ON entries(type);
CREATE INDEX IF NOT EXISTS idx_entries_status ON entries(status);
`

// EntryStore defines the persistence operations. Consumers should depend on
// this interface rather than the concrete *DB type to facilitate testing.
type EntryStore interface {
	SaveEntries(entries []models.Entry) error
	GetEntry(id string) (*models.Entry, error)
	ListEntries(f Filter) ([]models.Entry, int, error)
	DeleteEntry(id string) error
	CountByType() (map[models.EntryType]int, error)
	Close() error
}

var _ EntryStore = (*DB)(nil)

// Filter narrows ListEntries results. Zero values mean "any".
type Filter struct {
	Date   string
	Type   models.EntryType
	Status models.EntryStatus
	Limit  int
	Offset int
}

// DB wraps a sql.DB with entry-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// SaveEntries inserts or replaces a batch of entries in one transaction.
func (db *DB) SaveEntries(entries []models.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	stmt, err := tx.Prepare(`
		INSERT INTO entries (id, type, status, content, priority, contexts, tags,
			collection, collection_date, due_date, created_at, ocr_confidence, mood)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type            = excluded.type,
			status          = excluded.status,
			content         = excluded.content,
			priority        = excluded.priority,
			contexts        = excluded.contexts,
			tags            = excluded.tags,
			collection      = excluded.collection,
			collection_date = excluded.collection_date,
			due_date        = excluded.due_date,
			ocr_confidence  = excluded.ocr_confidence,
			mood            = excluded.mood
	`)
	if err != nil {
		return fmt.Errorf("store: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		contexts, _ := json.Marshal(orEmpty(e.Contexts))
		tags, _ := json.Marshal(orEmpty(e.Tags))
		var due any
		if e.DueDate != nil {
			due = e.DueDate.UTC()
		}
		if _, err := stmt.Exec(e.ID, e.Type, e.Status, e.Content, e.Priority,
			string(contexts), string(tags), e.Collection, e.CollectionDate,
			due, e.CreatedAt.UTC(), e.OCRConfidence, e.Mood); err != nil {
			return fmt.Errorf("store: insert entry %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// GetEntry returns a single entry or apperr.ErrNotFound.
func (db *DB) GetEntry(id string) (*models.Entry, error) {
	row := db.conn.QueryRow(selectCols+` FROM entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: entry %s", apperr.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get entry: %w", err)
	}
	return e, nil
}

// ListEntries returns a filtered page of entries plus the total match count.
func (db *DB) ListEntries(f Filter) ([]models.Entry, int, error) {
	where, args := buildWhere(f)

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM entries`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count entries: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	q := selectCols + ` FROM entries` + where + ` ORDER BY collection_date DESC, created_at DESC LIMIT ? OFFSET ?`
	rows, err := db.conn.Query(q, append(args, limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list entries: %w", err)
	}
	defer rows.Close()

	var out []models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("store: scan entry: %w", err)
		}
		out = append(out, *e)
	}
	return out, total, rows.Err()
}

// DeleteEntry removes an entry; deleting a missing id is ErrNotFound.
func (db *DB) DeleteEntry(id string) error {
	res, err := db.conn.Exec(`DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: entry %s", apperr.ErrNotFound, id)
	}
	return nil
}

// CountByType aggregates entry counts per type.
func (db *DB) CountByType() (map[models.EntryType]int, error) {
	rows, err := db.conn.Query(`SELECT type, COUNT(*) FROM entries GROUP BY type`)
	if err != nil {
		return nil, fmt.Errorf("store: count by type: %w", err)
	}
	defer rows.Close()

	out := make(map[models.EntryType]int)
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, err
		}
		out[models.EntryType(typ)] = n
	}
	return out, rows.Err()
}

const selectCols = `SELECT id, type, status, content, priority, contexts, tags,
	collection, collection_date, due_date, created_at, ocr_confidence, mood`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.Entry, error) {
	var e models.Entry
	var contexts, tags string
	var due sql.NullTime
	if err := row.Scan(&e.ID, &e.Type, &e.Status, &e.Content, &e.Priority,
		&contexts, &tags, &e.Collection, &e.CollectionDate, &due,
		&e.CreatedAt, &e.OCRConfidence, &e.Mood); err != nil {
		return nil, err
	}
	if due.Valid {
		t := due.Time
		e.DueDate = &t
	}
	if err := json.Unmarshal([]byte(contexts), &e.Contexts); err != nil {
		e.Contexts = nil
	}
	if err := json.Unmarshal([]byte(tags), &e.Tags); err != nil {
		e.Tags = nil
	}
	return &e, nil
}

func buildWhere(f Filter) (string, []any) {
	var conds []string
	var args []any
	if f.Date != "" {
		conds = append(conds, "collection_date = ?")
		args = append(args, f.Date)
	}
	if f.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, f.Type)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
