// Package store keeps a log of response records received from the adapter
// in a sqlite database.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"usbfw/protocol"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	received_at INTEGER NOT NULL,
	block       INTEGER NOT NULL,
	type        INTEGER NOT NULL,
	ext         INTEGER NOT NULL,
	seq         INTEGER NOT NULL,
	len         INTEGER NOT NULL,
	payload     BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS records_type ON records(type);
`

// Entry is one stored record
type Entry struct {
	ID         int64
	ReceivedAt time.Time
	Block      int
	Record     protocol.Record
}

// Store is a record log backed by sqlite
type Store struct {
	db     *sql.DB
	insert *sql.Stmt
}

// Open opens or creates the database at path. Use ":memory:" for a
// throwaway store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=1000")
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	// One connection so ":memory:" databases are shared.
	db.SetMaxOpenConns(1)

	if err := configureDatabase(db); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	insert, err := db.Prepare(`
		INSERT INTO records (received_at, block, type, ext, seq, len, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}

	return &Store{db: db, insert: insert}, nil
}

func configureDatabase(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}
	return nil
}

// Insert stores the records of one block in a single transaction
func (s *Store) Insert(at time.Time, block int, recs ...protocol.Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt := tx.Stmt(s.insert)
	defer stmt.Close()

	for i := range recs {
		r := &recs[i]
		_, err := stmt.Exec(at.UnixNano(), block, r.Type, r.Ext, r.Seq, r.Len, r.Payload())
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert %s: %w", r.String(), err)
		}
	}
	return tx.Commit()
}

// Count returns the number of stored records
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM records").Scan(&n)
	return n, err
}

// ByType returns every record with the given type tag, oldest first
func (s *Store) ByType(typ uint8) ([]Entry, error) {
	return s.query(`
		SELECT id, received_at, block, type, ext, seq, len, payload
		FROM records WHERE type = ? ORDER BY id`, typ)
}

// Recent returns the newest n records, oldest first
func (s *Store) Recent(n int) ([]Entry, error) {
	return s.query(`
		SELECT * FROM (
			SELECT id, received_at, block, type, ext, seq, len, payload
			FROM records ORDER BY id DESC LIMIT ?
		) ORDER BY id`, n)
}

func (s *Store) query(q string, args ...any) ([]Entry, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			at      int64
			payload []byte
		)
		r := &e.Record
		if err := rows.Scan(&e.ID, &at, &e.Block, &r.Type, &r.Ext, &r.Seq, &r.Len, &payload); err != nil {
			return nil, err
		}
		if len(payload) > protocol.MaxPayload {
			return nil, fmt.Errorf("record %d: %w", e.ID, protocol.ErrRecordLength)
		}
		copy(r.Data[:], payload)
		e.ReceivedAt = time.Unix(0, at)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database
func (s *Store) Close() error {
	s.insert.Close()
	return s.db.Close()
}
