package main

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNoRecord is returned when a keyed row does not exist
var ErrNoRecord = errors.New("no record")

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// modernc sqlite serializes writers anyway; one connection keeps
	// :memory: databases shared across calls.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS bot_brains (
		name TEXT PRIMARY KEY,
		record BLOB NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS analytics_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		actor TEXT,
		data TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_analytics_type_time ON analytics_events(event_type, created_at);
	`
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// GetSetting returns the value stored under key, or "" when unset
func (db *DB) GetSetting(key string) string {
	var v string
	if err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&v); err != nil {
		return ""
	}
	return v
}

// SetSetting upserts a setting
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// PutBrains upserts encoded bot records in one transaction
func (db *DB) PutBrains(records map[string][]byte) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO bot_brains (name, record, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET record = excluded.record, updated_at = excluded.updated_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for name, rec := range records {
		if _, err := stmt.Exec(name, rec, now); err != nil {
			return fmt.Errorf("upsert %s: %w", name, err)
		}
	}
	return tx.Commit()
}

// GetBrain returns the encoded record for a bot name
func (db *DB) GetBrain(name string) ([]byte, error) {
	var rec []byte
	err := db.conn.QueryRow("SELECT record FROM bot_brains WHERE name = ?", name).Scan(&rec)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRecord
	}
	return rec, err
}

// BrainNames lists every stored bot name
func (db *DB) BrainNames() ([]string, error) {
	rows, err := db.conn.Query("SELECT name FROM bot_brains ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}
