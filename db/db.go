package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

const schema = `CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// Open opens (creating if needed) the SQLite database at dbPath and applies
// the schema.
func Open(dbPath string) (*sql.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single writer keeps :memory: databases on one connection
	conn.SetMaxOpenConns(1)

	if err := ApplyMigrations(conn); err != nil {
		conn.Close()
		return nil, err
	}

	log.Debug().Str("path", dbPath).Msg("Database opened")
	return conn, nil
}

func ApplyMigrations(conn *sql.DB) error {
	if _, err := conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to create settings table: %w", err)
	}
	return nil
}
