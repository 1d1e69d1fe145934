package db

import (
	"database/sql"
	"errors"
	"fmt"
)

// Settings is a durable key/value store backed by the settings table.
type Settings struct {
	conn *sql.DB
}

func NewSettings(conn *sql.DB) *Settings {
	return &Settings{conn: conn}
}

// Get returns the stored value for key; ok is false when the key was never written.
func (s *Settings) Get(key string) (string, bool, error) {
	var value string
	err := s.conn.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, true, nil
}

// GetAllSettings returns every stored key/value pair.
func GetAllSettings(conn *sql.DB) (map[string]string, error) {
	rows, err := conn.Query(`SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}
