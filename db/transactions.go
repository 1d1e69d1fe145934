package db

import (
	"database/sql"
	"fmt"
	"time"
)

// StartTransaction starts a new database transaction.
func StartTransaction(db *sql.DB) (*sql.Tx, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	return tx, nil
}

// CommitTransaction commits the given transaction.
func CommitTransaction(tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RollbackTransaction rolls back the given transaction.
func RollbackTransaction(tx *sql.Tx) {
	tx.Rollback()
}

// Put durably writes key=value in its own transaction.
func (s *Settings) Put(key, value string) error {
	tx, err := StartTransaction(s.conn)
	if err != nil {
		return err
	}
	if err := PutSettingWithTx(tx, key, value); err != nil {
		RollbackTransaction(tx)
		return err
	}
	return CommitTransaction(tx)
}

func PutSettingWithTx(tx *sql.Tx, key, value string) error {
	_, err := tx.Exec(`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("update setting %s: %w", key, err)
	}
	return nil
}
