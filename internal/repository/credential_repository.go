package repository

import (
	"context"
	"database/sql"
	"errors"
)

// CredentialRepo persists session credentials in credential_entries.
type CredentialRepo struct{ DB *sql.DB }

func NewCredentialRepo(db *sql.DB) *CredentialRepo { return &CredentialRepo{DB: db} }

// Get returns the stored value for (scope, name) or ErrNotFound.
func (r *CredentialRepo) Get(ctx context.Context, scope, name string) (string, error) {
	var value string
	err := r.DB.QueryRowContext(ctx,
		"SELECT value FROM credential_entries WHERE scope=? AND name=? LIMIT 1",
		scope, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// Upsert writes value for (scope, name); the last write wins.
func (r *CredentialRepo) Upsert(ctx context.Context, scope, name, value string) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO credential_entries (scope, name, value) VALUES (?,?,?) ON DUPLICATE KEY UPDATE value=VALUES(value)",
		scope, name, value)
	return err
}

// Delete removes (scope, name). Deleting a missing row is not an error.
func (r *CredentialRepo) Delete(ctx context.Context, scope, name string) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM credential_entries WHERE scope=? AND name=?",
		scope, name)
	return err
}
