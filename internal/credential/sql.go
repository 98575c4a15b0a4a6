package credential

import (
	"context"
	"errors"

	"github.com/iliyamo/ggame-miniapp/internal/repository"
)

// credentialRows is the subset of repository.CredentialRepo the SQL store
// needs.
type credentialRows interface {
	Get(ctx context.Context, scope, name string) (string, error)
	Upsert(ctx context.Context, scope, name, value string) error
	Delete(ctx context.Context, scope, name string) error
}

// SQLStore keeps credentials in the credential_entries table.
type SQLStore struct {
	rows  credentialRows
	scope string
}

// NewSQLStore returns a store for one scope.
func NewSQLStore(rows credentialRows, scope string) *SQLStore {
	return &SQLStore{rows: rows, scope: scope}
}

// SQLFactory returns a Factory over a shared repository.
func SQLFactory(repo *repository.CredentialRepo) Factory {
	return func(scope string) (Store, error) { return NewSQLStore(repo, scope), nil }
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := checkKey(key); err != nil {
		return "", false, err
	}
	v, err := s.rows.Get(ctx, s.scope, key)
	if errors.Is(err, repository.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return s.rows.Upsert(ctx, s.scope, key, value)
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return s.rows.Delete(ctx, s.scope, key)
}
