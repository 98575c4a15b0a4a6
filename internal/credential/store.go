// Package credential persists the two values that identify a session to
// the game backend: the resolved user identity and the bearer credential.
//
// Stores are scoped. A scope plays the part a browser origin plays for
// local storage: everything written under one scope is invisible to the
// others. Writes are last-write-wins with no locking.
package credential

import (
	"context"
	"errors"
	"fmt"
)

const (
	// KeyUserIdentity holds the raw platform user id.
	KeyUserIdentity = "telegram_user_id"
	// KeyAccessCredential holds the value sent in the Authorization header.
	KeyAccessCredential = "ggame_token"
)

// ErrUnknownKey is returned for any key other than the two above.
var ErrUnknownKey = errors.New("credential: unknown key")

// Store is a reload-durable key/value store restricted to the two
// credential keys. Get reports absence with ok == false and a nil error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Factory opens the store for a scope.
type Factory func(scope string) (Store, error)

// Releaser is implemented by stores that hold per-scope resources beyond
// their two keys. After Release the scope reopens empty.
type Releaser interface {
	Release() error
}

// Release frees s when it implements Releaser.
func Release(s Store) error {
	if r, ok := s.(Releaser); ok {
		return r.Release()
	}
	return nil
}

func checkKey(key string) error {
	switch key {
	case KeyUserIdentity, KeyAccessCredential:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownKey, key)
}

// Clear deletes both keys from s.
func Clear(ctx context.Context, s Store) error {
	if err := s.Delete(ctx, KeyAccessCredential); err != nil {
		return err
	}
	return s.Delete(ctx, KeyUserIdentity)
}
