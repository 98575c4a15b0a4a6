package session

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ggame-miniapp/internal/credential"
	"github.com/iliyamo/ggame-miniapp/internal/identity"
	"github.com/iliyamo/ggame-miniapp/internal/utils"
)

const secret = "test-secret"

func newManager(t *testing.T, factory credential.Factory, backend string) *Manager {
	t.Helper()
	return NewManager(factory, identity.NewResolver(identity.Options{}), Config{
		APIBaseURL: backend,
		AuthScheme: "Bearer",
		Secret:     secret,
		TTLMin:     60,
	})
}

func envFor(q string) identity.Environment {
	v, _ := url.ParseQuery(q)
	return identity.Environment{Query: v}
}

func TestLaunch_StoresIdentityBeforeRequests(t *testing.T) {
	var auth, query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		query = r.URL.RawQuery
		_, _ = io.WriteString(w, `{"user":{"coins":10},"deck":{"cards":[]},"cards":[]}`)
	}))
	defer srv.Close()

	m := newManager(t, credential.MemoryFactory(), srv.URL)
	s, tok, err := m.Launch(context.Background(), envFor("user_id=42"))
	require.NoError(t, err)

	assert.Equal(t, identity.UserIdentity{RawID: "42", Source: identity.SourceURLParam}, s.Identity)
	v, ok, err := s.Store.Get(context.Background(), credential.KeyAccessCredential)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tg_token_42", v)

	claims, err := utils.ParseSessionToken(secret, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, s.ID, claims.Subject)
	assert.Equal(t, "42", claims.UserID)
	assert.Equal(t, string(identity.SourceURLParam), claims.Source)

	s.View.FetchUserProfile(context.Background())
	assert.Equal(t, "Bearer tg_token_42", auth)
	assert.Equal(t, "telegram_id=42", query)
	assert.Equal(t, int64(10), s.View.UserCoins())
}

func TestLaunch_Fallback(t *testing.T) {
	m := newManager(t, credential.MemoryFactory(), "http://backend.invalid")
	s, _, err := m.Launch(context.Background(), envFor(""))
	require.NoError(t, err)
	assert.Equal(t, identity.FallbackUserID, s.Identity.RawID)
	assert.Equal(t, identity.SourceFallbackTest, s.Identity.Source)
}

func TestLaunch_ScopesAreIsolated(t *testing.T) {
	m := newManager(t, credential.MemoryFactory(), "http://backend.invalid")
	a, _, err := m.Launch(context.Background(), envFor("user_id=1"))
	require.NoError(t, err)
	b, _, err := m.Launch(context.Background(), envFor("user_id=2"))
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	va, _, _ := a.Store.Get(context.Background(), credential.KeyUserIdentity)
	vb, _, _ := b.Store.Get(context.Background(), credential.KeyUserIdentity)
	assert.Equal(t, "1", va)
	assert.Equal(t, "2", vb)
	assert.Equal(t, 2, m.Len())
}

func TestLaunch_FactoryError(t *testing.T) {
	boom := errors.New("disk full")
	m := newManager(t, func(string) (credential.Store, error) { return nil, boom }, "http://backend.invalid")
	_, _, err := m.Launch(context.Background(), envFor("user_id=1"))
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, m.Len())
}

func TestGet_RestoresFromDurableStore(t *testing.T) {
	dir := t.TempDir()
	first := newManager(t, credential.FileFactory(dir), "http://backend.invalid")
	s, _, err := first.Launch(context.Background(), envFor("user_id=77"))
	require.NoError(t, err)

	second := newManager(t, credential.FileFactory(dir), "http://backend.invalid")
	restored, err := second.Resume(context.Background(), s.ID, identity.SourceURLParam)
	require.NoError(t, err)
	assert.Equal(t, identity.UserIdentity{RawID: "77", Source: identity.SourceURLParam}, restored.Identity)

	again, err := second.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Same(t, restored, again)

	_, err = second.Get(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, credential.MemoryFactory(), "http://backend.invalid")
	s, _, err := m.Launch(ctx, envFor("user_id=5"))
	require.NoError(t, err)

	require.NoError(t, m.Logout(ctx, s.ID))
	_, ok, err := s.Store.Get(ctx, credential.KeyAccessCredential)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, _ = s.Store.Get(ctx, credential.KeyUserIdentity)
	assert.False(t, ok)

	_, err = m.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.Logout(ctx, s.ID), ErrNotFound)
}

func TestLogout_ReleasesScope(t *testing.T) {
	ctx := context.Background()
	scopes := credential.NewMemoryScopes()
	m := newManager(t, scopes.Open, "http://backend.invalid")

	var ids []string
	for _, q := range []string{"user_id=1", "user_id=2", "user_id=3"} {
		s, _, err := m.Launch(ctx, envFor(q))
		require.NoError(t, err)
		ids = append(ids, s.ID)
	}
	require.Equal(t, 3, scopes.Len())

	require.NoError(t, m.Logout(ctx, ids[0]))
	assert.Equal(t, 2, scopes.Len())

	// looking up a logged-out id must not leave an empty scope behind
	_, err := m.Get(ctx, ids[0])
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 2, scopes.Len())
}

// readOnlyStore rejects writes but keeps the memory store's Release.
type readOnlyStore struct{ *credential.MemoryStore }

func (readOnlyStore) Set(context.Context, string, string) error { return errors.New("read only") }

func TestLaunch_FailureReleasesScope(t *testing.T) {
	scopes := credential.NewMemoryScopes()
	m := newManager(t, func(scope string) (credential.Store, error) {
		s, err := scopes.Open(scope)
		if err != nil {
			return nil, err
		}
		return readOnlyStore{s.(*credential.MemoryStore)}, nil
	}, "http://backend.invalid")

	_, _, err := m.Launch(context.Background(), envFor("user_id=1"))
	require.Error(t, err)
	assert.Zero(t, scopes.Len())
	assert.Zero(t, m.Len())
}

func TestAdoptCredential(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `{"cards":[]}`)
	}))
	defer srv.Close()

	ctx := context.Background()
	m := newManager(t, credential.MemoryFactory(), srv.URL)
	s, _, err := m.Launch(ctx, envFor("user_id=5"))
	require.NoError(t, err)

	assert.ErrorIs(t, s.AdoptCredential(ctx, "  "), ErrEmptyCredential)
	require.NoError(t, s.AdoptCredential(ctx, "issued-by-backend"))
	s.View.FetchDeck(ctx)
	assert.Equal(t, "Bearer issued-by-backend", auth)
}

func TestSweep(t *testing.T) {
	m := newManager(t, credential.MemoryFactory(), "http://backend.invalid")
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	old, _, err := m.Launch(context.Background(), envFor("user_id=1"))
	require.NoError(t, err)
	clock = clock.Add(time.Hour)
	fresh, _, err := m.Launch(context.Background(), envFor("user_id=2"))
	require.NoError(t, err)

	assert.Equal(t, 1, m.Sweep(context.Background(), clock.Add(-30*time.Minute)))
	_, err = m.Get(context.Background(), fresh.ID)
	require.NoError(t, err)

	// memory stores outlive the in-process session, so the old one restores
	restored, err := m.Get(context.Background(), old.ID)
	require.NoError(t, err)
	assert.Equal(t, "1", restored.Identity.RawID)
}

func TestSweep_ReleasesExpiredScopes(t *testing.T) {
	ctx := context.Background()
	scopes := credential.NewMemoryScopes()
	m := newManager(t, scopes.Open, "http://backend.invalid")
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	for _, q := range []string{"user_id=1", "user_id=2"} {
		_, _, err := m.Launch(ctx, envFor(q))
		require.NoError(t, err)
	}
	clock = clock.Add(90 * time.Minute)
	kept, _, err := m.Launch(ctx, envFor("user_id=3"))
	require.NoError(t, err)
	require.Equal(t, 3, scopes.Len())

	// tokens live 60 minutes; the first two can no longer be restored
	assert.Equal(t, 2, m.Sweep(ctx, clock.Add(-time.Minute)))
	assert.Equal(t, 1, scopes.Len())
	assert.Equal(t, 1, m.Len())

	_, err = m.Get(ctx, kept.ID)
	require.NoError(t, err)
}
