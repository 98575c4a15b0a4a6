package credential

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ggame-miniapp/internal/repository"
)

// fakeRows is an in-memory stand-in for the SQL repository.
type fakeRows struct {
	rows map[string]string
}

func (f *fakeRows) Get(_ context.Context, scope, name string) (string, error) {
	v, ok := f.rows[scope+"/"+name]
	if !ok {
		return "", repository.ErrNotFound
	}
	return v, nil
}

func (f *fakeRows) Upsert(_ context.Context, scope, name, value string) error {
	f.rows[scope+"/"+name] = value
	return nil
}

func (f *fakeRows) Delete(_ context.Context, scope, name string) error {
	delete(f.rows, scope+"/"+name)
	return nil
}

func storeContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, KeyAccessCredential)
	require.NoError(t, err)
	assert.False(t, ok, "fresh store must report absence")

	require.NoError(t, s.Set(ctx, KeyUserIdentity, "42"))
	require.NoError(t, s.Set(ctx, KeyAccessCredential, "tg_token_42"))
	require.NoError(t, s.Set(ctx, KeyAccessCredential, "tg_token_43"))

	v, ok, err := s.Get(ctx, KeyAccessCredential)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tg_token_43", v, "last write wins")

	_, _, err = s.Get(ctx, "theme")
	assert.ErrorIs(t, err, ErrUnknownKey)
	assert.ErrorIs(t, s.Set(ctx, "theme", "dark"), ErrUnknownKey)

	require.NoError(t, Clear(ctx, s))
	_, ok, err = s.Get(ctx, KeyUserIdentity)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, s.Delete(ctx, KeyUserIdentity), "deleting twice is fine")
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore())
}

func TestMemoryFactory_ScopesAreIsolated(t *testing.T) {
	ctx := context.Background()
	open := MemoryFactory()

	a, err := open("a")
	require.NoError(t, err)
	b, err := open("b")
	require.NoError(t, err)
	require.NoError(t, a.Set(ctx, KeyUserIdentity, "1"))

	_, ok, err := b.Get(ctx, KeyUserIdentity)
	require.NoError(t, err)
	assert.False(t, ok)

	again, err := open("a")
	require.NoError(t, err)
	v, ok, err := again.Get(ctx, KeyUserIdentity)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)
}

func TestMemoryScopes_Release(t *testing.T) {
	ctx := context.Background()
	scopes := NewMemoryScopes()

	a, err := scopes.Open("a")
	require.NoError(t, err)
	_, err = scopes.Open("b")
	require.NoError(t, err)
	require.NoError(t, a.Set(ctx, KeyUserIdentity, "1"))
	require.Equal(t, 2, scopes.Len())

	require.NoError(t, Release(a))
	assert.Equal(t, 1, scopes.Len())

	reopened, err := scopes.Open("a")
	require.NoError(t, err)
	assert.NotSame(t, a, reopened)
	_, ok, err := reopened.Get(ctx, KeyUserIdentity)
	require.NoError(t, err)
	assert.False(t, ok)

	// a stale handle must not drop the scope's newer store
	require.NoError(t, Release(a))
	assert.Equal(t, 2, scopes.Len())
}

func TestRelease_PlainStoreIsNoop(t *testing.T) {
	assert.NoError(t, Release(NewMemoryStore()))
}

func TestFileStore_Release(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(dir, "gone")
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, KeyUserIdentity, "9"))

	require.NoError(t, Release(s))
	_, err = os.Stat(filepath.Join(dir, "gone.json"))
	assert.True(t, os.IsNotExist(err))
	require.NoError(t, Release(s), "releasing twice is fine")
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, "session-1")
	require.NoError(t, err)
	storeContract(t, s)
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	open := FileFactory(dir)

	s, err := open("s1")
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, KeyAccessCredential, "tg_token_7"))

	reopened, err := open("s1")
	require.NoError(t, err)
	v, ok, err := reopened.Get(ctx, KeyAccessCredential)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tg_token_7", v)

	info, err := os.Stat(filepath.Join(dir, "s1.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_RejectsPathScopes(t *testing.T) {
	_, err := NewFileStore(t.TempDir(), "../etc")
	assert.Error(t, err)
}

func TestFileStore_CorruptDocument(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0o600))
	s, err := NewFileStore(dir, "bad")
	require.NoError(t, err)

	_, _, err = s.Get(context.Background(), KeyUserIdentity)
	assert.Error(t, err)
}

func TestSQLStore(t *testing.T) {
	storeContract(t, NewSQLStore(&fakeRows{rows: map[string]string{}}, "scope"))
}

func TestRedisFactory_NilClient(t *testing.T) {
	_, err := RedisFactory(nil, "ggame:cred")("s")
	assert.Error(t, err)
}
