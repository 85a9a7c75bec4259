package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monolith.network/netpkg/internal/clock"
	"monolith.network/netpkg/internal/errors"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(DefaultOptions(":memory:"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	all, err := store.List("empty")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestNewSQLiteStore_FileBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	store, err := NewSQLiteStore(DefaultOptions(path))
	require.NoError(t, err)
	require.NoError(t, store.CreateBucket("test"))
	require.NoError(t, store.Set("test", "k", []byte("v")))
	require.NoError(t, store.Close())

	store2, err := NewSQLiteStore(DefaultOptions(path))
	require.NoError(t, err)
	defer store2.Close()

	v, err := store2.Get("test", "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(v))
	assert.ErrorIs(t, store2.CreateBucket("test"), ErrBucketExists)
}

func TestBucketOperations(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.CreateBucket("test"))
	assert.ErrorIs(t, store.CreateBucket("test"), ErrBucketExists)
	assert.NoError(t, EnsureBucket(store, "test"))

	assert.NoError(t, EnsureBucket(store, "other"))
	assert.ErrorIs(t, store.CreateBucket("other"), ErrBucketExists)
}

func TestKeyValueOperations(t *testing.T) {
	mock := clock.NewMockClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	store, err := NewSQLiteStore(Options{Path: ":memory:", Clock: mock})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.CreateBucket("kv"))

	_, err = store.Get("kv", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, errors.IsKind(err, errors.KindNotFound))

	require.NoError(t, store.Set("kv", "a", []byte("1")))
	require.NoError(t, store.Set("kv", "b", []byte("2")))
	require.NoError(t, store.Set("kv", "a", []byte("3")))

	v, err := store.Get("kv", "a")
	require.NoError(t, err)
	assert.Equal(t, "3", string(v))

	var updated time.Time
	require.NoError(t, store.db.QueryRow("SELECT updated_at FROM entries WHERE bucket = ? AND key = ?", "kv", "a").Scan(&updated))
	assert.True(t, updated.Equal(mock.Now()))

	all, err := store.List("kv")
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte("3"), "b": []byte("2")}, all)
}

func TestJSONHelpers(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.CreateBucket("json"))

	type item struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	require.NoError(t, store.SetJSON("json", "x", item{Name: "x", Count: 2}))

	var got item
	require.NoError(t, store.GetJSON("json", "x", &got))
	assert.Equal(t, item{Name: "x", Count: 2}, got)

	require.NoError(t, store.Set("json", "bad", []byte("{")))
	err := store.GetJSON("json", "bad", &got)
	assert.True(t, errors.IsKind(err, errors.KindStorage))
}

func TestClosedStore(t *testing.T) {
	store, err := NewSQLiteStore(DefaultOptions(":memory:"))
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, err = store.Get("b", "k")
	assert.ErrorIs(t, err, ErrStoreClosed)
	assert.ErrorIs(t, store.Set("b", "k", nil), ErrStoreClosed)
}

func TestPing(t *testing.T) {
	store, err := NewSQLiteStore(Options{Path: ":memory:"})
	require.NoError(t, err)
	assert.NoError(t, store.Ping())

	require.NoError(t, store.Close())
	assert.ErrorIs(t, store.Ping(), ErrStoreClosed)
}
