package kvstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{Path: t.TempDir(), CreateIfMissing: true})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetCommit(t *testing.T) {
	s := openTestStore(t)

	tx, err := s.Begin(true)
	require.NoError(t, err)
	require.NoError(t, tx.Put([]byte("k1"), []byte("v1"), false))
	require.NoError(t, tx.Commit())

	tx2, err := s.Begin(false)
	require.NoError(t, err)
	v, err := tx2.Get([]byte("k1"))
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), v)
	require.NoError(t, tx2.Rollback())
}

func TestRollbackDiscardsWrites(t *testing.T) {
	s := openTestStore(t)

	tx, err := s.Begin(true)
	require.NoError(t, err)
	require.NoError(t, tx.Put([]byte("k1"), []byte("v1"), false))
	require.NoError(t, tx.Rollback())

	tx2, err := s.Begin(false)
	require.NoError(t, err)
	_, err = tx2.Get([]byte("k1"))
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, tx2.Rollback())
}

func TestInsertOnlyRejectsExisting(t *testing.T) {
	s := openTestStore(t)

	tx, err := s.Begin(true)
	require.NoError(t, err)
	require.NoError(t, tx.Put([]byte("k1"), []byte("v1"), true))
	require.ErrorIs(t, tx.Put([]byte("k1"), []byte("v2"), true), ErrKeyExists)
	require.NoError(t, tx.Commit())
}

func TestScanPrefix(t *testing.T) {
	s := openTestStore(t)

	tx, err := s.Begin(true)
	require.NoError(t, err)
	require.NoError(t, tx.Put([]byte("a:1"), []byte("x"), false))
	require.NoError(t, tx.Put([]byte("a:2"), []byte("y"), false))
	require.NoError(t, tx.Put([]byte("b:1"), []byte("z"), false))
	require.NoError(t, tx.Commit())

	tx2, err := s.Begin(false)
	require.NoError(t, err)
	results, err := tx2.ScanPrefix([]byte("a:"))
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.NoError(t, tx2.Rollback())
}

func TestDeleteFreesKey(t *testing.T) {
	s := openTestStore(t)

	tx, err := s.Begin(true)
	require.NoError(t, err)
	require.NoError(t, tx.Put([]byte("k1"), []byte("v1"), false))
	require.NoError(t, tx.Commit())

	tx2, err := s.Begin(true)
	require.NoError(t, err)
	require.NoError(t, tx2.Delete([]byte("k1")))
	require.NoError(t, tx2.Commit())

	tx3, err := s.Begin(false)
	require.NoError(t, err)
	_, err = tx3.Get([]byte("k1"))
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, tx3.Rollback())
}

func TestReopenRebuildsCatalog(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(Options{Path: dir, CreateIfMissing: true})
	require.NoError(t, err)
	tx, err := s.Begin(true)
	require.NoError(t, err)
	require.NoError(t, tx.Put([]byte("persisted"), []byte("value"), false))
	require.NoError(t, tx.Commit())
	require.NoError(t, s.Close())

	s2, err := Open(Options{Path: dir})
	require.NoError(t, err)
	defer s2.Close()

	tx2, err := s2.Begin(false)
	require.NoError(t, err)
	v, err := tx2.Get([]byte("persisted"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), v)
	require.NoError(t, tx2.Rollback())
}
