package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenCreatesAllBuckets(t *testing.T) {
	s := openTestStore(t)
	for _, b := range allBuckets {
		err := s.View(b, func(bucket *bbolt.Bucket) error {
			if bucket == nil {
				t.Fatalf("bucket %s not created", b)
			}
			return nil
		})
		require.NoError(t, err)
	}
}

func TestUpdateThenView(t *testing.T) {
	s := openTestStore(t)
	err := s.Update(BucketGeneral, func(b *bbolt.Bucket) error {
		return b.Put([]byte("k"), []byte("v"))
	})
	require.NoError(t, err)

	var got []byte
	err = s.View(BucketGeneral, func(b *bbolt.Bucket) error {
		got = append([]byte(nil), b.Get([]byte("k"))...)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestReopenRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Corrupt the stored schema version directly.
	db, err := bbolt.Open(path, 0644, nil)
	require.NoError(t, err)
	err = db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(BucketGeneral)).Put(schemaVersionKey, encodeUint32(SchemaVersion+1))
	})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(path)
	assert.Error(t, err)
}

func TestBatchFlushesOnThreshold(t *testing.T) {
	s := openTestStore(t)
	b := s.NewBatch(BucketSymbol, 10)

	require.NoError(t, b.Put([]byte("a"), make([]byte, 6)))
	require.NoError(t, b.Put([]byte("b"), make([]byte, 6))) // crosses threshold, flushes "a" first
	assert.Equal(t, 1, b.Written())

	require.NoError(t, b.Flush())
	assert.Equal(t, 2, b.Written())

	err := s.View(BucketSymbol, func(bucket *bbolt.Bucket) error {
		assert.NotNil(t, bucket.Get([]byte("a")))
		assert.NotNil(t, bucket.Get([]byte("b")))
		return nil
	})
	require.NoError(t, err)
}

func TestBatchFlushIsNoopWhenEmpty(t *testing.T) {
	s := openTestStore(t)
	b := s.NewBatch(BucketGeneral, 0)
	require.NoError(t, b.Flush())
	assert.Equal(t, 0, b.Written())
}
