package store

import (
	"go.etcd.io/bbolt"

	"github.com/cindexd/cindexd/internal/cxierr"
)

// DefaultFlushThreshold is the accumulated value-byte count at which a
// Batch automatically flushes: one transaction per sizable chunk of
// work rather than one transaction per key (a transaction per key
// would make a large merge pass dominated by bbolt's fsync-per-commit
// cost).
const DefaultFlushThreshold = 1 << 20 // 1 MiB

type kv struct {
	key, value []byte
}

// Batch accumulates writes to one bucket and flushes them as a single
// bbolt transaction, either when the accumulated value size crosses a
// threshold or when Flush is called explicitly. The merge passes do not
// use it; each writes through a single Store.Update call.
type Batch struct {
	store     *Store
	bucket    Bucket
	threshold int

	pending      []kv
	pendingBytes int
	written      int
}

// NewBatch creates a Batch over bucket. A threshold of 0 uses
// DefaultFlushThreshold.
func (s *Store) NewBatch(bucket Bucket, threshold int) *Batch {
	if threshold <= 0 {
		threshold = DefaultFlushThreshold
	}
	return &Batch{store: s, bucket: bucket, threshold: threshold}
}

// Put stages a key/value write, flushing first if adding it would
// cross the threshold.
func (b *Batch) Put(key, value []byte) error {
	if b.pendingBytes > 0 && b.pendingBytes+len(value) > b.threshold {
		if err := b.Flush(); err != nil {
			return err
		}
	}
	keyCopy := append([]byte(nil), key...)
	valCopy := append([]byte(nil), value...)
	b.pending = append(b.pending, kv{key: keyCopy, value: valCopy})
	b.pendingBytes += len(value)
	return nil
}

// Flush writes every staged key/value pair in one transaction and
// resets the batch for further use.
func (b *Batch) Flush() error {
	if len(b.pending) == 0 {
		return nil
	}
	pending := b.pending
	b.pending = nil
	b.pendingBytes = 0

	err := b.store.Update(b.bucket, func(bucket *bbolt.Bucket) error {
		for _, e := range pending {
			if err := bucket.Put(e.key, e.value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return cxierr.Wrap(cxierr.BatchWriteFailed, err, "flushing batch for "+string(b.bucket))
	}
	b.written += len(pending)
	return nil
}

// Written returns the total number of keys flushed so far.
func (b *Batch) Written() int {
	return b.written
}
