// Package store is the on-disk persistence layer: one bbolt database
// file holding the six named buckets the rest of the index is built
// on. bbolt already gives one file handle, one writer-at-a-time
// transaction manager, and byte-lexicographic key iteration within a
// bucket, so the six independently-tunable "stores" the design calls
// for are realized as six buckets inside one database rather than six
// separate embedded databases.
package store

import (
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/cindexd/cindexd/internal/cxierr"
)

// Bucket names one of the six persistent namespaces.
type Bucket string

const (
	// BucketSymbolName maps a symbol name to the set of locations it
	// resolves to.
	BucketSymbolName Bucket = "SymbolName"
	// BucketSymbol maps a Location key to a marshaled cursorinfo.CursorInfo.
	BucketSymbol Bucket = "Symbol"
	// BucketDependency maps a file id to the set of file ids that
	// include it, directly or transitively through headers.
	BucketDependency Bucket = "Dependency"
	// BucketFileInformation maps a file id to its last-parsed compile
	// arguments and mtime.
	BucketFileInformation Bucket = "FileInformation"
	// BucketPCH maps a precompiled-header path to its build metadata.
	BucketPCH Bucket = "PCH"
	// BucketGeneral holds singleton records: the file-id registry
	// snapshot, schema version, and other project-wide state.
	BucketGeneral Bucket = "General"
)

var allBuckets = []Bucket{
	BucketSymbolName,
	BucketSymbol,
	BucketDependency,
	BucketFileInformation,
	BucketPCH,
	BucketGeneral,
}

// SchemaVersion is bumped whenever the on-disk record formats change in
// a way older code can't read. Open refuses to operate on a database
// carrying a different version.
const SchemaVersion = 1

var schemaVersionKey = []byte("schemaVersion")

// Store owns the bbolt database backing one project's index.
type Store struct {
	db    *bbolt.DB
	locks map[Bucket]*sync.RWMutex
}

// Open opens (creating if necessary) the bbolt database at path,
// ensures all six buckets exist, and checks the schema version.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0644, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, cxierr.Wrap(cxierr.StoreOpenFailed, err, "opening "+path)
	}

	s := &Store{db: db, locks: make(map[Bucket]*sync.RWMutex, len(allBuckets))}
	for _, b := range allBuckets {
		s.locks[b] = &sync.RWMutex{}
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, b := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(b)); err != nil {
				return err
			}
		}
		general, err := tx.CreateBucketIfNotExists([]byte(BucketGeneral))
		if err != nil {
			return err
		}
		existing := general.Get(schemaVersionKey)
		if existing == nil {
			return general.Put(schemaVersionKey, encodeUint32(SchemaVersion))
		}
		if decodeUint32(existing) != SchemaVersion {
			return cxierr.New(cxierr.SchemaMismatch, nil)
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, cxierr.Wrap(cxierr.StoreOpenFailed, err, "initializing buckets")
	}

	return s, nil
}

// Close releases the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// View runs fn against a read-only snapshot of bucket. Multiple
// readers may run concurrently; View only blocks behind a concurrent
// Update on the same bucket.
func (s *Store) View(bucket Bucket, fn func(b *bbolt.Bucket) error) error {
	lock := s.locks[bucket]
	lock.RLock()
	defer lock.RUnlock()
	return s.db.View(func(tx *bbolt.Tx) error {
		return fn(tx.Bucket([]byte(bucket)))
	})
}

// Update runs fn against a writable handle to bucket. Only one Update
// per bucket runs at a time; bbolt itself still serializes all writers
// across the whole database, so this lock mainly documents the
// contract rather than changing bbolt's own behavior.
func (s *Store) Update(bucket Bucket, fn func(b *bbolt.Bucket) error) error {
	lock := s.locks[bucket]
	lock.Lock()
	defer lock.Unlock()
	return s.db.Update(func(tx *bbolt.Tx) error {
		return fn(tx.Bucket([]byte(bucket)))
	})
}

func encodeUint32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func decodeUint32(b []byte) uint32 {
	if len(b) < 4 {
		return 0
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
