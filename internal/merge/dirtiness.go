package merge

import (
	"go.etcd.io/bbolt"

	"github.com/cindexd/cindexd/internal/location"
	"github.com/cindexd/cindexd/internal/store"
)

// dirtinessPass deletes stale leftovers for every file the dirty set
// names that this bundle did not re-emit: the primary file always
// counts as re-emitted (a parse that yields zero symbols is still this
// job's authoritative answer for it), and any other file id this
// bundle's Symbols touched counts as re-emitted too, since some
// translation units indirectly re-describe a header's declarations.
// Anything left over in the dirty set after that is a file the index
// no longer has fresh data for -- its old Symbol records and its
// Dependency entries (both as an included file and as an includer of
// others) are removed so stale data can't outlive the file it
// describes, matching the dirty()-driven cleanup in Rdm.cpp.
func (e *Engine) dirtinessPass(b Bundle) (int, error) {
	if len(b.DirtyFileIDs) == 0 {
		return 0, nil
	}

	reEmitted := make(map[uint32]struct{}, len(b.DirtyFileIDs))
	reEmitted[b.PrimaryFile] = struct{}{}
	for loc := range b.Data.Symbols {
		reEmitted[loc.FileID()] = struct{}{}
	}

	var stale []uint32
	for fileID := range b.DirtyFileIDs {
		if _, ok := reEmitted[fileID]; ok {
			continue
		}
		stale = append(stale, fileID)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	deleted := 0

	err := e.Store.Update(store.BucketSymbol, func(bucket *bbolt.Bucket) error {
		for _, fileID := range stale {
			prefix := location.FilePrefix(fileID)
			c := bucket.Cursor()
			var toDelete [][]byte
			for k, _ := c.Seek(prefix[:]); k != nil && hasPrefix(k, prefix[:]); k, _ = c.Next() {
				toDelete = append(toDelete, append([]byte(nil), k...))
			}
			for _, k := range toDelete {
				if err := bucket.Delete(k); err != nil {
					return err
				}
				deleted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	err = e.Store.Update(store.BucketDependency, func(bucket *bbolt.Bucket) error {
		for _, fileID := range stale {
			key := encodeFileID(fileID)
			if v := bucket.Get(key); v != nil {
				if err := bucket.Delete(key); err != nil {
					return err
				}
				deleted++
			}
		}

		c := bucket.Cursor()
		var updates []struct {
			key []byte
			set map[uint32]struct{}
		}
		for k, v := c.First(); k != nil; k, v = c.Next() {
			includers := decodeUint32Set(v)
			before := len(includers)
			for _, fileID := range stale {
				delete(includers, fileID)
			}
			if len(includers) != before {
				updates = append(updates, struct {
					key []byte
					set map[uint32]struct{}
				}{key: append([]byte(nil), k...), set: includers})
			}
		}
		for _, u := range updates {
			deleted++
			if len(u.set) == 0 {
				if err := bucket.Delete(u.key); err != nil {
					return err
				}
				continue
			}
			if err := bucket.Put(u.key, encodeUint32Set(u.set)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, fileID := range stale {
		e.Graph.Forget(fileID)
	}

	return deleted, nil
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}
