package merge

import (
	"go.etcd.io/bbolt"

	"github.com/cindexd/cindexd/internal/location"
	"github.com/cindexd/cindexd/internal/store"
)

// symbolNamePass runs two sub-passes: union each emitted name's new
// locations into the existing set (writing only if it grew), then
// scan every name in the store and prune locations that
// belong to a dirty file but were not re-emitted by this bundle -- the
// Go translation of Rdm.cpp's `adjust` helper, which does the same
// belongs-to-dirty-file-and-not-in-new-set removal.
func (e *Engine) symbolNamePass(b Bundle) (int, error) {
	written := 0
	err := e.Store.Update(store.BucketSymbolName, func(bucket *bbolt.Bucket) error {
		for name, newLocations := range b.Data.SymbolNames {
			key := []byte(name)
			current := decodeLocationSet(bucket.Get(key))
			before := len(current)
			for loc := range newLocations {
				current[loc] = struct{}{}
			}
			if len(current) == before {
				continue
			}
			if err := bucket.Put(key, encodeLocationSet(current)); err != nil {
				return err
			}
			written++
		}

		if len(b.DirtyFileIDs) == 0 {
			return nil
		}

		c := bucket.Cursor()
		var toUpdate []struct {
			key []byte
			set map[location.Location]struct{}
		}
		for k, v := c.First(); k != nil; k, v = c.Next() {
			locations := decodeLocationSet(v)
			reEmitted := b.Data.SymbolNames[string(k)]
			before := len(locations)
			for loc := range locations {
				if _, dirty := b.DirtyFileIDs[loc.FileID()]; !dirty {
					continue
				}
				if _, keep := reEmitted[loc]; keep {
					continue
				}
				delete(locations, loc)
			}
			if len(locations) != before {
				toUpdate = append(toUpdate, struct {
					key []byte
					set map[location.Location]struct{}
				}{key: append([]byte(nil), k...), set: locations})
			}
		}
		for _, u := range toUpdate {
			written++
			if len(u.set) == 0 {
				if err := bucket.Delete(u.key); err != nil {
					return err
				}
				continue
			}
			if err := bucket.Put(u.key, encodeLocationSet(u.set)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}
