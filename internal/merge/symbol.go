package merge

import (
	"go.etcd.io/bbolt"

	"github.com/cindexd/cindexd/internal/cursorinfo"
	"github.com/cindexd/cindexd/internal/store"
)

// symbolPass writes each emitted (location -> CursorInfo) into the
// Symbol store. A location whose file id is the bundle's primary file
// is this job's own output and overwrites outright -- the job that
// just parsed that file is the sole source of truth for it, matching
// findCursorInfo's fast path in Rdm.cpp. A location in any other file
// (a declaration pulled in through a header, reached while indexing a
// different translation unit) must be united with whatever is already
// on disk instead of clobbering it, since some other translation unit
// may have contributed references this bundle doesn't know about.
func (e *Engine) symbolPass(b Bundle) (int, error) {
	written := 0
	err := e.Store.Update(store.BucketSymbol, func(bucket *bbolt.Bucket) error {
		for loc, incoming := range b.Data.Symbols {
			key := loc.ToKey()

			if loc.FileID() == b.PrimaryFile {
				if err := bucket.Put(key[:], cursorinfo.Marshal(incoming)); err != nil {
					return err
				}
				written++
				continue
			}

			existing, ok := decodeCursorInfo(bucket.Get(key[:]))
			if !ok {
				if err := bucket.Put(key[:], cursorinfo.Marshal(incoming)); err != nil {
					return err
				}
				written++
				continue
			}

			merged, changed := uniteCursorInfo(existing, incoming)
			if !changed {
				continue
			}
			if err := bucket.Put(key[:], cursorinfo.Marshal(merged)); err != nil {
				return err
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

func decodeCursorInfo(b []byte) (cursorinfo.CursorInfo, bool) {
	if b == nil {
		return cursorinfo.CursorInfo{}, false
	}
	ci, err := cursorinfo.Unmarshal(b)
	if err != nil {
		return cursorinfo.CursorInfo{}, false
	}
	return ci, true
}
