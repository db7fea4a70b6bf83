package merge

import (
	"go.etcd.io/bbolt"

	"github.com/cindexd/cindexd/internal/store"
)

// dependencyPass unions each (includedFile -> newIncluders) entry in
// the bundle into the Dependency store's existing set under that
// file's key, writing only if the set grew -- the direct translation
// of Rdm.cpp's writeDependencies, which reads the current set, unites
// the incoming one, and only batches a write if the union is larger.
// It also folds every edge into the in-memory reverse dependency
// graph, so dirtyDependents queries see it immediately without
// waiting for a store round-trip.
func (e *Engine) dependencyPass(b Bundle) (int, error) {
	written := 0
	err := e.Store.Update(store.BucketDependency, func(bucket *bbolt.Bucket) error {
		for includedFile, includers := range b.Data.Dependencies {
			for includer := range includers {
				e.Graph.AddEdge(includer, includedFile)
			}

			key := encodeFileID(includedFile)
			current := decodeUint32Set(bucket.Get(key))
			before := len(current)
			for includer := range includers {
				current[includer] = struct{}{}
			}
			if len(current) == before {
				continue
			}
			if err := bucket.Put(key, encodeUint32Set(current)); err != nil {
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
