// Package diagnostics keeps the last diagnostic messages and fix-its
// each translation unit reported, replaying them on demand for any
// file id a client asks about. Unlike the six persisted stores, this
// cache has no on-disk representation — diagnostics are a function of
// the last parse, not data that accumulates meaning across merges, so
// there is nothing to gain from durability here (a restart simply
// waits for the next parse of each file to repopulate it). Each
// diagnostic and fix-it is grouped by the file id its location names.
package diagnostics

import (
	"sync"

	"github.com/cindexd/cindexd/internal/clangidx"
	"github.com/cindexd/cindexd/internal/indexjob"
)

// Record is everything cached for one file id: every diagnostic
// message and fix-it attributed to it across every translation unit
// currently contributing to the cache.
type Record struct {
	Messages []string
	FixIts   []clangidx.FixIt
}

// Cache holds one "batch" per primary file last parsed — the
// diagnostics and fix-its that file's translation unit attributed to
// itself and to every header it pulled in. A later parse of the same
// primary file replaces its whole batch outright, so a diagnostic that
// no longer reproduces disappears on the next parse rather than
// lingering forever. A header shared by several translation units can
// appear in more than one batch at once; Replay merges across all of
// them, since each TU's view of that header's diagnostics is equally
// current until its own batch is replaced or forgotten.
type Cache struct {
	mu      sync.RWMutex
	batches map[uint32]map[uint32]Record
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{batches: make(map[uint32]map[uint32]Record)}
}

// ReplaceBatch records every diagnostic and fix-it data attributed to
// any file id, as the batch belonging to primaryFile, replacing
// whatever batch primaryFile previously contributed.
func (c *Cache) ReplaceBatch(primaryFile uint32, data *indexjob.IndexData) {
	batch := make(map[uint32]Record, len(data.Diagnostics)+len(data.FixIts))
	for fid, msgs := range data.Diagnostics {
		rec := batch[fid]
		rec.Messages = append([]string(nil), msgs...)
		batch[fid] = rec
	}
	for fid, fixIts := range data.FixIts {
		rec := batch[fid]
		rec.FixIts = append([]clangidx.FixIt(nil), fixIts...)
		batch[fid] = rec
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(batch) == 0 {
		delete(c.batches, primaryFile)
		return
	}
	c.batches[primaryFile] = batch
}

// Forget drops primaryFile's batch entirely, called when primaryFile
// is removed from the project so its stale diagnostics don't outlive
// the file.
func (c *Cache) Forget(primaryFile uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.batches, primaryFile)
}

// Replay returns the merged diagnostics and fix-its every currently
// cached batch attributes to fileID, and whether any batch mentions it
// at all.
func (c *Cache) Replay(fileID uint32) (Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var merged Record
	found := false
	for _, batch := range c.batches {
		rec, ok := batch[fileID]
		if !ok {
			continue
		}
		found = true
		merged.Messages = append(merged.Messages, rec.Messages...)
		merged.FixIts = append(merged.FixIts, rec.FixIts...)
	}
	return merged, found
}
