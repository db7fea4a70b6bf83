// Package fileid implements the bidirectional path<->id registry every
// Location's file component indexes into. Ids are allocated once, in
// insertion order, and are never reused for the lifetime of a store --
// a path that is removed and re-added later gets a new id, so stale
// Locations referring to the old id are simply orphaned rather than
// silently aliased onto unrelated content.
package fileid

import "sync"

// ID names one source file within a project. The zero value, Null,
// names no file.
type ID uint32

// Null is the reserved id meaning "no file".
const Null ID = 0

// Entry is one path<->id pairing, used when snapshotting the registry
// for persistence.
type Entry struct {
	ID   ID
	Path string
}

// Registry is a bidirectional path<->ID map, safe for concurrent use.
// The store has no file-id bucket; callers persist Entries themselves
// via whatever store is in use (internal/project saves a snapshot in the
// General bucket).
type Registry struct {
	mu     sync.RWMutex
	byPath map[string]ID
	byID   map[ID]string
	next   ID
}

// NewRegistry returns an empty registry, ready to have its ids
// allocated starting at 1.
func NewRegistry() *Registry {
	return &Registry{
		byPath: make(map[string]ID),
		byID:   make(map[ID]string),
		next:   1,
	}
}

// Intern returns the id for path, allocating a new one if path has not
// been seen before. The same path always maps to the same id for the
// life of the registry.
func (r *Registry) Intern(path string) ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byPath[path]; ok {
		return id
	}
	id := r.next
	r.next++
	r.byPath[path] = id
	r.byID[id] = path
	return id
}

// Lookup returns the id already assigned to path, if any, without
// allocating one.
func (r *Registry) Lookup(path string) (ID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPath[path]
	return id, ok
}

// Path returns the path registered for id, if any.
func (r *Registry) Path(id ID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	path, ok := r.byID[id]
	return path, ok
}

// Len returns the number of registered files.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Entries returns a snapshot of every path<->id pairing, for
// persistence. The returned slice is not ordered.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.byID))
	for id, path := range r.byID {
		out = append(out, Entry{ID: id, Path: path})
	}
	return out
}

// LoadEntries restores a previously persisted snapshot, fast-forwarding
// the allocation counter past the highest loaded id so restored ids are
// never reused for a different path. Intended to be called once, right
// after NewRegistry, before any Intern calls.
func (r *Registry) LoadEntries(entries []Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		r.byPath[e.Path] = e.ID
		r.byID[e.ID] = e.Path
		if e.ID >= r.next {
			r.next = e.ID + 1
		}
	}
}

// Remove drops path (and its id) from the registry. A later Intern of
// the same path allocates a fresh id rather than reusing the removed
// one.
func (r *Registry) Remove(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byPath[path]
	if !ok {
		return
	}
	delete(r.byPath, path)
	delete(r.byID, id)
}
