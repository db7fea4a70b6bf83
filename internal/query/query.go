// Package query implements the read-only traversals follow-location,
// references-for-name, list-symbols, and a validate-db consistency
// sweep. Every job acquires only read handles (internal/store.Store.View,
// a bbolt read-only transaction under the bucket's RWMutex) and honors
// cancellation between emitted rows, since query jobs must never block
// behind index writers beyond that initial read-handle acquisition.
// follow-location takes the best target hop off a CursorInfo;
// references-for-name branches on reference-vs-declaration to resolve a
// target; list-symbols runs a prefix scan over the symbol-name map;
// validate-db passes over the whole Symbol map checking for undecodable
// records and dangling targets or references, then over the SymbolName
// map checking for locations with no CursorInfo.
package query

import (
	"sort"

	"go.etcd.io/bbolt"

	"github.com/cindexd/cindexd/internal/cursorinfo"
	"github.com/cindexd/cindexd/internal/indexjob"
	"github.com/cindexd/cindexd/internal/location"
	"github.com/cindexd/cindexd/internal/store"
)

// Jobs runs every query kind against one project's store.
type Jobs struct {
	Store *store.Store
}

// New returns a Jobs bound to s.
func New(s *store.Store) *Jobs {
	return &Jobs{Store: s}
}

// FollowLocation resolves loc to the location a reader following
// "go to definition" would land on: loc's own CursorInfo if it has no
// target, or a best-effort single hop to its target, re-hopping once
// more through the target's own target if the target is itself a
// not-yet-a-definition reference to something else — the bestTarget
// re-resolution FollowLocationJob.cpp performs when the resolved kind
// still isn't the thing being asked about.
func (j *Jobs) FollowLocation(loc location.Location) (location.Location, bool, error) {
	var result location.Location
	found := false

	err := j.Store.View(store.BucketSymbol, func(bucket *bbolt.Bucket) error {
		ci, ok := readCursorInfo(bucket, loc)
		if !ok || ci.IsEmpty() {
			return nil
		}

		target := ci.Target
		if target.IsNull() {
			result, found = loc, true
			return nil
		}

		targetInfo, ok := readCursorInfo(bucket, target)
		if ok && !targetInfo.IsDefinition && !targetInfo.Target.IsNull() && targetInfo.Target != target {
			if reHopInfo, ok2 := readCursorInfo(bucket, targetInfo.Target); ok2 {
				target = targetInfo.Target
				targetInfo = reHopInfo
			}
		}

		result, found = target, true
		return nil
	})
	if err != nil {
		return location.Location(0), false, err
	}
	return result, found, nil
}

// ReferencesForName resolves name through the SymbolName store, then
// for each location fans out into the Symbol store collecting the
// full reference set: a reference location contributes its target's
// References; a declaration/definition location contributes its own
// References. Cancel is checked between each of the initial
// locations, since cancellation must be honored between emitted rows.
func (j *Jobs) ReferencesForName(name string, cancel indexjob.CancelFunc) ([]location.Location, error) {
	var roots map[location.Location]struct{}
	err := j.Store.View(store.BucketSymbolName, func(bucket *bbolt.Bucket) error {
		roots = decodeLocationSet(bucket.Get([]byte(name)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return nil, nil
	}

	refs := make(map[location.Location]struct{})
	err = j.Store.View(store.BucketSymbol, func(bucket *bbolt.Bucket) error {
		for loc := range roots {
			if isCancelled(cancel) {
				return nil
			}

			ci, ok := readCursorInfo(bucket, loc)
			if !ok {
				continue
			}

			if !ci.Target.IsNull() {
				targetInfo, ok := readCursorInfo(bucket, ci.Target)
				if ok {
					for r := range targetInfo.References {
						refs[r] = struct{}{}
					}
				}
				continue
			}

			for r := range ci.References {
				refs[r] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]location.Location, 0, len(refs))
	for r := range refs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, k int) bool { return location.Less(out[i], out[k]) })
	return out, nil
}

// ListSymbols returns every symbol name in the SymbolName store
// beginning with prefix, in lexical order, checking cancel between
// each row visited. An empty prefix lists every symbol name.
func (j *Jobs) ListSymbols(prefix string, cancel indexjob.CancelFunc) ([]string, error) {
	var names []string
	err := j.Store.View(store.BucketSymbolName, func(bucket *bbolt.Bucket) error {
		c := bucket.Cursor()
		p := []byte(prefix)
		for k, _ := c.Seek(p); k != nil; k, _ = c.Next() {
			if isCancelled(cancel) {
				return nil
			}
			if !hasBytePrefix(k, p) {
				break
			}
			names = append(names, string(k))
		}
		return nil
	})
	return names, err
}

// Violation describes one merge invariant found broken.
type Violation struct {
	FileID uint32
	Offset uint32
	Reason string
}

// Report summarizes one ValidateDB run.
type Report struct {
	Checked    int
	Violations []Violation
}

// ValidateDB walks the Symbol store once, checking three
// invariants merge must uphold: every reference points to a location
// with its own CursorInfo, every target points to a location with its
// own CursorInfo, and (via a second pass) no SymbolName entry lists a
// location absent from Symbol. Grounded on ValidateDBJob.cpp's single
// pass over the whole symbol map, extended to also check dangling
// SymbolName entries since this rebuild's Symbol store has no
// reverse pointer back to the names that reference a location.
func (j *Jobs) ValidateDB(cancel indexjob.CancelFunc) (Report, error) {
	var report Report

	err := j.Store.View(store.BucketSymbol, func(bucket *bbolt.Bucket) error {
		c := bucket.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if isCancelled(cancel) {
				return nil
			}
			report.Checked++

			loc := location.FromKey(location.KeyFromBytes(k))
			ci, err := cursorinfo.Unmarshal(v)
			if err != nil {
				report.Violations = append(report.Violations, Violation{
					FileID: loc.FileID(), Offset: loc.Offset(),
					Reason: "corrupt CursorInfo record",
				})
				continue
			}

			if !ci.Target.IsNull() {
				if !existsInBucket(bucket, ci.Target) {
					report.Violations = append(report.Violations, Violation{
						FileID: loc.FileID(), Offset: loc.Offset(),
						Reason: "target has no CursorInfo",
					})
				}
			}
			for ref := range ci.References {
				if !existsInBucket(bucket, ref) {
					report.Violations = append(report.Violations, Violation{
						FileID: loc.FileID(), Offset: loc.Offset(),
						Reason: "reference has no CursorInfo",
					})
					break
				}
			}
		}
		return nil
	})
	if err != nil {
		return report, err
	}

	err = j.Store.View(store.BucketSymbolName, func(names *bbolt.Bucket) error {
		return j.Store.View(store.BucketSymbol, func(symbols *bbolt.Bucket) error {
			c := names.Cursor()
			for k, v := c.First(); k != nil; k, v = c.Next() {
				if isCancelled(cancel) {
					return nil
				}
				for loc := range decodeLocationSet(v) {
					if !existsInBucket(symbols, loc) {
						report.Violations = append(report.Violations, Violation{
							FileID: loc.FileID(), Offset: loc.Offset(),
							Reason: "SymbolName \"" + string(k) + "\" references a location with no CursorInfo",
						})
					}
				}
			}
			return nil
		})
	})
	return report, err
}

func readCursorInfo(bucket *bbolt.Bucket, loc location.Location) (cursorinfo.CursorInfo, bool) {
	key := loc.ToKey()
	v := bucket.Get(key[:])
	if v == nil {
		return cursorinfo.CursorInfo{}, false
	}
	ci, err := cursorinfo.Unmarshal(v)
	if err != nil {
		return cursorinfo.CursorInfo{}, false
	}
	return ci, true
}

func existsInBucket(bucket *bbolt.Bucket, loc location.Location) bool {
	key := loc.ToKey()
	return bucket.Get(key[:]) != nil
}

func isCancelled(cancel indexjob.CancelFunc) bool {
	return cancel != nil && cancel()
}

func hasBytePrefix(b, prefix []byte) bool {
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

func decodeLocationSet(b []byte) map[location.Location]struct{} {
	n := len(b) / location.KeyLen
	set := make(map[location.Location]struct{}, n)
	for i := 0; i < n; i++ {
		var k location.Key
		copy(k[:], b[i*location.KeyLen:(i+1)*location.KeyLen])
		set[location.FromKey(k)] = struct{}{}
	}
	return set
}
