// Package indexjob drives one translation unit through clangidx and
// accumulates its declarations, references, and dependencies into an
// IndexData bundle the merge engine later folds into the stores.
package indexjob

import (
	"github.com/cindexd/cindexd/internal/clangidx"
	"github.com/cindexd/cindexd/internal/cursorinfo"
	"github.com/cindexd/cindexd/internal/location"
)

// IndexData is one parse job's output bundle: per-file cursors, name
// permutations, inclusion edges, and diagnostics/fix-its, all keyed
// the way the merge engine expects to
// fold them into the stores.
type IndexData struct {
	Symbols     map[location.Location]cursorinfo.CursorInfo
	SymbolNames map[string]map[location.Location]struct{}
	// Dependencies is keyed by included file id to the set of file ids
	// that include it, directly, as seen in this translation unit --
	// reverse adjacency, matching the persisted Dependency store's
	// layout so merge's Dependency pass can union each entry straight
	// in.
	Dependencies map[uint32]map[uint32]struct{}
	Diagnostics  map[uint32][]string
	FixIts       map[uint32][]clangidx.FixIt

	// PCHUSRs maps a declaration's USR to its CursorInfo, populated for
	// every declaration this job produced regardless of whether the
	// job itself is building a precompiled header -- merge's PCH pass
	// only persists this map when the bundle says IsPCH, so indexjob
	// stays ignorant of that decision.
	PCHUSRs map[string]cursorinfo.CursorInfo

	// Message is a short human-readable summary of the job, mirroring
	// IndexerJob::run's "Visited foo.cpp (success) in 42ms" log line.
	Message string
}

// NewIndexData returns an IndexData with every map initialized, so
// callers never need a nil check before inserting.
func NewIndexData() *IndexData {
	return &IndexData{
		Symbols:      make(map[location.Location]cursorinfo.CursorInfo),
		SymbolNames:  make(map[string]map[location.Location]struct{}),
		Dependencies: make(map[uint32]map[uint32]struct{}),
		Diagnostics:  make(map[uint32][]string),
		FixIts:       make(map[uint32][]clangidx.FixIt),
		PCHUSRs:      make(map[string]cursorinfo.CursorInfo),
	}
}

func (d *IndexData) addSymbolName(name string, loc location.Location) {
	if name == "" {
		return
	}
	set, ok := d.SymbolNames[name]
	if !ok {
		set = make(map[location.Location]struct{})
		d.SymbolNames[name] = set
	}
	set[loc] = struct{}{}
}

func (d *IndexData) addDependency(from, to uint32) {
	set, ok := d.Dependencies[from]
	if !ok {
		set = make(map[uint32]struct{})
		d.Dependencies[from] = set
	}
	set[to] = struct{}{}
}
