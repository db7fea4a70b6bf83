// Package merge folds one parse job's IndexData bundle into the six
// on-disk stores without losing cross-file references: dependency
// edges union in, file information and symbol names overwrite for the
// bundle's own file, cross-file symbol sightings unite with whatever
// is already on disk, and stale dirty-tracking keys are pruned on every
// merge. Writes land through internal/store's bbolt buckets, one
// Store.Update transaction per pass rather than one per key.
package merge

import (
	"time"

	"github.com/cindexd/cindexd/internal/cursorinfo"
	"github.com/cindexd/cindexd/internal/depgraph"
	"github.com/cindexd/cindexd/internal/fileid"
	"github.com/cindexd/cindexd/internal/indexjob"
	"github.com/cindexd/cindexd/internal/store"
)

// Bundle is one finished job's inputs to a merge pass: the IndexData
// it produced, which file id it was parsing (used by the Symbol
// pass's overwrite-vs-unite branch), the compile arguments and
// wall-clock time of the parse (for the FileInformation pass), the
// dirty set this bundle is being merged against (for the SymbolName
// and Dirtiness passes' pruning rules), and whether this job was
// itself building a PCH plus which PCH headers it depended on (for
// the PCH pass).
type Bundle struct {
	Data         *indexjob.IndexData
	PrimaryFile  uint32
	Args         []string
	ParsedAt     time.Time
	DirtyFileIDs map[uint32]struct{}
	IsPCH        bool
	PCHDeps      []uint32
}

// Stats counts the keys written by each pass of one Apply call,
// reported by the status command as the last wave's counts.
type Stats struct {
	FileInformationWritten int
	DependencyWritten      int
	SymbolNameWritten      int
	SymbolWritten          int
	PCHWritten             int
	DirtyKeysDeleted       int
}

// Engine owns the store and in-memory dependency graph that every
// merge pass writes through. One Engine serves one project; every
// pass it runs takes the relevant store's exclusive write lock for
// its own duration only, one store at a time.
type Engine struct {
	Store    *store.Store
	Graph    *depgraph.Graph
	Registry *fileid.Registry
}

// New creates an Engine over an already-open store, dependency graph,
// and file id registry.
func New(s *store.Store, g *depgraph.Graph, r *fileid.Registry) *Engine {
	return &Engine{Store: s, Graph: g, Registry: r}
}

// Apply runs every pass in order against one bundle: FileInformation,
// Dependency, SymbolName, Symbol, PCH, Dirtiness.
func (e *Engine) Apply(b Bundle) (Stats, error) {
	var stats Stats

	n, err := e.fileInformationPass(b)
	if err != nil {
		return stats, err
	}
	stats.FileInformationWritten = n

	n, err = e.dependencyPass(b)
	if err != nil {
		return stats, err
	}
	stats.DependencyWritten = n

	n, err = e.symbolNamePass(b)
	if err != nil {
		return stats, err
	}
	stats.SymbolNameWritten = n

	n, err = e.symbolPass(b)
	if err != nil {
		return stats, err
	}
	stats.SymbolWritten = n

	n, err = e.pchPass(b)
	if err != nil {
		return stats, err
	}
	stats.PCHWritten = n

	n, err = e.dirtinessPass(b)
	if err != nil {
		return stats, err
	}
	stats.DirtyKeysDeleted = n

	return stats, nil
}

// uniteCursorInfo is the small wrapper around cursorinfo.Unite used by
// the Symbol pass, kept here so the pass reads as one line per branch.
func uniteCursorInfo(existing, incoming cursorinfo.CursorInfo) (cursorinfo.CursorInfo, bool) {
	return cursorinfo.Unite(existing, incoming)
}
