// Package project owns one source tree's full wiring: the store,
// dependency graph, file id registry, merge engine, scheduler,
// filesystem watcher, diagnostics cache, and query jobs that together
// drive the control-flow loop: a compile command or a watcher event
// enqueues a job -> the job emits an index-data bundle -> the merge
// engine writes the bundle to the stores and updates the dependency
// graph -> if all jobs drain, the scheduler signals quiescence. The
// watcher is not reprimed from merged dependencies: it watches the
// non-excluded directories under the root, including ones created later,
// so a dependency outside the root is not watched. Grounded on
// internal/server.IndexServer, which owns the equivalent
// indexer/searchEngine/cfg bundle for one project and exposes it over
// a Unix-socket HTTP API; restyled here around a single source tree's
// compile/query/watch lifecycle instead of indexing.MasterIndex.
package project

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cindexd/cindexd/internal/clangidx"
	"github.com/cindexd/cindexd/internal/config"
	"github.com/cindexd/cindexd/internal/cursorinfo"
	"github.com/cindexd/cindexd/internal/debug"
	"github.com/cindexd/cindexd/internal/depgraph"
	"github.com/cindexd/cindexd/internal/diagnostics"
	"github.com/cindexd/cindexd/internal/fileid"
	"github.com/cindexd/cindexd/internal/indexjob"
	"github.com/cindexd/cindexd/internal/merge"
	"github.com/cindexd/cindexd/internal/query"
	"github.com/cindexd/cindexd/internal/scheduler"
	"github.com/cindexd/cindexd/internal/store"
	"github.com/cindexd/cindexd/internal/watcher"
)

// Status summarizes one project's current state, the payload
// handleStatus reports over the control API.
type Status struct {
	Root          string
	Files         int
	InFlightJobs  int
	WaitingForPCH int
	LastWave      merge.Stats
	LastQuiescent *QuiescenceStats
}

// QuiescenceStats mirrors scheduler.QuiescenceStats for the API
// boundary so callers outside this package never need to import
// internal/scheduler directly.
type QuiescenceStats struct {
	JobsRun int
	Elapsed time.Duration
}

// Project wires one source tree's stores, scheduler, watcher, and
// query surface together. The zero value is not usable; construct
// with Open.
type Project struct {
	Root   string
	Config *config.Config

	Store    *store.Store
	Registry *fileid.Registry
	Graph    *depgraph.Graph
	Merge    *merge.Engine
	Sched    *scheduler.Scheduler
	Watch    *watcher.Watcher
	Diag     *diagnostics.Cache
	Query    *query.Jobs
	index    *clangidx.Index

	mu            sync.Mutex
	wave          map[uint32]struct{}
	argsByFile    map[uint32][]string
	lastWaveStats merge.Stats
	lastQuiescent *QuiescenceStats
}

// Open loads cfg's store and rebuilds its in-memory indices (the file
// id registry and the reverse dependency graph, both snapshotted to
// disk), then wires a scheduler, watcher, diagnostics cache, and query
// surface around them. The watcher is not started; call Watch.Start
// (or Project.StartWatch) once the caller is ready to receive dirty
// callbacks.
func Open(cfg *config.Config) (*Project, error) {
	dbPath, err := storePath(cfg)
	if err != nil {
		return nil, err
	}

	s, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}

	registry := fileid.NewRegistry()
	if err := loadRegistry(s, registry); err != nil {
		_ = s.Close()
		return nil, err
	}

	graph := depgraph.New()
	if err := loadDependencyGraph(s, graph); err != nil {
		_ = s.Close()
		return nil, err
	}

	mergeEngine := merge.New(s, graph, registry)
	sched := scheduler.New(cfg.Jobs.Workers)
	diag := diagnostics.New()
	jobs := query.New(s)

	p := &Project{
		Root:     cfg.Project.Root,
		Config:   cfg,
		Store:    s,
		Registry: registry,
		Graph:    graph,
		Merge:    mergeEngine,
		Sched:    sched,
		Diag:     diag,
		Query:    jobs,
		wave:     make(map[uint32]struct{}),
	}

	p.index = clangidx.NewIndex(func(path string) uint32 {
		return uint32(registry.Intern(path))
	})

	sched.OnComplete = p.onJobComplete
	sched.OnQuiescent = p.onQuiescent

	var gitignore watcher.GitignoreChecker
	if cfg.Watch.RespectGitignore {
		gi := config.NewGitignoreParser()
		if err := gi.LoadGitignore(cfg.Project.Root); err != nil {
			_ = s.Close()
			return nil, err
		}
		gitignore = gi
	}

	w, err := watcher.New(watcher.Config{
		Root:      cfg.Project.Root,
		Include:   cfg.Include,
		Exclude:   cfg.Exclude,
		Debounce:  time.Duration(cfg.Watch.DebounceMs) * time.Millisecond,
		Gitignore: gitignore,
	})
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	w.OnDirty = p.onDirty
	p.Watch = w

	return p, nil
}

// StartWatch starts the filesystem watcher, if the project's
// configuration enables it.
func (p *Project) StartWatch() error {
	if !p.Config.Watch.Enabled {
		return nil
	}
	return p.Watch.Start()
}

// Close stops the watcher, saves the file id registry snapshot, and
// closes the store. Jobs already dispatched to the scheduler are left
// to finish on their own; callers that need a clean drain should wait
// for quiescence before calling Close.
func (p *Project) Close() error {
	if p.Watch != nil {
		_ = p.Watch.Stop()
	}
	p.index.Dispose()
	if err := saveRegistry(p.Store, p.Registry); err != nil {
		_ = p.Store.Close()
		return err
	}
	return p.Store.Close()
}

// Compile admits one compile command, enqueuing a job for it. path is
// interned into a file id if it is not already known.
func (p *Project) Compile(path string, args []string) int64 {
	fileID := uint32(p.Registry.Intern(path))
	isPCH, pchDeps := p.pchFields(args)
	return p.Sched.Enqueue(scheduler.Request{
		Path:    path,
		FileID:  fileID,
		IsPCH:   isPCH,
		PCHDeps: pchDeps,
		Run:     p.runFunc(path, fileID, args, pchDeps),
	})
}

// pchFields inspects a compile command's arguments for the two facts
// the scheduler's PCH barrier and the merge engine's PCH pass need:
// whether this command itself builds a precompiled header, and which
// already-known PCH headers (interned by path) it was told to include.
func (p *Project) pchFields(args []string) (isPCH bool, pchDeps []uint32) {
	isPCH = indexjob.IsPCH(args)
	for _, inc := range indexjob.IncludedPaths(args) {
		pchDeps = append(pchDeps, uint32(p.Registry.Intern(inc)))
	}
	return isPCH, pchDeps
}

func (p *Project) runFunc(path string, fileID uint32, args []string, pchDeps []uint32) scheduler.RunFunc {
	return func(cancel indexjob.CancelFunc) (*indexjob.IndexData, error) {
		job := &indexjob.Job{
			Path:     path,
			FileID:   fileID,
			Args:     args,
			Cancel:   cancel,
			PCHSeeds: p.loadPCHSeeds(pchDeps),
		}
		data, err := job.Run(p.index)
		if data != nil {
			p.rememberArgs(fileID, args)
		}
		return data, err
	}
}

// loadPCHSeeds reads back every pchDeps header's stored USR table, so
// the job about to run can unite its own declarations against symbols
// the PCH build already recorded. A header never indexed as a PCH, or
// a lookup failure, simply contributes nothing.
func (p *Project) loadPCHSeeds(pchDeps []uint32) map[string]cursorinfo.CursorInfo {
	if len(pchDeps) == 0 {
		return nil
	}
	seeds := make(map[string]cursorinfo.CursorInfo)
	for _, id := range pchDeps {
		path, ok := p.Registry.Path(fileid.ID(id))
		if !ok {
			continue
		}
		usrs, err := p.Merge.LoadPCHUSRs(path)
		if err != nil {
			continue
		}
		for usr, ci := range usrs {
			seeds[usr] = ci
		}
	}
	return seeds
}

// onDirty is the watcher's callback: translate each changed path to a
// known file id, fold it into the current reindex wave, and reschedule
// every known translation-unit root the dependency graph says is
// affected -- following the reverse dependency graph to translation-unit
// roots and enqueuing their jobs, the step internal/watcher itself
// deliberately leaves undone.
func (p *Project) onDirty(paths []string) {
	dirty := resolveFileIDs(p.Registry, paths)
	if len(dirty) == 0 {
		return
	}

	p.mu.Lock()
	for _, id := range dirty {
		p.wave[id] = struct{}{}
	}
	p.mu.Unlock()

	for _, target := range reindexTargets(p.Graph, p.Registry, p.knownArgs, dirty) {
		debug.LogWatch("rescheduling %s (file id %d) for dirty dependency", target.path, target.fileID)
		isPCH, pchDeps := p.pchFields(target.args)
		p.Sched.Enqueue(scheduler.Request{
			Path:    target.path,
			FileID:  target.fileID,
			IsPCH:   isPCH,
			PCHDeps: pchDeps,
			Run:     p.runFunc(target.path, target.fileID, target.args, pchDeps),
		})
	}
}

// reindexTarget is one translation-unit root reindexTargets decided
// needs rescheduling.
type reindexTarget struct {
	fileID uint32
	path   string
	args   []string
}

// resolveFileIDs maps each path to its already-known file id,
// silently dropping paths the registry has never seen -- a brand new
// file only becomes known once a compile command names it.
func resolveFileIDs(r *fileid.Registry, paths []string) []uint32 {
	var ids []uint32
	for _, path := range paths {
		id, ok := r.Lookup(path)
		if !ok {
			continue
		}
		ids = append(ids, uint32(id))
	}
	return ids
}

// reindexTargets follows graph's reverse adjacency from dirty to every
// dependent file id, keeping only the ones argsOf recognizes as a
// translation-unit root (a file previously compiled directly, with its
// own recorded compile arguments).
func reindexTargets(graph *depgraph.Graph, r *fileid.Registry, argsOf func(uint32) ([]string, bool), dirty []uint32) []reindexTarget {
	var targets []reindexTarget
	for _, fileID := range graph.DirtyDependents(dirty) {
		path, ok := r.Path(fileid.ID(fileID))
		if !ok {
			continue
		}
		args, ok := argsOf(fileID)
		if !ok {
			continue
		}
		targets = append(targets, reindexTarget{fileID: fileID, path: path, args: args})
	}
	return targets
}

// onJobComplete folds one finished job's bundle into the stores and
// the diagnostics cache: the merge engine writes the bundle to the
// stores and updates the dependency graph. A failed Run (cancellation,
// typically) is dropped without merging.
func (p *Project) onJobComplete(cj scheduler.CompletedJob) {
	if cj.Err != nil || cj.Data == nil {
		return
	}

	args, _ := p.knownArgs(cj.Request.FileID)

	p.mu.Lock()
	dirty := make(map[uint32]struct{}, len(p.wave))
	for id := range p.wave {
		dirty[id] = struct{}{}
	}
	p.mu.Unlock()

	stats, err := p.Merge.Apply(merge.Bundle{
		Data:         cj.Data,
		PrimaryFile:  cj.Request.FileID,
		Args:         args,
		ParsedAt:     time.Now(),
		DirtyFileIDs: dirty,
		IsPCH:        cj.Request.IsPCH,
		PCHDeps:      cj.Request.PCHDeps,
	})
	if err != nil {
		debug.LogIndex("merge failed for %s: %v", cj.Request.Path, err)
		return
	}

	p.mu.Lock()
	delete(p.wave, cj.Request.FileID)
	p.lastWaveStats = stats
	p.mu.Unlock()

	p.Diag.ReplaceBatch(cj.Request.FileID, cj.Data)
	debug.LogIndex("%s", cj.Data.Message)
}

func (p *Project) onQuiescent(stats scheduler.QuiescenceStats) {
	p.mu.Lock()
	p.lastQuiescent = &QuiescenceStats{JobsRun: stats.JobsRun, Elapsed: stats.Elapsed}
	p.mu.Unlock()
	debug.LogIndex("quiescent: %d jobs in %s", stats.JobsRun, stats.Elapsed)
}

// Stat returns a snapshot of the project's current state for the
// status endpoint.
func (p *Project) Stat() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{
		Root:          p.Root,
		Files:         p.Registry.Len(),
		InFlightJobs:  p.Sched.InFlightCount(),
		WaitingForPCH: p.Sched.WaitingForPCHCount(),
		LastWave:      p.lastWaveStats,
		LastQuiescent: p.lastQuiescent,
	}
}

func (p *Project) rememberArgs(fileID uint32, args []string) {
	p.mu.Lock()
	if p.argsByFile == nil {
		p.argsByFile = make(map[uint32][]string)
	}
	p.argsByFile[fileID] = args
	p.mu.Unlock()
}

func (p *Project) knownArgs(fileID uint32) ([]string, bool) {
	p.mu.Lock()
	args, ok := p.argsByFile[fileID]
	p.mu.Unlock()
	if ok {
		return args, true
	}
	return readStoredArgs(p.Store, fileID)
}

func storePath(cfg *config.Config) (string, error) {
	dir := cfg.Store.Dir
	if dir == "" {
		dir = ".cindexd"
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(cfg.Project.Root, dir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return filepath.Join(dir, "index.db"), nil
}
