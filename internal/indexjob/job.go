package indexjob

import (
	"fmt"
	"time"

	"github.com/cindexd/cindexd/internal/clangidx"
	"github.com/cindexd/cindexd/internal/cursorinfo"
	"github.com/cindexd/cindexd/internal/cxierr"
)

// CancelFunc reports whether the job should stop at the next checkpoint,
// a cooperative cancellation mechanism checked at each of
// parse/diagnose/visit's phase boundaries.
type CancelFunc func() bool

// Job drives one translation unit through clangidx and produces an
// IndexData bundle for the merge engine.
type Job struct {
	Path   string
	FileID uint32
	Args   []string
	Cancel CancelFunc

	// PCHSeeds carries the USR->CursorInfo table of every precompiled
	// header this job's compile arguments depend on, loaded by the
	// caller from the PCH store before Run. Declarations this job
	// emits for a USR already present here are united with the seeded
	// entry rather than replacing it, so references the PCH build
	// already recorded survive into this job's own output.
	PCHSeeds map[string]cursorinfo.CursorInfo
}

// Run executes the parse/diagnose/visit phases in order, stopping early
// (with a cxierr.CancelRequested error) if Cancel reports true at a phase
// boundary. A parse failure is not itself a Run error: it produces an
// IndexData with no symbols whose only dependency is a self-dependency
// on FileID (plus the PCH seeds and a failure Message), so the merge
// engine still records that the file exists.
func (j *Job) Run(idx *clangidx.Index) (*IndexData, error) {
	data := NewIndexData()
	for usr, ci := range j.PCHSeeds {
		data.PCHUSRs[usr] = ci
	}

	if j.cancelled() {
		return data, cxierr.New(cxierr.CancelRequested, nil)
	}

	start := time.Now()
	tu, err := j.parse(idx, data)
	if err != nil {
		data.addDependency(j.FileID, j.FileID)
		data.Message = fmt.Sprintf("%s: parse failed: %v", j.Path, err)
		return data, nil
	}
	defer tu.Dispose()

	if j.cancelled() {
		return data, cxierr.New(cxierr.CancelRequested, nil)
	}

	hasErrors := j.diagnose(tu, data)

	if j.cancelled() {
		return data, cxierr.New(cxierr.CancelRequested, nil)
	}

	j.visit(tu, data)

	status := "success"
	if hasErrors {
		status = "errors"
	}
	data.Message = fmt.Sprintf("parsed %s (%s) in %s: %d symbols, %d names, %d deps",
		j.Path, status, time.Since(start), len(data.Symbols), len(data.SymbolNames), len(data.Dependencies))

	return data, nil
}

func (j *Job) cancelled() bool {
	return j.Cancel != nil && j.Cancel()
}

// parse invokes clangidx.Index.IndexSourceFile, which both parses the
// translation unit and synchronously drives the declaration/entity
// reference callbacks that populate data.Symbols and data.SymbolNames -
// clang_indexSourceFile does parsing and indexing as a single pass.
func (j *Job) parse(idx *clangidx.Index, data *IndexData) (*clangidx.TranslationUnit, error) {
	return idx.IndexSourceFile(j.Path, j.Args, clangidx.Callbacks{
		OnDeclaration: func(d clangidx.DeclInfo) {
			applyDeclaration(data, d)
		},
		OnEntityReference: func(r clangidx.EntityRefInfo) {
			applyEntityReference(data, r)
		},
	})
}

// diagnose reads back every diagnostic and fix-it the parse phase
// attached to the translation unit, grouping them by file id.
func (j *Job) diagnose(tu *clangidx.TranslationUnit, data *IndexData) bool {
	diags, fixIts, hasErrors := tu.Diagnostics()

	for _, d := range diags {
		if d.Location.IsNull() {
			continue
		}
		fid := d.Location.FileID()
		data.Diagnostics[fid] = append(data.Diagnostics[fid], d.Message)
	}

	for _, f := range fixIts {
		if f.Start.IsNull() {
			continue
		}
		fid := f.Start.FileID()
		data.FixIts[fid] = append(data.FixIts[fid], f)
	}

	return hasErrors
}

// visit walks the translation unit's #include graph into
// data.Dependencies, the one responsibility left for a separate pass once
// indexing callbacks have already populated symbols during parse.
func (j *Job) visit(tu *clangidx.TranslationUnit, data *IndexData) {
	for _, dep := range tu.Inclusions() {
		// data.Dependencies is keyed by included file -> set of
		// includers (reverse adjacency), matching the persisted
		// Dependency store's layout directly so merge's Dependency
		// pass can union each entry in without reversing it first.
		data.addDependency(dep.To, dep.From)
	}
}
