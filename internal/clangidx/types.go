package clangidx

import (
	"github.com/cindexd/cindexd/internal/cursorinfo"
	"github.com/cindexd/cindexd/internal/location"
)

// DeclInfo mirrors the fields IndexerJob::indexDeclarations reads off a
// CXIdxDeclInfo: enough to populate a cursorinfo.CursorInfo entry and walk
// the semantic-parent chain for name permutations, without exposing any
// cgo types to callers.
type DeclInfo struct {
	Location     location.Location
	Name         string
	Kind         cursorinfo.Kind
	IsDefinition bool

	// USR is the cursor's Unified Symbol Resolution string, the same
	// key clang uses to identify a symbol stably across translation
	// units. Populated for every declaration; only declarations from a
	// precompiled-header build are actually persisted under it.
	USR string

	// SemanticParent is set for constructors/destructors, mirroring the
	// original's parent<->child reference linking.
	SemanticParent    location.Location
	HasSemanticParent bool

	// Definition is set when the declaration is not itself a definition
	// and clang can locate one (findDef branch of indexDeclarations).
	Definition    location.Location
	HasDefinition bool

	// Overridden lists the locations of methods this one overrides,
	// populated only for CXXMethod cursors via clang_getOverriddenCursors.
	Overridden []location.Location

	// ScopeChain is the declaration cursor's semantic-parent chain,
	// innermost first, truncated the same way addNamePermutations'
	// recursion stops (at the first non-scope-carrying ancestor).
	// internal/indexjob turns this into the qualified/unqualified name
	// forms stored in the symbol-name index.
	ScopeChain []ScopeFrame
}

// ScopeFrame is one link in a declaration's semantic-parent chain: just
// enough to drive name-permutation synthesis without exposing clang
// cursor types outside this package.
type ScopeFrame struct {
	Kind        cursorinfo.Kind
	DisplayName string
}

// EntityRefInfo mirrors CXIdxEntityRefInfo: a use of a previously declared
// entity at a second location.
type EntityRefInfo struct {
	Location   location.Location
	Name       string
	Kind       cursorinfo.Kind
	Referenced location.Location
}

// Callbacks are the two indexing callbacks clang_indexSourceFile invokes
// while walking a translation unit, translated from IndexerJob.cpp's
// indexDeclarations/indexEntityReferences static C callbacks into closures.
type Callbacks struct {
	OnDeclaration     func(DeclInfo)
	OnEntityReference func(EntityRefInfo)
}

// Severity is a reduced form of CXDiagnosticSeverity.
type Severity int

const (
	SeverityIgnored Severity = iota
	SeverityNote
	SeverityWarning
	SeverityError
	SeverityFatal
)

// Diagnostic is one compiler diagnostic attached to a translation unit.
type Diagnostic struct {
	Location location.Location
	Severity Severity
	Message  string
}

// FixIt is a suggested source replacement attached to a diagnostic.
type FixIt struct {
	Start       location.Location
	RemoveBytes int
	Replacement string
}

// Dependency records that FromFile's translation unit pulled in ToFile,
// either directly (#include) or as the main file indexing itself.
type Dependency struct {
	From uint32
	To   uint32
}
