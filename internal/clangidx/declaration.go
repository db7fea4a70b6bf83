package clangidx

import (
	"github.com/go-clang/v3.9/clang"

	"github.com/cindexd/cindexd/internal/location"
)

type locateFunc func(f clang.File, offset uint32) location.Location

// onDeclaration is the Go translation of IndexerJob::indexDeclarations: it
// builds a DeclInfo from a CXIdxDeclInfo and hands it to the caller's
// OnDeclaration closure.
func onDeclaration(d clang.IdxDeclInfo, locate locateFunc, emit func(DeclInfo)) {
	if emit == nil {
		return
	}

	entity := d.EntityInfo()
	name := entity.Name()
	if name == "" {
		// Anonymous entities carry no usable name for symbol lookup.
		return
	}

	f, _, _, offset := d.Loc().FileLocation()
	loc := locate(f, offset)
	if loc.IsNull() {
		return
	}

	cursor := entity.Cursor()
	kind := cursor.Kind()

	info := DeclInfo{
		Location:     loc,
		Name:         name,
		Kind:         mapCursorKind(kind),
		IsDefinition: d.IsDefinition() != 0,
		ScopeChain:   scopeChain(cursor),
		USR:          cursor.USR(),
	}

	switch kind {
	case clang.Cursor_Constructor, clang.Cursor_Destructor:
		if parentLoc, ok := semanticParentLocation(cursor, locate); ok {
			info.SemanticParent = parentLoc
			info.HasSemanticParent = true
		}
	case clang.Cursor_CXXMethod:
		info.Overridden = overriddenLocations(cursor, locate)
	}

	if findsDefinitionSeparately(kind) && !info.IsDefinition {
		if defCursor := cursor.Definition(); !defCursor.IsNull() {
			if defLoc, ok := cursorLocation(defCursor, locate); ok {
				info.Definition = defLoc
				info.HasDefinition = true
			}
		}
	}

	emit(info)
}

// onEntityReference is the Go translation of IndexerJob::indexEntityReferences.
func onEntityReference(r clang.IdxEntityRefInfo, locate locateFunc, emit func(EntityRefInfo)) {
	if emit == nil {
		return
	}

	f, _, _, offset := r.Loc().FileLocation()
	loc := locate(f, offset)
	if loc.IsNull() {
		return
	}

	referenced := r.ReferencedEntity()
	refCursor := referenced.Cursor()
	refLoc, ok := cursorLocation(refCursor, locate)
	if !ok {
		return
	}

	emit(EntityRefInfo{
		Location:   loc,
		Name:       referenced.Name(),
		Kind:       mapCursorKind(refCursor.Kind()),
		Referenced: refLoc,
	})
}

// findsDefinitionSeparately lists the cursor kinds for which a separate
// declaration-to-definition lookup is worthwhile: functions, structs,
// classes, C++ methods, constructors and destructors. Variables are not
// looked up.
func findsDefinitionSeparately(k clang.CursorKind) bool {
	switch k {
	case clang.Cursor_FunctionDecl,
		clang.Cursor_StructDecl,
		clang.Cursor_ClassDecl,
		clang.Cursor_CXXMethod,
		clang.Cursor_Constructor,
		clang.Cursor_Destructor:
		return true
	default:
		return false
	}
}

// cursorLocation resolves a cursor's own spelling location.
func cursorLocation(cursor clang.Cursor, locate locateFunc) (location.Location, bool) {
	if cursor.IsNull() {
		return location.Null, false
	}
	f, _, _, offset := cursor.Location().SpellingLocation()
	loc := locate(f, offset)
	return loc, !loc.IsNull()
}

// semanticParentLocation resolves a constructor/destructor's enclosing
// class location, used to link constructor/destructor declarations back
// to their owning class with a bidirectional reference.
func semanticParentLocation(cursor clang.Cursor, locate locateFunc) (location.Location, bool) {
	return cursorLocation(cursor.SemanticParent(), locate)
}

// overriddenLocations resolves the locations of every method cursor
// overrides, mirroring addOverriddenCursors: clang_getOverriddenCursors
// reports only the direct overrides, so each overridden method's own
// overrides are collected in turn.
func overriddenLocations(cursor clang.Cursor, locate locateFunc) []location.Location {
	overridden := cursor.OverriddenCursors()
	if len(overridden) == 0 {
		return nil
	}

	locs := make([]location.Location, 0, len(overridden))
	for _, o := range overridden {
		if loc, ok := cursorLocation(o, locate); ok {
			locs = append(locs, loc)
			locs = append(locs, overriddenLocations(o, locate)...)
		}
	}
	return locs
}

// scopeChain walks a declaration cursor's semantic-parent chain, innermost
// first, stopping at the first ancestor that isn't a scope-carrying kind -
// the same recursion IndexerJob::addNamePermutations performs, but
// returning the raw (kind, display name) pairs instead of computing the
// permutation strings itself; internal/indexjob does that part as a pure,
// independently testable function.
func scopeChain(cursor clang.Cursor) []ScopeFrame {
	var (
		chain []ScopeFrame
		first = true
		cur   = cursor
	)

	for !cur.IsNull() {
		kind := cur.Kind()
		if !first && !isScopeCarryingKind(kind) {
			break
		}

		name := cur.DisplayName()
		if name == "" {
			break
		}

		chain = append(chain, ScopeFrame{Kind: mapCursorKind(kind), DisplayName: name})

		if first {
			first = false
			if !needsScopeKinds(kind) {
				break
			}
		}

		cur = cur.SemanticParent()
	}

	return chain
}
