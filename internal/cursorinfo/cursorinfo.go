// Package cursorinfo models the per-location symbol record the merge
// engine accumulates in the Symbol store: a name, a clang cursor kind,
// whether this location is the symbol's definition, the location of
// its target (the definition, when this record names a reference), and
// the set of every location referencing it.
//
// CursorInfo is a plain, arena-addressed value rather than a mutable
// struct with back-pointers between linked records: Unite takes two
// values and returns a new one, so no caller ever has to reason about
// a record being mutated out from under it through another reference.
package cursorinfo

import "github.com/cindexd/cindexd/internal/location"

// Kind is the subset of clang's CXCursorKind the merge and reference
// rules branch on. internal/clangidx maps every other cursor kind clang
// can report to KindInvalid before it reaches this package; the Kind
// field itself round-trips any uint32 value through the wire format.
type Kind uint32

const (
	KindInvalid Kind = iota
	KindFunctionDecl
	KindCXXMethod
	KindConstructor
	KindDestructor
	KindVarDecl
	KindParmDecl
	KindFieldDecl
	KindStructDecl
	KindClassDecl
	KindClassTemplate
	KindNamespace
	KindTypedefDecl
	KindEnumDecl
	KindEnumConstantDecl
	KindMacroDefinition
	KindReference
)

// CursorInfo is the record kept for one Location: either the
// definition/declaration of a symbol, or a reference to one.
type CursorInfo struct {
	SymbolLength  uint32
	SymbolName    string
	Kind          Kind
	IsDefinition  bool
	Target        location.Location
	References    map[location.Location]struct{}
}

// New returns an empty CursorInfo, equivalent to the zero value but
// with its References set initialized and ready to receive entries.
func New() CursorInfo {
	return CursorInfo{References: make(map[location.Location]struct{})}
}

// IsEmpty reports whether ci carries no information at all: a zero
// SymbolLength, no target, and no references. A record reaching this state
// (for instance after pruning dangling references) should be deleted
// from the store rather than written back.
func (ci CursorInfo) IsEmpty() bool {
	return ci.SymbolLength == 0 && ci.Target.IsNull() && len(ci.References) == 0
}

// Equal reports whether a and b carry the same information.
func Equal(a, b CursorInfo) bool {
	if a.SymbolLength != b.SymbolLength ||
		a.SymbolName != b.SymbolName ||
		a.Kind != b.Kind ||
		a.IsDefinition != b.IsDefinition ||
		a.Target != b.Target ||
		len(a.References) != len(b.References) {
		return false
	}
	for ref := range a.References {
		if _, ok := b.References[ref]; !ok {
			return false
		}
	}
	return true
}

// Unite merges other into base, returning the merged record and
// whether it differs from base. Neither input is mutated: a fresh
// References set is allocated for the result.
//
// Target is filled in only if base doesn't already have one. The
// symbol identity fields (length, kind, isDefinition, name) are filled
// in together, gated on SymbolLength being unset, exactly as the
// source data couples them (a non-zero length should never appear
// without a name and a kind). References always union.
func Unite(base, other CursorInfo) (CursorInfo, bool) {
	changed := false
	result := CursorInfo{
		SymbolLength: base.SymbolLength,
		SymbolName:   base.SymbolName,
		Kind:         base.Kind,
		IsDefinition: base.IsDefinition,
		Target:       base.Target,
	}

	if result.Target.IsNull() && !other.Target.IsNull() {
		result.Target = other.Target
		changed = true
	}

	if result.SymbolLength == 0 && other.SymbolLength != 0 {
		result.SymbolLength = other.SymbolLength
		result.Kind = other.Kind
		result.IsDefinition = other.IsDefinition
		result.SymbolName = other.SymbolName
		changed = true
	}

	oldSize := len(base.References)
	result.References = make(map[location.Location]struct{}, oldSize+len(other.References))
	for ref := range base.References {
		result.References[ref] = struct{}{}
	}
	for ref := range other.References {
		result.References[ref] = struct{}{}
	}
	if len(result.References) != oldSize {
		changed = true
	}

	return result, changed
}
