package indexjob

import (
	"github.com/cindexd/cindexd/internal/clangidx"
	"github.com/cindexd/cindexd/internal/cursorinfo"
	"github.com/cindexd/cindexd/internal/location"
)

// applyDeclaration is the Go translation of IndexerJob::indexDeclarations'
// bookkeeping once clangidx has already resolved the location and scope
// chain: register the symbol, its name permutations, and the
// constructor/destructor parent link or CXXMethod override cross-links
// the reference rules call for.
func applyDeclaration(data *IndexData, d clangidx.DeclInfo) {
	if _, exists := data.Symbols[d.Location]; exists {
		// A declaration may be visited more than once (e.g. through a
		// PCH); the first sighting wins.
		return
	}

	info := cursorinfo.CursorInfo{
		SymbolLength: uint32(len(d.Name)),
		SymbolName:   d.Name,
		Kind:         d.Kind,
		IsDefinition: d.IsDefinition,
		References:   make(map[location.Location]struct{}),
	}

	for _, name := range Permutations(d.ScopeChain) {
		data.addSymbolName(name, d.Location)
	}

	if d.HasSemanticParent {
		parent := data.Symbols[d.SemanticParent]
		if parent.References == nil {
			parent.References = make(map[location.Location]struct{})
		}
		parent.References[d.Location] = struct{}{}
		data.Symbols[d.SemanticParent] = parent

		info.References[d.SemanticParent] = struct{}{}
	}

	for _, overridden := range d.Overridden {
		target := data.Symbols[overridden]
		if target.References == nil {
			target.References = make(map[location.Location]struct{})
		}
		target.References[d.Location] = struct{}{}
		data.Symbols[overridden] = target

		info.References[overridden] = struct{}{}
	}

	if d.HasDefinition {
		info.Target = d.Definition
		other := data.Symbols[d.Definition]
		if other.Target.IsNull() {
			other.Target = d.Location
			data.Symbols[d.Definition] = other
		}
	}

	if d.USR != "" {
		if seeded, ok := data.PCHUSRs[d.USR]; ok {
			info, _ = cursorinfo.Unite(seeded, info)
		}
		data.PCHUSRs[d.USR] = info
	}

	data.Symbols[d.Location] = info
}

// applyEntityReference is the Go translation of
// IndexerJob::indexEntityReferences: it records the reference's own
// synthetic cursor (kind Reference, targeting the referenced symbol) and
// cross-links the referenced symbol's reference set, materializing a
// placeholder CursorInfo for the referenced symbol if this is the first
// time it's been seen.
func applyEntityReference(data *IndexData, r clangidx.EntityRefInfo) {
	ref := data.Symbols[r.Location]
	if ref.SymbolLength == 0 {
		ref.Kind = cursorinfo.KindReference
		ref.SymbolName = r.Name
		ref.SymbolLength = uint32(len(r.Name))
		ref.Target = r.Referenced
	}
	data.Symbols[r.Location] = ref

	reffed := data.Symbols[r.Referenced]
	if reffed.SymbolLength == 0 {
		reffed.SymbolName = ref.SymbolName
		reffed.SymbolLength = ref.SymbolLength
		reffed.Kind = r.Kind
	}
	if reffed.References == nil {
		reffed.References = make(map[location.Location]struct{})
	}
	reffed.References[r.Location] = struct{}{}
	data.Symbols[r.Referenced] = reffed
}
