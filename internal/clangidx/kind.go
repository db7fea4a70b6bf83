package clangidx

import (
	"github.com/go-clang/v3.9/clang"

	"github.com/cindexd/cindexd/internal/cursorinfo"
)

// mapCursorKind reduces the full libclang cursor-kind enumeration down to
// the handful of kinds the merge engine and query layer branch on. Any
// cursor kind not explicitly listed stores as KindInvalid; the merge engine
// treats these as opaque "something was declared here" records without
// needing to recognize them.
func mapCursorKind(k clang.CursorKind) cursorinfo.Kind {
	switch k {
	case clang.Cursor_FunctionDecl:
		return cursorinfo.KindFunctionDecl
	case clang.Cursor_CXXMethod:
		return cursorinfo.KindCXXMethod
	case clang.Cursor_Constructor:
		return cursorinfo.KindConstructor
	case clang.Cursor_Destructor:
		return cursorinfo.KindDestructor
	case clang.Cursor_VarDecl:
		return cursorinfo.KindVarDecl
	case clang.Cursor_ParmDecl:
		return cursorinfo.KindParmDecl
	case clang.Cursor_FieldDecl:
		return cursorinfo.KindFieldDecl
	case clang.Cursor_StructDecl:
		return cursorinfo.KindStructDecl
	case clang.Cursor_ClassDecl:
		return cursorinfo.KindClassDecl
	case clang.Cursor_ClassTemplate:
		return cursorinfo.KindClassTemplate
	case clang.Cursor_Namespace:
		return cursorinfo.KindNamespace
	case clang.Cursor_TypedefDecl:
		return cursorinfo.KindTypedefDecl
	case clang.Cursor_EnumDecl:
		return cursorinfo.KindEnumDecl
	case clang.Cursor_EnumConstantDecl:
		return cursorinfo.KindEnumConstantDecl
	case clang.Cursor_MacroDefinition:
		return cursorinfo.KindMacroDefinition
	default:
		return cursorinfo.KindInvalid
	}
}

// scopeCarryingKinds lists the cursor kinds whose display name contributes
// a qualifying scope segment when walking up the semantic-parent chain for
// name permutation: CXCursor_Namespace/ClassDecl/ClassTemplate/
// StructDecl/CXXMethod/Constructor/Destructor/FunctionDecl.
func isScopeCarryingKind(k clang.CursorKind) bool {
	switch k {
	case clang.Cursor_Namespace,
		clang.Cursor_ClassDecl,
		clang.Cursor_ClassTemplate,
		clang.Cursor_StructDecl,
		clang.Cursor_CXXMethod,
		clang.Cursor_Constructor,
		clang.Cursor_Destructor,
		clang.Cursor_FunctionDecl:
		return true
	default:
		return false
	}
}

// needsScopeKinds lists the declaration kinds whose semantic-parent chain
// scopeChain walks past the declaration's own frame; for every other
// kind the chain holds only that one frame.
func needsScopeKinds(k clang.CursorKind) bool {
	switch k {
	case clang.Cursor_Namespace,
		clang.Cursor_ClassDecl,
		clang.Cursor_StructDecl,
		clang.Cursor_CXXMethod,
		clang.Cursor_Constructor,
		clang.Cursor_FunctionDecl,
		clang.Cursor_Destructor,
		clang.Cursor_VarDecl,
		clang.Cursor_ParmDecl,
		clang.Cursor_FieldDecl,
		clang.Cursor_ClassTemplate:
		return true
	default:
		return false
	}
}
