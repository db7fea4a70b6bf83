package clangidx

import (
	"testing"

	"github.com/go-clang/v3.9/clang"
	"github.com/stretchr/testify/assert"

	"github.com/cindexd/cindexd/internal/cursorinfo"
)

func TestMapCursorKind(t *testing.T) {
	cases := []struct {
		in   clang.CursorKind
		want cursorinfo.Kind
	}{
		{clang.Cursor_FunctionDecl, cursorinfo.KindFunctionDecl},
		{clang.Cursor_CXXMethod, cursorinfo.KindCXXMethod},
		{clang.Cursor_Constructor, cursorinfo.KindConstructor},
		{clang.Cursor_Destructor, cursorinfo.KindDestructor},
		{clang.Cursor_VarDecl, cursorinfo.KindVarDecl},
		{clang.Cursor_ParmDecl, cursorinfo.KindParmDecl},
		{clang.Cursor_FieldDecl, cursorinfo.KindFieldDecl},
		{clang.Cursor_StructDecl, cursorinfo.KindStructDecl},
		{clang.Cursor_ClassDecl, cursorinfo.KindClassDecl},
		{clang.Cursor_ClassTemplate, cursorinfo.KindClassTemplate},
		{clang.Cursor_Namespace, cursorinfo.KindNamespace},
		{clang.Cursor_TypedefDecl, cursorinfo.KindTypedefDecl},
		{clang.Cursor_EnumDecl, cursorinfo.KindEnumDecl},
		{clang.Cursor_EnumConstantDecl, cursorinfo.KindEnumConstantDecl},
		{clang.Cursor_MacroDefinition, cursorinfo.KindMacroDefinition},
		{clang.Cursor_CallExpr, cursorinfo.KindInvalid},
	}

	for _, tt := range cases {
		assert.Equal(t, tt.want, mapCursorKind(tt.in))
	}
}

func TestIsScopeCarryingKind(t *testing.T) {
	assert.True(t, isScopeCarryingKind(clang.Cursor_Namespace))
	assert.True(t, isScopeCarryingKind(clang.Cursor_CXXMethod))
	assert.False(t, isScopeCarryingKind(clang.Cursor_VarDecl))
	assert.False(t, isScopeCarryingKind(clang.Cursor_CallExpr))
}

func TestNeedsScopeKinds(t *testing.T) {
	assert.True(t, needsScopeKinds(clang.Cursor_VarDecl))
	assert.True(t, needsScopeKinds(clang.Cursor_ClassTemplate))
	assert.False(t, needsScopeKinds(clang.Cursor_CallExpr))
	assert.False(t, needsScopeKinds(clang.Cursor_MacroDefinition))
}
