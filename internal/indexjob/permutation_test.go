package indexjob

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cindexd/cindexd/internal/clangidx"
	"github.com/cindexd/cindexd/internal/cursorinfo"
)

func TestPermutations_Empty(t *testing.T) {
	assert.Nil(t, Permutations(nil))
}

func TestPermutations_FunctionNoScope(t *testing.T) {
	chain := []clangidx.ScopeFrame{
		{Kind: cursorinfo.KindFunctionDecl, DisplayName: "bar(int)"},
	}

	got := Permutations(chain)
	assert.Contains(t, got, "bar(int)")
	assert.Contains(t, got, "bar")
}

func TestPermutations_QualifiedMethod(t *testing.T) {
	chain := []clangidx.ScopeFrame{
		{Kind: cursorinfo.KindCXXMethod, DisplayName: "bar(int)"},
		{Kind: cursorinfo.KindClassDecl, DisplayName: "Foo"},
		{Kind: cursorinfo.KindNamespace, DisplayName: "ns"},
	}

	got := Permutations(chain)
	assert.Contains(t, got, "ns::Foo::bar(int)")
	assert.Contains(t, got, "ns::Foo::bar")
	// outermost bare name
	assert.Contains(t, got, "ns")
}

func TestPermutations_TemplateBareform(t *testing.T) {
	chain := []clangidx.ScopeFrame{
		{Kind: cursorinfo.KindConstructor, DisplayName: "Vector<int>(int)"},
	}

	got := Permutations(chain)
	assert.Contains(t, got, "Vector<int>(int)")
	assert.Contains(t, got, "Vector<int>")
	assert.Contains(t, got, "Vector(int)")
	assert.Contains(t, got, "Vector")
}

func TestPermutations_NonTemplateKindSkipsBareform(t *testing.T) {
	chain := []clangidx.ScopeFrame{
		{Kind: cursorinfo.KindFunctionDecl, DisplayName: "foo<int>(int)"},
	}

	got := Permutations(chain)
	assert.Contains(t, got, "foo<int>(int)")
	assert.NotContains(t, got, "foo(int)")
}

func TestPermutations_DeduplicatesForms(t *testing.T) {
	chain := []clangidx.ScopeFrame{
		{Kind: cursorinfo.KindVarDecl, DisplayName: "x"},
	}

	got := Permutations(chain)
	counts := make(map[string]int)
	for _, s := range got {
		counts[s]++
	}
	for s, c := range counts {
		assert.Equal(t, 1, c, "form %q should appear once, got %d", s, c)
	}
}
