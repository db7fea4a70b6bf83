package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddEdge_ReportsGrowth(t *testing.T) {
	g := New()
	assert.True(t, g.AddEdge(1, 2))
	assert.False(t, g.AddEdge(1, 2))
	assert.True(t, g.AddEdge(3, 2))
}

func TestIncluders_ReturnsDirectIncludersOnly(t *testing.T) {
	g := New()
	g.AddEdge(1, 2) // 1 includes 2
	g.AddEdge(3, 2) // 3 includes 2
	g.AddEdge(2, 4) // 2 includes 4

	includers := g.Includers(2)
	assert.ElementsMatch(t, []uint32{1, 3}, includers)
	assert.ElementsMatch(t, []uint32{2}, g.Includers(4))
	assert.Empty(t, g.Includers(99))
}

func TestDirtyDependents_TransitiveClosure(t *testing.T) {
	g := New()
	// a.h included by b.h, b.h included by c.cpp
	g.AddEdge(2, 1) // 2 (b.h) includes 1 (a.h)
	g.AddEdge(3, 2) // 3 (c.cpp) includes 2 (b.h)
	g.AddEdge(4, 1) // 4 (d.h) also includes 1 directly

	dependents := g.DirtyDependents([]uint32{1})
	assert.ElementsMatch(t, []uint32{1, 2, 3, 4}, dependents)
}

func TestDirtyDependents_MultipleRootsDeduped(t *testing.T) {
	g := New()
	g.AddEdge(2, 1)
	g.AddEdge(2, 3)

	dependents := g.DirtyDependents([]uint32{1, 3})
	assert.ElementsMatch(t, []uint32{1, 3, 2}, dependents)
}

func TestForget_RemovesIncludersRow(t *testing.T) {
	g := New()
	g.AddEdge(1, 2)
	g.Forget(2)
	assert.Empty(t, g.Includers(2))
}

func TestDirtyDependents_SelfEdgeDoesNotLoop(t *testing.T) {
	g := New()
	// a self-referential edge must not hang the BFS
	g.AddEdge(1, 1)
	g.AddEdge(2, 1)

	dependents := g.DirtyDependents([]uint32{1})
	assert.ElementsMatch(t, []uint32{1, 2}, dependents)
}
