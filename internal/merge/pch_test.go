package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/cindexd/cindexd/internal/cursorinfo"
	"github.com/cindexd/cindexd/internal/indexjob"
	"github.com/cindexd/cindexd/internal/location"
	"github.com/cindexd/cindexd/internal/store"
)

func TestPchPass_PersistsUSRMapForPCHBuild(t *testing.T) {
	e := newTestEngine(t)
	pchFileID := uint32(e.Registry.Intern("project/prefix.pch"))

	data := indexjob.NewIndexData()
	data.PCHUSRs["c:@F@foo#"] = cursorinfo.CursorInfo{
		SymbolLength: 3,
		SymbolName:   "foo",
		Kind:         cursorinfo.KindFunctionDecl,
		IsDefinition: true,
		References:   map[location.Location]struct{}{},
	}

	stats, err := e.Apply(Bundle{
		Data:        data,
		PrimaryFile: pchFileID,
		IsPCH:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PCHWritten)

	usrs, err := e.LoadPCHUSRs("project/prefix.pch")
	require.NoError(t, err)
	require.Contains(t, usrs, "c:@F@foo#")
	assert.Equal(t, "foo", usrs["c:@F@foo#"].SymbolName)
}

func TestPchPass_SkipsWhenNeitherIsPCHNorPCHDeps(t *testing.T) {
	e := newTestEngine(t)
	stats, err := e.Apply(Bundle{
		Data:        indexjob.NewIndexData(),
		PrimaryFile: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.PCHWritten)
}

func TestPchPass_RecordsDependentsForPCHDeps(t *testing.T) {
	e := newTestEngine(t)
	pchFileID := uint32(e.Registry.Intern("project/prefix.pch"))
	dependentFileID := uint32(e.Registry.Intern("project/main.cpp"))

	stats, err := e.Apply(Bundle{
		Data:        indexjob.NewIndexData(),
		PrimaryFile: dependentFileID,
		PCHDeps:     []uint32{pchFileID},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PCHWritten)

	dependents, err := e.PCHDependents("project/prefix.pch")
	require.NoError(t, err)
	assert.Contains(t, dependents, dependentFileID)
}

func TestPchPass_AccumulatesMultipleDependents(t *testing.T) {
	e := newTestEngine(t)
	pchFileID := uint32(e.Registry.Intern("project/prefix.pch"))
	first := uint32(e.Registry.Intern("project/a.cpp"))
	second := uint32(e.Registry.Intern("project/b.cpp"))

	_, err := e.Apply(Bundle{Data: indexjob.NewIndexData(), PrimaryFile: first, PCHDeps: []uint32{pchFileID}})
	require.NoError(t, err)
	_, err = e.Apply(Bundle{Data: indexjob.NewIndexData(), PrimaryFile: second, PCHDeps: []uint32{pchFileID}})
	require.NoError(t, err)

	dependents, err := e.PCHDependents("project/prefix.pch")
	require.NoError(t, err)
	assert.Len(t, dependents, 2)
	assert.Contains(t, dependents, first)
	assert.Contains(t, dependents, second)
}

func TestLoadPCHUSRs_UnknownPathReturnsEmptyWithoutError(t *testing.T) {
	e := newTestEngine(t)
	usrs, err := e.LoadPCHUSRs("never/indexed.pch")
	require.NoError(t, err)
	assert.Empty(t, usrs)
}

func TestPCHDependents_UnknownPathReturnsNilWithoutError(t *testing.T) {
	e := newTestEngine(t)
	dependents, err := e.PCHDependents("never/indexed.pch")
	require.NoError(t, err)
	assert.Empty(t, dependents)
}

func TestEncodeDecodePCHUSRMap_RoundTrips(t *testing.T) {
	m := map[string]cursorinfo.CursorInfo{
		"c:@F@foo#": {
			SymbolLength: 3,
			SymbolName:   "foo",
			Kind:         cursorinfo.KindFunctionDecl,
			IsDefinition: true,
			References:   map[location.Location]struct{}{location.New(1, 10): {}},
		},
		"c:@F@bar#": {
			SymbolLength: 3,
			SymbolName:   "bar",
			Kind:         cursorinfo.KindFunctionDecl,
			References:   map[location.Location]struct{}{},
		},
	}
	decoded := decodePCHUSRMap(encodePCHUSRMap(m))
	require.Len(t, decoded, 2)
	assert.Equal(t, m["c:@F@foo#"].SymbolName, decoded["c:@F@foo#"].SymbolName)
	assert.Equal(t, m["c:@F@bar#"].SymbolName, decoded["c:@F@bar#"].SymbolName)
}

func TestDecodePCHUSRMap_EmptyBytesReturnsEmptyMap(t *testing.T) {
	assert.Empty(t, decodePCHUSRMap(nil))
	assert.Empty(t, decodePCHUSRMap([]byte{}))
}

func TestEncodeDecodePCHDependencyMap_RoundTrips(t *testing.T) {
	m := map[string]map[uint32]struct{}{
		"project/prefix.pch": {1: {}, 2: {}},
		"project/other.pch":  {3: {}},
	}
	decoded := decodePCHDependencyMap(encodePCHDependencyMap(m))
	require.Len(t, decoded, 2)
	assert.Len(t, decoded["project/prefix.pch"], 2)
	assert.Contains(t, decoded["project/prefix.pch"], uint32(1))
	assert.Contains(t, decoded["project/prefix.pch"], uint32(2))
	assert.Contains(t, decoded["project/other.pch"], uint32(3))
}

func TestDecodePCHDependencyMap_EmptyBytesReturnsEmptyMap(t *testing.T) {
	assert.Empty(t, decodePCHDependencyMap(nil))
	assert.Empty(t, decodePCHDependencyMap([]byte{}))
}

func TestApply_SecondPCHApplyIsIdempotentOnDependents(t *testing.T) {
	e := newTestEngine(t)
	pchFileID := uint32(e.Registry.Intern("project/prefix.pch"))
	dependentFileID := uint32(e.Registry.Intern("project/main.cpp"))

	b := Bundle{Data: indexjob.NewIndexData(), PrimaryFile: dependentFileID, PCHDeps: []uint32{pchFileID}}

	_, err := e.Apply(b)
	require.NoError(t, err)
	_, err = e.Apply(b)
	require.NoError(t, err)

	dependents, err := e.PCHDependents("project/prefix.pch")
	require.NoError(t, err)
	assert.Len(t, dependents, 1, "re-merging the same dependent must not duplicate its entry")
}

func TestPchPass_BucketContainsRawEncodedBytes(t *testing.T) {
	e := newTestEngine(t)
	pchFileID := uint32(e.Registry.Intern("project/prefix.pch"))

	data := indexjob.NewIndexData()
	data.PCHUSRs["c:@F@foo#"] = cursorinfo.CursorInfo{SymbolName: "foo", References: map[location.Location]struct{}{}}

	_, err := e.Apply(Bundle{Data: data, PrimaryFile: pchFileID, IsPCH: true})
	require.NoError(t, err)

	err = e.Store.View(store.BucketPCH, func(b *bbolt.Bucket) error {
		raw := b.Get([]byte("project/prefix.pch"))
		require.NotEmpty(t, raw)
		decoded := decodePCHUSRMap(raw)
		assert.Contains(t, decoded, "c:@F@foo#")
		return nil
	})
	require.NoError(t, err)
}
