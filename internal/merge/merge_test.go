package merge

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/cindexd/cindexd/internal/cursorinfo"
	"github.com/cindexd/cindexd/internal/depgraph"
	"github.com/cindexd/cindexd/internal/fileid"
	"github.com/cindexd/cindexd/internal/indexjob"
	"github.com/cindexd/cindexd/internal/location"
	"github.com/cindexd/cindexd/internal/store"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return New(s, depgraph.New(), fileid.NewRegistry())
}

func TestApply_FileInformationWrittenAndReadable(t *testing.T) {
	e := newTestEngine(t)
	now := time.Unix(1700000000, 0)
	data := indexjob.NewIndexData()

	stats, err := e.Apply(Bundle{
		Data:        data,
		PrimaryFile: 1,
		Args:        []string{"-std=c++17", "-Iinclude"},
		ParsedAt:    now,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FileInformationWritten)

	err = e.Store.View(store.BucketFileInformation, func(b *bbolt.Bucket) error {
		parsedAt, args, ok := decodeFileInformation(b.Get(encodeFileID(1)))
		require.True(t, ok)
		assert.Equal(t, now.UnixNano(), parsedAt)
		assert.Equal(t, []string{"-std=c++17", "-Iinclude"}, args)
		return nil
	})
	require.NoError(t, err)
}

func TestApply_SecondRunIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	data := indexjob.NewIndexData()
	data.addDependency(2, 1)
	data.addSymbolName("foo", location.New(1, 10))
	data.Symbols[location.New(1, 10)] = cursorinfo.CursorInfo{
		SymbolLength: 3,
		SymbolName:   "foo",
		Kind:         cursorinfo.KindFunctionDecl,
		IsDefinition: true,
		References:   map[location.Location]struct{}{},
	}

	b := Bundle{Data: data, PrimaryFile: 1, ParsedAt: time.Unix(1, 0)}

	first, err := e.Apply(b)
	require.NoError(t, err)
	assert.Equal(t, 1, first.DependencyWritten)
	assert.Equal(t, 1, first.SymbolNameWritten)
	assert.Equal(t, 1, first.SymbolWritten)

	second, err := e.Apply(b)
	require.NoError(t, err)
	assert.Equal(t, 0, second.DependencyWritten, "re-merging the same bundle must not grow any set")
	assert.Equal(t, 0, second.SymbolNameWritten)
	assert.Equal(t, 1, second.SymbolWritten, "primary-file locations are overwritten on every merge")
}

func TestDependencyPass_UnionsIncludersAndFeedsGraph(t *testing.T) {
	e := newTestEngine(t)
	data := indexjob.NewIndexData()
	data.addDependency(10, 5)

	_, err := e.dependencyPass(Bundle{Data: data})
	require.NoError(t, err)

	assert.ElementsMatch(t, []uint32{5}, e.Graph.Includers(10))

	err = e.Store.View(store.BucketDependency, func(b *bbolt.Bucket) error {
		set := decodeUint32Set(b.Get(encodeFileID(10)))
		assert.Contains(t, set, uint32(5))
		return nil
	})
	require.NoError(t, err)

	data2 := indexjob.NewIndexData()
	data2.addDependency(10, 7)
	n, err := e.dependencyPass(Bundle{Data: data2})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.ElementsMatch(t, []uint32{5, 7}, e.Graph.Includers(10))
}

func TestSymbolPass_PrimaryFileOverwritesOtherFilesUnite(t *testing.T) {
	e := newTestEngine(t)

	loc := location.New(2, 100)
	existing := cursorinfo.CursorInfo{
		SymbolLength: 3,
		SymbolName:   "bar",
		Kind:         cursorinfo.KindVarDecl,
		References:   map[location.Location]struct{}{location.New(9, 1): {}},
	}
	err := e.Store.Update(store.BucketSymbol, func(b *bbolt.Bucket) error {
		key := loc.ToKey()
		return b.Put(key[:], cursorinfo.Marshal(existing))
	})
	require.NoError(t, err)

	data := indexjob.NewIndexData()
	data.Symbols[loc] = cursorinfo.CursorInfo{
		References: map[location.Location]struct{}{location.New(9, 2): {}},
	}

	n, err := e.symbolPass(Bundle{Data: data, PrimaryFile: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	err = e.Store.View(store.BucketSymbol, func(b *bbolt.Bucket) error {
		key := loc.ToKey()
		merged, uErr := cursorinfo.Unmarshal(b.Get(key[:]))
		require.NoError(t, uErr)
		assert.Equal(t, "bar", merged.SymbolName, "uniting must preserve the existing identity")
		assert.Len(t, merged.References, 2, "uniting must union references rather than overwrite")
		return nil
	})
	require.NoError(t, err)

	primaryLoc := location.New(1, 1)
	data2 := indexjob.NewIndexData()
	data2.Symbols[primaryLoc] = cursorinfo.CursorInfo{SymbolName: "replaced"}
	err = e.Store.Update(store.BucketSymbol, func(b *bbolt.Bucket) error {
		key := primaryLoc.ToKey()
		return b.Put(key[:], cursorinfo.Marshal(cursorinfo.CursorInfo{SymbolName: "stale"}))
	})
	require.NoError(t, err)

	_, err = e.symbolPass(Bundle{Data: data2, PrimaryFile: 1})
	require.NoError(t, err)
	err = e.Store.View(store.BucketSymbol, func(b *bbolt.Bucket) error {
		key := primaryLoc.ToKey()
		ci, uErr := cursorinfo.Unmarshal(b.Get(key[:]))
		require.NoError(t, uErr)
		assert.Equal(t, "replaced", ci.SymbolName, "primary-file locations must overwrite outright")
		return nil
	})
	require.NoError(t, err)
}

func TestSymbolNamePass_PrunesLocationsFromDirtyFilesNotReEmitted(t *testing.T) {
	e := newTestEngine(t)

	stale := location.New(3, 1)
	fresh := location.New(4, 1)
	err := e.Store.Update(store.BucketSymbolName, func(b *bbolt.Bucket) error {
		set := map[location.Location]struct{}{stale: {}, fresh: {}}
		return b.Put([]byte("widget"), encodeLocationSet(set))
	})
	require.NoError(t, err)

	data := indexjob.NewIndexData()
	n, err := e.symbolNamePass(Bundle{
		Data:         data,
		DirtyFileIDs: map[uint32]struct{}{3: {}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	err = e.Store.View(store.BucketSymbolName, func(b *bbolt.Bucket) error {
		set := decodeLocationSet(b.Get([]byte("widget")))
		assert.NotContains(t, set, stale)
		assert.Contains(t, set, fresh)
		return nil
	})
	require.NoError(t, err)
}

func TestSymbolNamePass_KeepsLocationReEmittedForSameName(t *testing.T) {
	e := newTestEngine(t)

	loc := location.New(3, 1)
	err := e.Store.Update(store.BucketSymbolName, func(b *bbolt.Bucket) error {
		set := map[location.Location]struct{}{loc: {}}
		return b.Put([]byte("widget"), encodeLocationSet(set))
	})
	require.NoError(t, err)

	data := indexjob.NewIndexData()
	data.addSymbolName("widget", loc)

	_, err = e.symbolNamePass(Bundle{
		Data:         data,
		DirtyFileIDs: map[uint32]struct{}{3: {}},
	})
	require.NoError(t, err)

	err = e.Store.View(store.BucketSymbolName, func(b *bbolt.Bucket) error {
		set := decodeLocationSet(b.Get([]byte("widget")))
		assert.Contains(t, set, loc, "a location re-emitted this bundle must survive pruning")
		return nil
	})
	require.NoError(t, err)
}

func TestDirtinessPass_DeletesSymbolsForStaleFileNotReEmitted(t *testing.T) {
	e := newTestEngine(t)

	staleLoc := location.New(6, 1)
	err := e.Store.Update(store.BucketSymbol, func(b *bbolt.Bucket) error {
		key := staleLoc.ToKey()
		return b.Put(key[:], cursorinfo.Marshal(cursorinfo.CursorInfo{SymbolName: "gone"}))
	})
	require.NoError(t, err)
	err = e.Store.Update(store.BucketDependency, func(b *bbolt.Bucket) error {
		return b.Put(encodeFileID(6), encodeUint32Set(map[uint32]struct{}{1: {}}))
	})
	require.NoError(t, err)

	data := indexjob.NewIndexData()
	n, err := e.dirtinessPass(Bundle{
		Data:         data,
		PrimaryFile:  1,
		DirtyFileIDs: map[uint32]struct{}{6: {}},
	})
	require.NoError(t, err)
	assert.Greater(t, n, 0)

	err = e.Store.View(store.BucketSymbol, func(b *bbolt.Bucket) error {
		key := staleLoc.ToKey()
		assert.Nil(t, b.Get(key[:]))
		return nil
	})
	require.NoError(t, err)

	err = e.Store.View(store.BucketDependency, func(b *bbolt.Bucket) error {
		assert.Nil(t, b.Get(encodeFileID(6)))
		return nil
	})
	require.NoError(t, err)
}

func TestDirtinessPass_SkipsPrimaryFileAndReEmittedFiles(t *testing.T) {
	e := newTestEngine(t)

	data := indexjob.NewIndexData()
	data.Symbols[location.New(6, 1)] = cursorinfo.CursorInfo{SymbolName: "fresh"}

	n, err := e.dirtinessPass(Bundle{
		Data:         data,
		PrimaryFile:  1,
		DirtyFileIDs: map[uint32]struct{}{1: {}, 6: {}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, n, "the primary file and files this bundle re-emitted must not be purged")
}

func TestFileInformationPass_GCsOrphanedFileIDs(t *testing.T) {
	e := newTestEngine(t)
	err := e.Store.Update(store.BucketFileInformation, func(b *bbolt.Bucket) error {
		return b.Put(encodeFileID(99), encodeFileInformation(1, nil))
	})
	require.NoError(t, err)

	n, err := e.fileInformationPass(Bundle{PrimaryFile: 1, ParsedAt: time.Unix(1, 0)})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	err = e.Store.View(store.BucketFileInformation, func(b *bbolt.Bucket) error {
		assert.Nil(t, b.Get(encodeFileID(99)), "a file id with no registry path must be garbage collected")
		assert.NotNil(t, b.Get(encodeFileID(1)))
		return nil
	})
	require.NoError(t, err)
}
