package query

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/cindexd/cindexd/internal/cursorinfo"
	"github.com/cindexd/cindexd/internal/location"
	"github.com/cindexd/cindexd/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func putSymbol(t *testing.T, s *store.Store, loc location.Location, ci cursorinfo.CursorInfo) {
	t.Helper()
	err := s.Update(store.BucketSymbol, func(b *bbolt.Bucket) error {
		key := loc.ToKey()
		return b.Put(key[:], cursorinfo.Marshal(ci))
	})
	require.NoError(t, err)
}

func putSymbolName(t *testing.T, s *store.Store, name string, locs ...location.Location) {
	t.Helper()
	set := make(map[location.Location]struct{}, len(locs))
	for _, l := range locs {
		set[l] = struct{}{}
	}
	err := s.Update(store.BucketSymbolName, func(b *bbolt.Bucket) error {
		buf := make([]byte, 0, location.KeyLen*len(set))
		for l := range set {
			k := l.ToKey()
			buf = append(buf, k[:]...)
		}
		return b.Put([]byte(name), buf)
	})
	require.NoError(t, err)
}

func TestFollowLocation_DeclarationWithNoTargetReturnsItself(t *testing.T) {
	s := newTestStore(t)
	decl := location.New(1, 10)
	putSymbol(t, s, decl, cursorinfo.CursorInfo{SymbolLength: 3, SymbolName: "foo"})

	j := New(s)
	target, found, err := j.FollowLocation(decl)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, decl, target)
}

func TestFollowLocation_ReferenceHopsToTarget(t *testing.T) {
	s := newTestStore(t)
	def := location.New(1, 10)
	ref := location.New(2, 5)
	putSymbol(t, s, def, cursorinfo.CursorInfo{SymbolLength: 3, SymbolName: "foo", IsDefinition: true})
	putSymbol(t, s, ref, cursorinfo.CursorInfo{Target: def})

	j := New(s)
	target, found, err := j.FollowLocation(ref)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, def, target)
}

func TestFollowLocation_UnknownLocationNotFound(t *testing.T) {
	s := newTestStore(t)
	j := New(s)
	_, found, err := j.FollowLocation(location.New(9, 9))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestReferencesForName_ResolvesThroughNameAndTarget(t *testing.T) {
	s := newTestStore(t)
	def := location.New(1, 10)
	ref1 := location.New(2, 5)
	ref2 := location.New(3, 7)
	putSymbol(t, s, def, cursorinfo.CursorInfo{
		SymbolLength: 3,
		SymbolName:   "foo",
		IsDefinition: true,
		References:   map[location.Location]struct{}{ref1: {}, ref2: {}},
	})
	putSymbolName(t, s, "foo", def)

	j := New(s)
	refs, err := j.ReferencesForName("foo", nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []location.Location{ref1, ref2}, refs)
}

func TestReferencesForName_UnknownNameReturnsEmpty(t *testing.T) {
	s := newTestStore(t)
	j := New(s)
	refs, err := j.ReferencesForName("missing", nil)
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestReferencesForName_HonorsCancellation(t *testing.T) {
	s := newTestStore(t)
	def := location.New(1, 10)
	putSymbolName(t, s, "foo", def)

	calls := 0
	cancel := func() bool {
		calls++
		return true
	}

	j := New(s)
	refs, err := j.ReferencesForName("foo", cancel)
	require.NoError(t, err)
	assert.Empty(t, refs)
	assert.Positive(t, calls)
}

func TestListSymbols_FiltersByPrefixInOrder(t *testing.T) {
	s := newTestStore(t)
	putSymbolName(t, s, "alpha", location.New(1, 1))
	putSymbolName(t, s, "alphabet", location.New(1, 2))
	putSymbolName(t, s, "beta", location.New(1, 3))

	j := New(s)
	names, err := j.ListSymbols("alpha", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "alphabet"}, names)
}

func TestListSymbols_EmptyPrefixListsEverything(t *testing.T) {
	s := newTestStore(t)
	putSymbolName(t, s, "alpha", location.New(1, 1))
	putSymbolName(t, s, "beta", location.New(1, 2))

	j := New(s)
	names, err := j.ListSymbols("", nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, names)
}

func TestValidateDB_FindsDanglingTarget(t *testing.T) {
	s := newTestStore(t)
	badTarget := location.New(4, 4)
	src := location.New(1, 1)
	putSymbol(t, s, src, cursorinfo.CursorInfo{Target: badTarget})

	j := New(s)
	report, err := j.ValidateDB(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Checked)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, "target has no CursorInfo", report.Violations[0].Reason)
}

func TestValidateDB_FindsDanglingSymbolNameEntry(t *testing.T) {
	s := newTestStore(t)
	putSymbolName(t, s, "ghost", location.New(5, 5))

	j := New(s)
	report, err := j.ValidateDB(nil)
	require.NoError(t, err)
	require.Len(t, report.Violations, 1)
	assert.Contains(t, report.Violations[0].Reason, "ghost")
}

func TestValidateDB_CleanStoreHasNoViolations(t *testing.T) {
	s := newTestStore(t)
	def := location.New(1, 1)
	ref := location.New(1, 2)
	putSymbol(t, s, def, cursorinfo.CursorInfo{
		SymbolLength: 1, SymbolName: "x", IsDefinition: true,
		References: map[location.Location]struct{}{ref: {}},
	})
	putSymbol(t, s, ref, cursorinfo.CursorInfo{Target: def})
	putSymbolName(t, s, "x", def)

	j := New(s)
	report, err := j.ValidateDB(nil)
	require.NoError(t, err)
	assert.Empty(t, report.Violations)
}
