package depgraph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedStat(mtimes map[string]time.Time, missing map[string]bool) StatFunc {
	return func(path string) (time.Time, bool) {
		if missing[path] {
			return time.Time{}, false
		}
		return mtimes[path], true
	}
}

func TestComputeDirty_StaleMtimeMarksFileDirty(t *testing.T) {
	lastParsed := time.Unix(1000, 0)
	files := map[uint32]FileInfo{
		1: {Path: "a.c", LastParsed: lastParsed},
	}
	stat := fixedStat(map[string]time.Time{"a.c": lastParsed.Add(time.Second)}, nil)

	dirty := ComputeDirty(files, stat)
	assert.Contains(t, dirty, uint32(1))
}

func TestComputeDirty_UnchangedFileStaysClean(t *testing.T) {
	lastParsed := time.Unix(1000, 0)
	files := map[uint32]FileInfo{
		1: {Path: "a.c", LastParsed: lastParsed},
	}
	stat := fixedStat(map[string]time.Time{"a.c": lastParsed}, nil)

	dirty := ComputeDirty(files, stat)
	assert.NotContains(t, dirty, uint32(1))
}

func TestComputeDirty_RemovedFileIsDirty(t *testing.T) {
	lastParsed := time.Unix(1000, 0)
	files := map[uint32]FileInfo{
		1: {Path: "a.c", LastParsed: lastParsed},
	}
	stat := fixedStat(nil, map[string]bool{"a.c": true})

	dirty := ComputeDirty(files, stat)
	assert.Contains(t, dirty, uint32(1))
}

func TestComputeDirty_PropagatesThroughDeps(t *testing.T) {
	lastParsed := time.Unix(1000, 0)
	files := map[uint32]FileInfo{
		1: {Path: "a.h", LastParsed: lastParsed},
		2: {Path: "b.c", LastParsed: lastParsed, Deps: []uint32{1}},
	}
	stat := fixedStat(map[string]time.Time{
		"a.h": lastParsed.Add(time.Second),
		"b.c": lastParsed,
	}, nil)

	dirty := ComputeDirty(files, stat)
	assert.Contains(t, dirty, uint32(1))
	assert.Contains(t, dirty, uint32(2))
}

func TestComputeDirty_PropagatesTransitively(t *testing.T) {
	lastParsed := time.Unix(1000, 0)
	files := map[uint32]FileInfo{
		1: {Path: "a.h", LastParsed: lastParsed},
		2: {Path: "b.h", LastParsed: lastParsed, Deps: []uint32{1}},
		3: {Path: "c.c", LastParsed: lastParsed, Deps: []uint32{2}},
	}
	stat := fixedStat(map[string]time.Time{
		"a.h": lastParsed.Add(time.Second),
		"b.h": lastParsed,
		"c.c": lastParsed,
	}, nil)

	dirty := ComputeDirty(files, stat)
	assert.Contains(t, dirty, uint32(1))
	assert.Contains(t, dirty, uint32(2))
	assert.Contains(t, dirty, uint32(3))
}

func TestComputeDirty_NoDependencyNoPropagation(t *testing.T) {
	lastParsed := time.Unix(1000, 0)
	files := map[uint32]FileInfo{
		1: {Path: "a.h", LastParsed: lastParsed},
		2: {Path: "unrelated.c", LastParsed: lastParsed},
	}
	stat := fixedStat(map[string]time.Time{
		"a.h":         lastParsed.Add(time.Second),
		"unrelated.c": lastParsed,
	}, nil)

	dirty := ComputeDirty(files, stat)
	assert.Contains(t, dirty, uint32(1))
	assert.NotContains(t, dirty, uint32(2))
}
