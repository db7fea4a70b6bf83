package project

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cindexd/cindexd/internal/fileid"
	"github.com/cindexd/cindexd/internal/location"
)

func TestSocketPathForRoot_DeterministicForSameRoot(t *testing.T) {
	a := SocketPathForRoot("/tmp/projectA")
	b := SocketPathForRoot("/tmp/projectA")
	assert.Equal(t, a, b)
}

func TestSocketPathForRoot_DiffersAcrossRoots(t *testing.T) {
	a := SocketPathForRoot("/tmp/projectA")
	b := SocketPathForRoot("/tmp/projectB")
	assert.NotEqual(t, a, b)
}

func TestParseLocation_RoundTripsWithFormatLocation(t *testing.T) {
	loc := location.New(7, 42)
	decoded, err := parseLocation(formatLocation(loc))
	assert.NoError(t, err)
	assert.Equal(t, loc, decoded)
}

func TestParseLocation_FallsBackToFileIDOffsetPair(t *testing.T) {
	loc, err := parseLocation("7:42")
	assert.NoError(t, err)
	assert.Equal(t, uint32(7), loc.FileID())
	assert.Equal(t, uint32(42), loc.Offset())
}

func TestParseLocation_RejectsMalformed(t *testing.T) {
	_, err := parseLocation("not-a-location")
	assert.Error(t, err)
}

func TestFormatPaths_ResolvesLocationsToProjectRelativePaths(t *testing.T) {
	r := fileid.NewRegistry()
	id := r.Intern("/repo/src/main.cpp")
	s := &Server{Project: &Project{Root: "/repo", Registry: r}}

	paths := s.formatPaths([]location.Location{location.New(uint32(id), 10)})
	assert.Equal(t, []string{"src/main.cpp"}, paths)
}

func TestFormatPaths_UnknownFileIDLeavesEmptyEntry(t *testing.T) {
	r := fileid.NewRegistry()
	s := &Server{Project: &Project{Root: "/repo", Registry: r}}

	paths := s.formatPaths([]location.Location{location.New(999, 10)})
	assert.Equal(t, []string{""}, paths)
}
