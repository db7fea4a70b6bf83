package cxierr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesKind(t *testing.T) {
	err := New(ParseFailed, errors.New("boom"))
	assert.True(t, Is(err, ParseFailed))
	assert.False(t, Is(err, StoreOpenFailed))
}

func TestIsMatchesWrappedKind(t *testing.T) {
	inner := New(BatchWriteFailed, errors.New("disk full"))
	outer := Wrap(BatchWriteFailed, inner, "flushing batch")
	assert.True(t, Is(outer, BatchWriteFailed))
}

func TestErrorStringIncludesKind(t *testing.T) {
	err := New(CancelRequested, nil)
	assert.Contains(t, err.Error(), "cancel requested")
}

func TestIsFalseForPlainError(t *testing.T) {
	assert.False(t, Is(errors.New("plain"), ParseFailed))
}
