// Package location implements the packed file/offset identifier used
// throughout the index: a Location is a byte offset into a single
// translation unit, named by the file id that offset belongs to rather
// than by a path string.
package location

import (
	"encoding/binary"

	"github.com/cindexd/cindexd/internal/encoding"
)

// Location packs a file id and a byte offset into that file into a
// single uint64: fileID in the lower 32 bits, offset in the upper 32
// bits. The zero value is Null.
type Location uint64

// Null is the location belonging to no file.
const Null Location = 0

// New packs a file id and offset into a Location. fileID 0 always
// yields Null regardless of offset, matching the reserved null file id.
func New(fileID uint32, offset uint32) Location {
	if fileID == 0 {
		return Null
	}
	return Location(encoding.PackUint32Pair(fileID, offset))
}

// FileID returns the file id component.
func (l Location) FileID() uint32 {
	fileID, _ := encoding.UnpackUint32Pair(uint64(l))
	return fileID
}

// Offset returns the byte offset component.
func (l Location) Offset() uint32 {
	_, offset := encoding.UnpackUint32Pair(uint64(l))
	return offset
}

// IsNull reports whether l names no location.
func (l Location) IsNull() bool {
	return l == Null
}

// WithOffset returns a copy of l with its offset replaced.
func (l Location) WithOffset(offset uint32) Location {
	return New(l.FileID(), offset)
}

// KeyLen is the length in bytes of a Key.
const KeyLen = 8

// Key is the on-disk, comparable byte form of a Location: file id in the
// first four bytes, offset in the last four, both big-endian. Sorting
// Keys lexicographically sorts first by file id, then by offset within
// a file -- exactly the order the stores rely on for per-file range
// scans, so no custom comparator is needed on top of bbolt's default
// byte-order bucket iteration.
type Key [KeyLen]byte

// ToKey renders l in its file-major, big-endian on-disk form.
func (l Location) ToKey() Key {
	var k Key
	binary.BigEndian.PutUint32(k[0:4], l.FileID())
	binary.BigEndian.PutUint32(k[4:8], l.Offset())
	return k
}

// FromKey parses the on-disk form produced by ToKey.
func FromKey(k Key) Location {
	fileID := binary.BigEndian.Uint32(k[0:4])
	offset := binary.BigEndian.Uint32(k[4:8])
	return New(fileID, offset)
}

// KeyFromBytes parses a raw byte slice of length KeyLen. It copies the
// first KeyLen bytes of b without checking its length (a shorter b
// leaves the remaining bytes zero) -- callers own validating store-read
// lengths before calling this, the same contract bbolt bucket keys
// already guarantee for values written by ToKey.
func KeyFromBytes(b []byte) Key {
	var k Key
	copy(k[:], b)
	return k
}

// FilePrefix returns the 4-byte big-endian prefix shared by every Key
// belonging to fileID, for use as a bbolt Cursor.Seek range bound when
// scanning all locations in one file.
func FilePrefix(fileID uint32) [4]byte {
	var p [4]byte
	binary.BigEndian.PutUint32(p[:], fileID)
	return p
}

// Less orders Locations file-major then offset-major, matching Key's
// byte ordering without needing to materialize keys.
func Less(a, b Location) bool {
	af, ao := a.FileID(), a.Offset()
	bf, bo := b.FileID(), b.Offset()
	if af != bf {
		return af < bf
	}
	return ao < bo
}
