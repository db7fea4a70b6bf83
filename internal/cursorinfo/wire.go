package cursorinfo

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/cindexd/cindexd/internal/location"
)

// Marshal encodes ci as the byte value stored under its Location's key
// in the Symbol bucket:
//
//	4 bytes  symbolLength
//	4 bytes  kind
//	1 byte   isDefinition
//	8 bytes  target (location.Key)
//	4 bytes  name length
//	N bytes  name
//	4 bytes  reference count
//	8*M bytes reference locations (location.Key each)
func Marshal(ci CursorInfo) []byte {
	name := []byte(ci.SymbolName)
	buf := make([]byte, 0, 4+4+1+location.KeyLen+4+len(name)+4+len(ci.References)*location.KeyLen)
	b := bytes.NewBuffer(buf)

	var tmp4 [4]byte
	binary.BigEndian.PutUint32(tmp4[:], ci.SymbolLength)
	b.Write(tmp4[:])

	binary.BigEndian.PutUint32(tmp4[:], uint32(ci.Kind))
	b.Write(tmp4[:])

	if ci.IsDefinition {
		b.WriteByte(1)
	} else {
		b.WriteByte(0)
	}

	targetKey := ci.Target.ToKey()
	b.Write(targetKey[:])

	binary.BigEndian.PutUint32(tmp4[:], uint32(len(name)))
	b.Write(tmp4[:])
	b.Write(name)

	binary.BigEndian.PutUint32(tmp4[:], uint32(len(ci.References)))
	b.Write(tmp4[:])
	for ref := range ci.References {
		k := ref.ToKey()
		b.Write(k[:])
	}

	return b.Bytes()
}

// Unmarshal decodes a byte value produced by Marshal.
func Unmarshal(data []byte) (CursorInfo, error) {
	const headerLen = 4 + 4 + 1 + location.KeyLen + 4
	if len(data) < headerLen {
		return CursorInfo{}, errors.Errorf("cursorinfo: truncated record, have %d bytes, need at least %d", len(data), headerLen)
	}

	ci := CursorInfo{}
	off := 0

	ci.SymbolLength = binary.BigEndian.Uint32(data[off : off+4])
	off += 4

	ci.Kind = Kind(binary.BigEndian.Uint32(data[off : off+4]))
	off += 4

	ci.IsDefinition = data[off] != 0
	off++

	ci.Target = location.FromKey(location.KeyFromBytes(data[off : off+location.KeyLen]))
	off += location.KeyLen

	nameLen := int(binary.BigEndian.Uint32(data[off : off+4]))
	off += 4
	if len(data) < off+nameLen+4 {
		return CursorInfo{}, errors.Errorf("cursorinfo: truncated record, name length %d exceeds remaining bytes", nameLen)
	}
	ci.SymbolName = string(data[off : off+nameLen])
	off += nameLen

	refCount := int(binary.BigEndian.Uint32(data[off : off+4]))
	off += 4
	if len(data) < off+refCount*location.KeyLen {
		return CursorInfo{}, errors.Errorf("cursorinfo: truncated record, reference count %d exceeds remaining bytes", refCount)
	}
	ci.References = make(map[location.Location]struct{}, refCount)
	for i := 0; i < refCount; i++ {
		start := off + i*location.KeyLen
		k := location.KeyFromBytes(data[start : start+location.KeyLen])
		ci.References[location.FromKey(k)] = struct{}{}
	}

	return ci, nil
}
