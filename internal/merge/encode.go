package merge

import (
	"encoding/binary"

	"github.com/cindexd/cindexd/internal/location"
)

// encodeUint32Set renders a set of file ids as the Dependency store's
// concatenated 4-byte file ids value encoding, in the order Go happens
// to range the map -- order is irrelevant since the
// value is read back into a set.
func encodeUint32Set(set map[uint32]struct{}) []byte {
	buf := make([]byte, 4*len(set))
	i := 0
	for id := range set {
		binary.BigEndian.PutUint32(buf[i*4:i*4+4], id)
		i++
	}
	return buf
}

func decodeUint32Set(b []byte) map[uint32]struct{} {
	n := len(b) / 4
	set := make(map[uint32]struct{}, n)
	for i := 0; i < n; i++ {
		set[binary.BigEndian.Uint32(b[i*4:i*4+4])] = struct{}{}
	}
	return set
}

// encodeLocationSet renders a set of locations as the SymbolName
// store's "concatenated 8-byte location packs" value encoding.
func encodeLocationSet(set map[location.Location]struct{}) []byte {
	buf := make([]byte, 0, location.KeyLen*len(set))
	for loc := range set {
		k := loc.ToKey()
		buf = append(buf, k[:]...)
	}
	return buf
}

func decodeLocationSet(b []byte) map[location.Location]struct{} {
	n := len(b) / location.KeyLen
	set := make(map[location.Location]struct{}, n)
	for i := 0; i < n; i++ {
		var k location.Key
		copy(k[:], b[i*location.KeyLen:(i+1)*location.KeyLen])
		set[location.FromKey(k)] = struct{}{}
	}
	return set
}

// encodeFileInformation renders the FileInformation store's
// `{int64 mtime, vector<string> args}` value encoding: 8-byte
// big-endian unix-nano timestamp, 4-byte arg count, then each arg as
// a 4-byte length prefix followed by its bytes.
func encodeFileInformation(parsedAt int64, args []string) []byte {
	size := 8 + 4
	for _, a := range args {
		size += 4 + len(a)
	}
	buf := make([]byte, size)
	binary.BigEndian.PutUint64(buf[0:8], uint64(parsedAt))
	binary.BigEndian.PutUint32(buf[8:12], uint32(len(args)))
	off := 12
	for _, a := range args {
		binary.BigEndian.PutUint32(buf[off:off+4], uint32(len(a)))
		off += 4
		copy(buf[off:off+len(a)], a)
		off += len(a)
	}
	return buf
}

func decodeFileInformation(b []byte) (parsedAt int64, args []string, ok bool) {
	if len(b) < 12 {
		return 0, nil, false
	}
	parsedAt = int64(binary.BigEndian.Uint64(b[0:8]))
	count := int(binary.BigEndian.Uint32(b[8:12]))
	off := 12
	args = make([]string, 0, count)
	for i := 0; i < count; i++ {
		if off+4 > len(b) {
			return 0, nil, false
		}
		n := int(binary.BigEndian.Uint32(b[off : off+4]))
		off += 4
		if off+n > len(b) {
			return 0, nil, false
		}
		args = append(args, string(b[off:off+n]))
		off += n
	}
	return parsedAt, args, true
}
