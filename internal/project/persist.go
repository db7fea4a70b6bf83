package project

import (
	"encoding/binary"

	"go.etcd.io/bbolt"

	"github.com/cindexd/cindexd/internal/fileid"
	"github.com/cindexd/cindexd/internal/store"
)

// fileRegistryKey names the General bucket's snapshot of the file id
// registry, store.go's doc comment on BucketGeneral calls out as one
// of the "singleton records" it holds alongside the schema version.
var fileRegistryKey = []byte("fileRegistry")

// loadRegistry restores r from the General bucket's snapshot, if one
// was saved by a previous run. A fresh database simply leaves r
// empty, ids starting at 1 on first Intern.
func loadRegistry(s *store.Store, r *fileid.Registry) error {
	var entries []fileid.Entry
	err := s.View(store.BucketGeneral, func(b *bbolt.Bucket) error {
		entries = decodeRegistryEntries(b.Get(fileRegistryKey))
		return nil
	})
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		r.LoadEntries(entries)
	}
	return nil
}

// saveRegistry snapshots r's current path<->id mapping into the
// General bucket, so the next Open call resumes file ids exactly
// where this run left off rather than reassigning them (which would
// orphan every Location already written to the Symbol/SymbolName
// stores).
func saveRegistry(s *store.Store, r *fileid.Registry) error {
	entries := r.Entries()
	return s.Update(store.BucketGeneral, func(b *bbolt.Bucket) error {
		return b.Put(fileRegistryKey, encodeRegistryEntries(entries))
	})
}

// loadDependencyGraph rebuilds g's in-memory reverse adjacency from
// the persisted Dependency bucket, so a restarted project's
// dirtyDependents queries see the same edges the previous run's
// dependencyPass wrote, without waiting for every translation unit to
// be reparsed.
func loadDependencyGraph(s *store.Store, g interface{ AddEdge(uint32, uint32) bool }) error {
	return s.View(store.BucketDependency, func(b *bbolt.Bucket) error {
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if len(k) != 4 {
				continue
			}
			included := binary.BigEndian.Uint32(k)
			for _, includer := range decodeFileIDs(v) {
				g.AddEdge(includer, included)
			}
		}
		return nil
	})
}

func decodeFileIDs(b []byte) []uint32 {
	n := len(b) / 4
	ids := make([]uint32, n)
	for i := 0; i < n; i++ {
		ids[i] = binary.BigEndian.Uint32(b[i*4 : i*4+4])
	}
	return ids
}

// encodeRegistryEntries and decodeRegistryEntries render
// []fileid.Entry as a flat record: 4-byte count, then per entry a
// 4-byte id followed by a 4-byte path length and the path bytes --
// the same length-prefixed shape encodeFileInformation uses for its
// args vector.
func encodeRegistryEntries(entries []fileid.Entry) []byte {
	size := 4
	for _, e := range entries {
		size += 4 + 4 + len(e.Path)
	}
	buf := make([]byte, size)
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(entries)))
	off := 4
	for _, e := range entries {
		binary.BigEndian.PutUint32(buf[off:off+4], uint32(e.ID))
		off += 4
		binary.BigEndian.PutUint32(buf[off:off+4], uint32(len(e.Path)))
		off += 4
		copy(buf[off:off+len(e.Path)], e.Path)
		off += len(e.Path)
	}
	return buf
}

func decodeRegistryEntries(b []byte) []fileid.Entry {
	if len(b) < 4 {
		return nil
	}
	count := int(binary.BigEndian.Uint32(b[0:4]))
	off := 4
	entries := make([]fileid.Entry, 0, count)
	for i := 0; i < count; i++ {
		if off+8 > len(b) {
			return entries
		}
		id := binary.BigEndian.Uint32(b[off : off+4])
		off += 4
		n := int(binary.BigEndian.Uint32(b[off : off+4]))
		off += 4
		if off+n > len(b) {
			return entries
		}
		entries = append(entries, fileid.Entry{ID: fileid.ID(id), Path: string(b[off : off+n])})
		off += n
	}
	return entries
}

// readStoredArgs looks up a file's last-recorded compile arguments
// from the FileInformation store, used when rescheduling a
// translation unit root this process did not itself Compile (e.g. one
// restored from a previous run's FileInformation entries).
func readStoredArgs(s *store.Store, fileID uint32) ([]string, bool) {
	var args []string
	var ok bool
	_ = s.View(store.BucketFileInformation, func(b *bbolt.Bucket) error {
		var key [4]byte
		binary.BigEndian.PutUint32(key[:], fileID)
		v := b.Get(key[:])
		if v == nil {
			return nil
		}
		_, a, valid := decodeFileInformationValue(v)
		if !valid {
			return nil
		}
		args, ok = a, true
		return nil
	})
	return args, ok
}

// decodeFileInformationValue mirrors internal/merge's unexported
// decodeFileInformation: 8-byte parsedAt, 4-byte arg count, then each
// arg as a 4-byte length prefix plus bytes. Duplicated rather than
// exported since internal/merge's encoding is merge's private
// implementation detail, not a shared API.
func decodeFileInformationValue(b []byte) (parsedAt int64, args []string, ok bool) {
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
