package merge

import (
	"encoding/binary"

	"go.etcd.io/bbolt"

	"github.com/cindexd/cindexd/internal/cursorinfo"
	"github.com/cindexd/cindexd/internal/fileid"
	"github.com/cindexd/cindexd/internal/store"
)

// pchDependenciesKey is the one fixed key in BucketPCH that does not
// name a PCH path: it holds the map of every known PCH path to the set
// of file ids that depend on it, alongside the per-path USR tables
// that share the same bucket.
var pchDependenciesKey = []byte("dependencies")

// pchPass persists the PCH side of a bundle. A job that was itself
// building a precompiled header (IsPCH) has its emitted USR->CursorInfo
// table stored under its own path, so a later dependent job's seed
// lookup finds it. A job that depended on one or more PCH headers
// (PCHDeps) has its primary file id recorded against each of those
// headers in the dependency map, so a future reindex of the PCH itself
// knows which files to re-schedule.
func (e *Engine) pchPass(b Bundle) (int, error) {
	if !b.IsPCH && len(b.PCHDeps) == 0 {
		return 0, nil
	}

	written := 0
	err := e.Store.Update(store.BucketPCH, func(bucket *bbolt.Bucket) error {
		if b.IsPCH && len(b.Data.PCHUSRs) > 0 {
			path, ok := e.Registry.Path(fileid.ID(b.PrimaryFile))
			if ok {
				if err := bucket.Put([]byte(path), encodePCHUSRMap(b.Data.PCHUSRs)); err != nil {
					return err
				}
				written += len(b.Data.PCHUSRs)
			}
		}

		if len(b.PCHDeps) > 0 {
			deps := decodePCHDependencyMap(bucket.Get(pchDependenciesKey))
			for _, pchFileID := range b.PCHDeps {
				pchPath, ok := e.Registry.Path(fileid.ID(pchFileID))
				if !ok {
					continue
				}
				set, ok := deps[pchPath]
				if !ok {
					set = make(map[uint32]struct{})
					deps[pchPath] = set
				}
				set[b.PrimaryFile] = struct{}{}
			}
			if err := bucket.Put(pchDependenciesKey, encodePCHDependencyMap(deps)); err != nil {
				return err
			}
			written++
		}

		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// LoadPCHUSRs reads back the USR->CursorInfo table a prior PCH build
// stored under pchPath, for seeding a dependent job's indexjob.Job
// before it runs. A PCH never indexed yet (or whose entry was GC'd)
// reports an empty map and no error.
func (e *Engine) LoadPCHUSRs(pchPath string) (map[string]cursorinfo.CursorInfo, error) {
	var usrs map[string]cursorinfo.CursorInfo
	err := e.Store.View(store.BucketPCH, func(bucket *bbolt.Bucket) error {
		usrs = decodePCHUSRMap(bucket.Get([]byte(pchPath)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return usrs, nil
}

// PCHDependents reads back the set of file ids that depend on pchPath,
// used when a PCH header is reindexed to schedule everyone who built
// against it.
func (e *Engine) PCHDependents(pchPath string) (map[uint32]struct{}, error) {
	var dependents map[uint32]struct{}
	err := e.Store.View(store.BucketPCH, func(bucket *bbolt.Bucket) error {
		deps := decodePCHDependencyMap(bucket.Get(pchDependenciesKey))
		dependents = deps[pchPath]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dependents, nil
}

// encodePCHUSRMap renders a USR->CursorInfo table as a 4-byte entry
// count followed by, per entry, a 4-byte USR length, the USR bytes, a
// 4-byte value length, and cursorinfo.Marshal's bytes.
func encodePCHUSRMap(m map[string]cursorinfo.CursorInfo) []byte {
	size := 4
	marshaled := make(map[string][]byte, len(m))
	for usr, ci := range m {
		b := cursorinfo.Marshal(ci)
		marshaled[usr] = b
		size += 4 + len(usr) + 4 + len(b)
	}
	buf := make([]byte, size)
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(m)))
	off := 4
	for usr, b := range marshaled {
		binary.BigEndian.PutUint32(buf[off:off+4], uint32(len(usr)))
		off += 4
		copy(buf[off:off+len(usr)], usr)
		off += len(usr)
		binary.BigEndian.PutUint32(buf[off:off+4], uint32(len(b)))
		off += 4
		copy(buf[off:off+len(b)], b)
		off += len(b)
	}
	return buf
}

func decodePCHUSRMap(b []byte) map[string]cursorinfo.CursorInfo {
	m := make(map[string]cursorinfo.CursorInfo)
	if len(b) < 4 {
		return m
	}
	count := int(binary.BigEndian.Uint32(b[0:4]))
	off := 4
	for i := 0; i < count; i++ {
		if off+4 > len(b) {
			return m
		}
		n := int(binary.BigEndian.Uint32(b[off : off+4]))
		off += 4
		if off+n > len(b) {
			return m
		}
		usr := string(b[off : off+n])
		off += n

		if off+4 > len(b) {
			return m
		}
		vn := int(binary.BigEndian.Uint32(b[off : off+4]))
		off += 4
		if off+vn > len(b) {
			return m
		}
		ci, err := cursorinfo.Unmarshal(b[off : off+vn])
		off += vn
		if err != nil {
			continue
		}
		m[usr] = ci
	}
	return m
}

// encodePCHDependencyMap renders a path->fileIDs map as a 4-byte entry
// count followed by, per entry, a 4-byte path length, the path bytes,
// a 4-byte file id count, and each id as 4 big-endian bytes.
func encodePCHDependencyMap(m map[string]map[uint32]struct{}) []byte {
	size := 4
	for path, ids := range m {
		size += 4 + len(path) + 4 + 4*len(ids)
	}
	buf := make([]byte, size)
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(m)))
	off := 4
	for path, ids := range m {
		binary.BigEndian.PutUint32(buf[off:off+4], uint32(len(path)))
		off += 4
		copy(buf[off:off+len(path)], path)
		off += len(path)
		binary.BigEndian.PutUint32(buf[off:off+4], uint32(len(ids)))
		off += 4
		for id := range ids {
			binary.BigEndian.PutUint32(buf[off:off+4], id)
			off += 4
		}
	}
	return buf
}

func decodePCHDependencyMap(b []byte) map[string]map[uint32]struct{} {
	m := make(map[string]map[uint32]struct{})
	if len(b) < 4 {
		return m
	}
	count := int(binary.BigEndian.Uint32(b[0:4]))
	off := 4
	for i := 0; i < count; i++ {
		if off+4 > len(b) {
			return m
		}
		n := int(binary.BigEndian.Uint32(b[off : off+4]))
		off += 4
		if off+n > len(b) {
			return m
		}
		path := string(b[off : off+n])
		off += n

		if off+4 > len(b) {
			return m
		}
		idCount := int(binary.BigEndian.Uint32(b[off : off+4]))
		off += 4
		ids := make(map[uint32]struct{}, idCount)
		for j := 0; j < idCount; j++ {
			if off+4 > len(b) {
				return m
			}
			ids[binary.BigEndian.Uint32(b[off:off+4])] = struct{}{}
			off += 4
		}
		m[path] = ids
	}
	return m
}
