package merge

import (
	"encoding/binary"

	"go.etcd.io/bbolt"

	"github.com/cindexd/cindexd/internal/fileid"
	"github.com/cindexd/cindexd/internal/store"
)

// fileInformationPass writes (fileId -> {lastParsed, args}) for the
// bundle's primary file, then garbage-collects any other FileInformation
// key whose file id no longer resolves to a path in the registry -- a file
// that was removed from the tree and had its registry entry dropped
// (internal/fileid.Registry.Remove), matching Rdm.cpp's
// writeFileInformation plus the store-wide GC this merge step
// requires.
func (e *Engine) fileInformationPass(b Bundle) (int, error) {
	written := 0
	err := e.Store.Update(store.BucketFileInformation, func(bucket *bbolt.Bucket) error {
		key := encodeFileID(b.PrimaryFile)
		value := encodeFileInformation(b.ParsedAt.UnixNano(), b.Args)
		if err := bucket.Put(key, value); err != nil {
			return err
		}
		written++

		c := bucket.Cursor()
		var toDelete [][]byte
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if len(k) != 4 {
				continue
			}
			fileID := binary.BigEndian.Uint32(k)
			if fileID == b.PrimaryFile {
				continue
			}
			if _, ok := e.Registry.Path(fileid.ID(fileID)); !ok {
				toDelete = append(toDelete, append([]byte(nil), k...))
			}
		}
		for _, k := range toDelete {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

func encodeFileID(id uint32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], id)
	return buf
}
