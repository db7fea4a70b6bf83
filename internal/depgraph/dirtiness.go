package depgraph

import "time"

// FileInfo is the subset of a FileInformation store record the
// dirtiness algorithm needs: when the file was last successfully
// parsed, and which file ids its translation unit depended on as of
// that parse.
type FileInfo struct {
	Path       string
	LastParsed time.Time
	Deps       []uint32
}

// StatFunc reports a file's current on-disk modification time.
// exists is false if the file has been removed since it was indexed.
type StatFunc func(path string) (mtime time.Time, exists bool)

// ComputeDirty runs the dirtiness algorithm over every known file:
// a file is dirty if its own mtime has advanced past its last parse,
// if it no longer exists, or if any file it depends on is dirty
// (computed to a fixed point, since "dirty" propagates along deps()
// regardless of map iteration order). The returned set is the input
// to the merge engine's Dirtiness pass and the watcher's reparse
// enqueue step.
func ComputeDirty(files map[uint32]FileInfo, stat StatFunc) map[uint32]struct{} {
	dirty := make(map[uint32]struct{})

	for id, info := range files {
		mtime, exists := stat(info.Path)
		if !exists || mtime.After(info.LastParsed) {
			dirty[id] = struct{}{}
		}
	}

	for {
		grew := false
		for id, info := range files {
			if _, already := dirty[id]; already {
				continue
			}
			for _, dep := range info.Deps {
				if _, depDirty := dirty[dep]; depDirty {
					dirty[id] = struct{}{}
					grew = true
					break
				}
			}
		}
		if !grew {
			break
		}
	}

	return dirty
}
