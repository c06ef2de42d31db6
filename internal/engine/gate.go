package engine

import (
	"errors"

	"golang.org/x/sys/unix"
)

// ErrLowDiskSpace is reported by DiskGate.Check when free space on the
// output filesystem is below the configured threshold. It signals a
// pause, never a task failure: queued and in-flight tasks are kept.
var ErrLowDiskSpace = errors.New("low disk space")

// DiskGate checks free disk space before a worker pulls new work. The
// check is advisory per worker: a worker that already holds a dequeued
// task finishes it regardless.
type DiskGate struct {
	path    string
	minFree uint64

	// statfs reports free bytes for a path. Swapped out in tests.
	statfs func(path string) (uint64, error)
}

// NewDiskGate creates a gate over the filesystem containing path that
// pauses dequeues when free space drops to minFree bytes or below.
func NewDiskGate(path string, minFree uint64) *DiskGate {
	return &DiskGate{path: path, minFree: minFree, statfs: freeBytes}
}

// Check returns ErrLowDiskSpace when free space is at or below the
// threshold. Statfs failures are treated as passable: an unreadable
// filesystem must not stall the whole download.
func (g *DiskGate) Check() error {
	free, err := g.statfs(g.path)
	if err != nil {
		return nil
	}
	if free <= g.minFree {
		return ErrLowDiskSpace
	}
	return nil
}

func freeBytes(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	return st.Bavail * uint64(st.Bsize), nil
}
