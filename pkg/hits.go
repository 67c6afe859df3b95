package maskscan

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Hit is one strip hit of a read-out entry.
type Hit struct {
	Strip   int32
	Vmm     uint32
	Layer   uint32
	NHits   uint32
	Radius  uint32
	Channel uint32
	Sector  int32
}

func (h Hit) Coordinate() Coordinate {
	return Coordinate{Layer: int(h.Layer), Radius: int(h.Radius)}
}

// EntryFunc receives the hits of one entry. The slice is reused between
// calls and must not be retained.
type EntryFunc func(entry int64, hits []Hit) error

// HitSource is a read-only table of entries, each holding a variable number
// of hits. ReadRange visits entries [beg, end) in order and must be safe to
// call from several goroutines on disjoint ranges.
type HitSource interface {
	Entries() int64
	ReadRange(ctx context.Context, beg, end int64, fn EntryFunc) error
	Close() error
}

// MemorySource serves entries kept in memory.
type MemorySource struct {
	Data [][]Hit
}

func NewMemorySource(entries ...[]Hit) *MemorySource {
	return &MemorySource{Data: entries}
}

func (m *MemorySource) Entries() int64 {
	return int64(len(m.Data))
}

func (m *MemorySource) ReadRange(ctx context.Context, beg, end int64, fn EntryFunc) error {
	if beg < 0 || end > m.Entries() || beg > end {
		return fmt.Errorf("invalid entry range [%d, %d) of %d entries", beg, end, m.Entries())
	}
	for i := beg; i < end; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(i, m.Data[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemorySource) Close() error {
	return nil
}

// OpenHitSource opens a ROOT or HDF5 hit file according to its extension.
// withSector selects whether the per-hit sector column is read.
func OpenHitSource(path string, config Configuration, withSector bool) (HitSource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".root":
		return OpenRootFile(path, config.TreeName, withSector)
	case ".h5", ".hdf5":
		return OpenHDF5Hits(path, withSector)
	default:
		return nil, fmt.Errorf("unknown hit file type %q", path)
	}
}
