package maskscan

import (
	"context"
	"fmt"

	hdf5 "github.com/jmbenlloch/go-hdf5"
	"golang.org/x/exp/slices"
)

// HDF5Source serves hits from the /nsw/hits table written by HitWriter.
// The table is read into memory once at open time.
type HDF5Source struct {
	Filename string
	hits     []Hit
	// offsets[e] is the index of the first hit of entry e.
	offsets []int
}

func OpenHDF5Hits(path string, withSector bool) (*HDF5Source, error) {
	file, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, &ErrOpenFile{Filename: path, Err: err}
	}
	defer file.Close()

	tablePath := hitsGroup + "/" + hitsTable
	var entries []int64
	var hits []Hit
	if withSector {
		rows, err := readTable[SectorHitRowHDF5](file, tablePath)
		if err != nil {
			return nil, err
		}
		entries, hits = sectorRowsToHits(rows)
	} else {
		rows, err := readTable[HitRowHDF5](file, tablePath)
		if err != nil {
			return nil, err
		}
		entries, hits = rowsToHits(rows)
	}

	src, err := newHDF5Source(path, entries, hits)
	if err != nil {
		return nil, err
	}
	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Read %d hits in %d entries from %s", len(hits), src.Entries(), path)
		logger.Info(message, "hdf5Source")
	}
	return src, nil
}

func rowsToHits(rows []HitRowHDF5) ([]int64, []Hit) {
	slices.SortStableFunc(rows, func(a, b HitRowHDF5) int {
		return compareEntries(a.Entry, b.Entry)
	})
	entries := make([]int64, len(rows))
	hits := make([]Hit, len(rows))
	for i, row := range rows {
		entries[i] = row.Entry
		hits[i] = Hit{
			Strip:   row.Strip,
			Vmm:     row.Vmm,
			Layer:   row.Layer,
			NHits:   row.NHits,
			Radius:  row.Radius,
			Channel: row.Channel,
		}
	}
	return entries, hits
}

func sectorRowsToHits(rows []SectorHitRowHDF5) ([]int64, []Hit) {
	slices.SortStableFunc(rows, func(a, b SectorHitRowHDF5) int {
		return compareEntries(a.Entry, b.Entry)
	})
	entries := make([]int64, len(rows))
	hits := make([]Hit, len(rows))
	for i, row := range rows {
		entries[i] = row.Entry
		hits[i] = Hit{
			Strip:   row.Strip,
			Vmm:     row.Vmm,
			Layer:   row.Layer,
			NHits:   row.NHits,
			Radius:  row.Radius,
			Channel: row.Channel,
			Sector:  row.Sector,
		}
	}
	return entries, hits
}

func compareEntries(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// newHDF5Source groups hits sorted by entry number. Entries without hits
// between the first and the last one are kept as empty entries.
func newHDF5Source(filename string, entries []int64, hits []Hit) (*HDF5Source, error) {
	src := &HDF5Source{Filename: filename, hits: hits}
	if len(hits) == 0 {
		return src, nil
	}
	if entries[0] < 0 {
		return nil, fmt.Errorf("%s: negative entry number %d", filename, entries[0])
	}
	nEntries := entries[len(entries)-1] + 1
	src.offsets = make([]int, nEntries+1)
	i := 0
	for e := int64(0); e < nEntries; e++ {
		src.offsets[e] = i
		for i < len(entries) && entries[i] == e {
			i++
		}
	}
	src.offsets[nEntries] = len(hits)
	return src, nil
}

func (s *HDF5Source) Entries() int64 {
	if len(s.offsets) == 0 {
		return 0
	}
	return int64(len(s.offsets) - 1)
}

func (s *HDF5Source) ReadRange(ctx context.Context, beg, end int64, fn EntryFunc) error {
	if beg < 0 || end > s.Entries() || beg > end {
		return fmt.Errorf("invalid entry range [%d, %d) of %d entries", beg, end, s.Entries())
	}
	for e := beg; e < end; e++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(e, s.hits[s.offsets[e]:s.offsets[e+1]]); err != nil {
			return err
		}
	}
	return nil
}

func (s *HDF5Source) Close() error {
	return nil
}
