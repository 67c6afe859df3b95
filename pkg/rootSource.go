package maskscan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go-hep.org/x/hep/groot/rtree"
	"golang.org/x/exp/slices"
)

// RootSource reads hits from a chain of ROOT files holding the same tree.
// Every ReadRange opens its own chain so ranges can be read concurrently.
type RootSource struct {
	Files      []string
	Tree       string
	WithSector bool
	entries    int64
}

// OpenRootFile opens a single ROOT file.
func OpenRootFile(path string, tree string, withSector bool) (*RootSource, error) {
	return OpenRootFiles([]string{path}, tree, withSector)
}

// OpenRootChain chains every ROOT file in dir whose name contains run.
func OpenRootChain(dir string, run string, tree string, withSector bool) (*RootSource, error) {
	files, err := FindRunFiles(dir, run, ".root")
	if err != nil {
		return nil, err
	}
	return OpenRootFiles(files, tree, withSector)
}

func OpenRootFiles(files []string, tree string, withSector bool) (*RootSource, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no ROOT files to read")
	}
	for _, fname := range files {
		if _, err := os.Stat(fname); err != nil {
			return nil, &ErrOpenFile{Filename: fname, Err: err}
		}
	}

	src := &RootSource{Files: files, Tree: tree, WithSector: withSector}
	t, closeChain, err := rtree.ChainOf(tree, files...)
	if err != nil {
		return nil, &ErrOpenFile{Filename: strings.Join(files, ","), Err: err}
	}
	src.entries = t.Entries()
	if err := closeChain(); err != nil {
		return nil, err
	}
	return src, nil
}

// FindRunFiles lists the regular files of dir with the given extension
// whose name contains run, sorted by name.
func FindRunFiles(dir string, run string, ext string) ([]string, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &ErrOpenFile{Filename: dir, Err: err}
	}
	var files []string
	for _, entry := range dirEntries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ext) || !strings.Contains(name, run) {
			continue
		}
		if configuration.Verbosity > 1 {
			logger.Info(fmt.Sprintf("Added to chain: %s", name), "rootSource")
		}
		files = append(files, filepath.Join(dir, name))
	}
	if len(files) == 0 {
		return nil, &ErrOpenFile{Filename: filepath.Join(dir, "*"+run+"*"+ext), Err: os.ErrNotExist}
	}
	slices.Sort(files)
	return files, nil
}

type column struct {
	name string
	len  int
}

func (s *RootSource) Entries() int64 {
	return s.entries
}

func (s *RootSource) ReadRange(ctx context.Context, beg, end int64, fn EntryFunc) error {
	if beg >= end {
		return nil
	}
	t, closeChain, err := rtree.ChainOf(s.Tree, s.Files...)
	if err != nil {
		return &ErrOpenFile{Filename: strings.Join(s.Files, ","), Err: err}
	}
	defer closeChain()

	var (
		strips   []int32
		vmmids   []uint32
		layers   []uint32
		nhits    []uint32
		radii    []uint32
		channels []uint32
		sectors  []int32
	)
	rvars := []rtree.ReadVar{
		{Name: "strip", Value: &strips},
		{Name: "vmmid", Value: &vmmids},
		{Name: "layer", Value: &layers},
		{Name: "nhits", Value: &nhits},
		{Name: "radius", Value: &radii},
		{Name: "channel", Value: &channels},
	}
	if s.WithSector {
		rvars = append(rvars, rtree.ReadVar{Name: "sector", Value: &sectors})
	}

	r, err := rtree.NewReader(t, rvars, rtree.WithRange(beg, end))
	if err != nil {
		return fmt.Errorf("could not create reader for tree %q: %w", s.Tree, err)
	}
	defer r.Close()

	hits := make([]Hit, 0, 64)
	return r.Read(func(rctx rtree.RCtx) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := len(strips)
		columns := []column{
			{"vmmid", len(vmmids)},
			{"layer", len(layers)},
			{"nhits", len(nhits)},
			{"radius", len(radii)},
			{"channel", len(channels)},
		}
		if s.WithSector {
			columns = append(columns, column{"sector", len(sectors)})
		}
		for _, c := range columns {
			if c.len != n {
				return &ErrColumnMismatch{Entry: rctx.Entry, Column: c.name, Len: c.len, Want: n}
			}
		}

		hits = hits[:0]
		for i := 0; i < n; i++ {
			hit := Hit{
				Strip:   strips[i],
				Vmm:     vmmids[i],
				Layer:   layers[i],
				NHits:   nhits[i],
				Radius:  radii[i],
				Channel: channels[i],
			}
			if s.WithSector {
				hit.Sector = sectors[i]
			}
			hits = append(hits, hit)
		}
		return fn(rctx.Entry, hits)
	})
}

func (s *RootSource) Close() error {
	return nil
}
