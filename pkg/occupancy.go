package maskscan

import (
	"context"
	"fmt"

	"go-hep.org/x/hep/hbook"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ModuleCounts holds the masked-channel hit count of each flat channel.
type ModuleCounts [NBins]int64

func (c *ModuleCounts) Total() int64 {
	var n int64
	for _, v := range c {
		n += v
	}
	return n
}

// Occupancy is the result of Characterize: one counter per calibrated
// board, including boards that saw no masked hits.
type Occupancy struct {
	Sector  int
	Modules map[string]*ModuleCounts
}

// Characterize counts, per board, the hits landing on masked channels.
// Hits on unmasked or unknown channels are ignored. A hit on a board or vmm
// missing from the calibration of the given sector aborts the run.
func Characterize(ctx context.Context, cal *Calibration, sector int, src HitSource, opts AggregateOptions) (*Occupancy, error) {
	modules := cal.Modules(sector)
	if len(modules) == 0 {
		return nil, fmt.Errorf("calibration has no modules for sector %d", sector)
	}

	shards, err := aggregate(ctx, src, opts, func() (map[string]*ModuleCounts, EntryFunc) {
		counts := make(map[string]*ModuleCounts)
		fill := func(entry int64, hits []Hit) error {
			for _, hit := range hits {
				label, err := resolveHit(entry, hit)
				if err != nil {
					return err
				}
				status, err := cal.Lookup(sector, label, int(hit.Vmm), int(hit.Channel))
				if err != nil {
					return fmt.Errorf("entry %d: %w", entry, err)
				}
				if status != Masked {
					continue
				}
				c, ok := counts[label]
				if !ok {
					c = &ModuleCounts{}
					counts[label] = c
				}
				c[FlatChannel(int(hit.Vmm), int(hit.Channel))]++
			}
			return nil
		}
		return counts, fill
	})
	if err != nil {
		return nil, err
	}

	occ := &Occupancy{Sector: sector, Modules: make(map[string]*ModuleCounts, len(modules))}
	for _, label := range modules {
		occ.Modules[label] = &ModuleCounts{}
	}
	for _, shard := range shards {
		for label, counts := range shard {
			total := occ.Modules[label]
			for bin, n := range counts {
				total[bin] += n
			}
		}
	}
	return occ, nil
}

// Labels returns the board labels in lexical order.
func (o *Occupancy) Labels() []string {
	labels := maps.Keys(o.Modules)
	slices.Sort(labels)
	return labels
}

// Entries is the number of counted hits over all boards.
func (o *Occupancy) Entries() int64 {
	var n int64
	for _, counts := range o.Modules {
		n += counts.Total()
	}
	return n
}

// Histogram converts the counts of one board into a 512 bin histogram over
// [0, 512) named after the board.
func (o *Occupancy) Histogram(label string) (*hbook.H1D, error) {
	counts, ok := o.Modules[label]
	if !ok {
		return nil, &ErrMissingCalibration{Sector: o.Sector, Module: label, Vmm: -1}
	}
	h := hbook.NewH1D(NBins, 0, NBins)
	h.Annotation()["name"] = label
	h.Annotation()["title"] = label
	for bin, n := range counts {
		x := float64(bin) + 0.5
		for i := int64(0); i < n; i++ {
			h.Fill(x, 1)
		}
	}
	return h, nil
}

func (o *Occupancy) Histograms() map[string]*hbook.H1D {
	hists := make(map[string]*hbook.H1D, len(o.Modules))
	for label := range o.Modules {
		h, _ := o.Histogram(label)
		hists[label] = h
	}
	return hists
}
