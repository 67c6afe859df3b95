package maskscan

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

type AggregateOptions struct {
	// Workers is the number of entry ranges read concurrently. Values below
	// one mean one worker.
	Workers int
	// ProgressEvery is the number of entries between Progress calls.
	ProgressEvery int64
	// Progress, if set, is called with the number of processed entries.
	// Calls are serialized.
	Progress func(done, total int64)
}

func OptionsFromConfiguration(config Configuration) AggregateOptions {
	return AggregateOptions{
		Workers:       config.NumWorkers,
		ProgressEvery: config.ProgressEvery,
	}
}

type entryRange struct {
	beg, end int64
}

// splitEntries divides [0, total) into at most n contiguous ranges.
func splitEntries(total int64, n int) []entryRange {
	if total <= 0 {
		return nil
	}
	if n < 1 {
		n = 1
	}
	if int64(n) > total {
		n = int(total)
	}
	ranges := make([]entryRange, 0, n)
	size := total / int64(n)
	rest := total % int64(n)
	var beg int64
	for i := 0; i < n; i++ {
		end := beg + size
		if int64(i) < rest {
			end++
		}
		ranges = append(ranges, entryRange{beg: beg, end: end})
		beg = end
	}
	return ranges
}

// progressCounter counts processed entries across workers. The count and
// the callback share one lock, so reports arrive in increasing order.
type progressCounter struct {
	mu    sync.Mutex
	done  int64
	total int64
	every int64
	fn    func(done, total int64)
}

func (p *progressCounter) tick() {
	if p.fn == nil || p.every <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	if p.done%p.every == 0 {
		p.fn(p.done, p.total)
	}
}

// aggregate runs one worker per entry range. newShard returns the private
// state of a worker and the function filling it; the states are returned
// for merging once every worker has finished.
func aggregate[S any](ctx context.Context, src HitSource, opts AggregateOptions, newShard func() (S, EntryFunc)) ([]S, error) {
	total := src.Entries()
	ranges := splitEntries(total, opts.Workers)
	progress := &progressCounter{total: total, every: opts.ProgressEvery, fn: opts.Progress}

	shards := make([]S, len(ranges))
	g, gctx := errgroup.WithContext(ctx)
	for i, rg := range ranges {
		shard, fill := newShard()
		shards[i] = shard
		g.Go(func() error {
			return src.ReadRange(gctx, rg.beg, rg.end, func(entry int64, hits []Hit) error {
				if err := fill(entry, hits); err != nil {
					return err
				}
				progress.tick()
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return shards, nil
}

// resolveHit checks the vmm and channel of a hit and returns its board label.
func resolveHit(entry int64, hit Hit) (string, error) {
	if hit.Vmm >= NVmms || hit.Channel >= NChannels {
		return "", &ErrHitRange{Entry: entry, Vmm: hit.Vmm, Channel: hit.Channel}
	}
	return CoordinateToLabel(hit.Coordinate())
}
