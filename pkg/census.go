package maskscan

import (
	"context"
	"strconv"
)

// HitMask has one bit per channel of each vmm of a board.
type HitMask [NVmms]uint64

func (m *HitMask) Set(vmm, channel int) {
	m[vmm] |= 1 << uint(channel)
}

func (m *HitMask) Has(vmm, channel int) bool {
	return m[vmm]&(1<<uint(channel)) != 0
}

func (m *HitMask) Merge(other *HitMask) {
	for i := range m {
		m[i] |= other[i]
	}
}

// CensusResult combines the calibration with the channels that saw hits.
type CensusResult struct {
	Calibration *Calibration
	Hits        map[ModuleKey]*HitMask
	// Orphans counts hits on boards that are not in the calibration of
	// their sector. They do not appear in the census document.
	Orphans int64
}

// Census marks every (sector, board, vmm, channel) that recorded at least
// one hit.
func Census(ctx context.Context, cal *Calibration, src HitSource, opts AggregateOptions) (*CensusResult, error) {
	type shard struct {
		hits    map[ModuleKey]*HitMask
		orphans int64
	}

	shards, err := aggregate(ctx, src, opts, func() (*shard, EntryFunc) {
		s := &shard{hits: make(map[ModuleKey]*HitMask)}
		fill := func(entry int64, hits []Hit) error {
			for _, hit := range hits {
				label, err := resolveHit(entry, hit)
				if err != nil {
					return err
				}
				key := ModuleKey{Sector: int(hit.Sector), Module: label}
				mask, ok := s.hits[key]
				if !ok {
					if !cal.Has(key) {
						s.orphans++
						continue
					}
					mask = &HitMask{}
					s.hits[key] = mask
				}
				mask.Set(int(hit.Vmm), int(hit.Channel))
			}
			return nil
		}
		return s, fill
	})
	if err != nil {
		return nil, err
	}

	res := &CensusResult{Calibration: cal, Hits: make(map[ModuleKey]*HitMask)}
	for _, s := range shards {
		res.Orphans += s.orphans
		for key, mask := range s.hits {
			total, ok := res.Hits[key]
			if !ok {
				total = &HitMask{}
				res.Hits[key] = total
			}
			total.Merge(mask)
		}
	}
	return res, nil
}

func (r *CensusResult) HitSeen(sector int, module string, vmm, channel int) bool {
	mask, ok := r.Hits[ModuleKey{Sector: sector, Module: module}]
	if !ok {
		return false
	}
	return mask.Has(vmm, channel)
}

// ChannelState is the serialized [masking status, hit seen] pair.
type ChannelState [2]int

// CensusDocument is the nested sector -> board -> vmm -> channels layout of
// the census output.
type CensusDocument map[string]map[string]map[string][]ChannelState

// Document builds the nested census layout. Sectors are written as signed
// decimal strings.
func (r *CensusResult) Document() CensusDocument {
	doc := make(CensusDocument)
	for _, sector := range r.Calibration.Sectors() {
		modules := make(map[string]map[string][]ChannelState)
		for _, label := range r.Calibration.Modules(sector) {
			mod := r.Calibration.Module(sector, label)
			mask := r.Hits[ModuleKey{Sector: sector, Module: label}]
			vmms := make(map[string][]ChannelState, NVmms)
			for v := 0; v < NVmms; v++ {
				channels := make([]ChannelState, NChannels)
				for ch := 0; ch < NChannels; ch++ {
					channels[ch][0] = int(mod.Vmms[v].Status[ch])
					if mask != nil && mask.Has(v, ch) {
						channels[ch][1] = 1
					}
				}
				vmms[VmmLabel(v)] = channels
			}
			modules[label] = vmms
		}
		doc[strconv.Itoa(sector)] = modules
	}
	return doc
}
