package maskscan

// Summary counts channels by masking status and hit presence.
type Summary struct {
	MaskedWithHits      int64 `db:"masked_with_hits" json:"masked_with_hits"`
	MaskedWithoutHits   int64 `db:"masked_without_hits" json:"masked_without_hits"`
	UnmaskedWithHits    int64 `db:"unmasked_with_hits" json:"unmasked_with_hits"`
	UnmaskedWithoutHits int64 `db:"unmasked_without_hits" json:"unmasked_without_hits"`
	UnknownWithHits     int64 `db:"unknown_with_hits" json:"unknown_with_hits"`
	UnknownWithoutHits  int64 `db:"unknown_without_hits" json:"unknown_without_hits"`
}

// Fractions of the channels with a known masking status.
type Fractions struct {
	MaskedWithHits      float64
	MaskedWithoutHits   float64
	UnmaskedWithHits    float64
	UnmaskedWithoutHits float64
}

func (s *Summary) add(status Status, hit bool) {
	switch {
	case status == Masked && hit:
		s.MaskedWithHits++
	case status == Masked:
		s.MaskedWithoutHits++
	case status == Unmasked && hit:
		s.UnmaskedWithHits++
	case status == Unmasked:
		s.UnmaskedWithoutHits++
	case hit:
		s.UnknownWithHits++
	default:
		s.UnknownWithoutHits++
	}
}

func (s *Summary) Add(other Summary) {
	s.MaskedWithHits += other.MaskedWithHits
	s.MaskedWithoutHits += other.MaskedWithoutHits
	s.UnmaskedWithHits += other.UnmaskedWithHits
	s.UnmaskedWithoutHits += other.UnmaskedWithoutHits
	s.UnknownWithHits += other.UnknownWithHits
	s.UnknownWithoutHits += other.UnknownWithoutHits
}

// Known is the number of channels that are either masked or unmasked.
func (s Summary) Known() int64 {
	return s.MaskedWithHits + s.MaskedWithoutHits + s.UnmaskedWithHits + s.UnmaskedWithoutHits
}

func (s Summary) Masked() int64 {
	return s.MaskedWithHits + s.MaskedWithoutHits
}

func (s Summary) WithHits() int64 {
	return s.MaskedWithHits + s.UnmaskedWithHits
}

// Fractions normalizes the masked/unmasked counts to Known. Channels with
// unknown status are left out.
func (s Summary) Fractions() Fractions {
	known := s.Known()
	if known == 0 {
		return Fractions{}
	}
	total := float64(known)
	return Fractions{
		MaskedWithHits:      float64(s.MaskedWithHits) / total,
		MaskedWithoutHits:   float64(s.MaskedWithoutHits) / total,
		UnmaskedWithHits:    float64(s.UnmaskedWithHits) / total,
		UnmaskedWithoutHits: float64(s.UnmaskedWithoutHits) / total,
	}
}

// SummarizeSectors counts the channels of every calibrated sector.
func SummarizeSectors(res *CensusResult) map[int]Summary {
	sums := make(map[int]Summary)
	for _, sector := range res.Calibration.Sectors() {
		var sum Summary
		for _, label := range res.Calibration.Modules(sector) {
			mod := res.Calibration.Module(sector, label)
			mask := res.Hits[ModuleKey{Sector: sector, Module: label}]
			for v := 0; v < NVmms; v++ {
				for ch := 0; ch < NChannels; ch++ {
					sum.add(mod.Vmms[v].Status[ch], mask != nil && mask.Has(v, ch))
				}
			}
		}
		sums[sector] = sum
	}
	return sums
}

func Summarize(res *CensusResult) Summary {
	var total Summary
	for _, sum := range SummarizeSectors(res) {
		total.Add(sum)
	}
	return total
}
