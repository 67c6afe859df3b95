package maskscan

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCalibration(t *testing.T, sector int, boards []string, overrides map[string]map[string]any) *Calibration {
	t.Helper()
	cal := NewCalibration()
	data := calibrationDoc(t, boards, overrides)
	require.NoError(t, ParseCalibration(sector, strings.NewReader(string(data)), cal))
	return cal
}

func TestCharacterizeSingleHit(t *testing.T) {
	cal := testCalibration(t, AgnosticSector, []string{"MMFE8_L1P1_IPL", "MMFE8_L2P1_IPR"}, map[string]map[string]any{
		"MMFE8_L1P1_IPL": {"vmm3": map[string]any{"channel_sm": channelSM(10)}},
	})
	src := NewMemorySource([]Hit{{Layer: 0, Radius: 0, Vmm: 3, Channel: 10}})

	occ, err := Characterize(context.Background(), cal, AgnosticSector, src, AggregateOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"MMFE8_L1P1_IPL", "MMFE8_L2P1_IPR"}, occ.Labels())
	assert.Equal(t, int64(1), occ.Entries())
	assert.Equal(t, int64(1), occ.Modules["MMFE8_L1P1_IPL"][202])
	assert.Equal(t, int64(0), occ.Modules["MMFE8_L2P1_IPR"].Total())

	h, err := occ.Histogram("MMFE8_L1P1_IPL")
	require.NoError(t, err)
	assert.Equal(t, "MMFE8_L1P1_IPL", h.Name())
	assert.Len(t, h.Binning.Bins, NBins)
	assert.Equal(t, int64(1), h.Entries())
	assert.Equal(t, 1.0, h.Binning.Bins[202].SumW())

	empty, err := occ.Histogram("MMFE8_L2P1_IPR")
	require.NoError(t, err)
	assert.Equal(t, int64(0), empty.Entries())

	_, err = occ.Histogram("MMFE8_L3P1_IPL")
	assert.Error(t, err)
	assert.Len(t, occ.Histograms(), 2)
}

func TestCharacterizeGating(t *testing.T) {
	withNull := channelSM(1)
	withNull[2] = nil
	cal := testCalibration(t, AgnosticSector, []string{"MMFE8_L1P1_IPL"}, map[string]map[string]any{
		"MMFE8_L1P1_IPL": {
			"vmm0": map[string]any{"channel_sm": withNull},
			"vmm1": map[string]any{"sdt_dac": 100},
		},
	})

	hits := []Hit{
		{Vmm: 0, Channel: 0}, // unmasked
		{Vmm: 0, Channel: 1}, // masked
		{Vmm: 0, Channel: 1}, // masked again
		{Vmm: 0, Channel: 2}, // null entry
		{Vmm: 1, Channel: 5}, // no channel_sm
	}
	occ, err := Characterize(context.Background(), cal, AgnosticSector, NewMemorySource(hits), AggregateOptions{})
	require.NoError(t, err)

	counts := occ.Modules["MMFE8_L1P1_IPL"]
	assert.Equal(t, int64(2), counts[1])
	assert.Equal(t, int64(2), counts.Total())
}

func TestCharacterizeMissingCalibration(t *testing.T) {
	cal := testCalibration(t, AgnosticSector, []string{"MMFE8_L1P1_IPL"}, map[string]map[string]any{
		"MMFE8_L1P1_IPL": {"vmm2": nil},
	})

	tests := map[string]Hit{
		"missing module": {Layer: 5, Radius: 3, Vmm: 0, Channel: 0},
		"missing vmm":    {Layer: 0, Radius: 0, Vmm: 2, Channel: 0},
	}
	for name, hit := range tests {
		t.Run(name, func(t *testing.T) {
			src := NewMemorySource(nil, []Hit{hit})
			_, err := Characterize(context.Background(), cal, AgnosticSector, src, AggregateOptions{})
			var missing *ErrMissingCalibration
			assert.True(t, errors.As(err, &missing), "%v", err)
		})
	}
}

func TestCharacterizeHitRange(t *testing.T) {
	cal := testCalibration(t, AgnosticSector, []string{"MMFE8_L1P1_IPL"}, nil)

	tests := map[string]Hit{
		"vmm":     {Vmm: 8},
		"channel": {Channel: 64},
	}
	for name, hit := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Characterize(context.Background(), cal, AgnosticSector, NewMemorySource([]Hit{hit}), AggregateOptions{})
			var rangeErr *ErrHitRange
			assert.True(t, errors.As(err, &rangeErr), "%v", err)
		})
	}

	_, err := Characterize(context.Background(), cal, AgnosticSector, NewMemorySource([]Hit{{Layer: 8}}), AggregateOptions{})
	var coordErr *ErrCoordinateRange
	assert.True(t, errors.As(err, &coordErr), "%v", err)
}

func TestCharacterizeEmptyCalibration(t *testing.T) {
	_, err := Characterize(context.Background(), NewCalibration(), AgnosticSector, NewMemorySource(), AggregateOptions{})
	assert.Error(t, err)
}

// syntheticEntries returns n entries spread over every board, vmm and channel.
func syntheticEntries(n int, withSector bool) [][]Hit {
	entries := make([][]Hit, n)
	for e := range entries {
		hits := make([]Hit, e%7)
		for i := range hits {
			k := e*7 + i
			hits[i] = Hit{
				Strip:   int32(k % 1000),
				Layer:   uint32(k % NLayers),
				Radius:  uint32((k / NLayers) % NRadii),
				Vmm:     uint32((k / 3) % NVmms),
				Channel: uint32((k * 5) % NChannels),
				NHits:   1,
			}
			if withSector {
				hits[i].Sector = int32(k%3 - 1)
			}
		}
		entries[e] = hits
	}
	return entries
}

func TestCharacterizeWorkersAgree(t *testing.T) {
	overrides := make(map[string]map[string]any)
	for i, label := range AllModuleLabels() {
		overrides[label] = map[string]any{
			VmmLabel(i % NVmms): map[string]any{"channel_sm": channelSM(i%NChannels, 5, 17, 40)},
		}
	}
	cal := testCalibration(t, AgnosticSector, AllModuleLabels(), overrides)
	src := NewMemorySource(syntheticEntries(2000, false)...)

	serial, err := Characterize(context.Background(), cal, AgnosticSector, src, AggregateOptions{Workers: 1})
	require.NoError(t, err)
	require.NotZero(t, serial.Entries())

	for _, workers := range []int{2, 3, 8, 5000} {
		parallel, err := Characterize(context.Background(), cal, AgnosticSector, src, AggregateOptions{Workers: workers})
		require.NoError(t, err)
		assert.Equal(t, serial.Modules, parallel.Modules, "workers=%d", workers)
	}
}

func TestCharacterizeProgress(t *testing.T) {
	cal := testCalibration(t, AgnosticSector, []string{"MMFE8_L1P1_IPL"}, nil)
	src := NewMemorySource(make([][]Hit, 250)...)

	var mu sync.Mutex
	var calls []int64
	opts := AggregateOptions{
		Workers:       4,
		ProgressEvery: 100,
		Progress: func(done, total int64) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, int64(250), total)
			calls = append(calls, done)
		},
	}
	_, err := Characterize(context.Background(), cal, AgnosticSector, src, opts)
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 200}, calls)
}

func TestCharacterizeProgressOrdered(t *testing.T) {
	cal := testCalibration(t, AgnosticSector, []string{"MMFE8_L1P1_IPL"}, nil)
	src := NewMemorySource(make([][]Hit, 5000)...)

	var calls []int64
	opts := AggregateOptions{
		Workers:       8,
		ProgressEvery: 10,
		Progress: func(done, total int64) {
			calls = append(calls, done)
		},
	}
	_, err := Characterize(context.Background(), cal, AgnosticSector, src, opts)
	require.NoError(t, err)
	require.Len(t, calls, 500)
	for i, done := range calls {
		assert.Equal(t, int64(10*(i+1)), done)
	}
}

func TestCharacterizeSector(t *testing.T) {
	path := writeFile(t, t.TempDir(), "A03.json", calibrationDoc(t, []string{"MMFE8_L1P1_IPL"}, map[string]map[string]any{
		"MMFE8_L1P1_IPL": {"vmm3": map[string]any{"channel_sm": channelSM(10)}},
	}))
	cal, err := LoadModuleCalibration(path, 3)
	require.NoError(t, err)

	src := NewMemorySource([]Hit{{Sector: 3, Vmm: 3, Channel: 10}})
	occ, err := Characterize(context.Background(), cal, 3, src, AggregateOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, occ.Sector)
	assert.Equal(t, int64(1), occ.Modules["MMFE8_L1P1_IPL"][202])

	_, err = Characterize(context.Background(), cal, AgnosticSector, src, AggregateOptions{})
	assert.Error(t, err, "document loaded under sector 3 only")
}

func TestCharacterizeCancelled(t *testing.T) {
	cal := testCalibration(t, AgnosticSector, []string{"MMFE8_L1P1_IPL"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Characterize(ctx, cal, AgnosticSector, NewMemorySource(make([][]Hit, 10)...), AggregateOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
