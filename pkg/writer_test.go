package maskscan

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	hdf5 "github.com/jmbenlloch/go-hdf5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rhist"
	"go-hep.org/x/hep/hbook/rootcnv"
)

func singleHitOccupancy(t *testing.T) *Occupancy {
	t.Helper()
	cal := testCalibration(t, AgnosticSector, []string{"MMFE8_L1P1_IPL", "MMFE8_L2P1_IPR"}, map[string]map[string]any{
		"MMFE8_L1P1_IPL": {"vmm3": map[string]any{"channel_sm": channelSM(10)}},
	})
	src := NewMemorySource(
		[]Hit{{Vmm: 3, Channel: 10}},
		[]Hit{{Vmm: 3, Channel: 10}, {Vmm: 3, Channel: 11}},
	)
	occ, err := Characterize(context.Background(), cal, AgnosticSector, src, AggregateOptions{})
	require.NoError(t, err)
	return occ
}

func TestWriteOccupancyROOT(t *testing.T) {
	occ := singleHitOccupancy(t)
	path := filepath.Join(t.TempDir(), "occupancy.root")
	require.NoError(t, WriteOccupancy(path, occ))

	f, err := groot.Open(path)
	require.NoError(t, err)
	defer f.Close()

	for label, want := range map[string]float64{"MMFE8_L1P1_IPL": 2, "MMFE8_L2P1_IPR": 0} {
		obj, err := f.Get(label)
		require.NoError(t, err, label)
		rh, ok := obj.(rhist.H1)
		require.True(t, ok, "%s is a %T", label, obj)

		h := rootcnv.H1D(rh)
		require.Len(t, h.Binning.Bins, NBins)
		assert.Equal(t, want, h.Binning.Bins[202].SumW(), label)
		assert.Equal(t, want, h.SumW(), label)
	}
}

func TestWriteOccupancyHDF5(t *testing.T) {
	occ := singleHitOccupancy(t)
	path := filepath.Join(t.TempDir(), "occupancy.h5")
	require.NoError(t, WriteOccupancy(path, occ))

	file, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	require.NoError(t, err)
	defer file.Close()

	modules, err := readTable[ModuleInfoHDF5](file, occupancyGroup+"/modules")
	require.NoError(t, err)
	require.Len(t, modules, 2)
	assert.Equal(t, "MMFE8_L1P1_IPL", convertFromHdf5String(modules[0].Label))
	assert.Equal(t, int32(0), modules[0].Layer)
	assert.Equal(t, int32(0), modules[0].Radius)
	assert.Equal(t, int64(2), modules[0].Entries)
	assert.Equal(t, "MMFE8_L2P1_IPR", convertFromHdf5String(modules[1].Label))
	assert.Equal(t, int32(1), modules[1].Layer)
	assert.Equal(t, int64(0), modules[1].Entries)

	dset, err := file.OpenDataset(occupancyGroup + "/counts")
	require.NoError(t, err)
	defer dset.Close()
	counts := make([]int64, 2*NBins)
	require.NoError(t, dset.Read(&counts))
	assert.Equal(t, int64(2), counts[202])
	assert.Equal(t, int64(0), counts[NBins+202])
}

func TestWriteOccupancyUnknownExtension(t *testing.T) {
	err := WriteOccupancy(filepath.Join(t.TempDir(), "occupancy.txt"), singleHitOccupancy(t))
	assert.Error(t, err)
}

func TestWriteOccupancyMalformedLabel(t *testing.T) {
	occ := singleHitOccupancy(t)
	occ.Modules["MMFE8_bogus"] = &ModuleCounts{}

	for _, name := range []string{"occupancy.root", "occupancy.h5"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			err := WriteOccupancy(path, occ)
			var malformed *ErrMalformedLabel
			require.True(t, errors.As(err, &malformed), "%v", err)
			assert.Equal(t, "MMFE8_bogus", malformed.Label)
			assert.NoFileExists(t, path, "partial output must be removed")
		})
	}
}

func TestWriteCensusJSON(t *testing.T) {
	cal := sectorCalibration(t)
	res, err := Census(context.Background(), cal, NewMemorySource([]Hit{{Sector: 2, Vmm: 1, Channel: 1}}), AggregateOptions{})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "channel_performance.json")
	require.NoError(t, WriteCensusJSON(path, res))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc CensusDocument
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, res.Document(), doc)
	assert.Equal(t, ChannelState{0, 1}, doc["2"]["MMFE8_L1P1_IPL"]["vmm1"][1])

	dirEntries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, dirEntries, 1, "no temporary file left behind")
	assert.Equal(t, "channel_performance.json", dirEntries[0].Name())
}

func TestWriteCensusJSONMissingDir(t *testing.T) {
	res := &CensusResult{Calibration: NewCalibration(), Hits: map[ModuleKey]*HitMask{}}
	path := filepath.Join(t.TempDir(), "missing", "census.json")
	err := WriteCensusJSON(path, res)
	var openErr *ErrOpenFile
	assert.True(t, errors.As(err, &openErr), "%v", err)
	assert.NoFileExists(t, path)
}

func TestConvertHits(t *testing.T) {
	for _, withSector := range []bool{false, true} {
		entries := syntheticEntries(30, withSector)
		// the table only records entries up to the last one with hits
		entries = append(entries, []Hit{{Strip: 5, Layer: 2, Radius: 3, Vmm: 1, Channel: 2, NHits: 1}})

		path := filepath.Join(t.TempDir(), "hits.h5")
		n, err := ConvertHits(context.Background(), NewMemorySource(entries...), path, withSector)
		require.NoError(t, err)
		assert.Equal(t, int64(len(entries)), n)

		src, err := OpenHitSource(path, DefaultConfiguration(), withSector)
		require.NoError(t, err)
		assert.Equal(t, int64(len(entries)), src.Entries())
		assert.Equal(t, normalize(entries), readAll(t, src, 0, src.Entries()), "withSector=%v", withSector)
		require.NoError(t, src.Close())
	}
}
