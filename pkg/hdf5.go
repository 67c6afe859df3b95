package maskscan

import (
	"fmt"

	hdf5 "github.com/jmbenlloch/go-hdf5"
)

// Row layouts of the HDF5 tables. The entry column groups hits of the same
// read-out entry.
type HitRowHDF5 struct {
	Entry   int64  `hdf5:"entry"`
	Strip   int32  `hdf5:"strip"`
	Vmm     uint32 `hdf5:"vmmid"`
	Layer   uint32 `hdf5:"layer"`
	NHits   uint32 `hdf5:"nhits"`
	Radius  uint32 `hdf5:"radius"`
	Channel uint32 `hdf5:"channel"`
}

type SectorHitRowHDF5 struct {
	Entry   int64  `hdf5:"entry"`
	Strip   int32  `hdf5:"strip"`
	Vmm     uint32 `hdf5:"vmmid"`
	Layer   uint32 `hdf5:"layer"`
	NHits   uint32 `hdf5:"nhits"`
	Radius  uint32 `hdf5:"radius"`
	Channel uint32 `hdf5:"channel"`
	Sector  int32  `hdf5:"sector"`
}

type ModuleInfoHDF5 struct {
	Label   [STRLEN]byte `hdf5:"label"`
	Layer   int32        `hdf5:"layer"`
	Radius  int32        `hdf5:"radius"`
	Entries int64        `hdf5:"entries"`
}

const STRLEN = 20

const (
	hitsGroup      = "nsw"
	hitsTable      = "hits"
	occupancyGroup = "Occupancy"
)

func convertToHdf5String(s string) [STRLEN]byte {
	var byteArray [STRLEN]byte
	copy(byteArray[:], s)
	return byteArray
}

func convertFromHdf5String(b [STRLEN]byte) string {
	n := 0
	for n < STRLEN && b[n] != 0 {
		n++
	}
	return string(b[:n])
}

func createFile(fname string) (*hdf5.File, error) {
	f, err := hdf5.CreateFile(fname, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, &ErrOpenFile{Filename: fname, Err: err}
	}
	return f, nil
}

func createGroup(file *hdf5.File, groupName string) (*hdf5.Group, error) {
	g, err := file.CreateGroup(groupName)
	if err != nil {
		return nil, &ErrCreateGroup{GroupName: groupName, Err: err}
	}
	return g, nil
}

func create2dArray(group *hdf5.Group, name string, dtype *hdf5.Datatype, nColumns int) (*hdf5.Dataset, error) {
	dimsArray := []uint{0, uint(nColumns)}
	unlimitedDims := -1 // H5S_UNLIMITED is -1L
	maxDimsArray := []uint{uint(unlimitedDims), uint(nColumns)}
	chunks := []uint{1, uint(nColumns)}
	return createArray(group, name, dtype, dimsArray, maxDimsArray, chunks)
}

func createArray(group *hdf5.Group, name string, dtype *hdf5.Datatype, dims []uint, maxDims []uint, chunks []uint) (*hdf5.Dataset, error) {
	fileSpace, err := hdf5.CreateSimpleDataspace(dims, maxDims)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	defer fileSpace.Close()

	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	defer plist.Close()

	plist.SetChunk(chunks)
	plist.SetDeflate(configuration.CompressionLevel)

	dset, err := group.CreateDatasetWith(name, dtype, fileSpace, plist)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	return dset, nil
}

func createTable(group *hdf5.Group, name string, datatype interface{}) (*hdf5.Dataset, error) {
	dtype, err := hdf5.NewDatatypeFromValue(datatype)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	dims := []uint{0}
	unlimitedDims := -1 // H5S_UNLIMITED is -1L
	maxDims := []uint{uint(unlimitedDims)}
	chunks := []uint{32768}
	return createArray(group, name, dtype, dims, maxDims, chunks)
}

// writeArrayToTable appends data to a 1D extendible table that currently
// holds rowCounter rows.
func writeArrayToTable[T any](dataset *hdf5.Dataset, data *[]T, rowCounter int) error {
	length := uint(len(*data))
	if length == 0 {
		return nil
	}
	dims := []uint{length}
	dataspace, err := hdf5.CreateSimpleDataspace(dims, nil)
	if err != nil {
		return err
	}
	defer dataspace.Close()

	rowsInFile := uint(rowCounter)
	newsize := []uint{rowsInFile + length}
	if err := dataset.Resize(newsize); err != nil {
		return err
	}
	filespace := dataset.Space()
	defer filespace.Close()

	start := []uint{rowsInFile}
	count := []uint{length}
	if err := filespace.SelectHyperslab(start, nil, count, nil); err != nil {
		return err
	}
	return dataset.WriteSubset(data, dataspace, filespace)
}

// write2dRow appends one row of nColumns values to a 2D extendible array.
func write2dRow[T any](dataset *hdf5.Dataset, data *[]T, rowCounter int, nColumns int) error {
	if len(*data) != nColumns {
		return fmt.Errorf("row has %d values, want %d", len(*data), nColumns)
	}
	newsize := []uint{uint(rowCounter) + 1, uint(nColumns)}
	if err := dataset.Resize(newsize); err != nil {
		return err
	}
	filespace := dataset.Space()
	defer filespace.Close()

	start := []uint{uint(rowCounter), 0}
	count := []uint{1, uint(nColumns)}
	if err := filespace.SelectHyperslab(start, nil, count, nil); err != nil {
		return err
	}

	dataspace, err := hdf5.CreateSimpleDataspace(count, nil)
	if err != nil {
		return err
	}
	defer dataspace.Close()

	return dataset.WriteSubset(data, dataspace, filespace)
}

// readTable reads a whole 1D table into memory.
func readTable[T any](file *hdf5.File, path string) ([]T, error) {
	dset, err := file.OpenDataset(path)
	if err != nil {
		return nil, fmt.Errorf("could not open dataset %q: %w", path, err)
	}
	defer dset.Close()

	space := dset.Space()
	dims, _, err := space.SimpleExtentDims()
	space.Close()
	if err != nil {
		return nil, err
	}
	if len(dims) != 1 {
		return nil, fmt.Errorf("dataset %q has %d dimensions, want 1", path, len(dims))
	}

	rows := make([]T, dims[0])
	if len(rows) == 0 {
		return rows, nil
	}
	if err := dset.Read(&rows); err != nil {
		return nil, fmt.Errorf("could not read dataset %q: %w", path, err)
	}
	return rows, nil
}
