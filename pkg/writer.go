package maskscan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	hdf5 "github.com/jmbenlloch/go-hdf5"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rhist"
)

// WriteOccupancy writes the occupancy histograms to a ROOT or HDF5 file
// depending on the file extension.
func WriteOccupancy(path string, occ *Occupancy) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".root":
		return WriteOccupancyROOT(path, occ)
	case ".h5", ".hdf5":
		return WriteOccupancyHDF5(path, occ)
	default:
		return fmt.Errorf("unknown output file type %q", path)
	}
}

// WriteOccupancyROOT stores one TH1D per board, keyed by board label. On
// error the partial file is removed.
func WriteOccupancyROOT(path string, occ *Occupancy) error {
	f, err := groot.Create(path)
	if err != nil {
		return &ErrOpenFile{Filename: path, Err: err}
	}

	for _, label := range occ.Labels() {
		if err := writeHistogramROOT(f, occ, label); err != nil {
			f.Close()
			return discardArtifact(path, err)
		}
	}

	if err := f.Close(); err != nil {
		return discardArtifact(path, fmt.Errorf("error closing file %q: %w", path, err))
	}
	return nil
}

func writeHistogramROOT(f *groot.File, occ *Occupancy, label string) error {
	if _, err := LabelToCoordinate(label); err != nil {
		return err
	}
	h, err := occ.Histogram(label)
	if err != nil {
		return err
	}
	if err := f.Put(label, rhist.NewH1DFrom(h)); err != nil {
		return fmt.Errorf("error writing histogram %s: %w", label, err)
	}
	return nil
}

// discardArtifact removes a partially written output file and returns err.
func discardArtifact(path string, err error) error {
	if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		return errors.Join(err, fmt.Errorf("error removing partial file %q: %w", path, rmErr))
	}
	return err
}

// WriteOccupancyHDF5 stores the board table /Occupancy/modules and the
// matching rows of /Occupancy/counts, one row of 512 bins per board. On
// error the partial file is removed.
func WriteOccupancyHDF5(path string, occ *Occupancy) error {
	file, err := createFile(path)
	if err != nil {
		return err
	}
	group, err := createGroup(file, occupancyGroup)
	if err != nil {
		file.Close()
		return discardArtifact(path, err)
	}
	modules, err := createTable(group, "modules", ModuleInfoHDF5{})
	if err != nil {
		group.Close()
		file.Close()
		return discardArtifact(path, err)
	}
	counts, err := create2dArray(group, "counts", hdf5.T_NATIVE_INT64, NBins)
	if err != nil {
		modules.Close()
		group.Close()
		file.Close()
		return discardArtifact(path, err)
	}

	var errs []error
	labels := occ.Labels()
	info := make([]ModuleInfoHDF5, 0, len(labels))
	for i, label := range labels {
		c, err := LabelToCoordinate(label)
		if err != nil {
			errs = append(errs, err)
			break
		}
		info = append(info, ModuleInfoHDF5{
			Label:   convertToHdf5String(label),
			Layer:   int32(c.Layer),
			Radius:  int32(c.Radius),
			Entries: occ.Modules[label].Total(),
		})

		row := occ.Modules[label][:]
		if err := write2dRow(counts, &row, i, NBins); err != nil {
			errs = append(errs, fmt.Errorf("error writing counts of %s: %w", label, err))
			break
		}
	}
	if len(errs) == 0 {
		if err := writeArrayToTable(modules, &info, 0); err != nil {
			errs = append(errs, fmt.Errorf("error writing module table: %w", err))
		}
	}

	if err := counts.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing counts: %w", err))
	}
	if err := modules.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing module table: %w", err))
	}
	if err := group.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing occupancy group: %w", err))
	}
	if err := file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing file: %w", err))
	}
	if len(errs) > 0 {
		return discardArtifact(path, errors.Join(errs...))
	}
	return nil
}

// WriteCensusJSON serializes the census document. The document is written
// to a temporary file in the same directory and renamed into place, so path
// is either complete or untouched.
func WriteCensusJSON(path string, res *CensusResult) error {
	file, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return &ErrOpenFile{Filename: path, Err: err}
	}
	tmp := file.Name()

	if err := json.NewEncoder(file).Encode(res.Document()); err != nil {
		file.Close()
		return discardArtifact(tmp, fmt.Errorf("error writing census %q: %w", path, err))
	}
	if err := file.Close(); err != nil {
		return discardArtifact(tmp, fmt.Errorf("error closing census %q: %w", path, err))
	}
	if err := os.Rename(tmp, path); err != nil {
		return discardArtifact(tmp, fmt.Errorf("error moving census to %q: %w", path, err))
	}
	return nil
}

// HitWriter stores read-out entries as an HDF5 hit table, one row per hit.
type HitWriter struct {
	File       *hdf5.File
	Filename   string
	HitsGroup  *hdf5.Group
	HitTable   *hdf5.Dataset
	WithSector bool
	RowCounter int
	EvtCounter int64
}

func NewHitWriter(filename string, withSector bool) (*HitWriter, error) {
	writer := &HitWriter{Filename: filename, WithSector: withSector}
	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Creating file: %s", filename), "hdf5writer")
	}

	var err error
	writer.File, err = createFile(filename)
	if err != nil {
		return nil, err
	}
	writer.HitsGroup, err = createGroup(writer.File, hitsGroup)
	if err != nil {
		writer.File.Close()
		return nil, err
	}
	if withSector {
		writer.HitTable, err = createTable(writer.HitsGroup, hitsTable, SectorHitRowHDF5{})
	} else {
		writer.HitTable, err = createTable(writer.HitsGroup, hitsTable, HitRowHDF5{})
	}
	if err != nil {
		writer.HitsGroup.Close()
		writer.File.Close()
		return nil, err
	}
	return writer, nil
}

// WriteEntry appends the hits of the next entry.
func (w *HitWriter) WriteEntry(hits []Hit) error {
	entry := w.EvtCounter
	var err error
	if w.WithSector {
		rows := make([]SectorHitRowHDF5, len(hits))
		for i, h := range hits {
			rows[i] = SectorHitRowHDF5{Entry: entry, Strip: h.Strip, Vmm: h.Vmm, Layer: h.Layer,
				NHits: h.NHits, Radius: h.Radius, Channel: h.Channel, Sector: h.Sector}
		}
		err = writeArrayToTable(w.HitTable, &rows, w.RowCounter)
	} else {
		rows := make([]HitRowHDF5, len(hits))
		for i, h := range hits {
			rows[i] = HitRowHDF5{Entry: entry, Strip: h.Strip, Vmm: h.Vmm, Layer: h.Layer,
				NHits: h.NHits, Radius: h.Radius, Channel: h.Channel}
		}
		err = writeArrayToTable(w.HitTable, &rows, w.RowCounter)
	}
	if err != nil {
		return fmt.Errorf("error writing entry %d: %w", entry, err)
	}
	w.RowCounter += len(hits)
	w.EvtCounter++
	return nil
}

func (w *HitWriter) Close() error {
	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Closing file %s", w.Filename), "hdf5writer")
	}
	var errs []error

	if err := w.HitTable.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing hit table: %w", err))
	}
	if err := w.HitsGroup.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing hits group: %w", err))
	}
	if err := w.File.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing file: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ConvertHits copies every entry of src into an HDF5 hit table. Trailing
// entries without hits leave no row behind.
func ConvertHits(ctx context.Context, src HitSource, filename string, withSector bool) (int64, error) {
	writer, err := NewHitWriter(filename, withSector)
	if err != nil {
		return 0, err
	}
	err = src.ReadRange(ctx, 0, src.Entries(), func(entry int64, hits []Hit) error {
		return writer.WriteEntry(hits)
	})
	closeErr := writer.Close()
	if err != nil {
		return writer.EvtCounter, err
	}
	return writer.EvtCounter, closeErr
}
