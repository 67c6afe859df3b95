package maskscan

import "fmt"

// ErrOpenFile represents an error when opening a file.
type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("error opening file %q: %v", e.Filename, e.Err)
}

func (e *ErrOpenFile) Unwrap() error { return e.Err }

// ErrMalformedLabel is returned when a module label does not follow
// the MMFE8_L<layer>P<pcb>_<quad><side> format.
type ErrMalformedLabel struct {
	Label  string
	Reason string
}

func (e *ErrMalformedLabel) Error() string {
	return fmt.Sprintf("malformed module label %q: %s", e.Label, e.Reason)
}

// ErrCoordinateRange is returned for a (layer, radius) pair outside the
// 8x16 module grid.
type ErrCoordinateRange struct {
	Layer  int
	Radius int
}

func (e *ErrCoordinateRange) Error() string {
	return fmt.Sprintf("coordinate out of range: layer %d, radius %d", e.Layer, e.Radius)
}

// ErrParseCalibration represents an invalid calibration document.
type ErrParseCalibration struct {
	Filename string
	Err      error
}

func (e *ErrParseCalibration) Error() string {
	return fmt.Sprintf("error parsing calibration %q: %v", e.Filename, e.Err)
}

func (e *ErrParseCalibration) Unwrap() error { return e.Err }

// ErrMissingCalibration is returned when a hit resolves to a module or vmm
// that the loaded calibration does not contain. Vmm is -1 when the whole
// module is missing.
type ErrMissingCalibration struct {
	Sector int
	Module string
	Vmm    int
}

func (e *ErrMissingCalibration) Error() string {
	if e.Vmm < 0 {
		return fmt.Sprintf("no calibration for module %s in sector %d", e.Module, e.Sector)
	}
	return fmt.Sprintf("no calibration for %s of module %s in sector %d", VmmLabel(e.Vmm), e.Module, e.Sector)
}

// ErrHitRange is returned for a hit whose vmm or channel lies outside the
// 8 vmm x 64 channel board.
type ErrHitRange struct {
	Entry   int64
	Vmm     uint32
	Channel uint32
}

func (e *ErrHitRange) Error() string {
	return fmt.Sprintf("entry %d: hit out of range (vmm %d, channel %d)", e.Entry, e.Vmm, e.Channel)
}

// ErrColumnMismatch is returned when the per-hit columns of one entry do
// not have the same length.
type ErrColumnMismatch struct {
	Entry  int64
	Column string
	Len    int
	Want   int
}

func (e *ErrColumnMismatch) Error() string {
	return fmt.Sprintf("entry %d: column %q has %d elements, want %d", e.Entry, e.Column, e.Len, e.Want)
}

// ErrCreateGroup represents an error when creating a group.
type ErrCreateGroup struct {
	GroupName string
	Err       error
}

func (e *ErrCreateGroup) Error() string {
	return fmt.Sprintf("error creating group %q: %v", e.GroupName, e.Err)
}

func (e *ErrCreateGroup) Unwrap() error { return e.Err }

// ErrCreateTable represents an error when creating a table.
type ErrCreateTable struct {
	TableName string
	Err       error
}

func (e *ErrCreateTable) Error() string {
	return fmt.Sprintf("error creating table %q: %v", e.TableName, e.Err)
}

func (e *ErrCreateTable) Unwrap() error { return e.Err }
