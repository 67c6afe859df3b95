package maskscan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Status is the masking state of one channel.
type Status int8

const (
	Unmasked Status = 0
	Masked   Status = 1
	// Unknown marks channels without a masking value in the calibration.
	Unknown Status = 2
)

func (s Status) String() string {
	switch s {
	case Unmasked:
		return "unmasked"
	case Masked:
		return "masked"
	case Unknown:
		return "unknown"
	default:
		return fmt.Sprintf("Status(%d)", int8(s))
	}
}

// AgnosticSector is the sector key of calibrations loaded from a single
// document, where the sector is not known.
const AgnosticSector = 0

const NSectors = 16

type ModuleKey struct {
	Sector int
	Module string
}

type VmmCalibration struct {
	// Present is false when the module has no entry for this vmm.
	Present bool
	// HasChannelSM is false when the vmm entry carries no channel_sm array.
	HasChannelSM bool
	Status       [NChannels]Status
}

type ModuleCalibration struct {
	Label string
	Vmms  [NVmms]VmmCalibration
}

// Calibration holds the masking status of every calibrated board, keyed by
// (sector, module).
type Calibration struct {
	modules map[ModuleKey]*ModuleCalibration
}

func NewCalibration() *Calibration {
	return &Calibration{modules: make(map[ModuleKey]*ModuleCalibration)}
}

// DefaultSectorFiles maps sectors to the usual file names in dir:
// C16..C01 for sectors -16..-1 and A01..A16 for sectors 1..16.
func DefaultSectorFiles(dir string) map[int]string {
	files := make(map[int]string, 2*NSectors)
	for i := 1; i <= NSectors; i++ {
		files[-i] = filepath.Join(dir, fmt.Sprintf("C%02d.json", i))
		files[i] = filepath.Join(dir, fmt.Sprintf("A%02d.json", i))
	}
	return files
}

// LoadCalibration reads one calibration document per sector. The first file
// that cannot be opened or parsed aborts the load.
func LoadCalibration(files map[int]string) (*Calibration, error) {
	cal := NewCalibration()
	sectors := maps.Keys(files)
	slices.Sort(sectors)
	for _, sector := range sectors {
		if configuration.Verbosity > 1 {
			message := fmt.Sprintf("Sector %d from %s", sector, files[sector])
			logger.Info(message, "calibration")
		}
		if err := loadCalibrationFile(files[sector], sector, cal); err != nil {
			return nil, err
		}
	}
	return cal, nil
}

// LoadModuleCalibration reads a single document under the given sector.
// Pass AgnosticSector when the document is not tied to a sector.
func LoadModuleCalibration(path string, sector int) (*Calibration, error) {
	cal := NewCalibration()
	if err := loadCalibrationFile(path, sector, cal); err != nil {
		return nil, err
	}
	return cal, nil
}

func loadCalibrationFile(path string, sector int, cal *Calibration) error {
	file, err := os.Open(path)
	if err != nil {
		return &ErrOpenFile{Filename: path, Err: err}
	}
	defer file.Close()

	if err := ParseCalibration(sector, file, cal); err != nil {
		return &ErrParseCalibration{Filename: path, Err: err}
	}
	return nil
}

type vmmDocument struct {
	ChannelSM *[]*int `json:"channel_sm"`
}

// ParseCalibration adds the boards of one calibration document to cal.
// Top level keys starting with MMFE8_ are boards and must be well formed
// labels; every board gets all 8 vmms with 64 channels. Channels without a value (missing channel_sm, null entry
// or short array) are set to Unknown.
func ParseCalibration(sector int, r io.Reader, cal *Calibration) error {
	var doc map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return err
	}

	for key, raw := range doc {
		if !IsModuleLabel(key) {
			continue
		}
		if _, err := LabelToCoordinate(key); err != nil {
			return err
		}
		var vmms map[string]json.RawMessage
		if err := json.Unmarshal(raw, &vmms); err != nil {
			return fmt.Errorf("module %s: %w", key, err)
		}

		module := &ModuleCalibration{Label: key}
		for i := 0; i < NVmms; i++ {
			vmm := &module.Vmms[i]
			for k := range vmm.Status {
				vmm.Status[k] = Unknown
			}

			rawVmm, ok := vmms[VmmLabel(i)]
			if !ok || isJSONNull(rawVmm) {
				continue
			}
			vmm.Present = true

			var fields vmmDocument
			if err := json.Unmarshal(rawVmm, &fields); err != nil {
				return fmt.Errorf("module %s %s: %w", key, VmmLabel(i), err)
			}
			if fields.ChannelSM == nil {
				if configuration.Verbosity > 1 {
					message := fmt.Sprintf("Sector %d %s %s has no channel_sm", sector, key, VmmLabel(i))
					logger.Info(message, "calibration")
				}
				continue
			}
			vmm.HasChannelSM = true

			for k, value := range *fields.ChannelSM {
				if k >= NChannels {
					break
				}
				if value == nil {
					continue
				}
				switch *value {
				case int(Unmasked), int(Masked):
					vmm.Status[k] = Status(*value)
				default:
					return fmt.Errorf("module %s %s channel %d: invalid masking value %d", key, VmmLabel(i), k, *value)
				}
			}
		}
		cal.modules[ModuleKey{Sector: sector, Module: key}] = module
	}
	return nil
}

func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Module returns the calibration of one board, or nil.
func (c *Calibration) Module(sector int, module string) *ModuleCalibration {
	return c.modules[ModuleKey{Sector: sector, Module: module}]
}

func (c *Calibration) Has(key ModuleKey) bool {
	_, ok := c.modules[key]
	return ok
}

func (c *Calibration) Len() int {
	return len(c.modules)
}

// Lookup returns the masking status of one channel. Boards or vmms absent
// from the calibration are an error.
func (c *Calibration) Lookup(sector int, module string, vmm, channel int) (Status, error) {
	mod, ok := c.modules[ModuleKey{Sector: sector, Module: module}]
	if !ok {
		return Unknown, &ErrMissingCalibration{Sector: sector, Module: module, Vmm: -1}
	}
	if vmm < 0 || vmm >= NVmms || !mod.Vmms[vmm].Present {
		return Unknown, &ErrMissingCalibration{Sector: sector, Module: module, Vmm: vmm}
	}
	if channel < 0 || channel >= NChannels {
		return Unknown, fmt.Errorf("channel %d out of range", channel)
	}
	return mod.Vmms[vmm].Status[channel], nil
}

// Sectors returns the calibrated sectors in ascending order.
func (c *Calibration) Sectors() []int {
	seen := make(map[int]struct{})
	for key := range c.modules {
		seen[key.Sector] = struct{}{}
	}
	sectors := maps.Keys(seen)
	slices.Sort(sectors)
	return sectors
}

// Modules returns the board labels of one sector in lexical order.
func (c *Calibration) Modules(sector int) []string {
	var labels []string
	for key := range c.modules {
		if key.Sector == sector {
			labels = append(labels, key.Module)
		}
	}
	slices.Sort(labels)
	return labels
}
