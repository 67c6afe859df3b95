package maskscan

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

type Configuration struct {
	Verbosity        int               `json:"verbosity"`
	NumWorkers       int               `json:"num_workers"`
	ProgressEvery    int64             `json:"progress_every"`
	TreeName         string            `json:"tree_name"`
	CalibrationDir   string            `json:"calibration_dir"`
	CalibrationFiles map[string]string `json:"calibration_files"`
	CalibrationFile  string            `json:"calibration_file"`
	Sector           int               `json:"sector"`
	FileIn           string            `json:"file_in"`
	InputDir         string            `json:"input_dir"`
	Run              string            `json:"run"`
	FileOut          string            `json:"file_out"`
	CompressionLevel int               `json:"compression_level"`
	WriteSummary     bool              `json:"write_summary"`
	SummaryDBDriver  string            `json:"summary_db_driver"`
	SummaryDBDSN     string            `json:"summary_db_dsn"`
	Host             string            `json:"host"`
	User             string            `json:"user"`
	Passwd           string            `json:"pass"`
	DBName           string            `json:"dbname"`
}

var configuration = DefaultConfiguration()

func GetConfiguration() Configuration {
	return configuration
}

func SetConfiguration(config Configuration) {
	configuration = config
}

func DefaultConfiguration() Configuration {
	return Configuration{
		Verbosity:        0,
		NumWorkers:       1,
		ProgressEvery:    1000,
		TreeName:         "nsw",
		CalibrationDir:   "config_files",
		Sector:           AgnosticSector,
		CompressionLevel: 4,
		WriteSummary:     false,
		SummaryDBDriver:  "sqlite",
		SummaryDBDSN:     "census.db",
	}
}

// LoadConfiguration reads a JSON configuration file on top of the defaults.
// An empty filename returns the defaults.
func LoadConfiguration(filename string) (Configuration, error) {
	config := DefaultConfiguration()
	if filename == "" {
		return config, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	err = json.Unmarshal(data, &config)
	if err != nil {
		return config, err
	}
	return config, nil
}

// SectorFiles returns the calibration document of every sector. Explicit
// calibration_files entries take precedence over the per-sector naming
// convention inside calibration_dir.
func (c Configuration) SectorFiles() (map[int]string, error) {
	if len(c.CalibrationFiles) == 0 {
		return DefaultSectorFiles(c.CalibrationDir), nil
	}
	files := make(map[int]string, len(c.CalibrationFiles))
	for key, path := range c.CalibrationFiles {
		sector, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("invalid sector %q in calibration_files: %w", key, err)
		}
		files[sector] = path
	}
	return files, nil
}
