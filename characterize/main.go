package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	maskscan "github.com/nsw-mm/maskscan/pkg"
)

var configuration maskscan.Configuration

var (
	logger         maskscan.ConsoleLogger
	VerbosityLevel int
)

func init() {
	logger = maskscan.NewConsoleLogger(os.Stdout, os.Stderr)
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: characterize [options] <input-file> <output-file>

Fills one histogram per MMFE8 with the hits recorded on masked channels.
The input is a ROOT (.root) or HDF5 (.h5) hit file, the output a ROOT or
HDF5 file with 512 bins (vmm*64 + channel) per board.

options:
`)
		flag.PrintDefaults()
	}
	configFilename := flag.String("config", "", "Configuration file path")
	calibFilename := flag.String("calib", "", "Calibration document (overrides calibration_file)")
	workers := flag.Int("workers", 0, "Number of workers (overrides num_workers)")
	flag.Parse()

	if err := run(*configFilename, *calibFilename, *workers, flag.Args()); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func run(configFilename string, calibFilename string, workers int, args []string) error {
	var err error
	configuration, err = maskscan.LoadConfiguration(configFilename)
	if err != nil {
		return fmt.Errorf("Error reading configuration file: %w", err)
	}
	if len(args) > 0 {
		configuration.FileIn = args[0]
	}
	if len(args) > 1 {
		configuration.FileOut = args[1]
	}
	if calibFilename != "" {
		configuration.CalibrationFile = calibFilename
	}
	if workers > 0 {
		configuration.NumWorkers = workers
	}
	if configuration.FileIn == "" || configuration.FileOut == "" || configuration.CalibrationFile == "" {
		flag.Usage()
		os.Exit(2)
	}

	maskscan.SetConfiguration(configuration)
	maskscan.SetLogger(logger)

	VerbosityLevel = configuration.Verbosity
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Reading configuration file: %s", configFilename)
		logger.Info(message, "main")
		printConfiguration(configuration, logger)
	}

	start := time.Now()
	cal, err := maskscan.LoadModuleCalibration(configuration.CalibrationFile, configuration.Sector)
	if err != nil {
		return fmt.Errorf("Error loading calibration: %w", err)
	}
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Created histograms for %d modules", cal.Len())
		logger.Info(message, "main")
	}

	src, err := maskscan.OpenHitSource(configuration.FileIn, configuration, false)
	if err != nil {
		return fmt.Errorf("Error opening file: %w", err)
	}
	defer src.Close()

	opts := maskscan.OptionsFromConfiguration(configuration)
	if VerbosityLevel > 0 {
		opts.Progress = func(done, total int64) {
			logger.Info(fmt.Sprintf("%d/%d entries processed", done, total), "characterize")
		}
	}

	occ, err := maskscan.Characterize(context.Background(), cal, configuration.Sector, src, opts)
	if err != nil {
		return fmt.Errorf("Error processing hits: %w", err)
	}

	if err := maskscan.WriteOccupancy(configuration.FileOut, occ); err != nil {
		return fmt.Errorf("Error writing histograms: %w", err)
	}

	message := fmt.Sprintf("Wrote %d histograms with %d masked hits to %s in %d ms",
		len(occ.Modules), occ.Entries(), configuration.FileOut, time.Since(start).Milliseconds())
	logger.Info(message, "main")
	return nil
}
