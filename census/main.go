package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
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
		fmt.Fprintf(os.Stderr, `Usage: census [options] <input-directory> <run-number>

Marks, for every sector, MMFE8, vmm and channel, whether the run recorded
hits, next to the masking status of the sector calibration documents.
All ROOT files of the directory whose name contains the run number are
chained.

options:
`)
		flag.PrintDefaults()
	}
	configFilename := flag.String("config", "", "Configuration file path")
	fileOut := flag.String("out", "", "Output JSON file (overrides file_out)")
	workers := flag.Int("workers", 0, "Number of workers (overrides num_workers)")
	flag.Parse()

	if err := run(*configFilename, *fileOut, *workers, flag.Args()); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func run(configFilename string, fileOut string, workers int, args []string) error {
	var err error
	configuration, err = maskscan.LoadConfiguration(configFilename)
	if err != nil {
		return fmt.Errorf("Error reading configuration file: %w", err)
	}
	if len(args) > 0 {
		configuration.InputDir = args[0]
	}
	if len(args) > 1 {
		configuration.Run = args[1]
	}
	if fileOut != "" {
		configuration.FileOut = fileOut
	}
	if configuration.FileOut == "" {
		configuration.FileOut = "channel_performance.json"
	}
	if workers > 0 {
		configuration.NumWorkers = workers
	}
	if configuration.FileIn == "" && (configuration.InputDir == "" || configuration.Run == "") {
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
	files, err := configuration.SectorFiles()
	if err != nil {
		return err
	}
	cal, err := maskscan.LoadCalibration(files)
	if err != nil {
		return fmt.Errorf("Error loading calibration: %w", err)
	}
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Loaded %d modules from %d sectors", cal.Len(), len(cal.Sectors()))
		logger.Info(message, "main")
	}

	src, err := openSource(configuration)
	if err != nil {
		return fmt.Errorf("Error opening input: %w", err)
	}
	defer src.Close()

	opts := maskscan.OptionsFromConfiguration(configuration)
	if VerbosityLevel > 0 {
		opts.Progress = func(done, total int64) {
			logger.Info(fmt.Sprintf("%d/%d entries processed", done, total), "census")
		}
	}

	res, err := maskscan.Census(context.Background(), cal, src, opts)
	if err != nil {
		return fmt.Errorf("Error processing hits: %w", err)
	}
	if res.Orphans > 0 {
		message := fmt.Sprintf("%d hits on modules without calibration were skipped", res.Orphans)
		logger.Error(message)
	}

	if err := maskscan.WriteCensusJSON(configuration.FileOut, res); err != nil {
		return fmt.Errorf("Error writing census: %w", err)
	}

	sums := maskscan.SummarizeSectors(res)
	total := maskscan.Summarize(res)
	printSummary(total, logger)

	if configuration.WriteSummary {
		store, err := maskscan.OpenSummaryStoreFromConfiguration(configuration)
		if err != nil {
			return fmt.Errorf("Error connection to database: %w", err)
		}
		defer store.Close()
		batch, err := store.SaveSummaries(runName(configuration), sums)
		if err != nil {
			return fmt.Errorf("Error saving summaries: %w", err)
		}
		logger.Info(fmt.Sprintf("Saved %d sector summaries as batch %s", len(sums), batch), "main")
	}

	message := fmt.Sprintf("Wrote %s in %d ms", configuration.FileOut, time.Since(start).Milliseconds())
	logger.Info(message, "main")
	return nil
}

func openSource(config maskscan.Configuration) (maskscan.HitSource, error) {
	if config.FileIn != "" {
		return maskscan.OpenHitSource(config.FileIn, config, true)
	}
	return maskscan.OpenRootChain(config.InputDir, config.Run, config.TreeName, true)
}

func runName(config maskscan.Configuration) string {
	if config.Run != "" {
		return config.Run
	}
	return strings.TrimSuffix(filepath.Base(config.FileIn), filepath.Ext(config.FileIn))
}

func printSummary(sum maskscan.Summary, logger maskscan.Logger) {
	f := sum.Fractions()
	logger.Info(fmt.Sprintf("Masked w/ hits: %d (%.3f%%)", sum.MaskedWithHits, 100*f.MaskedWithHits), "summary")
	logger.Info(fmt.Sprintf("Masked w/out hits: %d (%.3f%%)", sum.MaskedWithoutHits, 100*f.MaskedWithoutHits), "summary")
	logger.Info(fmt.Sprintf("Unmasked w/ hits: %d (%.3f%%)", sum.UnmaskedWithHits, 100*f.UnmaskedWithHits), "summary")
	logger.Info(fmt.Sprintf("Unmasked w/out hits: %d (%.3f%%)", sum.UnmaskedWithoutHits, 100*f.UnmaskedWithoutHits), "summary")
	logger.Info(fmt.Sprintf("Unknown status: %d w/ hits, %d w/out hits", sum.UnknownWithHits, sum.UnknownWithoutHits), "summary")
}
