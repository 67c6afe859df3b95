// Convert rewrites the nsw tree of one or more ROOT files as an HDF5 hit
// table readable by characterize and census.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	maskscan "github.com/nsw-mm/maskscan/pkg"
)

var logger maskscan.ConsoleLogger

func init() {
	logger = maskscan.NewConsoleLogger(os.Stdout, os.Stderr)
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: convert [options] <output.h5> <input.root>...\n\noptions:\n")
		flag.PrintDefaults()
	}
	configFilename := flag.String("config", "", "Configuration file path")
	withSector := flag.Bool("sector", false, "Copy the sector column")
	flag.Parse()

	if flag.NArg() < 2 {
		flag.Usage()
		os.Exit(2)
	}

	configuration, err := maskscan.LoadConfiguration(*configFilename)
	if err != nil {
		logger.Error(fmt.Errorf("Error reading configuration file: %w", err).Error())
		os.Exit(1)
	}
	maskscan.SetConfiguration(configuration)
	maskscan.SetLogger(logger)

	start := time.Now()
	src, err := maskscan.OpenRootFiles(flag.Args()[1:], configuration.TreeName, *withSector)
	if err != nil {
		logger.Error(fmt.Errorf("Error opening file: %w", err).Error())
		os.Exit(1)
	}
	defer src.Close()

	nEntries, err := maskscan.ConvertHits(context.Background(), src, flag.Arg(0), *withSector)
	if err != nil {
		logger.Error(fmt.Errorf("Error converting hits: %w", err).Error())
		os.Exit(1)
	}
	message := fmt.Sprintf("Wrote %d entries to %s in %d ms", nEntries, flag.Arg(0), time.Since(start).Milliseconds())
	logger.Info(message, "main")
}
