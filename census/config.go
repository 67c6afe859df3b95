package main

import (
	"fmt"

	maskscan "github.com/nsw-mm/maskscan/pkg"
)

func printConfiguration(config maskscan.Configuration, logger maskscan.Logger) {
	logger.Info(fmt.Sprintf("Input dir: %s", config.InputDir), "config")
	logger.Info(fmt.Sprintf("Run: %s", config.Run), "config")
	logger.Info(fmt.Sprintf("File in: %s", config.FileIn), "config")
	logger.Info(fmt.Sprintf("File out: %s", config.FileOut), "config")
	logger.Info(fmt.Sprintf("Calibration dir: %s", config.CalibrationDir), "config")
	logger.Info(fmt.Sprintf("Calibration files: %d", len(config.CalibrationFiles)), "config")
	logger.Info(fmt.Sprintf("Tree name: %s", config.TreeName), "config")
	logger.Info(fmt.Sprintf("Number of workers: %d", config.NumWorkers), "config")
	logger.Info(fmt.Sprintf("Progress every: %d", config.ProgressEvery), "config")
	logger.Info(fmt.Sprintf("Write summary: %t", config.WriteSummary), "config")
	logger.Info(fmt.Sprintf("Summary DB driver: %s", config.SummaryDBDriver), "config")
	logger.Info(fmt.Sprintf("Host: %s", config.Host), "config")
	logger.Info(fmt.Sprintf("DB name: %s", config.DBName), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
}
