//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/magefile/mage/mg"
)

// Default target to run when none is specified
// If not set, running mage will list available targets
var Default = Build

// Build compiles every command into ./bin
func Build() error {
	mg.Deps(BuildCharacterize, BuildCensus, BuildConvert)
	fmt.Println("Compilation finished")
	return nil
}

func BuildCharacterize() error {
	return buildCommand("characterize")
}

func BuildCensus() error {
	return buildCommand("census")
}

func BuildConvert() error {
	return buildCommand("convert")
}

// Test runs the package tests. HDF5 needs cgo.
func Test() error {
	return goCommand("test", "./...")
}

func buildCommand(name string) error {
	fmt.Printf("Building %s executable...\n", name)
	return goCommand("build", "-o", "./bin/"+name, "./"+name)
}

func goCommand(args ...string) error {
	ldflags := os.Getenv("CGO_LDFLAGS")
	cflags := os.Getenv("CGO_CFLAGS")
	cmd := exec.Command("go", args...)
	cmd.Env = append(os.Environ(),
		"CGO_ENABLED=1",
		fmt.Sprintf("CGO_LDFLAGS=%s", ldflags),
		fmt.Sprintf("CGO_CFLAGS=%s", cflags))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
