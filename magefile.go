//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Default target when running mage without arguments.
var Default = Build

// Build builds the vibewall binary.
func Build() error {
	fmt.Println("Building vibewall...")
	return sh.Run("go", "build", "-o", "bin/vibewall", "./cmd/vibewall")
}

// Test runs all tests.
func Test() error {
	fmt.Println("Running tests...")
	return sh.Run("go", "test", "./...")
}

// TestCover runs tests with coverage.
func TestCover() error {
	fmt.Println("Running tests with coverage...")
	return sh.Run("go", "test", "-cover", "-coverprofile=coverage.out", "./...")
}

// Vet runs go vet.
func Vet() error {
	fmt.Println("Running go vet...")
	return sh.Run("go", "vet", "./...")
}

// Tidy runs go mod tidy.
func Tidy() error {
	fmt.Println("Running go mod tidy...")
	return sh.Run("go", "mod", "tidy")
}

// Clean removes build artifacts.
func Clean() error {
	fmt.Println("Cleaning...")
	if err := os.RemoveAll("bin"); err != nil {
		return err
	}
	_ = os.Remove("coverage.out")
	return nil
}

// Serve builds and starts the web UI.
func Serve() error {
	mg.Deps(Build)
	fmt.Println("Starting server...")
	return sh.RunV("./bin/vibewall", "serve")
}

// CI runs tidy, vet and tests with coverage.
func CI() error {
	mg.SerialDeps(Tidy, Vet, TestCover)
	return nil
}
