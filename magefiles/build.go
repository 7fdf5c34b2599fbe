//go:build mage

// Package main provides build targets for the worksite project using Mage.
//
// Usage:
//
//	mage build             Compile the worksite binary to bin/
//	mage test:all          Run all tests (unit + integration)
//	mage test:unit         Run only unit tests (exclude tests/)
//	mage test:integration  Run only integration tests (builds first)
//	mage test:race         Run unit tests with the race detector
//	mage lint              Run golangci-lint
//	mage clean             Remove build artifacts
//	mage install           Install worksite to GOPATH/bin
//	mage stats             Print Go LOC as a JSON record
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "worksite"
	binaryDir  = "bin"
	cmdDir     = "./cmd/worksite"
	versionVar = "github.com/mesh-intelligence/worksite/internal/cli.Version"
)

// ldflags stamps the version from WORKSITE_VERSION, when set, into the binary.
func ldflags() string {
	v := os.Getenv("WORKSITE_VERSION")
	if v == "" {
		return ""
	}
	return "-X " + versionVar + "=" + v
}

// Build compiles the worksite binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "build", "-v", "-ldflags", ldflags(), "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}
