//go:build mage

// Package main contains Mage build targets for litsearch developer tooling.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binName = "litsearch"
	cmdPkg  = "./cmd/litsearch"
)

// projectDirs lists the working directories the CLI expects.
var projectDirs = []string{
	"history",
	".secrets",
}

const sampleConfig = `search:
  max_results: 10
  fetch_timeout: 60s
  cache_ttl: 30m
  keep_threshold: 7
http:
  timeout: 30s
  user_agent: litsearch/0.1
ai:
  model: gemini-2.0-flash
  max_retries: 2
history:
  enabled: true
  dir: history
`

// Init creates the working directories and a starter litsearch.yaml.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	if _, err := os.Stat("litsearch.yaml"); os.IsNotExist(err) {
		if err := os.WriteFile("litsearch.yaml", []byte(sampleConfig), 0o644); err != nil {
			return fmt.Errorf("writing litsearch.yaml: %w", err)
		}
		fmt.Println("   litsearch.yaml")
	}
	fmt.Println("Project initialized. Put API keys in .secrets/ (google-api-key, scopus-api-key, ...).")
	return nil
}

// Build compiles the CLI binary into bin/.
func Build() error {
	mg.Deps(Vet)
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	if err := sh.RunV("go", "build", "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Vet runs go vet over every package.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Clean removes build output.
func Clean() error {
	return sh.Rm(binDir)
}
