// =============================================================================
// Downstream Reporting - Main Entry Point
// =============================================================================
//
// This is the main entry point for the Downstream Reporting CLI application.
// It initializes the Cobra CLI framework and delegates command execution to
// the cmd package.
//
// USAGE:
//   reporting process       - Process all invoice files in the input directory
//   reporting validate      - Validate the reference dataset without processing
//   reporting version       - Display the application version
//
// ARCHITECTURE:
//   This application follows a modular design where:
//   - cmd/           : Contains all CLI command definitions (Cobra)
//   - internal/      : Contains core business logic (not for external import)
//   - pkg/           : Contains shared utilities
//   - data/          : Contains the reference tables (one CSV per table)
//   - input/         : Invoice CSV files awaiting processing
//
// =============================================================================

package main

import (
	"github.com/magnber/downstream-reporting/cmd"
)

// main is the entry point of the application.
// It simply calls the Execute function from the cmd package, which
// initializes and runs the Cobra CLI.
func main() {
	cmd.Execute()
}
