// =============================================================================
// Downstream Reporting - Validate Command
// =============================================================================
//
// This file defines the 'validate' command, which loads the reference
// dataset and runs every consistency check without touching the invoice
// files. Operators run it after editing the reference tables, before the
// next processing window.
//
// COMMAND USAGE:
//   reporting validate [flags]
//
// FLAGS:
//   --strict : Treat warnings as errors
//
// EXIT CODES:
//   0 - The dataset passed (warnings allowed unless --strict)
//   1 - The dataset has errors, or warnings with --strict
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/magnber/downstream-reporting/internal/validation"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// strict treats validation warnings as errors.
var strict bool

// =============================================================================
// VALIDATE COMMAND DEFINITION
// =============================================================================

// validateCmd represents the 'validate' command.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the reference dataset without processing",
	Long: `The validate command loads the reference tables from the configured
source and checks them for internal consistency: share sums, cross-table
references, duplicate entries and gaps that would fail invoices at
processing time.

Errors are conditions that would abort a processing run, such as
distribution shares that do not sum to 1. Warnings are conditions the
pipeline tolerates but an operator should review, such as transformation
yields that do not sum to 1 or a recycled output without a destination
distribution.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate()
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

// init registers the validate command with the root command and sets up flags.
func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(
		&strict,
		"strict",
		false,
		"Treat warnings as errors",
	)
}

// =============================================================================
// MAIN VALIDATION FUNCTION
// =============================================================================

// runValidate loads the reference dataset and reports every finding.
func runValidate() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	tables, err := loadReferenceTables(cfg)
	if err != nil {
		return fmt.Errorf("failed to load reference data: %w", err)
	}

	fmt.Println("=== Reference Data Validation ===")
	fmt.Printf("Materials:             %d\n", len(tables.Materials))
	fmt.Printf("Facilities:            %d\n", len(tables.Facilities))
	fmt.Printf("Transformations:       %d\n", len(tables.Transformations))
	fmt.Printf("Processing factors:    %d\n", len(tables.ProcessingFactors))
	fmt.Printf("Distributions:         %d\n", len(tables.Distributions))
	fmt.Printf("Transport factors:     %d\n", len(tables.TransportFactors))
	fmt.Printf("Upstream distances:    %d\n", len(tables.UpstreamDistances))
	fmt.Printf("Downstream distances:  %d\n", len(tables.DownstreamDistances))
	fmt.Printf("Virgin benchmarks:     %d\n", len(tables.Benchmarks))
	fmt.Printf("Geographic regions:    %d\n", len(tables.Regions))

	result := validation.Check(tables, validation.DefaultOptions())

	if len(result.Errors) > 0 {
		fmt.Println("\nErrors:")
		fmt.Println(validation.FormatIssues(result.Errors))
	}
	if len(result.Warnings) > 0 {
		fmt.Println("\nWarnings:")
		fmt.Println(validation.FormatIssues(result.Warnings))
	}

	fmt.Printf("\n%d error(s), %d warning(s)\n", len(result.Errors), len(result.Warnings))

	if !result.Valid() {
		return fmt.Errorf("reference data failed validation with %d error(s)", len(result.Errors))
	}
	if strict && len(result.Warnings) > 0 {
		return fmt.Errorf("reference data has %d warning(s) and --strict is set", len(result.Warnings))
	}

	fmt.Println("Reference data is valid.")
	return nil
}
