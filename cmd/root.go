// =============================================================================
// Downstream Reporting - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands (like 'process', 'validate') are
// attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (reporting)
//   ├── processCmd (reporting process)
//   ├── validateCmd (reporting validate)
//   └── versionCmd (reporting version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose)
//   2. Loading the configuration on behalf of subcommands
//   3. Setting up logging
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/magnber/downstream-reporting/internal/config"
	"github.com/magnber/downstream-reporting/internal/csvfile"
	"github.com/magnber/downstream-reporting/internal/refdata"
	"github.com/magnber/downstream-reporting/pkg/utils"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the configuration file.
// This can be overridden using the --config flag.
var cfgFile string

// verbose enables verbose logging when set to true.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
// This is the entry point for the CLI application.
var rootCmd = &cobra.Command{
	Use: "reporting",

	Short: "Downstream Reporting - Environmental impact reports for recycled deliveries",

	Long: `Downstream Reporting turns invoiced deliveries into per-delivery
environmental impact reports. Each delivery is traced through the receiving
facility's transformation ratios, processing and transport emissions are
allocated across the resulting outputs, and recycled outputs are followed
to their destination markets where they are compared against virgin
production.

Key Features:
  - Reference data from per-table CSV files or a single XLSX workbook
  - Reference validation with detailed findings before any report is built
  - Deterministic reports: the same invoices and reference data always
    produce identical output
  - JSON, CSV and XLSX delivery formats
  - Concurrent processing and automatic archival of processed batches

Example Usage:
  reporting process                    # Process all invoice files in the input directory
  reporting process --config ./my.yaml # Use a custom configuration file
  reporting validate                   # Check the reference dataset without processing`,

	// If no subcommand is provided, print the help message.
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	defer config.CloseLogFile()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		config.CloseLogFile()
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

// init sets up the global flags.
func init() {
	// Persistent flags are available to this command and all subcommands.

	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// =============================================================================
// SHARED COMMAND HELPERS
// =============================================================================

// loadConfig loads the configuration and initializes logging. A missing
// file at the default location falls back to the built-in defaults; a
// missing file named explicitly with --config is an error.
func loadConfig() (*config.Config, error) {
	if !utils.FileExists(cfgFile) {
		if rootCmd.PersistentFlags().Changed("config") {
			return nil, fmt.Errorf("config file not found: %s", cfgFile)
		}

		cfg := config.Default()
		if err := config.InitLogger(cfg, verbose); err != nil {
			return nil, err
		}
		log.Debug().Msg("No config file found, using defaults")
		return cfg, nil
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := config.InitLogger(cfg, verbose); err != nil {
		return nil, err
	}
	log.Debug().Str("config", cfgFile).Msg("Loaded configuration")
	return cfg, nil
}

// loadReferenceTables loads the ten reference tables from the source the
// configuration points at.
func loadReferenceTables(cfg *config.Config) (*refdata.Tables, error) {
	switch cfg.Reference.Source {
	case config.SourceWorkbook:
		return refdata.LoadTablesFromWorkbook(cfg.Reference.Workbook)
	default:
		return refdata.LoadTablesFromDir(cfg.Reference.Dir, csvfile.Options{
			Delimiter: cfg.Reference.Delimiter,
		})
	}
}
