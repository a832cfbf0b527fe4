// =============================================================================
// Downstream Reporting - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing the application
// configuration. A single YAML file controls where reference data lives,
// where invoice batches are picked up and delivered, and how the output
// is formatted.
//
// ARCHITECTURE:
//   The configuration system is designed to be:
//   - Complete: every setting has a default, an empty file is valid
//   - Validated: bad values fail at startup, not mid-batch
//   - Portable: all paths are plain strings resolved by the OS
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/magnber/downstream-reporting/internal/reportwriter"
)

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the application configuration, loaded from config.yaml.
type Config struct {
	// =========================================================================
	// REFERENCE DATA SETTINGS
	// =========================================================================

	// Reference describes where the reference tables are loaded from.
	Reference ReferenceConfig `yaml:"reference"`

	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is the directory where invoice CSV files are placed.
	// The application scans this directory for files to process.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir is the directory where generated report files are placed.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir is the directory where invoice files are moved after
	// successful processing. Files stay in InputDir when processing fails
	// so the next run picks them up again.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// OutputArchiveDir is the directory where report files are archived
	// for long-term storage.
	// Default: "./output_archive"
	OutputArchiveDir string `yaml:"output_archive_dir"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile is the path to the application log file.
	// Default: "./logs/reporting.log"
	LogFile string `yaml:"log_file"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// Output controls report serialization and file naming.
	Output OutputConfig `yaml:"output"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of invoice files to process
	// concurrently. Set to 1 for sequential processing.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// ArchiveRetentionDays removes archived files older than this many
	// days at the end of each run. Zero keeps archives forever.
	// Default: 0
	ArchiveRetentionDays int `yaml:"archive_retention_days"`
}

// ReferenceConfig describes the source of the ten reference tables.
type ReferenceConfig struct {
	// Source selects the loader.
	// Valid values:
	//   "csv"      - one CSV file per table under Dir
	//   "workbook" - one XLSX workbook with one sheet per table
	// Default: "csv"
	Source string `yaml:"source"`

	// Dir is the directory holding the per-table CSV files.
	// Each table is read from "<Dir>/<TableName>.csv".
	// Default: "./data"
	Dir string `yaml:"dir"`

	// Workbook is the path to the XLSX workbook when Source is "workbook".
	// Each table is read from the sheet with the table's name.
	// Default: "./data/reference.xlsx"
	Workbook string `yaml:"workbook"`

	// Delimiter is the field separator of the reference and invoice CSV
	// files. Accepts a literal character or the aliases "tab", "pipe"
	// and "semicolon".
	// Default: ","
	Delimiter string `yaml:"delimiter"`
}

// OutputConfig controls report serialization and file naming.
type OutputConfig struct {
	// Formats lists the formats written for each invoice file.
	// Valid values: "json", "csv", "xlsx"
	// Default: ["json"]
	Formats []string `yaml:"formats"`

	// FileNameFormat defines the output file name, without extension.
	// Placeholders:
	//   {stem}      - The invoice file name without extension
	//   {timestamp} - Processing timestamp (YYYYMMDD_HHMMSS)
	//   {uuid}      - A random UUID
	// Default: "{stem}_reports_{uuid}"
	FileNameFormat string `yaml:"file_name_format"`

	// RoundDecimals rounds numeric values in csv and xlsx output to this
	// many decimals. Set to -1 to keep full precision. JSON output always
	// keeps full precision so reruns stay byte-identical.
	// Default: 3
	RoundDecimals int `yaml:"round_decimals"`
}

// =============================================================================
// REFERENCE SOURCE CONSTANTS
// =============================================================================

const (
	// SourceCSV loads reference tables from per-table CSV files.
	SourceCSV = "csv"

	// SourceWorkbook loads reference tables from a single XLSX workbook.
	SourceWorkbook = "workbook"
)

// =============================================================================
// CONFIGURATION LOADING
// =============================================================================

// Load reads the configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the configuration file.
//
// RETURNS:
//   - A pointer to the Config struct with defaults applied.
//   - An error if the file cannot be read, parsed or validated.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&config)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	var config Config
	applyDefaults(&config)
	return &config
}

// applyDefaults sets default values for any unset configuration options.
func applyDefaults(config *Config) {
	if config.Reference.Source == "" {
		config.Reference.Source = SourceCSV
	}
	if config.Reference.Dir == "" {
		config.Reference.Dir = "./data"
	}
	if config.Reference.Workbook == "" {
		config.Reference.Workbook = "./data/reference.xlsx"
	}
	if config.Reference.Delimiter == "" {
		config.Reference.Delimiter = ","
	}
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.OutputArchiveDir == "" {
		config.OutputArchiveDir = "./output_archive"
	}
	if config.LogFile == "" {
		config.LogFile = "./logs/reporting.log"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if len(config.Output.Formats) == 0 {
		config.Output.Formats = []string{string(reportwriter.FormatJSON)}
	}
	if config.Output.FileNameFormat == "" {
		config.Output.FileNameFormat = "{stem}_reports_{uuid}"
	}
	if config.Output.RoundDecimals == 0 {
		config.Output.RoundDecimals = 3
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 4
	}
}

// validate checks the configuration and creates the working directories.
func validate(config *Config) error {
	switch config.Reference.Source {
	case SourceCSV, SourceWorkbook:
	default:
		return fmt.Errorf("reference.source must be %q or %q, got %q",
			SourceCSV, SourceWorkbook, config.Reference.Source)
	}

	for _, name := range config.Output.Formats {
		if _, err := reportwriter.ParseFormat(name); err != nil {
			return fmt.Errorf("output.formats: %w", err)
		}
	}

	if config.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be at least 1, got %d", config.MaxConcurrency)
	}
	if config.ArchiveRetentionDays < 0 {
		return fmt.Errorf("archive_retention_days must not be negative, got %d", config.ArchiveRetentionDays)
	}

	dirs := []string{
		config.InputDir,
		config.OutputDir,
		config.InputArchiveDir,
		config.OutputArchiveDir,
	}
	for _, dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}

// Formats returns the configured output formats, parsed. The list is
// validated on load, so parse errors cannot occur here.
func (c *Config) Formats() []reportwriter.Format {
	formats := make([]reportwriter.Format, 0, len(c.Output.Formats))
	for _, name := range c.Output.Formats {
		formats = append(formats, reportwriter.Format(strings.ToLower(name)))
	}
	return formats
}
