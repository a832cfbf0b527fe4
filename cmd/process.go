// =============================================================================
// Downstream Reporting - Process Command
// =============================================================================
//
// This file defines the 'process' command, which is the main command for
// turning invoice files into report files. It orchestrates the entire
// pipeline.
//
// COMMAND USAGE:
//   reporting process [flags]
//
// FLAGS:
//   --dry-run : Generate and validate without writing output files
//   --file    : Process only the specified invoice file
//
// PROCESSING PIPELINE:
//   1. Load the configuration
//   2. Load and validate the reference dataset, build the snapshot
//   3. Discover invoice CSV files in the input directory
//   4. For each file (concurrently):
//      a. Parse the invoice rows
//      b. Generate report rows per invoice
//      c. Serialize into the configured formats
//      d. Write the output files
//      e. Archive the processed files
//   5. Write the error log and run summary
//   6. Apply the archive retention policy
//
// =============================================================================

package cmd

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/magnber/downstream-reporting/internal/batch"
	"github.com/magnber/downstream-reporting/internal/refdata"
	"github.com/magnber/downstream-reporting/internal/report"
	"github.com/magnber/downstream-reporting/internal/validation"
	"github.com/magnber/downstream-reporting/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// dryRun generates reports without writing output files.
var dryRun bool

// singleFile is the path to a specific invoice file to process. When
// empty, the input directory is scanned.
var singleFile string

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

// processCmd represents the 'process' command.
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process invoice files into environmental impact reports",
	Long: `The process command loads the reference dataset, scans the input
directory for invoice CSV files, and generates an environmental impact
report for every invoiced delivery.

Files are processed concurrently. Each file is processed independently,
and errors in one file do not affect the processing of others. Within a
file, an invoice that cannot be reported on (for example because a
reference entry is missing) is skipped and logged; the remaining
invoices still produce reports.

On successful processing:
  - The report files are placed in the output directory
  - The invoice file is moved to the input archive
  - A run summary is written to the output directory

On error:
  - An error log is created in the output directory
  - The invoice file remains in the input directory
  - Processing continues for other files`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess()
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

// init registers the process command with the root command and sets up flags.
func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(
		&dryRun,
		"dry-run",
		false,
		"Generate and validate without writing output files",
	)

	processCmd.Flags().StringVar(
		&singleFile,
		"file",
		"",
		"Process only the specified invoice file",
	)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runProcess orchestrates the report pipeline.
func runProcess() error {
	startTime := time.Now()

	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	fmt.Println("=== Downstream Reporting ===")
	if dryRun {
		fmt.Println("Dry run: no files will be written")
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// =========================================================================
	// STEP 2: LOAD AND VALIDATE REFERENCE DATA
	// =========================================================================
	// Reference errors abort the run before any invoice is touched; a
	// broken dataset would otherwise fail invoices one by one.

	fmt.Println("Loading reference data...")

	tables, err := loadReferenceTables(cfg)
	if err != nil {
		return fmt.Errorf("failed to load reference data: %w", err)
	}

	checked := validation.Check(tables, validation.DefaultOptions())
	for _, issue := range checked.Warnings {
		log.Warn().Msg(issue.String())
	}
	if !checked.Valid() {
		fmt.Println(validation.FormatIssues(checked.Errors))
		return fmt.Errorf("reference data failed validation with %d error(s)", len(checked.Errors))
	}

	snapshot := refdata.NewSnapshot(tables)
	generator := report.NewGenerator(snapshot)

	// =========================================================================
	// STEP 3: DISCOVER INPUT FILES
	// =========================================================================

	fileManager := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.OutputArchiveDir)
	fileManager.ArchiveOnSuccess = !dryRun
	if err := fileManager.EnsureDirectories(); err != nil {
		return err
	}

	var inputFiles []string
	if singleFile != "" {
		if !utils.FileExists(singleFile) {
			return fmt.Errorf("invoice file not found: %s", singleFile)
		}
		inputFiles = []string{singleFile}
	} else {
		fmt.Println("Discovering invoice files...")
		inputFiles, err = fileManager.DiscoverInputFiles("*.csv")
		if err != nil {
			return fmt.Errorf("failed to discover invoice files: %w", err)
		}
	}

	if len(inputFiles) == 0 {
		fmt.Println("No invoice files found in the input directory.")
		return nil
	}

	fmt.Printf("Found %d file(s) to process\n", len(inputFiles))

	// =========================================================================
	// STEP 4: PROCESS FILES CONCURRENTLY
	// =========================================================================
	// Each file runs in its own goroutine, bounded by max_concurrency.
	// The generator and snapshot are shared read-only; warnings funnel
	// into one collector.

	fmt.Println("Processing files...")

	var wg sync.WaitGroup
	results := make(chan batch.Result, len(inputFiles))
	semaphore := make(chan struct{}, cfg.MaxConcurrency)
	collector := report.NewCollector()

	for _, file := range inputFiles {
		wg.Add(1)

		go func(invoicePath string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			processor := batch.New(invoicePath, cfg, generator, fileManager, collector)
			processor.SetDryRun(dryRun)
			results <- processor.Run()
		}(file)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// =========================================================================
	// STEP 5: COLLECT RESULTS
	// =========================================================================

	summary := utils.ProcessingSummary{
		StartTime:  startTime,
		TotalFiles: len(inputFiles),
	}
	var errorEntries []utils.ErrorLogEntry
	failedInvoices := 0

	for result := range results {
		base := filepath.Base(result.FilePath)

		if result.Success {
			summary.SuccessfulFiles++
			summary.TotalInvoices += result.Stats.InvoicesProcessed
			summary.TotalReportRows += result.Stats.RowsGenerated
			summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
				InputFile:   result.FilePath,
				OutputFiles: result.OutputFiles,
				ArchivePath: result.ArchivePath,
				Invoices:    result.Stats.InvoicesProcessed,
				ReportRows:  result.Stats.RowsGenerated,
				Warnings:    result.Stats.Warnings,
				ProcessTime: result.Stats.ProcessingTime,
			})

			switch {
			case len(result.InvoiceErrors) > 0:
				fmt.Printf("  ! %s: %d of %d invoice(s) failed\n",
					base, len(result.InvoiceErrors), result.Stats.InvoicesProcessed)
			case dryRun:
				fmt.Printf("  + %s (%d rows, dry run)\n", base, result.Stats.RowsGenerated)
			default:
				fmt.Printf("  + %s -> %s\n", base, joinBaseNames(result.OutputFiles))
			}
		} else {
			summary.FailedFiles++
			summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
				InputFile:    result.FilePath,
				ErrorMessage: result.Error.Error(),
				ErrorType:    "file",
			})
			errorEntries = append(errorEntries, utils.ErrorLogEntry{
				Timestamp:    time.Now(),
				FileName:     result.FilePath,
				ErrorType:    "file",
				ErrorMessage: result.Error.Error(),
			})
			fmt.Printf("  x %s: %v\n", base, result.Error)
		}

		for _, invErr := range result.InvoiceErrors {
			failedInvoices++
			errorEntries = append(errorEntries, utils.ErrorLogEntry{
				Timestamp:    time.Now(),
				FileName:     result.FilePath,
				ErrorType:    "invoice",
				ErrorMessage: invErr.Err.Error(),
				InvoiceID:    invErr.InvoiceID,
				RowNumber:    invErr.Row,
			})
		}
	}

	// Results arrive in completion order; sort for stable summaries.
	sort.Slice(summary.ProcessedFiles, func(i, j int) bool {
		return summary.ProcessedFiles[i].InputFile < summary.ProcessedFiles[j].InputFile
	})
	sort.Slice(summary.FailedFilesList, func(i, j int) bool {
		return summary.FailedFilesList[i].InputFile < summary.FailedFilesList[j].InputFile
	})
	sort.Slice(errorEntries, func(i, j int) bool {
		if errorEntries[i].FileName != errorEntries[j].FileName {
			return errorEntries[i].FileName < errorEntries[j].FileName
		}
		return errorEntries[i].RowNumber < errorEntries[j].RowNumber
	})

	warnings := collector.Warnings()
	summary.TotalWarnings = len(warnings)
	for _, w := range warnings {
		summary.Warnings = append(summary.Warnings, w.String())
	}
	sort.Strings(summary.Warnings)

	// =========================================================================
	// STEP 6: SUMMARY AND RUN LOGS
	// =========================================================================

	elapsed := time.Since(startTime)
	fmt.Println("\n=== Processing Complete ===")
	fmt.Printf("Total files:     %d\n", summary.TotalFiles)
	fmt.Printf("Successful:      %d\n", summary.SuccessfulFiles)
	fmt.Printf("Failed:          %d\n", summary.FailedFiles)
	fmt.Printf("Invoices:        %d\n", summary.TotalInvoices)
	fmt.Printf("Failed invoices: %d\n", failedInvoices)
	fmt.Printf("Report rows:     %d\n", summary.TotalReportRows)
	fmt.Printf("Warnings:        %d\n", summary.TotalWarnings)
	fmt.Printf("Time elapsed:    %s\n", elapsed)

	if !dryRun {
		if len(errorEntries) > 0 {
			logPath, err := utils.WriteErrorLog(errorEntries, cfg.OutputDir)
			if err != nil {
				log.Warn().Err(err).Msg("Failed to write error log")
			} else {
				fmt.Printf("\nError log: %s\n", logPath)
			}
		}

		summary.EndTime = time.Now()
		summaryPath, err := utils.WriteSummaryLog(summary, cfg.OutputDir)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to write summary log")
		} else {
			fmt.Printf("Summary:   %s\n", summaryPath)
		}
	}

	// =========================================================================
	// STEP 7: ARCHIVE RETENTION
	// =========================================================================

	if !dryRun && cfg.ArchiveRetentionDays > 0 {
		maxAge := time.Duration(cfg.ArchiveRetentionDays) * 24 * time.Hour
		for _, dir := range []string{cfg.InputArchiveDir, cfg.OutputArchiveDir} {
			removed, err := utils.CleanOldArchives(dir, maxAge)
			if err != nil {
				log.Warn().Str("dir", dir).Err(err).Msg("Failed to clean archives")
				continue
			}
			if removed > 0 {
				log.Info().Str("dir", dir).Int("removed", removed).Msg("Cleaned old archives")
			}
		}
	}

	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// joinBaseNames renders output paths as a compact comma-separated list.
func joinBaseNames(paths []string) string {
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	return strings.Join(names, ", ")
}
