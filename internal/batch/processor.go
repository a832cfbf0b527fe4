// =============================================================================
// Downstream Reporting - Batch Processor Module
// =============================================================================
//
// This module processes a single invoice file end to end, from CSV parsing
// to delivered report files.
//
// PROCESSING PIPELINE:
//   1. Open the invoice file and check its header
//   2. Generate report rows for each invoice
//   3. Serialize the rows into the configured output formats
//   4. Write the output files
//   5. Archive the processed files
//
// FAILURE SEMANTICS:
//   An invoice that fails (malformed row, missing reference entry) is
//   recorded and skipped; the rest of the file still processes. Output
//   files are written for the invoices that succeeded. The input file is
//   archived only when every invoice succeeded, so a fixed reference
//   dataset can be applied by simply re-running.
//
// CONCURRENCY:
//   Each file is processed in its own goroutine. The processor only
//   reads the shared snapshot and configuration; warnings go through
//   the concurrency-safe collector.
//
// =============================================================================

package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/magnber/downstream-reporting/internal/config"
	"github.com/magnber/downstream-reporting/internal/csvfile"
	"github.com/magnber/downstream-reporting/internal/report"
	"github.com/magnber/downstream-reporting/internal/reportwriter"
	"github.com/magnber/downstream-reporting/internal/types"
	"github.com/magnber/downstream-reporting/pkg/utils"
)

// invoiceColumns are the required columns of an invoice file.
var invoiceColumns = []string{
	"invoice_id",
	"customer_id",
	"delivery_date",
	"facility_id",
	"material_code",
	"volume",
}

// =============================================================================
// RESULT STRUCTURES
// =============================================================================

// Result represents the outcome of processing a single invoice file.
type Result struct {
	// FilePath is the path to the invoice file that was processed.
	FilePath string

	// OutputFiles are the paths to the generated report files, one per
	// configured format. Empty if processing failed or was a dry run.
	OutputFiles []string

	// ArchivePath is where the invoice file was moved after processing.
	// Empty if the file was not archived.
	ArchivePath string

	// Success indicates whether the file itself was processed. A file
	// with failed invoices still counts as processed; the failures are
	// listed in InvoiceErrors.
	Success bool

	// Error contains the file-level error if processing failed.
	Error error

	// InvoiceErrors lists the invoices that produced no report rows.
	InvoiceErrors []InvoiceError

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// InvoiceError describes an invoice that could not be reported on.
type InvoiceError struct {
	// InvoiceID identifies the invoice, empty when the row was too
	// malformed to carry one.
	InvoiceID string

	// Row is the row number in the invoice file, including the header.
	Row int

	// Err is the underlying error.
	Err error
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// InvoicesProcessed is the number of invoice rows read from the file.
	InvoicesProcessed int

	// InvoicesFailed is the number of invoices that produced an error.
	InvoicesFailed int

	// RowsGenerated is the number of report rows generated.
	RowsGenerated int

	// Warnings is the number of warnings raised while generating.
	Warnings int

	// ProcessingTime is the time taken to process the file.
	ProcessingTime time.Duration
}

// =============================================================================
// PROCESSOR STRUCTURE
// =============================================================================

// Processor handles the processing of a single invoice file.
type Processor struct {
	// invoicePath is the path to the invoice CSV file.
	invoicePath string

	// cfg is the application configuration.
	cfg *config.Config

	// generator turns invoices into report rows.
	generator *report.Generator

	// fileManager handles output placement and archival.
	fileManager *utils.FileManager

	// collector receives warnings from all files in the run.
	collector *report.Collector

	// dryRun skips writing and archiving.
	dryRun bool
}

// New creates a Processor for one invoice file.
//
// PARAMETERS:
//   - invoicePath: The path to the invoice CSV file.
//   - cfg: The application configuration.
//   - generator: The report generator, shared across files.
//   - fileManager: The file manager, shared across files.
//   - collector: The warning collector, shared across files.
//
// RETURNS:
//   - A new Processor instance.
func New(invoicePath string, cfg *config.Config, generator *report.Generator, fileManager *utils.FileManager, collector *report.Collector) *Processor {
	return &Processor{
		invoicePath: invoicePath,
		cfg:         cfg,
		generator:   generator,
		fileManager: fileManager,
		collector:   collector,
	}
}

// SetDryRun makes Run generate and validate without writing or archiving.
func (p *Processor) SetDryRun(dryRun bool) {
	p.dryRun = dryRun
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the report pipeline for the file.
//
// RETURNS:
//   - A Result struct containing the outcome of the processing.
func (p *Processor) Run() Result {
	startTime := time.Now()
	result := Result{
		FilePath: p.invoicePath,
		Success:  false,
	}

	// =========================================================================
	// STEP 1: OPEN INVOICE FILE
	// =========================================================================
	// Invoice files can be large, so rows are streamed rather than read
	// into memory at once.

	log.Info().Str("file", p.invoicePath).Msg("Processing invoice file")

	reader, err := csvfile.NewStreamingReader(p.invoicePath, csvfile.Options{
		Delimiter: p.cfg.Reference.Delimiter,
	})
	if err != nil {
		result.Error = fmt.Errorf("failed to open invoice file: %w", err)
		return result
	}
	defer reader.Close()

	if err := reader.Require(invoiceColumns...); err != nil {
		result.Error = fmt.Errorf("invalid invoice file: %w", err)
		return result
	}

	// =========================================================================
	// STEP 2: GENERATE REPORT ROWS
	// =========================================================================
	// Each invoice expands into zero or more report rows. Failures are
	// per-invoice: one bad invoice does not stop the file.

	var allRows []types.ReportRow

	for reader.Next() {
		row := reader.Row()
		result.Stats.InvoicesProcessed++

		invoice, err := parseInvoice(row)
		if err != nil {
			result.InvoiceErrors = append(result.InvoiceErrors, InvoiceError{
				InvoiceID: row.Fields["invoice_id"],
				Row:       row.Number,
				Err:       err,
			})
			log.Warn().Str("file", p.invoicePath).Int("row", row.Number).Err(err).
				Msg("Skipping malformed invoice row")
			continue
		}

		rows, warnings, err := p.generator.Generate(invoice)
		if err != nil {
			result.InvoiceErrors = append(result.InvoiceErrors, InvoiceError{
				InvoiceID: invoice.InvoiceID,
				Row:       row.Number,
				Err:       err,
			})
			log.Warn().Str("invoice", invoice.InvoiceID).Err(err).
				Msg("Skipping invoice")
			continue
		}

		if len(warnings) > 0 {
			p.collector.Add(warnings...)
			result.Stats.Warnings += len(warnings)
		}

		allRows = append(allRows, rows...)
	}

	if err := reader.Err(); err != nil {
		result.Error = fmt.Errorf("failed to read invoice file: %w", err)
		return result
	}

	result.Stats.InvoicesFailed = len(result.InvoiceErrors)
	result.Stats.RowsGenerated = len(allRows)
	log.Debug().Str("file", p.invoicePath).
		Int("invoices", result.Stats.InvoicesProcessed).
		Int("rows", len(allRows)).
		Msg("Generated report rows")

	// =========================================================================
	// STEP 3 AND 4: SERIALIZE AND WRITE OUTPUT FILES
	// =========================================================================
	// All formats share one generated file name and differ only in
	// extension, so the delivery for one invoice file stays together.

	if p.dryRun {
		log.Info().Str("file", p.invoicePath).
			Int("rows", len(allRows)).
			Strs("formats", p.cfg.Output.Formats).
			Msg("Dry run, skipping output")
		result.Success = true
		result.Stats.ProcessingTime = time.Since(startTime)
		return result
	}

	stem := strings.TrimSuffix(filepath.Base(p.invoicePath), filepath.Ext(p.invoicePath))
	baseName := utils.GenerateOutputFileName(p.cfg.Output.FileNameFormat, map[string]string{
		"stem": stem,
	})

	opts := reportwriter.Options{RoundDecimals: p.cfg.Output.RoundDecimals}

	for _, format := range p.cfg.Formats() {
		data, err := reportwriter.Generate(allRows, format, opts)
		if err != nil {
			result.Error = fmt.Errorf("failed to generate %s output: %w", format, err)
			return result
		}

		outputPath := filepath.Join(p.cfg.OutputDir, baseName+format.Extension())
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			result.Error = fmt.Errorf("failed to write output: %w", err)
			return result
		}

		result.OutputFiles = append(result.OutputFiles, outputPath)
		log.Info().Str("output", outputPath).Int("rows", len(allRows)).
			Msg("Wrote report file")
	}

	// =========================================================================
	// STEP 5: ARCHIVE FILES
	// =========================================================================
	// Archive failures are logged but do not fail the processing; the
	// reports were already delivered.

	if len(result.InvoiceErrors) == 0 {
		archivePath, err := p.fileManager.ArchiveInputFile(p.invoicePath)
		if err != nil {
			log.Warn().Str("file", p.invoicePath).Err(err).
				Msg("Failed to archive invoice file")
		} else {
			result.ArchivePath = archivePath
		}
	} else {
		log.Warn().Str("file", p.invoicePath).
			Int("failed_invoices", len(result.InvoiceErrors)).
			Msg("Leaving invoice file in place for reprocessing")
	}

	for _, outputPath := range result.OutputFiles {
		if _, err := p.fileManager.ArchiveOutputFile(outputPath); err != nil {
			log.Warn().Str("file", outputPath).Err(err).
				Msg("Failed to archive report file")
		}
	}

	// =========================================================================
	// COMPLETE
	// =========================================================================

	result.Success = true
	result.Stats.ProcessingTime = time.Since(startTime)

	return result
}

// =============================================================================
// INVOICE PARSING
// =============================================================================

// parseInvoice builds an Invoice from a CSV row.
//
// PARAMETERS:
//   - row: The CSV row with the invoice columns.
//
// RETURNS:
//   - The parsed invoice.
//   - An error if a required field is missing or the volume is not a
//     non-negative number.
func parseInvoice(row csvfile.Row) (types.Invoice, error) {
	invoice := types.Invoice{
		InvoiceID:    row.Fields["invoice_id"],
		CustomerID:   row.Fields["customer_id"],
		DeliveryDate: row.Fields["delivery_date"],
		FacilityID:   row.Fields["facility_id"],
		MaterialCode: row.Fields["material_code"],
	}

	for _, column := range invoiceColumns {
		if column == "volume" {
			continue
		}
		if strings.TrimSpace(row.Fields[column]) == "" {
			return types.Invoice{}, fmt.Errorf("missing %s", column)
		}
	}

	volume, err := parseVolume(row.Fields["volume"])
	if err != nil {
		return types.Invoice{}, err
	}
	invoice.Volume = volume

	return invoice, nil
}

// parseVolume parses the delivered volume in tonnes.
func parseVolume(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("missing volume")
	}

	volume, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid volume %q", raw)
	}
	if volume < 0 {
		return 0, fmt.Errorf("volume must not be negative, got %s", raw)
	}
	return volume, nil
}
