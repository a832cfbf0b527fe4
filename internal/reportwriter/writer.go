// =============================================================================
// Downstream Reporting - Report Writers
// =============================================================================
//
// Serialization of report rows into the delivery formats:
//
//   json - the canonical format, consumed by the customer portal. Keys
//          and key order match the upstream system's export; nullable
//          fields serialize as JSON null, never as 0 or "N/A". Numbers
//          keep full precision so reruns are byte-identical.
//   csv  - for spreadsheet users; null becomes an empty cell, numbers
//          are formatted with a configurable number of decimals.
//   xlsx - same layout as csv, written as a workbook.
//
// All writers return bytes; file placement and naming belong to the
// batch layer.
//
// =============================================================================

package reportwriter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/magnber/downstream-reporting/internal/types"
)

// =============================================================================
// FORMATS AND OPTIONS
// =============================================================================

// Format identifies an output format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a format name from configuration. Matching is
// case-insensitive.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (expected json, csv or xlsx)", s)
	}
}

// Extension returns the file extension for the format, with the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// Options controls number rendering in the spreadsheet formats.
type Options struct {
	// RoundDecimals rounds numeric values in csv and xlsx output to
	// this many decimals. Zero keeps full precision. JSON output is
	// never rounded.
	RoundDecimals int
}

// columns is the column order of the spreadsheet formats, matching the
// JSON key order.
var columns = []string{
	"invoice_id",
	"customer_id",
	"delivery_date",
	"facility_id",
	"input_material_code",
	"output_material_code",
	"category",
	"volume_delivered",
	"output_volume",
	"processing_emissions",
	"inbound_transport_emissions",
	"outbound_transport_emissions",
	"total_transport_emissions",
	"production_benchmark_emissions",
	"destination_country",
	"destination_region",
	"destination_volume",
}

// =============================================================================
// ENTRY POINT
// =============================================================================

// Generate serializes rows into the requested format.
func Generate(rows []types.ReportRow, format Format, opts Options) ([]byte, error) {
	switch format {
	case FormatJSON:
		return generateJSON(rows)
	case FormatCSV:
		return generateCSV(rows, opts)
	case FormatXLSX:
		return generateXLSX(rows, opts)
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// =============================================================================
// JSON
// =============================================================================

// generateJSON renders the canonical indented array. A batch with zero
// rows is an empty array, not null.
func generateJSON(rows []types.ReportRow) ([]byte, error) {
	if rows == nil {
		rows = []types.ReportRow{}
	}

	data, err := json.MarshalIndent(rows, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report rows: %w", err)
	}
	return append(data, '\n'), nil
}

// =============================================================================
// CSV
// =============================================================================

func generateCSV(rows []types.ReportRow, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(columns); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.InvoiceID,
			row.CustomerID,
			row.DeliveryDate,
			row.FacilityID,
			row.InputMaterialCode,
			row.OutputMaterialCode,
			row.Category.String(),
			formatNumber(row.VolumeDelivered, opts),
			formatNumber(row.OutputVolume, opts),
			formatNumber(row.ProcessingEmissions, opts),
			formatNumber(row.InboundTransportEmissions, opts),
			formatNullableNumber(row.OutboundTransportEmissions, opts),
			formatNumber(row.TotalTransportEmissions, opts),
			formatNullableNumber(row.ProductionBenchmarkEmissions, opts),
			stringOrEmpty(row.DestinationCountry),
			stringOrEmpty(row.DestinationRegion),
			formatNullableNumber(row.DestinationVolume, opts),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// =============================================================================
// XLSX
// =============================================================================

func generateXLSX(rows []types.ReportRow, opts Options) ([]byte, error) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	for col, name := range columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to build header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return nil, fmt.Errorf("failed to write header cell: %w", err)
		}
	}

	for i, row := range rows {
		values := []interface{}{
			row.InvoiceID,
			row.CustomerID,
			row.DeliveryDate,
			row.FacilityID,
			row.InputMaterialCode,
			row.OutputMaterialCode,
			row.Category.String(),
			roundValue(row.VolumeDelivered, opts),
			roundValue(row.OutputVolume, opts),
			roundValue(row.ProcessingEmissions, opts),
			roundValue(row.InboundTransportEmissions, opts),
			nullableValue(row.OutboundTransportEmissions, opts),
			roundValue(row.TotalTransportEmissions, opts),
			nullableValue(row.ProductionBenchmarkEmissions, opts),
			nullableString(row.DestinationCountry),
			nullableString(row.DestinationRegion),
			nullableValue(row.DestinationVolume, opts),
		}

		for col, value := range values {
			if value == nil {
				continue // null stays an empty cell
			}
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, fmt.Errorf("failed to build cell for row %d: %w", i+1, err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write cell for row %d: %w", i+1, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// =============================================================================
// VALUE FORMATTING
// =============================================================================

// formatNumber renders a float for the csv format, full precision when
// RoundDecimals is zero.
func formatNumber(v float64, opts Options) string {
	if opts.RoundDecimals > 0 {
		return strconv.FormatFloat(v, 'f', opts.RoundDecimals, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatNullableNumber(p *float64, opts Options) string {
	if p == nil {
		return ""
	}
	return formatNumber(*p, opts)
}

func stringOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// roundValue rounds a float for the xlsx format, where cells stay
// numeric rather than text.
func roundValue(v float64, opts Options) interface{} {
	if opts.RoundDecimals > 0 {
		scale := math.Pow10(opts.RoundDecimals)
		return math.Round(v*scale) / scale
	}
	return v
}

func nullableValue(p *float64, opts Options) interface{} {
	if p == nil {
		return nil
	}
	return roundValue(*p, opts)
}

func nullableString(p *string) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
