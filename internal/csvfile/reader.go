// =============================================================================
// Downstream Reporting - Delimited File Reader
// =============================================================================
//
// This module reads the delimited exports that feed the reporting pipeline:
// the reference tables and the invoice files. Exports arrive from more than
// one upstream system, so the reader tolerates:
//   - Different delimiters (comma, semicolon, tab, pipe)
//   - Multi-row headers (merged into a single header set)
//   - Quoted fields that do not follow strict CSV rules
//   - Ragged rows (missing trailing columns become empty values)
//
// Rows are exposed as header-keyed maps together with their original file
// row number, so decoding errors upstream can point at the exact line.
//
// =============================================================================

package csvfile

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// =============================================================================
// OPTIONS AND TABLE STRUCTURES
// =============================================================================

// Options controls how a delimited file is read.
type Options struct {
	// Delimiter is the field separator. Accepts a literal character or
	// one of the aliases "tab", "pipe", "semicolon". Empty means comma.
	Delimiter string

	// HeaderRows is the number of rows that make up the header. Rows
	// beyond the first are merged column-wise into the header names.
	// Zero means one header row.
	HeaderRows int
}

// Row is a single data row keyed by header name.
type Row struct {
	// Number is the 1-indexed row number in the source file, including
	// header rows. Used in error messages.
	Number int

	// Fields maps header name to the trimmed cell value. Headers with
	// no cell in a ragged row map to "".
	Fields map[string]string
}

// Table is a fully read delimited file.
type Table struct {
	// Headers contains the cleaned, merged column headers.
	Headers []string

	// Rows contains the data rows in file order. Empty rows are skipped.
	Rows []Row

	// SourceFile is the path the table was read from.
	SourceFile string
}

// Require verifies that every named column is present in the table
// header. It returns a single error naming all missing columns, so a
// malformed export is reported in one pass.
func (t *Table) Require(columns ...string) error {
	present := make(map[string]bool, len(t.Headers))
	for _, h := range t.Headers {
		present[h] = true
	}

	var missing []string
	for _, c := range columns {
		if !present[c] {
			missing = append(missing, c)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%s: missing required columns: %s", t.SourceFile, strings.Join(missing, ", "))
	}
	return nil
}

// =============================================================================
// READER FUNCTIONS
// =============================================================================

// ReadFile reads a delimited file into a Table.
//
// PARAMETERS:
//   - filePath: The path to the delimited file.
//   - opts: Reader options (delimiter, header rows).
//
// RETURNS:
//   - The parsed table.
//   - An error if the file cannot be read or has no header.
func ReadFile(filePath string, opts Options) (*Table, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(bufio.NewReader(file))
	configureReader(reader, opts)

	allRows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	if len(allRows) == 0 {
		return nil, fmt.Errorf("%s: file is empty", filePath)
	}

	headerRows := headerRowCount(opts)
	if len(allRows) < headerRows {
		return nil, fmt.Errorf("%s: file has fewer rows than the %d header rows", filePath, headerRows)
	}

	headers := mergeHeaders(allRows[:headerRows])

	table := &Table{
		Headers:    headers,
		SourceFile: filePath,
		Rows:       make([]Row, 0, len(allRows)-headerRows),
	}

	for i := headerRows; i < len(allRows); i++ {
		if isRowEmpty(allRows[i]) {
			continue
		}
		table.Rows = append(table.Rows, Row{
			Number: i + 1,
			Fields: rowToMap(headers, allRows[i]),
		})
	}

	return table, nil
}

// TableFromRows builds a Table from rows already in memory, for sources
// that are not delimited files (a workbook sheet, a test fixture). The
// same header merging and empty-row handling as ReadFile applies; row
// numbers count from the top of the given slice.
func TableFromRows(source string, raw [][]string, headerRows int) (*Table, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%s: no rows", source)
	}
	if headerRows <= 0 {
		headerRows = 1
	}
	if len(raw) < headerRows {
		return nil, fmt.Errorf("%s: fewer rows than the %d header rows", source, headerRows)
	}

	headers := mergeHeaders(raw[:headerRows])
	table := &Table{
		Headers:    headers,
		SourceFile: source,
		Rows:       make([]Row, 0, len(raw)-headerRows),
	}
	for i := headerRows; i < len(raw); i++ {
		if isRowEmpty(raw[i]) {
			continue
		}
		table.Rows = append(table.Rows, Row{
			Number: i + 1,
			Fields: rowToMap(headers, raw[i]),
		})
	}
	return table, nil
}

// configureReader applies the options to the underlying csv.Reader.
func configureReader(reader *csv.Reader, opts Options) {
	switch opts.Delimiter {
	case "\\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	case "":
		reader.Comma = ','
	default:
		reader.Comma = rune(opts.Delimiter[0])
	}

	// Upstream exports have ragged rows and loosely quoted free-text
	// columns; tolerate both and trim the decorative leading spaces.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// headerRowCount normalizes the HeaderRows option.
func headerRowCount(opts Options) int {
	if opts.HeaderRows <= 0 {
		return 1
	}
	return opts.HeaderRows
}

// mergeHeaders builds the final header set from one or more header rows.
// Multi-row headers are merged column-wise by joining the non-empty
// values with a space:
//
//	Row 1: "Inbound", "",         "Outbound", ""
//	Row 2: "Distance", "Mode",    "Distance", "Mode"
//	Result: "Inbound Distance", "Mode", "Outbound Distance", "Mode"
//
// Columns that end up with no name at all are given a positional name so
// later required-column checks produce a readable message.
func mergeHeaders(headerRows [][]string) []string {
	maxCols := 0
	for _, row := range headerRows {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}

	headers := make([]string, maxCols)
	for col := 0; col < maxCols; col++ {
		var parts []string
		for _, row := range headerRows {
			if col < len(row) {
				if value := strings.TrimSpace(row[col]); value != "" {
					parts = append(parts, value)
				}
			}
		}
		headers[col] = strings.Join(parts, " ")
		if headers[col] == "" {
			headers[col] = fmt.Sprintf("Column_%d", col+1)
		}
	}

	return headers
}

// rowToMap converts a raw row into a header-keyed map, trimming values
// and padding ragged rows with empty strings.
func rowToMap(headers []string, row []string) map[string]string {
	fields := make(map[string]string, len(headers))
	for i, header := range headers {
		if i < len(row) {
			fields[header] = strings.TrimSpace(row[i])
		} else {
			fields[header] = ""
		}
	}
	return fields
}

// isRowEmpty reports whether every cell in the row is blank.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// STREAMING READER FOR LARGE FILES
// =============================================================================

// StreamingReader reads a delimited file row by row instead of loading
// it whole. Invoice extracts can run to millions of rows, so the batch
// driver consumes them through this reader.
//
// USAGE:
//
//	r, err := NewStreamingReader(filePath, opts)
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
//	for r.Next() {
//	    row := r.Row()
//	    // process row
//	}
//	if err := r.Err(); err != nil {
//	    return err
//	}
type StreamingReader struct {
	file       *os.File
	reader     *csv.Reader
	headers    []string
	currentRow Row
	rowNumber  int
	err        error
}

// NewStreamingReader opens the file and reads the header rows.
func NewStreamingReader(filePath string, opts Options) (*StreamingReader, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	reader := csv.NewReader(bufio.NewReader(file))
	configureReader(reader, opts)

	r := &StreamingReader{
		file:   file,
		reader: reader,
	}

	headerRows := make([][]string, 0, headerRowCount(opts))
	for i := 0; i < headerRowCount(opts); i++ {
		row, err := reader.Read()
		if err == io.EOF {
			file.Close()
			return nil, fmt.Errorf("%s: unexpected end of file while reading headers", filePath)
		}
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("%s: error reading header row %d: %w", filePath, i+1, err)
		}
		headerRows = append(headerRows, row)
		r.rowNumber++
	}

	r.headers = mergeHeaders(headerRows)
	return r, nil
}

// Next advances to the next non-empty row. It returns false at end of
// file or on error; check Err afterwards.
func (r *StreamingReader) Next() bool {
	if r.err != nil {
		return false
	}

	for {
		row, err := r.reader.Read()
		if err == io.EOF {
			return false
		}
		if err != nil {
			r.err = fmt.Errorf("error reading row %d: %w", r.rowNumber+1, err)
			return false
		}

		r.rowNumber++
		if isRowEmpty(row) {
			continue
		}

		r.currentRow = Row{
			Number: r.rowNumber,
			Fields: rowToMap(r.headers, row),
		}
		return true
	}
}

// Row returns the current row.
func (r *StreamingReader) Row() Row {
	return r.currentRow
}

// Headers returns the merged header set.
func (r *StreamingReader) Headers() []string {
	return r.headers
}

// Require verifies required columns on the streamed header, with the
// same contract as Table.Require.
func (r *StreamingReader) Require(columns ...string) error {
	t := Table{Headers: r.headers, SourceFile: r.file.Name()}
	return t.Require(columns...)
}

// Err returns the first error encountered while streaming.
func (r *StreamingReader) Err() error {
	return r.err
}

// Close closes the underlying file.
func (r *StreamingReader) Close() error {
	return r.file.Close()
}
