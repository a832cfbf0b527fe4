// =============================================================================
// Downstream Reporting - Reference Data Loader (Workbook)
// =============================================================================
//
// Loads the reference tables from a single XLSX workbook with one sheet
// per table, named exactly like the CSV files without the extension.
// The master-data team distributes the reference set both ways; the
// workbook is the hand-maintained form, the CSV directory the exported
// form. Both feed the same per-table decoders, so a value that loads
// from one source loads identically from the other.
//
// =============================================================================

package refdata

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/magnber/downstream-reporting/internal/csvfile"
)

// LoadTablesFromWorkbook reads every reference table from the workbook
// at path. All ten sheets must exist.
func LoadTablesFromWorkbook(path string) (*Tables, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("workbook", path).Msg("failed to close workbook")
		}
	}()

	tables := &Tables{}

	steps := []struct {
		sheet  string
		decode func(*csvfile.Table) error
	}{
		{TableMaterial, tables.decodeMaterials},
		{TableFacility, tables.decodeFacilities},
		{TableMaterialTransformation, tables.decodeTransformations},
		{TableEmissionFactor, tables.decodeProcessingFactors},
		{TableOutputDistribution, tables.decodeDistributions},
		{TableTransportFactor, tables.decodeTransportFactors},
		{TableUpstreamDistance, tables.decodeUpstreamDistances},
		{TableDownstreamDistance, tables.decodeDownstreamDistances},
		{TableVirginBenchmark, tables.decodeBenchmarks},
		{TableGeographicRegion, tables.decodeRegions},
	}

	for _, step := range steps {
		raw, err := f.GetRows(step.sheet)
		if err != nil {
			return nil, fmt.Errorf("reading sheet %s: %w", step.sheet, err)
		}

		table, err := csvfile.TableFromRows(fmt.Sprintf("%s#%s", path, step.sheet), raw, 1)
		if err != nil {
			return nil, err
		}
		if err := step.decode(table); err != nil {
			return nil, err
		}
	}

	logLoadSummary(path, tables)
	return tables, nil
}
