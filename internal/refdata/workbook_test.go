package refdata

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/magnber/downstream-reporting/internal/types"
)

// writeReferenceWorkbook renders a reference dataset as one workbook
// with a sheet per table. Values are written as text so they reach the
// decoders exactly as a hand-maintained workbook would deliver them.
func writeReferenceWorkbook(t *testing.T) string {
	t.Helper()

	sheets := []struct {
		name string
		rows [][]interface{}
	}{
		{TableMaterial, [][]interface{}{
			{"material_code", "description"},
			{"M001", "Mixed scrap metal"},
			{"M002", "Recycled aluminium"},
		}},
		{TableFacility, [][]interface{}{
			{"facility_id", "name", "location"},
			{"F001", "Oslo Recycling Plant", "Oslo, Norway"},
		}},
		{TableMaterialTransformation, [][]interface{}{
			{"facility_id", "input_material_code", "output_material_code", "percentage", "category"},
			{"F001", "M001", "M002", "0.9", "Material Recycling"},
			{"F001", "M001", "M003", "0.1", "Losses"},
		}},
		{TableEmissionFactor, [][]interface{}{
			{"facility_id", "material_code", "emission_factor"},
			{"F001", "M001", "19.5"},
		}},
		{TableOutputDistribution, [][]interface{}{
			{"output_material_code", "destination_country", "percentage"},
			{"M002", "Norway", "0.6"},
			{"M002", "Germany", "0.4"},
		}},
		{TableTransportFactor, [][]interface{}{
			{"mode_of_transport", "emission_factor"},
			{"Truck", "0.05"},
		}},
		{TableUpstreamDistance, [][]interface{}{
			{"customer_id", "facility_id", "inbound_average_distance", "inbound_mode_of_transport"},
			{"CUST1", "F001", "500", "Truck"},
		}},
		{TableDownstreamDistance, [][]interface{}{
			{"facility_id", "destination_country", "average_distance", "mode_of_transport"},
			{"F001", "Norway", "500", "Truck"},
		}},
		{TableVirginBenchmark, [][]interface{}{
			{"material_code", "emissions"},
			{"M002", "3056"},
		}},
		{TableGeographicRegion, [][]interface{}{
			{"country", "region"},
			{"Norway", "Scandinavia"},
		}},
	}

	f := excelize.NewFile()
	for i, sheet := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName(f.GetSheetName(0), sheet.name))
		} else {
			_, err := f.NewSheet(sheet.name)
			require.NoError(t, err)
		}
		for rowIdx, row := range sheet.rows {
			cell, err := excelize.CoordinatesToCellName(1, rowIdx+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(sheet.name, cell, &row))
		}
	}

	path := filepath.Join(t.TempDir(), "reference.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func TestLoadTablesFromWorkbook(t *testing.T) {
	path := writeReferenceWorkbook(t)

	tables, err := LoadTablesFromWorkbook(path)
	require.NoError(t, err)

	assert.Len(t, tables.Materials, 2)
	assert.Len(t, tables.Facilities, 1)
	assert.Len(t, tables.Transformations, 2)
	assert.Len(t, tables.ProcessingFactors, 1)
	assert.Len(t, tables.Distributions, 2)
	assert.Len(t, tables.TransportFactors, 1)
	assert.Len(t, tables.UpstreamDistances, 1)
	assert.Len(t, tables.DownstreamDistances, 1)
	assert.Len(t, tables.Benchmarks, 1)
	assert.Len(t, tables.Regions, 1)

	// Values decode identically to the CSV form of the same table.
	mt := tables.Transformations[0]
	assert.Equal(t, "F001", mt.FacilityID)
	assert.Equal(t, "M002", mt.OutputMaterialCode)
	assert.Equal(t, 0.9, mt.Percentage)
	assert.Equal(t, types.CategoryMaterialRecycling, mt.Category)
	assert.Equal(t, 2, mt.SourceRow)

	assert.Equal(t, "Oslo, Norway", tables.Facilities[0].Location)
	assert.Equal(t, 19.5, tables.ProcessingFactors[0].EmissionFactor)
	assert.Equal(t, 3056.0, tables.Benchmarks[0].Emissions)
}

func TestLoadTablesFromWorkbook_MissingSheet(t *testing.T) {
	f := excelize.NewFile()
	path := filepath.Join(t.TempDir(), "incomplete.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	_, err := LoadTablesFromWorkbook(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), TableMaterial)
}

func TestLoadTablesFromWorkbook_MissingFile(t *testing.T) {
	_, err := LoadTablesFromWorkbook(filepath.Join(t.TempDir(), "absent.xlsx"))
	require.Error(t, err)
}
