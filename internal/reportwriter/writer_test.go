package reportwriter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/magnber/downstream-reporting/internal/types"
)

// sampleRows returns one destination row and one facility-gate row, so
// every nullable field is exercised in both states.
func sampleRows() []types.ReportRow {
	return []types.ReportRow{
		{
			InvoiceID:                    "INV001",
			CustomerID:                   "CUST1",
			DeliveryDate:                 "2026-08-14",
			FacilityID:                   "F001",
			InputMaterialCode:            "M001",
			OutputMaterialCode:           "M002",
			Category:                     types.CategoryMaterialRecycling,
			VolumeDelivered:              6000,
			OutputVolume:                 4500,
			ProcessingEmissions:          117000,
			InboundTransportEmissions:    75000,
			OutboundTransportEmissions:   types.Float64(1125.4567),
			TotalTransportEmissions:      76125.4567,
			ProductionBenchmarkEmissions: types.Float64(6876000),
			DestinationCountry:           types.String("Norway"),
			DestinationRegion:            types.String("Scandinavia"),
			DestinationVolume:            types.Float64(2250),
		},
		{
			InvoiceID:                 "INV001",
			CustomerID:                "CUST1",
			DeliveryDate:              "2026-08-14",
			FacilityID:                "F001",
			InputMaterialCode:         "M001",
			OutputMaterialCode:        "M004",
			Category:                  types.CategoryLosses,
			VolumeDelivered:           6000,
			OutputVolume:              438,
			ProcessingEmissions:       8541,
			InboundTransportEmissions: 5475,
			TotalTransportEmissions:   5475,
		},
	}
}

func TestGenerate_JSON(t *testing.T) {
	rows := sampleRows()

	data, err := Generate(rows, FormatJSON, Options{})
	require.NoError(t, err)

	text := string(data)
	assert.True(t, strings.HasSuffix(text, "\n"))
	assert.Contains(t, text, `"category": "Material Recycling"`)
	assert.Contains(t, text, `"outbound_transport_emissions": null`)
	assert.Contains(t, text, `"destination_country": null`)

	var decoded []types.ReportRow
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, rows, decoded)
}

func TestGenerate_JSON_EmptyBatch(t *testing.T) {
	for _, rows := range [][]types.ReportRow{nil, {}} {
		data, err := Generate(rows, FormatJSON, Options{})
		require.NoError(t, err)
		assert.Equal(t, "[]\n", string(data))
	}
}

func TestGenerate_JSON_Deterministic(t *testing.T) {
	first, err := Generate(sampleRows(), FormatJSON, Options{})
	require.NoError(t, err)
	second, err := Generate(sampleRows(), FormatJSON, Options{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestGenerate_CSV(t *testing.T) {
	data, err := Generate(sampleRows(), FormatCSV, Options{RoundDecimals: 2})
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, columns, records[0])

	dest := records[1]
	assert.Equal(t, "INV001", dest[0])
	assert.Equal(t, "Material Recycling", dest[6])
	assert.Equal(t, "6000.00", dest[7])
	assert.Equal(t, "1125.46", dest[11])
	assert.Equal(t, "Norway", dest[14])
	assert.Equal(t, "2250.00", dest[16])

	gate := records[2]
	assert.Equal(t, "Losses", gate[6])
	assert.Equal(t, "", gate[11])
	assert.Equal(t, "", gate[14])
	assert.Equal(t, "", gate[16])
}

func TestGenerate_CSV_FullPrecision(t *testing.T) {
	data, err := Generate(sampleRows(), FormatCSV, Options{})
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "1125.4567", records[1][11])
	assert.Equal(t, "6000", records[1][7])
}

func TestGenerate_XLSX(t *testing.T) {
	data, err := Generate(sampleRows(), FormatXLSX, Options{RoundDecimals: 3})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, columns, rows[0])

	dest := rows[1]
	require.Len(t, dest, len(columns))
	assert.Equal(t, "INV001", dest[0])
	assert.Equal(t, "Material Recycling", dest[6])
	volume, err := strconv.ParseFloat(dest[7], 64)
	require.NoError(t, err)
	assert.InDelta(t, 6000, volume, 1e-9)
	outbound, err := strconv.ParseFloat(dest[11], 64)
	require.NoError(t, err)
	assert.InDelta(t, 1125.457, outbound, 1e-9)
	assert.Equal(t, "Norway", dest[14])

	// Null cells are never written, and GetRows trims the trailing run
	// of empty cells, so the gate row ends at total_transport_emissions.
	gate := rows[2]
	require.Len(t, gate, 13)
	assert.Equal(t, "Losses", gate[6])
	assert.Equal(t, "", gate[11])
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Format
		wantErr bool
	}{
		{"lowercase json", "json", FormatJSON, false},
		{"uppercase json", "JSON", FormatJSON, false},
		{"mixed case csv", "Csv", FormatCSV, false},
		{"xlsx", "xlsx", FormatXLSX, false},
		{"unsupported format", "xml", "", true},
		{"empty", "", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseFormat(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFormat_Extension(t *testing.T) {
	assert.Equal(t, ".json", FormatJSON.Extension())
	assert.Equal(t, ".csv", FormatCSV.Extension())
	assert.Equal(t, ".xlsx", FormatXLSX.Extension())
}

func TestGenerate_UnknownFormat(t *testing.T) {
	_, err := Generate(nil, Format("xml"), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}
