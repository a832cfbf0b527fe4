package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magnber/downstream-reporting/internal/refdata"
	"github.com/magnber/downstream-reporting/internal/report"
	"github.com/magnber/downstream-reporting/internal/types"
)

func frac(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// cleanTables builds a dataset that passes every check: yields and
// shares sum to exactly 1, every referenced code is declared, every
// lane mode has a factor, and every recycled output has a benchmark,
// a distribution, and lanes to all its destinations.
func cleanTables() *refdata.Tables {
	return &refdata.Tables{
		Materials: []refdata.Material{
			{SourceRow: 2, Code: "M001", Description: "Mixed scrap steel"},
			{SourceRow: 3, Code: "M002", Description: "Recycled steel billet"},
			{SourceRow: 4, Code: "M003", Description: "Shredder light fraction"},
			{SourceRow: 5, Code: "M004", Description: "Process loss"},
		},
		Facilities: []refdata.Facility{
			{SourceRow: 2, ID: "F001", Name: "Oslo Shredder", Location: "Oslo, Norway"},
		},
		Transformations: []refdata.MaterialTransformation{
			{SourceRow: 2, FacilityID: "F001", InputMaterialCode: "M001", OutputMaterialCode: "M002",
				Percentage: 0.783, PercentageExact: frac("0.783"), Category: types.CategoryMaterialRecycling},
			{SourceRow: 3, FacilityID: "F001", InputMaterialCode: "M001", OutputMaterialCode: "M003",
				Percentage: 0.144, PercentageExact: frac("0.144"), Category: types.CategoryEnergyRecycling},
			{SourceRow: 4, FacilityID: "F001", InputMaterialCode: "M001", OutputMaterialCode: "M004",
				Percentage: 0.073, PercentageExact: frac("0.073"), Category: types.CategoryLosses},
		},
		ProcessingFactors: []refdata.ProcessingEmissionFactor{
			{SourceRow: 2, FacilityID: "F001", MaterialCode: "M001", EmissionFactor: 19.5},
		},
		Distributions: []refdata.OutputDistribution{
			{SourceRow: 2, OutputMaterialCode: "M002", DestinationCountry: "Norway", Percentage: 0.5, PercentageExact: frac("0.5")},
			{SourceRow: 3, OutputMaterialCode: "M002", DestinationCountry: "Germany", Percentage: 0.3, PercentageExact: frac("0.3")},
			{SourceRow: 4, OutputMaterialCode: "M002", DestinationCountry: "China", Percentage: 0.2, PercentageExact: frac("0.2")},
		},
		TransportFactors: []refdata.TransportEmissionFactor{
			{SourceRow: 2, ModeOfTransport: "Truck", EmissionFactor: 0.05},
			{SourceRow: 3, ModeOfTransport: "Rail", EmissionFactor: 0.02},
			{SourceRow: 4, ModeOfTransport: "Ship", EmissionFactor: 0.01},
		},
		UpstreamDistances: []refdata.UpstreamDistance{
			{SourceRow: 2, CustomerID: "CUST1", FacilityID: "F001", AverageDistance: 500, ModeOfTransport: "Truck"},
		},
		DownstreamDistances: []refdata.DownstreamDistance{
			{SourceRow: 2, FacilityID: "F001", DestinationCountry: "Norway", AverageDistance: 500, ModeOfTransport: "Truck"},
			{SourceRow: 3, FacilityID: "F001", DestinationCountry: "Germany", AverageDistance: 1800, ModeOfTransport: "Rail"},
			{SourceRow: 4, FacilityID: "F001", DestinationCountry: "China", AverageDistance: 20000, ModeOfTransport: "Ship"},
		},
		Benchmarks: []refdata.VirginBenchmark{
			{SourceRow: 2, MaterialCode: "M002", Emissions: 3056},
		},
		Regions: []refdata.GeographicRegion{
			{SourceRow: 2, Country: "Norway", Region: "Scandinavia"},
			{SourceRow: 3, Country: "Germany", Region: "Central Europe"},
			{SourceRow: 4, Country: "China", Region: "Asia"},
		},
	}
}

func TestCheck_CleanDataset(t *testing.T) {
	result := Check(cleanTables(), DefaultOptions())

	assert.True(t, result.Valid())
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestCheck_DistributionSharesMustSumToOne(t *testing.T) {
	tables := cleanTables()
	tables.Distributions = tables.Distributions[:2]
	tables.DownstreamDistances = tables.DownstreamDistances[:2]

	result := Check(tables, DefaultOptions())

	assert.False(t, result.Valid())
	require.Len(t, result.Errors, 1)
	issue := result.Errors[0]
	assert.Equal(t, SeverityError, issue.Severity)
	assert.Equal(t, refdata.TableOutputDistribution, issue.Table)
	assert.Equal(t, 2, issue.Row)
	assert.Equal(t, "percentage", issue.Field)
	assert.Contains(t, issue.Message, "sum to 0.8")
	assert.Empty(t, result.Warnings)
}

func TestCheck_YieldSumDriftIsAWarning(t *testing.T) {
	tables := cleanTables()
	tables.Transformations[0].Percentage = 0.683
	tables.Transformations[0].PercentageExact = frac("0.683")

	result := Check(tables, DefaultOptions())

	assert.True(t, result.Valid())
	require.Len(t, result.Warnings, 1)
	issue := result.Warnings[0]
	assert.Equal(t, refdata.TableMaterialTransformation, issue.Table)
	assert.Equal(t, 2, issue.Row)
	assert.Equal(t, "percentage", issue.Field)
	assert.Contains(t, issue.Message, "sum to 0.9")
}

func TestCheck_FractionOutsideRange(t *testing.T) {
	tables := cleanTables()
	tables.Transformations[0].Percentage = 1.5
	tables.Transformations[0].PercentageExact = frac("1.5")

	result := Check(tables, DefaultOptions())

	assert.False(t, result.Valid())
	require.Len(t, result.Errors, 1)
	assert.Equal(t, refdata.TableMaterialTransformation, result.Errors[0].Table)
	assert.Equal(t, "percentage", result.Errors[0].Field)
	assert.Contains(t, result.Errors[0].Message, "outside [0,1]")

	// The inflated yield also pushes the group sum off 1.
	assert.Len(t, result.Warnings, 1)
}

func TestCheck_LaneModeWithoutFactor(t *testing.T) {
	tables := cleanTables()
	tables.DownstreamDistances[0].ModeOfTransport = "Ferry"

	result := Check(tables, DefaultOptions())

	assert.False(t, result.Valid())
	require.Len(t, result.Errors, 1)
	issue := result.Errors[0]
	assert.Equal(t, refdata.TableDownstreamDistance, issue.Table)
	assert.Equal(t, "mode_of_transport", issue.Field)
	assert.Contains(t, issue.Message, "mode Ferry has no entry")
	assert.Empty(t, result.Warnings)
}

func TestCheck_NegativeValues(t *testing.T) {
	tables := cleanTables()
	tables.ProcessingFactors[0].EmissionFactor = -1
	tables.DownstreamDistances[0].AverageDistance = -10
	tables.Benchmarks[0].Emissions = -5

	result := Check(tables, DefaultOptions())

	assert.False(t, result.Valid())
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0].Message, "negative emission factor")
	assert.Contains(t, result.Errors[1].Message, "negative distance")
	assert.Contains(t, result.Errors[2].Message, "negative benchmark")
	assert.Empty(t, result.Warnings)
}

func TestCheck_MissingBenchmarkIsPredicted(t *testing.T) {
	tables := cleanTables()
	tables.Benchmarks = nil

	result := Check(tables, DefaultOptions())

	assert.True(t, result.Valid())
	require.Len(t, result.Warnings, 1)
	issue := result.Warnings[0]
	assert.Equal(t, refdata.TableVirginBenchmark, issue.Table)
	assert.Equal(t, 0, issue.Row)
	assert.Contains(t, issue.Message, "M002")
}

func TestCheck_MissingDistributionNeedsCatchAllLane(t *testing.T) {
	tables := cleanTables()
	tables.Distributions = nil

	result := Check(tables, DefaultOptions())

	assert.True(t, result.Valid())
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, refdata.TableOutputDistribution, result.Warnings[0].Table)
	assert.Contains(t, result.Warnings[0].Message, "catch-all")

	// A catch-all lane absorbs the unattributed volume, so the same
	// dataset with one is clean.
	tables.DownstreamDistances = append(tables.DownstreamDistances, refdata.DownstreamDistance{
		SourceRow:          5,
		FacilityID:         "F001",
		DestinationCountry: report.UnknownDestination,
		AverageDistance:    1000,
		ModeOfTransport:    "Truck",
	})

	result = Check(tables, DefaultOptions())
	assert.True(t, result.Valid())
	assert.Empty(t, result.Warnings)
}

func TestCheck_DistributionDestinationWithoutLane(t *testing.T) {
	tables := cleanTables()
	tables.DownstreamDistances = tables.DownstreamDistances[:2]

	result := Check(tables, DefaultOptions())

	assert.True(t, result.Valid())
	require.Len(t, result.Warnings, 1)
	issue := result.Warnings[0]
	assert.Equal(t, refdata.TableDownstreamDistance, issue.Table)
	assert.Contains(t, issue.Message, "destination_country=China")
	assert.Contains(t, issue.Message, "output M002")
}

func TestCheck_DuplicateKeysWarn(t *testing.T) {
	tables := cleanTables()
	tables.ProcessingFactors = append(tables.ProcessingFactors, refdata.ProcessingEmissionFactor{
		SourceRow: 3, FacilityID: "F001", MaterialCode: "M001", EmissionFactor: 21,
	})
	tables.TransportFactors = append(tables.TransportFactors, refdata.TransportEmissionFactor{
		SourceRow: 5, ModeOfTransport: "Truck", EmissionFactor: 0.06,
	})

	result := Check(tables, DefaultOptions())

	assert.True(t, result.Valid())
	require.Len(t, result.Warnings, 2)
	assert.Contains(t, result.Warnings[0].Message, "duplicate factor for facility_id=F001, material_code=M001")
	assert.Contains(t, result.Warnings[1].Message, "duplicate mode Truck")
	assert.Contains(t, result.Warnings[1].Message, "the last row wins")
}

func TestCheck_UnknownCodesWarn(t *testing.T) {
	tables := cleanTables()
	tables.ProcessingFactors = append(tables.ProcessingFactors, refdata.ProcessingEmissionFactor{
		SourceRow: 3, FacilityID: "F001", MaterialCode: "M999", EmissionFactor: 10,
	})

	result := Check(tables, DefaultOptions())

	assert.True(t, result.Valid())
	require.Len(t, result.Warnings, 1)
	issue := result.Warnings[0]
	assert.Equal(t, refdata.TableEmissionFactor, issue.Table)
	assert.Equal(t, "material_code", issue.Field)
	assert.Contains(t, issue.Message, "material M999 is not in the Material table")
}

func TestIssue_String(t *testing.T) {
	tests := []struct {
		name  string
		issue Issue
		want  string
	}{
		{
			name: "row and field",
			issue: Issue{
				Severity: SeverityError,
				Table:    refdata.TableMaterialTransformation,
				Row:      4,
				Field:    "percentage",
				Message:  "yield fraction 1.5 outside [0,1]",
			},
			want: "ERROR MaterialTransformation row 4 [percentage]: yield fraction 1.5 outside [0,1]",
		},
		{
			name: "table level",
			issue: Issue{
				Severity: SeverityWarning,
				Table:    refdata.TableVirginBenchmark,
				Message:  "no benchmark for recycled output M002",
			},
			want: "WARNING VirginMaterialProductionBenchmark: no benchmark for recycled output M002",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.issue.String())
		})
	}
}

func TestFormatIssues(t *testing.T) {
	issues := []Issue{
		{Severity: SeverityError, Table: "A", Message: "first"},
		{Severity: SeverityWarning, Table: "B", Message: "second"},
	}

	assert.Equal(t, "ERROR A: first\nWARNING B: second", FormatIssues(issues))
	assert.Empty(t, FormatIssues(nil))
}
