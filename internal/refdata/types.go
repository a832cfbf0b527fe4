// =============================================================================
// Downstream Reporting - Reference Data Records
// =============================================================================
//
// Record types for the ten reference tables exported by the upstream
// master-data system. One struct per table, with the upstream column
// names preserved in the field docs so the export format stays easy to
// trace. The loaded tables are indexed into a Snapshot (snapshot.go)
// before the pipeline touches them.
//
// =============================================================================

package refdata

import (
	"github.com/shopspring/decimal"

	"github.com/magnber/downstream-reporting/internal/types"
)

// Table names, shared by CSV file names (<name>.csv), workbook sheet
// names, and error messages.
const (
	TableMaterial               = "Material"
	TableFacility               = "Facility"
	TableMaterialTransformation = "MaterialTransformation"
	TableEmissionFactor         = "EmissionFactorProcessing"
	TableOutputDistribution     = "EstimatedOutputDistributionGeo"
	TableTransportFactor        = "TransportEmissionFactor"
	TableUpstreamDistance       = "AverageUpstreamDistances"
	TableDownstreamDistance     = "AverageDownstreamDistances"
	TableVirginBenchmark        = "VirginMaterialProductionBenchmark"
	TableGeographicRegion       = "GeographicRegion"
)

// Material describes a material code (columns: material_code, description).
type Material struct {
	// SourceRow is the row number in the source file, for diagnostics.
	// Zero for records built in memory.
	SourceRow int

	Code        string
	Description string
}

// Facility describes a processing facility (columns: facility_id, name,
// location).
type Facility struct {
	SourceRow int

	ID       string
	Name     string
	Location string
}

// MaterialTransformation is one line of a facility's input-to-output
// mapping, comparable to a bill-of-materials line: processing one tonne
// of the input material at the facility yields Percentage tonnes of the
// output material. A (facility, input) group carries one line per output
// and its yields normally sum to 1, losses included as their own line.
//
// Columns: facility_id, input_material_code, output_material_code,
// percentage, category.
type MaterialTransformation struct {
	SourceRow int

	FacilityID         string
	InputMaterialCode  string
	OutputMaterialCode string

	// Percentage is the yield fraction in [0,1], as a float for the
	// pipeline arithmetic.
	Percentage float64

	// PercentageExact is the yield exactly as written in the source.
	// Validation sums these, so 0.083-style fractions add without
	// float drift.
	PercentageExact decimal.Decimal

	// Category is the output material's fate classification.
	Category types.Category
}

// EmptyTransformationSet declares a (facility, input material) pair that
// is configured with no reportable outputs. The upstream export encodes
// it as a MaterialTransformation row with the output columns left blank.
// The pair is then a valid lookup that expands to zero report rows,
// which is a different situation from a pair nobody configured.
type EmptyTransformationSet struct {
	SourceRow int

	FacilityID        string
	InputMaterialCode string
}

// ProcessingEmissionFactor is the processing intensity of a facility for
// an input material, in kg CO2e per tonne processed (columns:
// facility_id, material_code, emission_factor).
type ProcessingEmissionFactor struct {
	SourceRow int

	FacilityID     string
	MaterialCode   string
	EmissionFactor float64
}

// OutputDistribution is one destination-market share of an output
// material: the estimated fraction of the output sold to one country.
// Shares for an output material sum to 1. Only materials in the
// Material Recycling category are distributed.
//
// Columns: output_material_code, destination_country, percentage.
type OutputDistribution struct {
	SourceRow int

	OutputMaterialCode string
	DestinationCountry string

	// Percentage is the share fraction in [0,1].
	Percentage float64

	// PercentageExact mirrors PercentageExact on
	// MaterialTransformation; validation requires the shares of an
	// output to sum to exactly 1.
	PercentageExact decimal.Decimal
}

// TransportEmissionFactor is the emission intensity of a transport mode
// in kg CO2e per tonne-km (columns: mode_of_transport, emission_factor).
type TransportEmissionFactor struct {
	SourceRow int

	ModeOfTransport string
	EmissionFactor  float64
}

// UpstreamDistance is the average inbound haul for a customer-facility
// lane (columns: customer_id, facility_id, inbound_average_distance,
// inbound_mode_of_transport).
type UpstreamDistance struct {
	SourceRow int

	CustomerID      string
	FacilityID      string
	AverageDistance float64
	ModeOfTransport string
}

// DownstreamDistance is the average outbound haul from a facility to a
// destination country (columns: facility_id, destination_country,
// average_distance, mode_of_transport). A row with destination country
// "Unknown" acts as the facility's catch-all lane for volume whose
// market could not be attributed.
type DownstreamDistance struct {
	SourceRow int

	FacilityID         string
	DestinationCountry string
	AverageDistance    float64
	ModeOfTransport    string
}

// VirginBenchmark is the virgin-production benchmark for a material in
// kg CO2e per tonne produced (columns: material_code, emissions).
type VirginBenchmark struct {
	SourceRow int

	MaterialCode string
	Emissions    float64
}

// GeographicRegion maps a destination country to its reporting region
// (columns: country, region).
type GeographicRegion struct {
	SourceRow int

	Country string
	Region  string
}

// Tables holds the loaded reference tables in file order, before
// indexing. Loaders produce it; validation inspects it; NewSnapshot
// indexes it. Tests build it directly to avoid any file setup.
type Tables struct {
	Materials               []Material
	Facilities              []Facility
	Transformations         []MaterialTransformation
	EmptyTransformationSets []EmptyTransformationSet
	ProcessingFactors       []ProcessingEmissionFactor
	Distributions           []OutputDistribution
	TransportFactors        []TransportEmissionFactor
	UpstreamDistances       []UpstreamDistance
	DownstreamDistances     []DownstreamDistance
	Benchmarks              []VirginBenchmark
	Regions                 []GeographicRegion
}
