// =============================================================================
// Downstream Reporting - Shared Domain Types
// =============================================================================
//
// This package contains the domain types shared across multiple modules to
// avoid import cycles. Types defined here are used by:
//   - refdata
//   - report
//   - batch
//   - reportwriter
//   - validation
//
// =============================================================================

package types

import "fmt"

// =============================================================================
// INVOICE
// =============================================================================

// Invoice is a single delivery record from a customer to a facility.
// It is the immutable input to the report pipeline; one report-generation
// call consumes exactly one invoice.
type Invoice struct {
	// InvoiceID is the identifier of the delivery record.
	InvoiceID string

	// CustomerID identifies the upstream customer (supplier) that made
	// the delivery.
	CustomerID string

	// DeliveryDate is the delivery date as it appeared in the source
	// system. It is carried through to the report unparsed.
	DeliveryDate string

	// FacilityID identifies the receiving facility.
	FacilityID string

	// MaterialCode identifies the delivered input material.
	MaterialCode string

	// Volume is the delivered mass in tonnes.
	Volume float64
}

// =============================================================================
// OUTPUT CATEGORY
// =============================================================================

// Category classifies the fate of an output material produced by a
// transformation. The category drives the downstream branch of the
// pipeline: only Material Recycling outputs have a downstream leg
// (distribution, outbound transport, benchmark); Energy Recycling and
// Losses stop at the facility gate.
type Category int

const (
	categoryInvalid Category = iota

	// CategoryMaterialRecycling marks outputs sold on as recycled material.
	CategoryMaterialRecycling

	// CategoryEnergyRecycling marks outputs burned for energy recovery.
	CategoryEnergyRecycling

	// CategoryLosses marks process losses with no further use.
	CategoryLosses
)

// categoryNames holds the wire form of each category, exactly as it
// appears in the reference data and in report output.
var categoryNames = map[Category]string{
	CategoryMaterialRecycling: "Material Recycling",
	CategoryEnergyRecycling:   "Energy Recycling",
	CategoryLosses:            "Losses",
}

// ParseCategory converts the wire form of a category into its enum value.
// Unrecognized values are an error; a new category in the source data
// must be added here before it flows into reports.
func ParseCategory(s string) (Category, error) {
	for c, name := range categoryNames {
		if name == s {
			return c, nil
		}
	}
	return categoryInvalid, fmt.Errorf("unknown output category %q (expected one of: Material Recycling, Energy Recycling, Losses)", s)
}

// String returns the wire form of the category.
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "Unknown"
}

// Valid reports whether the category is one of the known values.
func (c Category) Valid() bool {
	_, ok := categoryNames[c]
	return ok
}

// HasDownstream reports whether outputs in this category are distributed
// to destination markets. Only Material Recycling outputs travel beyond
// the facility; the other categories produce a single row with the
// downstream fields nulled.
func (c Category) HasDownstream() bool {
	return c == CategoryMaterialRecycling
}

// MarshalText implements encoding.TextMarshaler so the category
// serializes as its wire form in JSON and CSV output.
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid category %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// =============================================================================
// REPORT ROW
// =============================================================================

// ReportRow is one line of the downstream report: the fate and attributed
// emissions of one output material from one invoice, for one destination
// market. Outputs without a downstream leg produce exactly one row with
// the nullable fields set to nil.
//
// Nullable fields are pointers so that "no downstream leg" serializes as
// null and stays distinguishable from a computed zero. All emissions are
// kg CO2e; all volumes are tonnes.
type ReportRow struct {
	// InvoiceID is the invoice the row was calculated from.
	InvoiceID string `json:"invoice_id"`

	// CustomerID is the customer that delivered the input material.
	CustomerID string `json:"customer_id"`

	// DeliveryDate is the delivery date from the invoice.
	DeliveryDate string `json:"delivery_date"`

	// FacilityID is the facility that processed the delivery.
	FacilityID string `json:"facility_id"`

	// InputMaterialCode is the delivered material.
	InputMaterialCode string `json:"input_material_code"`

	// OutputMaterialCode is the output material this row accounts for.
	OutputMaterialCode string `json:"output_material_code"`

	// Category is the output material's fate classification.
	Category Category `json:"category"`

	// VolumeDelivered is the invoice volume in tonnes.
	VolumeDelivered float64 `json:"volume_delivered"`

	// OutputVolume is the volume of the output material produced from
	// this delivery (invoice volume x yield fraction).
	OutputVolume float64 `json:"output_volume"`

	// ProcessingEmissions is the processing emissions share attributed
	// to this output material. Destination rows of the same output
	// repeat the output-level share.
	ProcessingEmissions float64 `json:"processing_emissions"`

	// InboundTransportEmissions is the upstream (customer to facility)
	// transport share attributed to this row. For destination rows the
	// output-level share is pro-rated by the destination's volume
	// fraction, so the destination rows of one output sum back to the
	// output's share.
	InboundTransportEmissions float64 `json:"inbound_transport_emissions"`

	// OutboundTransportEmissions is the downstream (facility to
	// destination) transport emission. Nil for categories without a
	// downstream leg.
	OutboundTransportEmissions *float64 `json:"outbound_transport_emissions"`

	// TotalTransportEmissions is the transport total for this row:
	// inbound share plus outbound where a downstream leg exists,
	// otherwise the inbound share alone.
	TotalTransportEmissions float64 `json:"total_transport_emissions"`

	// ProductionBenchmarkEmissions is the virgin-production benchmark
	// for the shipped volume. Nil for categories without a downstream
	// leg.
	ProductionBenchmarkEmissions *float64 `json:"production_benchmark_emissions"`

	// DestinationCountry is the destination market. Nil for categories
	// without a downstream leg. "Unknown" marks volume whose
	// destination could not be attributed.
	DestinationCountry *string `json:"destination_country"`

	// DestinationRegion is the geographic region of the destination
	// country, when the region table covers it. Nil otherwise.
	DestinationRegion *string `json:"destination_region"`

	// DestinationVolume is the volume shipped to the destination in
	// tonnes. Nil for categories without a downstream leg.
	DestinationVolume *float64 `json:"destination_volume"`
}

// =============================================================================
// POINTER HELPERS
// =============================================================================

// Float64 returns a pointer to v, for the nullable report fields.
func Float64(v float64) *float64 { return &v }

// String returns a pointer to v, for the nullable report fields.
func String(v string) *string { return &v }
