// =============================================================================
// Downstream Reporting - Report Generator
// =============================================================================
//
// This module contains the core computation: one invoice in, the full
// set of downstream report rows out. It traces the delivered material
// through the facility's transformation ratios, attributes processing
// and inbound transport emissions to the outputs, estimates where each
// recycled output is sold, and prices the downstream haul and the
// virgin-production benchmark per destination.
//
// REPORT PIPELINE:
//   1. Expand the invoice into (output material, category, volume)
//   2. Compute invoice-level processing emissions
//   3. Compute invoice-level inbound transport emissions
//   4. Allocate both totals across outputs by volume share
//   5. Resolve destination markets for Material Recycling outputs
//   6. Compute outbound transport and benchmark per destination
//   7. Assemble rows, nulling the downstream fields for categories
//      that stop at the facility gate
//
// CONCURRENCY:
//   A Generator is immutable and holds only the reference Snapshot, so
//   one instance can serve any number of goroutines; each Generate call
//   works purely on its own invoice. All lookups are in-memory reads,
//   nothing blocks, and there is no cancellation point inside a call.
//
// DETERMINISM:
//   Rows are emitted in transformation definition order, and per output
//   in distribution definition order. Two calls with the same invoice
//   against the same Snapshot return identical row sequences.
//
// =============================================================================

package report

import (
	"fmt"

	"github.com/magnber/downstream-reporting/internal/refdata"
	"github.com/magnber/downstream-reporting/internal/types"
)

// UnknownDestination is the implicit destination market used when a
// Material Recycling output has no configured distribution. Facilities
// that want such volume reported configure a catch-all downstream lane
// for this destination.
const UnknownDestination = "Unknown"

// Generator computes downstream reports against one reference Snapshot.
type Generator struct {
	snap *refdata.Snapshot
}

// NewGenerator returns a Generator bound to the given Snapshot.
func NewGenerator(snap *refdata.Snapshot) *Generator {
	return &Generator{snap: snap}
}

// outputExpansion is one output produced from the delivered material.
type outputExpansion struct {
	// MaterialCode is the output material.
	MaterialCode string

	// Category is the output's fate classification.
	Category types.Category

	// Volume is the produced volume in tonnes (delivered x yield).
	Volume float64
}

// destinationShare is one destination market of an output.
type destinationShare struct {
	// Country is the destination market.
	Country string

	// Fraction is the output-volume fraction sold there.
	Fraction float64

	// Volume is the shipped volume in tonnes.
	Volume float64
}

// Generate runs the full pipeline for one invoice.
//
// RETURNS:
//   - The report rows in deterministic order. On error the row slice is
//     nil: an invoice either reports completely or not at all.
//   - Data-quality warnings attached to this invoice. Warnings never
//     abort processing.
//   - An error wrapping ErrLookupNotFound when a required reference
//     entry is missing. The error aborts this invoice only; the caller
//     decides whether the batch continues.
func (g *Generator) Generate(inv types.Invoice) ([]types.ReportRow, []Warning, error) {
	// STEP 1: Expand the invoice into outputs.
	outputs, err := g.expandOutputs(inv)
	if err != nil {
		return nil, nil, err
	}

	var warnings []Warning

	// A configured-but-empty transformation set means the pair is known
	// and defines no reportable outputs. That is zero rows plus a
	// warning, not a failure and not a silent drop.
	if len(outputs) == 0 {
		warnings = append(warnings, Warning{
			Code:      WarnEmptyTransformation,
			InvoiceID: inv.InvoiceID,
			Message: fmt.Sprintf("transformation set for facility_id=%s, input_material_code=%s defines no outputs; invoice produces no rows",
				inv.FacilityID, inv.MaterialCode),
		})
		return []types.ReportRow{}, warnings, nil
	}

	// STEP 2: Invoice-level processing emissions.
	processingTotal, err := g.processingEmissions(inv)
	if err != nil {
		return nil, nil, err
	}

	// STEP 3: Invoice-level inbound transport emissions.
	inboundTotal, err := g.inboundEmissions(inv)
	if err != nil {
		return nil, nil, err
	}

	// STEP 4: Allocate both totals across outputs by volume share. The
	// denominator is shared, so one zero-sum warning covers both.
	weights := make([]weightedOutput, len(outputs))
	for i, out := range outputs {
		weights[i] = weightedOutput{key: out.MaterialCode, weight: out.Volume}
	}

	processingShares, ok := distributeByShare(processingTotal, weights)
	inboundShares, _ := distributeByShare(inboundTotal, weights)
	if !ok {
		warnings = append(warnings, Warning{
			Code:      WarnZeroOutputVolume,
			InvoiceID: inv.InvoiceID,
			Message:   "output volumes sum to zero; processing and transport shares are all zero",
		})
	}

	// STEP 5-7: Branch per output on category, resolve destinations,
	// and assemble the rows.
	rows := make([]types.ReportRow, 0, len(outputs))
	for i, out := range outputs {
		processingShare := processingShares[i].share
		inboundShare := inboundShares[i].share

		if !out.Category.HasDownstream() {
			rows = append(rows, g.gateRow(inv, out, processingShare, inboundShare))
			continue
		}

		destinations, warning := g.resolveDestinations(inv, out)
		if warning != nil {
			warnings = append(warnings, *warning)
		}

		for _, dest := range destinations {
			row, err := g.destinationRow(inv, out, dest, processingShare, inboundShare)
			if err != nil {
				return nil, nil, err
			}
			rows = append(rows, row)
		}
	}

	return rows, warnings, nil
}

// =============================================================================
// PIPELINE STAGES
// =============================================================================

// expandOutputs turns the delivery into outputs via the facility's
// transformation set. An unconfigured (facility, input) pair is a
// lookup failure; its absence means the facility cannot account for
// this material at all.
func (g *Generator) expandOutputs(inv types.Invoice) ([]outputExpansion, error) {
	transformations, ok := g.snap.Transformations(inv.FacilityID, inv.MaterialCode)
	if !ok {
		return nil, notFound(inv.InvoiceID, refdata.TableMaterialTransformation,
			"facility_id", inv.FacilityID, "input_material_code", inv.MaterialCode)
	}

	outputs := make([]outputExpansion, len(transformations))
	for i, mt := range transformations {
		outputs[i] = outputExpansion{
			MaterialCode: mt.OutputMaterialCode,
			Category:     mt.Category,
			Volume:       inv.Volume * mt.Percentage,
		}
	}
	return outputs, nil
}

// processingEmissions computes the invoice-level processing total:
// delivered volume x facility emission factor.
func (g *Generator) processingEmissions(inv types.Invoice) (float64, error) {
	factor, ok := g.snap.ProcessingFactor(inv.FacilityID, inv.MaterialCode)
	if !ok {
		return 0, notFound(inv.InvoiceID, refdata.TableEmissionFactor,
			"facility_id", inv.FacilityID, "material_code", inv.MaterialCode)
	}
	return inv.Volume * factor, nil
}

// inboundEmissions computes the invoice-level inbound transport total:
// delivered volume x lane distance x mode factor.
func (g *Generator) inboundEmissions(inv types.Invoice) (float64, error) {
	route, ok := g.snap.UpstreamRoute(inv.CustomerID, inv.FacilityID)
	if !ok {
		return 0, notFound(inv.InvoiceID, refdata.TableUpstreamDistance,
			"customer_id", inv.CustomerID, "facility_id", inv.FacilityID)
	}

	factor, ok := g.snap.TransportFactor(route.ModeOfTransport)
	if !ok {
		return 0, notFound(inv.InvoiceID, refdata.TableTransportFactor,
			"mode_of_transport", route.ModeOfTransport)
	}

	return inv.Volume * route.AverageDistance * factor, nil
}

// resolveDestinations expands a Material Recycling output into its
// destination markets. A missing distribution falls back to the
// implicit UnknownDestination carrying the full volume, flagged with a
// warning; downstream market data is routinely incomplete and the
// output must still appear in the report.
func (g *Generator) resolveDestinations(inv types.Invoice, out outputExpansion) ([]destinationShare, *Warning) {
	distribution, ok := g.snap.Distribution(out.MaterialCode)
	if !ok || len(distribution) == 0 {
		warning := &Warning{
			Code:               WarnMissingDistribution,
			InvoiceID:          inv.InvoiceID,
			OutputMaterialCode: out.MaterialCode,
			Message: fmt.Sprintf("no destination distribution for output_material_code=%s; assigning full volume to %q",
				out.MaterialCode, UnknownDestination),
		}
		return []destinationShare{{Country: UnknownDestination, Fraction: 1, Volume: out.Volume}}, warning
	}

	destinations := make([]destinationShare, len(distribution))
	for i, od := range distribution {
		destinations[i] = destinationShare{
			Country:  od.DestinationCountry,
			Fraction: od.Percentage,
			Volume:   out.Volume * od.Percentage,
		}
	}
	return destinations, nil
}

// =============================================================================
// ROW ASSEMBLY
// =============================================================================

// destinationRow assembles the row for one destination of a Material
// Recycling output. The inbound share is pro-rated by the destination
// fraction so a row's transport total is internally additive and the
// destination rows of one output sum back to the output's share.
func (g *Generator) destinationRow(inv types.Invoice, out outputExpansion, dest destinationShare, processingShare, inboundShare float64) (types.ReportRow, error) {
	route, ok := g.snap.DownstreamRoute(inv.FacilityID, dest.Country)
	if !ok {
		// Unlike a missing distribution, a missing lane for a market we
		// claim to ship to is a genuine reference-data gap.
		return types.ReportRow{}, notFound(inv.InvoiceID, refdata.TableDownstreamDistance,
			"facility_id", inv.FacilityID, "destination_country", dest.Country)
	}

	factor, ok := g.snap.TransportFactor(route.ModeOfTransport)
	if !ok {
		return types.ReportRow{}, notFound(inv.InvoiceID, refdata.TableTransportFactor,
			"mode_of_transport", route.ModeOfTransport)
	}

	benchmarkFactor, ok := g.snap.Benchmark(out.MaterialCode)
	if !ok {
		return types.ReportRow{}, notFound(inv.InvoiceID, refdata.TableVirginBenchmark,
			"material_code", out.MaterialCode)
	}

	outbound := dest.Volume * route.AverageDistance * factor
	benchmark := dest.Volume * benchmarkFactor
	inboundRowShare := inboundShare * dest.Fraction

	var region *string
	if r, ok := g.snap.Region(dest.Country); ok {
		region = types.String(r)
	}

	return types.ReportRow{
		InvoiceID:                    inv.InvoiceID,
		CustomerID:                   inv.CustomerID,
		DeliveryDate:                 inv.DeliveryDate,
		FacilityID:                   inv.FacilityID,
		InputMaterialCode:            inv.MaterialCode,
		OutputMaterialCode:           out.MaterialCode,
		Category:                     out.Category,
		VolumeDelivered:              inv.Volume,
		OutputVolume:                 out.Volume,
		ProcessingEmissions:          processingShare,
		InboundTransportEmissions:    inboundRowShare,
		OutboundTransportEmissions:   types.Float64(outbound),
		TotalTransportEmissions:      inboundRowShare + outbound,
		ProductionBenchmarkEmissions: types.Float64(benchmark),
		DestinationCountry:           types.String(dest.Country),
		DestinationRegion:            region,
		DestinationVolume:            types.Float64(dest.Volume),
	}, nil
}

// gateRow assembles the single row for an output that stops at the
// facility gate (Energy Recycling, Losses). The downstream fields are
// nil, not zero: the material has no downstream leg, which is different
// from a downstream leg that emitted nothing.
func (g *Generator) gateRow(inv types.Invoice, out outputExpansion, processingShare, inboundShare float64) types.ReportRow {
	return types.ReportRow{
		InvoiceID:                    inv.InvoiceID,
		CustomerID:                   inv.CustomerID,
		DeliveryDate:                 inv.DeliveryDate,
		FacilityID:                   inv.FacilityID,
		InputMaterialCode:            inv.MaterialCode,
		OutputMaterialCode:           out.MaterialCode,
		Category:                     out.Category,
		VolumeDelivered:              inv.Volume,
		OutputVolume:                 out.Volume,
		ProcessingEmissions:          processingShare,
		InboundTransportEmissions:    inboundShare,
		OutboundTransportEmissions:   nil,
		TotalTransportEmissions:      inboundShare,
		ProductionBenchmarkEmissions: nil,
		DestinationCountry:           nil,
		DestinationRegion:            nil,
		DestinationVolume:            nil,
	}
}
