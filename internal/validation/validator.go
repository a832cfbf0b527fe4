// =============================================================================
// Downstream Reporting - Reference Data Validation
// =============================================================================
//
// Pre-flight semantic validation of the loaded reference tables. The
// loaders only guarantee shape (columns present, numbers numeric); this
// module checks the rules that make the numbers meaningful, and predicts
// the lookup gaps that would abort invoices at run time.
//
// SEVERITY POLICY:
//   ERROR   - data that is wrong on its own terms: fractions outside
//             [0,1], negative factors or distances, distribution shares
//             that do not sum to 1, transport modes without a factor.
//   WARNING - data that is suspicious or will degrade reports: yield
//             sums away from 1, duplicate keys (the index keeps the last
//             row), codes missing from the descriptive tables, and
//             reference gaps that would surface as LookupNotFound or as
//             an Unknown-destination fallback during processing.
//
// Fraction sums are computed with decimal arithmetic on the values as
// written in the source, so 0.083 + 0.144 + 0.773 adds exactly instead
// of accumulating float drift.
//
// =============================================================================

package validation

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/magnber/downstream-reporting/internal/refdata"
	"github.com/magnber/downstream-reporting/internal/report"
	"github.com/magnber/downstream-reporting/internal/types"
)

// =============================================================================
// ISSUE AND RESULT STRUCTURES
// =============================================================================

// Severity classifies an issue.
type Severity string

const (
	// SeverityError marks data that must be fixed before processing.
	SeverityError Severity = "ERROR"

	// SeverityWarning marks data that processing tolerates but that
	// degrades report quality.
	SeverityWarning Severity = "WARNING"
)

// Issue is a single validation finding.
type Issue struct {
	// Severity is ERROR or WARNING.
	Severity Severity

	// Table is the reference table the issue belongs to.
	Table string

	// Row is the source row number, 0 for table-level issues.
	Row int

	// Field is the offending column, empty for row- or table-level
	// issues.
	Field string

	// Message describes the finding.
	Message string
}

// String renders the issue in log form, e.g.
// "ERROR MaterialTransformation row 4 [percentage]: ...".
func (i Issue) String() string {
	var b strings.Builder
	b.WriteString(string(i.Severity))
	b.WriteString(" ")
	b.WriteString(i.Table)
	if i.Row > 0 {
		fmt.Fprintf(&b, " row %d", i.Row)
	}
	if i.Field != "" {
		fmt.Fprintf(&b, " [%s]", i.Field)
	}
	b.WriteString(": ")
	b.WriteString(i.Message)
	return b.String()
}

// Result collects the findings of one validation pass.
type Result struct {
	// Errors holds the blocking findings.
	Errors []Issue

	// Warnings holds the non-blocking findings.
	Warnings []Issue
}

// Valid reports whether the pass found no errors.
func (r *Result) Valid() bool {
	return len(r.Errors) == 0
}

func (r *Result) errorf(table string, row int, field, format string, args ...interface{}) {
	r.Errors = append(r.Errors, Issue{
		Severity: SeverityError,
		Table:    table,
		Row:      row,
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (r *Result) warnf(table string, row int, field, format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, Issue{
		Severity: SeverityWarning,
		Table:    table,
		Row:      row,
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
	})
}

// FormatIssues renders issues one per line for CLI and log output.
func FormatIssues(issues []Issue) string {
	lines := make([]string, len(issues))
	for i, issue := range issues {
		lines[i] = issue.String()
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// OPTIONS
// =============================================================================

// Options tunes the validation pass.
type Options struct {
	// SumTolerance is the allowed absolute deviation for fraction sums
	// (distribution shares and yield groups). Compared against the
	// decimal sum of the source values.
	SumTolerance decimal.Decimal
}

// DefaultOptions returns the standard tolerance of 0.001, loose enough
// for hand-entered three-decimal fractions, tight enough to catch a
// forgotten line.
func DefaultOptions() Options {
	return Options{SumTolerance: decimal.RequireFromString("0.001")}
}

// =============================================================================
// VALIDATION ENTRY POINT
// =============================================================================

// Check validates the loaded tables and returns every finding. Issue
// order is deterministic: tables in load order, rows in file order,
// cross-table checks last.
func Check(t *refdata.Tables, opts Options) *Result {
	r := &Result{}

	checkMaterials(t, r)
	checkFacilities(t, r)
	checkTransformations(t, r, opts)
	checkProcessingFactors(t, r)
	checkDistributions(t, r, opts)
	checkTransportFactors(t, r)
	checkLanes(t, r)
	checkBenchmarks(t, r)
	checkRegions(t, r)
	checkRuntimeGaps(t, r)

	return r
}

// =============================================================================
// PER-TABLE CHECKS
// =============================================================================

func checkMaterials(t *refdata.Tables, r *Result) {
	seen := make(map[string]bool, len(t.Materials))
	for _, m := range t.Materials {
		if seen[m.Code] {
			r.warnf(refdata.TableMaterial, m.SourceRow, "material_code",
				"duplicate material_code %s; the last row wins", m.Code)
		}
		seen[m.Code] = true
	}
}

func checkFacilities(t *refdata.Tables, r *Result) {
	seen := make(map[string]bool, len(t.Facilities))
	for _, f := range t.Facilities {
		if seen[f.ID] {
			r.warnf(refdata.TableFacility, f.SourceRow, "facility_id",
				"duplicate facility_id %s; the last row wins", f.ID)
		}
		seen[f.ID] = true
	}
}

func checkTransformations(t *refdata.Tables, r *Result, opts Options) {
	materials := materialSet(t)
	facilities := facilitySet(t)

	type groupKey struct{ facility, input string }
	sums := make(map[groupKey]decimal.Decimal)
	firstRow := make(map[groupKey]int)
	var groupOrder []groupKey

	dup := make(map[string]bool)

	for _, mt := range t.Transformations {
		if mt.Percentage < 0 || mt.Percentage > 1 {
			r.errorf(refdata.TableMaterialTransformation, mt.SourceRow, "percentage",
				"yield fraction %s outside [0,1]", mt.PercentageExact)
		}

		if len(materials) > 0 {
			if !materials[mt.InputMaterialCode] {
				r.warnf(refdata.TableMaterialTransformation, mt.SourceRow, "input_material_code",
					"input material %s is not in the Material table", mt.InputMaterialCode)
			}
			if !materials[mt.OutputMaterialCode] {
				r.warnf(refdata.TableMaterialTransformation, mt.SourceRow, "output_material_code",
					"output material %s is not in the Material table", mt.OutputMaterialCode)
			}
		}
		if len(facilities) > 0 && !facilities[mt.FacilityID] {
			r.warnf(refdata.TableMaterialTransformation, mt.SourceRow, "facility_id",
				"facility %s is not in the Facility table", mt.FacilityID)
		}

		dupKey := mt.FacilityID + "|" + mt.InputMaterialCode + "|" + mt.OutputMaterialCode
		if dup[dupKey] {
			r.warnf(refdata.TableMaterialTransformation, mt.SourceRow, "",
				"duplicate transformation line for facility_id=%s, input_material_code=%s, output_material_code=%s",
				mt.FacilityID, mt.InputMaterialCode, mt.OutputMaterialCode)
		}
		dup[dupKey] = true

		key := groupKey{mt.FacilityID, mt.InputMaterialCode}
		if _, ok := sums[key]; !ok {
			groupOrder = append(groupOrder, key)
			firstRow[key] = mt.SourceRow
		}
		sums[key] = sums[key].Add(mt.PercentageExact)
	}

	one := decimal.NewFromInt(1)
	for _, key := range groupOrder {
		if sums[key].Sub(one).Abs().GreaterThan(opts.SumTolerance) {
			r.warnf(refdata.TableMaterialTransformation, firstRow[key], "percentage",
				"yield fractions for facility_id=%s, input_material_code=%s sum to %s, expected 1 (losses are their own line)",
				key.facility, key.input, sums[key])
		}
	}
}

func checkProcessingFactors(t *refdata.Tables, r *Result) {
	facilities := facilitySet(t)
	materials := materialSet(t)
	seen := make(map[string]bool)

	for _, ef := range t.ProcessingFactors {
		if ef.EmissionFactor < 0 {
			r.errorf(refdata.TableEmissionFactor, ef.SourceRow, "emission_factor",
				"negative emission factor %g", ef.EmissionFactor)
		}

		key := ef.FacilityID + "|" + ef.MaterialCode
		if seen[key] {
			r.warnf(refdata.TableEmissionFactor, ef.SourceRow, "",
				"duplicate factor for facility_id=%s, material_code=%s; the last row wins", ef.FacilityID, ef.MaterialCode)
		}
		seen[key] = true

		if len(facilities) > 0 && !facilities[ef.FacilityID] {
			r.warnf(refdata.TableEmissionFactor, ef.SourceRow, "facility_id",
				"facility %s is not in the Facility table", ef.FacilityID)
		}
		if len(materials) > 0 && !materials[ef.MaterialCode] {
			r.warnf(refdata.TableEmissionFactor, ef.SourceRow, "material_code",
				"material %s is not in the Material table", ef.MaterialCode)
		}
	}
}

func checkDistributions(t *refdata.Tables, r *Result, opts Options) {
	recycled := recycledOutputSet(t)

	sums := make(map[string]decimal.Decimal)
	firstRow := make(map[string]int)
	var materialOrder []string
	dup := make(map[string]bool)

	for _, od := range t.Distributions {
		if od.Percentage < 0 || od.Percentage > 1 {
			r.errorf(refdata.TableOutputDistribution, od.SourceRow, "percentage",
				"share fraction %s outside [0,1]", od.PercentageExact)
		}

		dupKey := od.OutputMaterialCode + "|" + od.DestinationCountry
		if dup[dupKey] {
			r.warnf(refdata.TableOutputDistribution, od.SourceRow, "",
				"duplicate share for output_material_code=%s, destination_country=%s",
				od.OutputMaterialCode, od.DestinationCountry)
		}
		dup[dupKey] = true

		if len(recycled) > 0 && !recycled[od.OutputMaterialCode] {
			r.warnf(refdata.TableOutputDistribution, od.SourceRow, "output_material_code",
				"distribution configured for %s, which no transformation produces as Material Recycling", od.OutputMaterialCode)
		}

		if _, ok := sums[od.OutputMaterialCode]; !ok {
			materialOrder = append(materialOrder, od.OutputMaterialCode)
			firstRow[od.OutputMaterialCode] = od.SourceRow
		}
		sums[od.OutputMaterialCode] = sums[od.OutputMaterialCode].Add(od.PercentageExact)
	}

	one := decimal.NewFromInt(1)
	for _, material := range materialOrder {
		if sums[material].Sub(one).Abs().GreaterThan(opts.SumTolerance) {
			r.errorf(refdata.TableOutputDistribution, firstRow[material], "percentage",
				"destination shares for output_material_code=%s sum to %s, must sum to 1", material, sums[material])
		}
	}
}

func checkTransportFactors(t *refdata.Tables, r *Result) {
	seen := make(map[string]bool, len(t.TransportFactors))
	for _, tf := range t.TransportFactors {
		if tf.EmissionFactor < 0 {
			r.errorf(refdata.TableTransportFactor, tf.SourceRow, "emission_factor",
				"negative emission factor %g", tf.EmissionFactor)
		}
		if seen[tf.ModeOfTransport] {
			r.warnf(refdata.TableTransportFactor, tf.SourceRow, "mode_of_transport",
				"duplicate mode %s; the last row wins", tf.ModeOfTransport)
		}
		seen[tf.ModeOfTransport] = true
	}
}

// checkLanes validates both distance tables. A lane that names a
// transport mode without a factor is an error: every invoice using the
// lane would abort with LookupNotFound.
func checkLanes(t *refdata.Tables, r *Result) {
	modes := modeSet(t)
	facilities := facilitySet(t)

	upstreamSeen := make(map[string]bool)
	for _, ud := range t.UpstreamDistances {
		if ud.AverageDistance < 0 {
			r.errorf(refdata.TableUpstreamDistance, ud.SourceRow, "inbound_average_distance",
				"negative distance %g", ud.AverageDistance)
		}
		if !modes[ud.ModeOfTransport] {
			r.errorf(refdata.TableUpstreamDistance, ud.SourceRow, "inbound_mode_of_transport",
				"mode %s has no entry in %s", ud.ModeOfTransport, refdata.TableTransportFactor)
		}
		key := ud.CustomerID + "|" + ud.FacilityID
		if upstreamSeen[key] {
			r.warnf(refdata.TableUpstreamDistance, ud.SourceRow, "",
				"duplicate lane for customer_id=%s, facility_id=%s; the last row wins", ud.CustomerID, ud.FacilityID)
		}
		upstreamSeen[key] = true
	}

	downstreamSeen := make(map[string]bool)
	for _, dd := range t.DownstreamDistances {
		if dd.AverageDistance < 0 {
			r.errorf(refdata.TableDownstreamDistance, dd.SourceRow, "average_distance",
				"negative distance %g", dd.AverageDistance)
		}
		if !modes[dd.ModeOfTransport] {
			r.errorf(refdata.TableDownstreamDistance, dd.SourceRow, "mode_of_transport",
				"mode %s has no entry in %s", dd.ModeOfTransport, refdata.TableTransportFactor)
		}
		if len(facilities) > 0 && !facilities[dd.FacilityID] {
			r.warnf(refdata.TableDownstreamDistance, dd.SourceRow, "facility_id",
				"facility %s is not in the Facility table", dd.FacilityID)
		}
		key := dd.FacilityID + "|" + dd.DestinationCountry
		if downstreamSeen[key] {
			r.warnf(refdata.TableDownstreamDistance, dd.SourceRow, "",
				"duplicate lane for facility_id=%s, destination_country=%s; the last row wins", dd.FacilityID, dd.DestinationCountry)
		}
		downstreamSeen[key] = true
	}
}

func checkBenchmarks(t *refdata.Tables, r *Result) {
	seen := make(map[string]bool, len(t.Benchmarks))
	for _, vb := range t.Benchmarks {
		if vb.Emissions < 0 {
			r.errorf(refdata.TableVirginBenchmark, vb.SourceRow, "emissions",
				"negative benchmark %g", vb.Emissions)
		}
		if seen[vb.MaterialCode] {
			r.warnf(refdata.TableVirginBenchmark, vb.SourceRow, "material_code",
				"duplicate benchmark for %s; the last row wins", vb.MaterialCode)
		}
		seen[vb.MaterialCode] = true
	}
}

func checkRegions(t *refdata.Tables, r *Result) {
	seen := make(map[string]bool, len(t.Regions))
	for _, gr := range t.Regions {
		if seen[gr.Country] {
			r.warnf(refdata.TableGeographicRegion, gr.SourceRow, "country",
				"duplicate country %s; the last row wins", gr.Country)
		}
		seen[gr.Country] = true
	}
}

// =============================================================================
// CROSS-TABLE RUNTIME-GAP CHECKS
// =============================================================================

// checkRuntimeGaps walks every Material Recycling output a facility can
// produce and predicts the reference gaps the pipeline would hit:
// missing benchmarks, missing distributions where the facility also has
// no catch-all Unknown lane, and distribution destinations without a
// downstream lane from the producing facility.
func checkRuntimeGaps(t *refdata.Tables, r *Result) {
	benchmarks := make(map[string]bool, len(t.Benchmarks))
	for _, vb := range t.Benchmarks {
		benchmarks[vb.MaterialCode] = true
	}

	lanes := make(map[string]bool, len(t.DownstreamDistances))
	for _, dd := range t.DownstreamDistances {
		lanes[dd.FacilityID+"|"+dd.DestinationCountry] = true
	}

	distributions := make(map[string][]refdata.OutputDistribution)
	for _, od := range t.Distributions {
		distributions[od.OutputMaterialCode] = append(distributions[od.OutputMaterialCode], od)
	}

	reported := make(map[string]bool)
	for _, mt := range t.Transformations {
		if mt.Category != types.CategoryMaterialRecycling {
			continue
		}

		if !benchmarks[mt.OutputMaterialCode] && !reported["benchmark|"+mt.OutputMaterialCode] {
			reported["benchmark|"+mt.OutputMaterialCode] = true
			r.warnf(refdata.TableVirginBenchmark, 0, "",
				"no benchmark for recycled output %s; invoices expanding to it will fail", mt.OutputMaterialCode)
		}

		shares, hasDistribution := distributions[mt.OutputMaterialCode]
		if !hasDistribution {
			fallbackKey := "fallback|" + mt.FacilityID + "|" + mt.OutputMaterialCode
			if !lanes[mt.FacilityID+"|"+report.UnknownDestination] && !reported[fallbackKey] {
				reported[fallbackKey] = true
				r.warnf(refdata.TableOutputDistribution, 0, "",
					"no distribution for recycled output %s and facility %s has no catch-all %s lane; invoices expanding to it will fail",
					mt.OutputMaterialCode, mt.FacilityID, report.UnknownDestination)
			}
			continue
		}

		for _, od := range shares {
			laneKey := mt.FacilityID + "|" + od.DestinationCountry
			if !lanes[laneKey] && !reported["lane|"+laneKey] {
				reported["lane|"+laneKey] = true
				r.warnf(refdata.TableDownstreamDistance, 0, "",
					"no downstream lane for facility_id=%s, destination_country=%s, reached through output %s; invoices expanding to it will fail",
					mt.FacilityID, od.DestinationCountry, mt.OutputMaterialCode)
			}
		}
	}
}

// =============================================================================
// LOOKUP SET HELPERS
// =============================================================================

func materialSet(t *refdata.Tables) map[string]bool {
	set := make(map[string]bool, len(t.Materials))
	for _, m := range t.Materials {
		set[m.Code] = true
	}
	return set
}

func facilitySet(t *refdata.Tables) map[string]bool {
	set := make(map[string]bool, len(t.Facilities))
	for _, f := range t.Facilities {
		set[f.ID] = true
	}
	return set
}

func modeSet(t *refdata.Tables) map[string]bool {
	set := make(map[string]bool, len(t.TransportFactors))
	for _, tf := range t.TransportFactors {
		set[tf.ModeOfTransport] = true
	}
	return set
}

// recycledOutputSet returns the materials some transformation produces
// under Material Recycling.
func recycledOutputSet(t *refdata.Tables) map[string]bool {
	set := make(map[string]bool)
	for _, mt := range t.Transformations {
		if mt.Category == types.CategoryMaterialRecycling {
			set[mt.OutputMaterialCode] = true
		}
	}
	return set
}
