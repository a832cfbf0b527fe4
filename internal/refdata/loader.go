// =============================================================================
// Downstream Reporting - Reference Data Loader (CSV)
// =============================================================================
//
// Loads the ten reference tables from a directory of CSV exports, one
// file per table named <Table>.csv. Loading is shape-only: every row
// must decode into its record type (required key columns present,
// numeric columns numeric), while semantic rules (fraction ranges, sum
// invariants, cross-references) belong to the validation package.
//
// Decode errors carry the table name and the 1-indexed file row so the
// offending export line can be found directly.
//
// =============================================================================

package refdata

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/magnber/downstream-reporting/internal/csvfile"
	"github.com/magnber/downstream-reporting/internal/types"
)

// LoadTablesFromDir reads every reference table from dir. All ten files
// must exist; an incomplete reference directory fails the run before any
// invoice is touched.
func LoadTablesFromDir(dir string, opts csvfile.Options) (*Tables, error) {
	tables := &Tables{}

	steps := []struct {
		name   string
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
		path := filepath.Join(dir, step.name+".csv")
		table, err := csvfile.ReadFile(path, opts)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", step.name, err)
		}
		if err := step.decode(table); err != nil {
			return nil, err
		}
	}

	logLoadSummary(dir, tables)
	return tables, nil
}

// logLoadSummary emits one debug event with the row counts per table.
func logLoadSummary(source string, t *Tables) {
	log.Debug().
		Str("source", source).
		Int("materials", len(t.Materials)).
		Int("facilities", len(t.Facilities)).
		Int("transformations", len(t.Transformations)).
		Int("empty_transformation_sets", len(t.EmptyTransformationSets)).
		Int("processing_factors", len(t.ProcessingFactors)).
		Int("distributions", len(t.Distributions)).
		Int("transport_factors", len(t.TransportFactors)).
		Int("upstream_distances", len(t.UpstreamDistances)).
		Int("downstream_distances", len(t.DownstreamDistances)).
		Int("benchmarks", len(t.Benchmarks)).
		Int("regions", len(t.Regions)).
		Msg("reference tables loaded")
}

// =============================================================================
// PER-TABLE DECODERS
// =============================================================================

func (t *Tables) decodeMaterials(src *csvfile.Table) error {
	if err := src.Require("material_code", "description"); err != nil {
		return err
	}
	for _, row := range src.Rows {
		code, err := keyField(TableMaterial, row, "material_code")
		if err != nil {
			return err
		}
		t.Materials = append(t.Materials, Material{
			SourceRow:   row.Number,
			Code:        code,
			Description: row.Fields["description"],
		})
	}
	return nil
}

func (t *Tables) decodeFacilities(src *csvfile.Table) error {
	if err := src.Require("facility_id", "name", "location"); err != nil {
		return err
	}
	for _, row := range src.Rows {
		id, err := keyField(TableFacility, row, "facility_id")
		if err != nil {
			return err
		}
		t.Facilities = append(t.Facilities, Facility{
			SourceRow: row.Number,
			ID:        id,
			Name:      row.Fields["name"],
			Location:  row.Fields["location"],
		})
	}
	return nil
}

func (t *Tables) decodeTransformations(src *csvfile.Table) error {
	if err := src.Require("facility_id", "input_material_code", "output_material_code", "percentage", "category"); err != nil {
		return err
	}
	for _, row := range src.Rows {
		facilityID, err := keyField(TableMaterialTransformation, row, "facility_id")
		if err != nil {
			return err
		}
		inputCode, err := keyField(TableMaterialTransformation, row, "input_material_code")
		if err != nil {
			return err
		}

		// A row with all three output columns blank declares the pair
		// with no reportable outputs.
		outputCode := row.Fields["output_material_code"]
		if outputCode == "" && row.Fields["percentage"] == "" && row.Fields["category"] == "" {
			t.EmptyTransformationSets = append(t.EmptyTransformationSets, EmptyTransformationSet{
				SourceRow:         row.Number,
				FacilityID:        facilityID,
				InputMaterialCode: inputCode,
			})
			continue
		}
		if outputCode == "" {
			return fmt.Errorf("%s row %d: missing output_material_code", TableMaterialTransformation, row.Number)
		}

		exact, approx, err := fractionField(TableMaterialTransformation, row, "percentage")
		if err != nil {
			return err
		}

		category, err := types.ParseCategory(row.Fields["category"])
		if err != nil {
			return fmt.Errorf("%s row %d: %w", TableMaterialTransformation, row.Number, err)
		}

		t.Transformations = append(t.Transformations, MaterialTransformation{
			SourceRow:          row.Number,
			FacilityID:         facilityID,
			InputMaterialCode:  inputCode,
			OutputMaterialCode: outputCode,
			Percentage:         approx,
			PercentageExact:    exact,
			Category:           category,
		})
	}
	return nil
}

func (t *Tables) decodeProcessingFactors(src *csvfile.Table) error {
	if err := src.Require("facility_id", "material_code", "emission_factor"); err != nil {
		return err
	}
	for _, row := range src.Rows {
		facilityID, err := keyField(TableEmissionFactor, row, "facility_id")
		if err != nil {
			return err
		}
		materialCode, err := keyField(TableEmissionFactor, row, "material_code")
		if err != nil {
			return err
		}
		factor, err := floatField(TableEmissionFactor, row, "emission_factor")
		if err != nil {
			return err
		}
		t.ProcessingFactors = append(t.ProcessingFactors, ProcessingEmissionFactor{
			SourceRow:      row.Number,
			FacilityID:     facilityID,
			MaterialCode:   materialCode,
			EmissionFactor: factor,
		})
	}
	return nil
}

func (t *Tables) decodeDistributions(src *csvfile.Table) error {
	if err := src.Require("output_material_code", "destination_country", "percentage"); err != nil {
		return err
	}
	for _, row := range src.Rows {
		outputCode, err := keyField(TableOutputDistribution, row, "output_material_code")
		if err != nil {
			return err
		}
		country, err := keyField(TableOutputDistribution, row, "destination_country")
		if err != nil {
			return err
		}
		exact, approx, err := fractionField(TableOutputDistribution, row, "percentage")
		if err != nil {
			return err
		}
		t.Distributions = append(t.Distributions, OutputDistribution{
			SourceRow:          row.Number,
			OutputMaterialCode: outputCode,
			DestinationCountry: country,
			Percentage:         approx,
			PercentageExact:    exact,
		})
	}
	return nil
}

func (t *Tables) decodeTransportFactors(src *csvfile.Table) error {
	if err := src.Require("mode_of_transport", "emission_factor"); err != nil {
		return err
	}
	for _, row := range src.Rows {
		mode, err := keyField(TableTransportFactor, row, "mode_of_transport")
		if err != nil {
			return err
		}
		factor, err := floatField(TableTransportFactor, row, "emission_factor")
		if err != nil {
			return err
		}
		t.TransportFactors = append(t.TransportFactors, TransportEmissionFactor{
			SourceRow:       row.Number,
			ModeOfTransport: mode,
			EmissionFactor:  factor,
		})
	}
	return nil
}

func (t *Tables) decodeUpstreamDistances(src *csvfile.Table) error {
	if err := src.Require("customer_id", "facility_id", "inbound_average_distance", "inbound_mode_of_transport"); err != nil {
		return err
	}
	for _, row := range src.Rows {
		customerID, err := keyField(TableUpstreamDistance, row, "customer_id")
		if err != nil {
			return err
		}
		facilityID, err := keyField(TableUpstreamDistance, row, "facility_id")
		if err != nil {
			return err
		}
		distance, err := floatField(TableUpstreamDistance, row, "inbound_average_distance")
		if err != nil {
			return err
		}
		mode, err := keyField(TableUpstreamDistance, row, "inbound_mode_of_transport")
		if err != nil {
			return err
		}
		t.UpstreamDistances = append(t.UpstreamDistances, UpstreamDistance{
			SourceRow:       row.Number,
			CustomerID:      customerID,
			FacilityID:      facilityID,
			AverageDistance: distance,
			ModeOfTransport: mode,
		})
	}
	return nil
}

func (t *Tables) decodeDownstreamDistances(src *csvfile.Table) error {
	if err := src.Require("facility_id", "destination_country", "average_distance", "mode_of_transport"); err != nil {
		return err
	}
	for _, row := range src.Rows {
		facilityID, err := keyField(TableDownstreamDistance, row, "facility_id")
		if err != nil {
			return err
		}
		country, err := keyField(TableDownstreamDistance, row, "destination_country")
		if err != nil {
			return err
		}
		distance, err := floatField(TableDownstreamDistance, row, "average_distance")
		if err != nil {
			return err
		}
		mode, err := keyField(TableDownstreamDistance, row, "mode_of_transport")
		if err != nil {
			return err
		}
		t.DownstreamDistances = append(t.DownstreamDistances, DownstreamDistance{
			SourceRow:          row.Number,
			FacilityID:         facilityID,
			DestinationCountry: country,
			AverageDistance:    distance,
			ModeOfTransport:    mode,
		})
	}
	return nil
}

func (t *Tables) decodeBenchmarks(src *csvfile.Table) error {
	if err := src.Require("material_code", "emissions"); err != nil {
		return err
	}
	for _, row := range src.Rows {
		materialCode, err := keyField(TableVirginBenchmark, row, "material_code")
		if err != nil {
			return err
		}
		emissions, err := floatField(TableVirginBenchmark, row, "emissions")
		if err != nil {
			return err
		}
		t.Benchmarks = append(t.Benchmarks, VirginBenchmark{
			SourceRow:    row.Number,
			MaterialCode: materialCode,
			Emissions:    emissions,
		})
	}
	return nil
}

func (t *Tables) decodeRegions(src *csvfile.Table) error {
	if err := src.Require("country", "region"); err != nil {
		return err
	}
	for _, row := range src.Rows {
		country, err := keyField(TableGeographicRegion, row, "country")
		if err != nil {
			return err
		}
		region, err := keyField(TableGeographicRegion, row, "region")
		if err != nil {
			return err
		}
		t.Regions = append(t.Regions, GeographicRegion{
			SourceRow: row.Number,
			Country:   country,
			Region:    region,
		})
	}
	return nil
}

// =============================================================================
// FIELD DECODE HELPERS
// =============================================================================

// keyField returns a required, non-empty field. Key columns cannot be
// blank because blank keys would silently collide in the index.
func keyField(table string, row csvfile.Row, column string) (string, error) {
	value := row.Fields[column]
	if value == "" {
		return "", fmt.Errorf("%s row %d: missing %s", table, row.Number, column)
	}
	return value, nil
}

// floatField parses a required numeric field.
func floatField(table string, row csvfile.Row, column string) (float64, error) {
	value := row.Fields[column]
	if value == "" {
		return 0, fmt.Errorf("%s row %d: missing %s", table, row.Number, column)
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s row %d: invalid %s %q", table, row.Number, column, value)
	}
	return parsed, nil
}

// fractionField parses a fraction column twice: exactly (for the sum
// invariants checked by validation) and as float64 (for the pipeline).
func fractionField(table string, row csvfile.Row, column string) (decimal.Decimal, float64, error) {
	value := row.Fields[column]
	if value == "" {
		return decimal.Decimal{}, 0, fmt.Errorf("%s row %d: missing %s", table, row.Number, column)
	}
	exact, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, 0, fmt.Errorf("%s row %d: invalid %s %q", table, row.Number, column, value)
	}
	return exact, exact.InexactFloat64(), nil
}
