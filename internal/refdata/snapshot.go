// =============================================================================
// Downstream Reporting - Reference Snapshot
// =============================================================================
//
// The Snapshot is the in-memory index of all reference tables. It is
// built once per run, it is immutable after construction, and it is
// passed explicitly into every pipeline call. Because nothing mutates it,
// any number of goroutines can generate reports against the same
// Snapshot without coordination.
//
// LOOKUP CONTRACT:
//   Every lookup returns (value, ok). Not-found is signalled through ok,
//   never through an error or a zero value, because the pipeline decides
//   per lookup whether a miss is fatal (LookupNotFound), a documented
//   fallback (missing distribution), or ignorable (missing region).
//   Sequence-valued lookups preserve source definition order, and a
//   present-but-empty sequence is a valid result distinct from ok=false.
//
// =============================================================================

package refdata

// Composite map keys. Struct keys keep the key fields typed instead of
// joining strings.
type facilityMaterialKey struct {
	facilityID   string
	materialCode string
}

type customerFacilityKey struct {
	customerID string
	facilityID string
}

type facilityCountryKey struct {
	facilityID string
	country    string
}

// Snapshot is the immutable reference index.
type Snapshot struct {
	transformations map[facilityMaterialKey][]MaterialTransformation
	processing      map[facilityMaterialKey]float64
	upstream        map[customerFacilityKey]UpstreamDistance
	transport       map[string]float64
	distributions   map[string][]OutputDistribution
	downstream      map[facilityCountryKey]DownstreamDistance
	benchmarks      map[string]float64
	regions         map[string]string
	materials       map[string]Material
	facilities      map[string]Facility
}

// NewSnapshot indexes the loaded tables. Single-valued tables index with
// last-row-wins on duplicate keys, matching the upstream system;
// duplicates are reported by validation, not here. Sequence-valued
// tables keep every row in source order.
func NewSnapshot(t *Tables) *Snapshot {
	s := &Snapshot{
		transformations: make(map[facilityMaterialKey][]MaterialTransformation),
		processing:      make(map[facilityMaterialKey]float64, len(t.ProcessingFactors)),
		upstream:        make(map[customerFacilityKey]UpstreamDistance, len(t.UpstreamDistances)),
		transport:       make(map[string]float64, len(t.TransportFactors)),
		distributions:   make(map[string][]OutputDistribution),
		downstream:      make(map[facilityCountryKey]DownstreamDistance, len(t.DownstreamDistances)),
		benchmarks:      make(map[string]float64, len(t.Benchmarks)),
		regions:         make(map[string]string, len(t.Regions)),
		materials:       make(map[string]Material, len(t.Materials)),
		facilities:      make(map[string]Facility, len(t.Facilities)),
	}

	for _, mt := range t.Transformations {
		key := facilityMaterialKey{mt.FacilityID, mt.InputMaterialCode}
		s.transformations[key] = append(s.transformations[key], mt)
	}

	// Declared-empty sets register the key with no entries, unless real
	// entries exist for the same pair.
	for _, e := range t.EmptyTransformationSets {
		key := facilityMaterialKey{e.FacilityID, e.InputMaterialCode}
		if _, exists := s.transformations[key]; !exists {
			s.transformations[key] = []MaterialTransformation{}
		}
	}

	for _, ef := range t.ProcessingFactors {
		s.processing[facilityMaterialKey{ef.FacilityID, ef.MaterialCode}] = ef.EmissionFactor
	}

	for _, ud := range t.UpstreamDistances {
		s.upstream[customerFacilityKey{ud.CustomerID, ud.FacilityID}] = ud
	}

	for _, tf := range t.TransportFactors {
		s.transport[tf.ModeOfTransport] = tf.EmissionFactor
	}

	for _, od := range t.Distributions {
		s.distributions[od.OutputMaterialCode] = append(s.distributions[od.OutputMaterialCode], od)
	}

	for _, dd := range t.DownstreamDistances {
		s.downstream[facilityCountryKey{dd.FacilityID, dd.DestinationCountry}] = dd
	}

	for _, vb := range t.Benchmarks {
		s.benchmarks[vb.MaterialCode] = vb.Emissions
	}

	for _, gr := range t.Regions {
		s.regions[gr.Country] = gr.Region
	}

	for _, m := range t.Materials {
		s.materials[m.Code] = m
	}

	for _, f := range t.Facilities {
		s.facilities[f.ID] = f
	}

	return s
}

// Transformations returns the transformation set configured for a
// (facility, input material) pair, in definition order. ok is false when
// the pair was never configured; a configured pair with zero outputs
// returns an empty slice and ok=true.
func (s *Snapshot) Transformations(facilityID, inputMaterialCode string) ([]MaterialTransformation, bool) {
	entries, ok := s.transformations[facilityMaterialKey{facilityID, inputMaterialCode}]
	return entries, ok
}

// ProcessingFactor returns the processing emission factor (kg CO2e per
// tonne) for processing a material at a facility.
func (s *Snapshot) ProcessingFactor(facilityID, materialCode string) (float64, bool) {
	factor, ok := s.processing[facilityMaterialKey{facilityID, materialCode}]
	return factor, ok
}

// UpstreamRoute returns the inbound haul (distance, mode) for a
// customer-facility lane.
func (s *Snapshot) UpstreamRoute(customerID, facilityID string) (UpstreamDistance, bool) {
	route, ok := s.upstream[customerFacilityKey{customerID, facilityID}]
	return route, ok
}

// TransportFactor returns the emission factor (kg CO2e per tonne-km) for
// a transport mode.
func (s *Snapshot) TransportFactor(mode string) (float64, bool) {
	factor, ok := s.transport[mode]
	return factor, ok
}

// Distribution returns the destination-market shares for an output
// material, in definition order. ok is false when the material has no
// distribution configured at all.
func (s *Snapshot) Distribution(outputMaterialCode string) ([]OutputDistribution, bool) {
	shares, ok := s.distributions[outputMaterialCode]
	return shares, ok
}

// DownstreamRoute returns the outbound haul (distance, mode) from a
// facility to a destination country.
func (s *Snapshot) DownstreamRoute(facilityID, destinationCountry string) (DownstreamDistance, bool) {
	route, ok := s.downstream[facilityCountryKey{facilityID, destinationCountry}]
	return route, ok
}

// Benchmark returns the virgin-production benchmark (kg CO2e per tonne)
// for a material.
func (s *Snapshot) Benchmark(materialCode string) (float64, bool) {
	emissions, ok := s.benchmarks[materialCode]
	return emissions, ok
}

// Region returns the reporting region for a destination country.
func (s *Snapshot) Region(country string) (string, bool) {
	region, ok := s.regions[country]
	return region, ok
}

// MaterialByCode returns the descriptive record for a material code.
func (s *Snapshot) MaterialByCode(code string) (Material, bool) {
	m, ok := s.materials[code]
	return m, ok
}

// FacilityByID returns the descriptive record for a facility.
func (s *Snapshot) FacilityByID(id string) (Facility, bool) {
	f, ok := s.facilities[id]
	return f, ok
}
