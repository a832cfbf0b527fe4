package report

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotFound(t *testing.T) {
	err := notFound("INV001", "MaterialTransformation",
		"facility_id", "F001", "input_material_code", "M001")
	require.Error(t, err)

	assert.Equal(t,
		"invoice INV001: no MaterialTransformation entry for facility_id=F001, input_material_code=M001",
		err.Error())

	assert.True(t, errors.Is(err, ErrLookupNotFound))

	var lookupErr *LookupError
	require.True(t, errors.As(err, &lookupErr))
	assert.Equal(t, "INV001", lookupErr.InvoiceID)
	assert.Equal(t, "MaterialTransformation", lookupErr.Lookup)
	assert.Equal(t, "facility_id=F001, input_material_code=M001", lookupErr.Key)
}

func TestNotFound_SurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("processing invoice: %w",
		notFound("INV002", "TransportEmissionFactor", "mode_of_transport", "Ferry"))

	assert.True(t, errors.Is(err, ErrLookupNotFound))

	var lookupErr *LookupError
	require.True(t, errors.As(err, &lookupErr))
	assert.Equal(t, "mode_of_transport=Ferry", lookupErr.Key)
}

func TestWarning_String(t *testing.T) {
	withOutput := Warning{
		Code:               WarnMissingDistribution,
		InvoiceID:          "INV001",
		OutputMaterialCode: "M002",
		Message:            "no destination distribution",
	}
	assert.Equal(t,
		"invoice INV001 output M002 [missing_distribution]: no destination distribution",
		withOutput.String())

	invoiceLevel := Warning{
		Code:      WarnZeroOutputVolume,
		InvoiceID: "INV001",
		Message:   "output volumes sum to zero",
	}
	assert.Equal(t,
		"invoice INV001 [zero_output_volume]: output volumes sum to zero",
		invoiceLevel.String())
}

func TestCollector(t *testing.T) {
	c := NewCollector()
	assert.Zero(t, c.Len())
	assert.Empty(t, c.Warnings())

	c.Add()
	assert.Zero(t, c.Len())

	c.Add(
		Warning{Code: WarnEmptyTransformation, InvoiceID: "INV001"},
		Warning{Code: WarnZeroOutputVolume, InvoiceID: "INV002"},
	)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "INV001", c.Warnings()[0].InvoiceID)
}

func TestCollector_WarningsReturnsCopy(t *testing.T) {
	c := NewCollector()
	c.Add(Warning{Code: WarnZeroOutputVolume, InvoiceID: "INV001"})

	got := c.Warnings()
	require.Len(t, got, 1)
	got[0].InvoiceID = "mutated"

	assert.Equal(t, "INV001", c.Warnings()[0].InvoiceID)
}

func TestCollector_ConcurrentAdd(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c.Add(Warning{
					Code:      WarnMissingDistribution,
					InvoiceID: fmt.Sprintf("INV%03d", n),
				})
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1000, c.Len())
}
