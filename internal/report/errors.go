// =============================================================================
// Downstream Reporting - Pipeline Errors and Warnings
// =============================================================================
//
// Two failure kinds leave the pipeline:
//
//   LookupError (wraps ErrLookupNotFound) - a required reference entry is
//   absent. This aborts the current invoice with zero rows; the batch
//   driver records the diagnostic and moves on to the next invoice.
//
//   Warning - a non-fatal data-quality finding (zero-sum allocation,
//   missing distribution fallback, declared-empty transformation set).
//   Warnings are returned alongside the rows they affect and never stop
//   processing.
//
// =============================================================================

package report

import (
	"fmt"
	"strings"
	"sync"
)

// constError is a string-backed error so sentinel errors can be
// declared as constants.
type constError string

func (e constError) Error() string { return string(e) }

// ErrLookupNotFound marks a required keyed reference entry that is
// absent. Match with errors.Is; the concrete *LookupError carries the
// invoice, table, and key for the diagnostic.
const ErrLookupNotFound = constError("reference entry not found")

// LookupError reports which reference lookup failed for which invoice.
type LookupError struct {
	// InvoiceID is the invoice whose processing was aborted.
	InvoiceID string

	// Lookup is the reference table that was consulted.
	Lookup string

	// Key is the formatted lookup key, e.g.
	// "facility_id=F001, material_code=M001".
	Key string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("invoice %s: no %s entry for %s", e.InvoiceID, e.Lookup, e.Key)
}

// Unwrap lets errors.Is(err, ErrLookupNotFound) match.
func (e *LookupError) Unwrap() error { return ErrLookupNotFound }

// notFound builds a LookupError from alternating column, value pairs.
func notFound(invoiceID, lookup string, keyPairs ...string) error {
	parts := make([]string, 0, len(keyPairs)/2)
	for i := 0; i+1 < len(keyPairs); i += 2 {
		parts = append(parts, keyPairs[i]+"="+keyPairs[i+1])
	}
	return &LookupError{
		InvoiceID: invoiceID,
		Lookup:    lookup,
		Key:       strings.Join(parts, ", "),
	}
}

// =============================================================================
// DATA-QUALITY WARNINGS
// =============================================================================

// WarningCode identifies the kind of data-quality finding.
type WarningCode string

const (
	// WarnEmptyTransformation: the (facility, input) pair is configured
	// with zero outputs, so the invoice expands to zero rows.
	WarnEmptyTransformation WarningCode = "empty_transformation_set"

	// WarnZeroOutputVolume: the output volumes sum to zero, so the
	// proportional allocation degraded to all-zero shares.
	WarnZeroOutputVolume WarningCode = "zero_output_volume"

	// WarnMissingDistribution: a Material Recycling output has no
	// configured distribution; its full volume was assigned to the
	// implicit "Unknown" destination.
	WarnMissingDistribution WarningCode = "missing_distribution"
)

// Warning is a non-fatal data-quality finding attached to an invoice's
// report rows.
type Warning struct {
	// Code identifies the finding.
	Code WarningCode

	// InvoiceID is the invoice the finding belongs to.
	InvoiceID string

	// OutputMaterialCode narrows the finding to one output material.
	// Empty for invoice-level findings.
	OutputMaterialCode string

	// Message is the human-readable diagnostic.
	Message string
}

// String renders the warning for logs and run summaries.
func (w Warning) String() string {
	if w.OutputMaterialCode != "" {
		return fmt.Sprintf("invoice %s output %s [%s]: %s", w.InvoiceID, w.OutputMaterialCode, w.Code, w.Message)
	}
	return fmt.Sprintf("invoice %s [%s]: %s", w.InvoiceID, w.Code, w.Message)
}

// =============================================================================
// WARNING COLLECTOR
// =============================================================================

// Collector aggregates warnings across invoices. The batch driver
// shares one collector between the goroutines processing invoice files,
// so Add is safe for concurrent use. Order across invoices is not
// meaningful and not guaranteed.
type Collector struct {
	mu       sync.Mutex
	warnings []Warning
}

// NewCollector returns an empty collector ready for concurrent use.
func NewCollector() *Collector {
	return &Collector{}
}

// Add appends warnings to the collector.
func (c *Collector) Add(warnings ...Warning) {
	if len(warnings) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings = append(c.warnings, warnings...)
}

// Warnings returns a copy of everything collected so far.
func (c *Collector) Warnings() []Warning {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Warning, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// Len returns the number of collected warnings.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.warnings)
}
