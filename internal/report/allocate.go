// =============================================================================
// Downstream Reporting - Proportional Allocation
// =============================================================================
//
// The same allocation rule applies to every invoice-level emission total:
// each output receives the total weighted by its share of the summed
// output volume. The rule lives here once so processing and upstream
// transport cannot drift apart, and so the zero-denominator policy is
// decided in exactly one place.
//
// ZERO-DENOMINATOR POLICY:
//   When the weights sum to zero there is no meaningful proportion; all
//   shares are zero and the caller flags a data-quality warning, never
//   an error.
//
// =============================================================================

package report

// weightedOutput is one (key, weight) input to the allocation.
type weightedOutput struct {
	key    string
	weight float64
}

// allocatedShare is one (key, share) result of the allocation, in the
// same order as the input weights.
type allocatedShare struct {
	key   string
	share float64
}

// distributeByShare splits total across the weights proportionally:
// share_i = total * weight_i / sum(weights). The product is taken before
// the division so round weights produce round shares. The returned slice
// is index-aligned with weights. ok is false when the weights sum to
// zero, in which case every share is zero.
func distributeByShare(total float64, weights []weightedOutput) (shares []allocatedShare, ok bool) {
	shares = make([]allocatedShare, len(weights))

	var sum float64
	for _, w := range weights {
		sum += w.weight
	}

	if sum == 0 {
		for i, w := range weights {
			shares[i] = allocatedShare{key: w.key, share: 0}
		}
		return shares, false
	}

	for i, w := range weights {
		shares[i] = allocatedShare{key: w.key, share: total * w.weight / sum}
	}
	return shares, true
}
