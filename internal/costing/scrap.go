package costing

import (
	"math"
	"sort"
)

// minYield keeps the propagation finite when a step scraps everything.
const minYield = 1e-9

// SortRouting returns a copy of steps ordered by StepOrder. Steps sharing an
// order keep their input order.
func SortRouting(steps []RoutingStep) []RoutingStep {
	sorted := make([]RoutingStep, len(steps))
	copy(sorted, steps)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StepOrder < sorted[j].StepOrder
	})
	return sorted
}

// PropagateScrap walks the routing backward from the finished quantity q and
// returns the input quantity each step must start with. The result is aligned
// with SortRouting(steps).
func PropagateScrap(steps []RoutingStep, q float64) []float64 {
	sorted := SortRouting(steps)
	eff := make([]float64, len(sorted))

	need := q
	for i := len(sorted) - 1; i >= 0; i-- {
		good := math.Max(minYield, 1.0-sorted[i].ScrapPct)
		need /= good
		eff[i] = need
	}
	return eff
}
