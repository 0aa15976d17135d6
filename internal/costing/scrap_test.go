package costing

import (
	"math"
	"testing"
)

func TestPropagateScrap_RoundTrip(t *testing.T) {
	steps := []RoutingStep{
		{StepOrder: 10, ScrapPct: 0.02},
		{StepOrder: 20, ScrapPct: 0.10},
		{StepOrder: 30, ScrapPct: 0.35},
		{StepOrder: 40, ScrapPct: 0},
	}
	const q = 120.0

	eff := PropagateScrap(steps, q)

	for i := 0; i < len(steps)-1; i++ {
		forward := eff[i] * (1 - steps[i].ScrapPct)
		nearlyEqual(t, "forward", forward, eff[i+1])
	}
	last := len(steps) - 1
	nearlyEqual(t, "final output", eff[last]*(1-steps[last].ScrapPct), q)
}

func TestPropagateScrap_ZeroScrapIsIdentity(t *testing.T) {
	steps := []RoutingStep{{StepOrder: 1}, {StepOrder: 2}, {StepOrder: 3}}

	for i, v := range PropagateScrap(steps, 75) {
		if v != 75 {
			t.Fatalf("eff[%d] = %v, want 75", i, v)
		}
	}
}

func TestPropagateScrap_FullScrapStaysFinite(t *testing.T) {
	eff := PropagateScrap([]RoutingStep{{StepOrder: 1, ScrapPct: 1}}, 10)

	if math.IsInf(eff[0], 0) || math.IsNaN(eff[0]) {
		t.Fatalf("eff = %v, want finite", eff[0])
	}
	if eff[0] < 1e9 {
		t.Fatalf("eff = %v, want exploded quantity", eff[0])
	}
}

func TestPropagateScrap_AlignedWithSortedRouting(t *testing.T) {
	steps := []RoutingStep{
		{StepOrder: 20, ScrapPct: 0.5},
		{StepOrder: 10, ScrapPct: 0},
	}

	eff := PropagateScrap(steps, 10)

	nearlyEqual(t, "step 10", eff[0], 20)
	nearlyEqual(t, "step 20", eff[1], 20)
}

func TestPropagateScrap_Empty(t *testing.T) {
	if got := PropagateScrap(nil, 10); len(got) != 0 {
		t.Fatalf("len = %d, want 0", len(got))
	}
}
