package costing

// StepCosts propagates scrap over the routing and costs every step, including
// its lean share. Steps are returned in routing order.
func StepCosts(in Input) ([]StepCost, error) {
	if in.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if len(in.Routing) == 0 {
		return []StepCost{}, nil
	}

	sorted := SortRouting(in.Routing)
	eff := PropagateScrap(sorted, float64(in.Quantity))

	costs := make([]StepCost, len(sorted))
	for i, step := range sorted {
		c := ComputeStep(step, eff[i], in.Rates)
		c.LeanCost = LeanCost(eff[i], step.BatchSize, in.Rates.LaborRate, in.Lean)
		costs[i] = c
	}
	return costs, nil
}

// PurchasedCostPerUnit sums qty × price × (1 + scrap) over the BOM.
func PurchasedCostPerUnit(bom []BOMLine) float64 {
	var sum float64
	for _, line := range bom {
		sum += LineCost(line)
	}
	return sum
}

// LineCost is the scrap-adjusted cost of one BOM line per finished unit.
func LineCost(line BOMLine) float64 {
	return line.QtyPerUnit * line.UnitPrice * (1.0 + line.ScrapPct)
}

// CostOnce evaluates material, conversion, lean and purchased cost for one run.
func CostOnce(in Input) (CostBreakdown, error) {
	steps, err := StepCosts(in)
	if err != nil {
		return CostBreakdown{}, err
	}
	return breakdownFrom(in, steps), nil
}

func breakdownFrom(in Input, steps []StepCost) CostBreakdown {
	q := float64(in.Quantity)
	out := CostBreakdown{MaterialCostPerPiece: in.NetMassKg * in.MaterialPrice}

	for _, s := range steps {
		out.ConversionCostTotal += s.ConversionCost()
		out.LeanCostTotal += s.LeanCost
	}
	if len(in.BOM) > 0 {
		out.PurchasedCostTotal = PurchasedCostPerUnit(in.BOM) * q
	}

	out.TotalCostPerPiece = (out.MaterialCostPerPiece*q + out.ConversionCostTotal + out.LeanCostTotal + out.PurchasedCostTotal) / q
	return out
}

// Evaluate returns both the breakdown and the per-step detail from a single pass.
func Evaluate(in Input) (CostBreakdown, []StepCost, error) {
	steps, err := StepCosts(in)
	if err != nil {
		return CostBreakdown{}, nil, err
	}
	return breakdownFrom(in, steps), steps, nil
}
