package costing

// LeanCost returns storage + transport + rework cost for a step processing qty
// units. Transport is charged once per call. Energy is costed in ComputeStep.
func LeanCost(qty float64, batchSize int, laborRate float64, p LeanParams) float64 {
	batches := float64(batchCount(qty, batchSize))

	storage := p.StorageDays * p.StorageCostPerDay * batches
	transport := p.DistanceKm * p.CostPerKm
	rework := p.ReworkProbability * qty * (p.ReworkMinutes / 60.0) * laborRate

	return storage + transport + rework
}
