package costing

import "math"

const hoursPerYear = 2000.0

// MachineCostPerHour derives an hourly machine rate from investment, upkeep and
// energy draw, spread over the utilized share of a 2000-hour year.
func MachineCostPerHour(capex, lifetimeYears, utilization, maintenancePct, energyPrice, kwhPerHour float64) float64 {
	depreciation := capex / (lifetimeYears * hoursPerYear)
	maintenance := (capex * maintenancePct) / (lifetimeYears * hoursPerYear)
	energy := energyPrice * kwhPerHour
	return (depreciation + maintenance + energy) / math.Max(utilization, 0.01)
}

// LaborCostPerHour loads a base wage with overhead and margin.
func LaborCostPerHour(hourly, overheadPct, marginPct float64) float64 {
	return hourly * (1.0 + overheadPct) * (1.0 + marginPct)
}
