package costing

import "errors"

var (
	// ErrInvalidQuantity is returned when a run quantity below one reaches the engine.
	ErrInvalidQuantity = errors.New("run quantity must be at least 1")
	// ErrTooManyIterations is returned when a Monte-Carlo run exceeds MaxIterations.
	ErrTooManyIterations = errors.New("too many Monte-Carlo iterations")
	// ErrInvalidParams is returned for negative noise magnitudes or fewer than one iteration.
	ErrInvalidParams = errors.New("invalid Monte-Carlo parameters")
)

// RoutingStep is one row of the process routing.
type RoutingStep struct {
	StepOrder        int     `json:"step" yaml:"step"`
	ProcessName      string  `json:"process" yaml:"process"`
	QtyPerParent     float64 `json:"qty_per_parent" yaml:"qty_per_parent"`
	CycleTimeMin     float64 `json:"cycle_min" yaml:"cycle_min"`
	SetupTimeMin     float64 `json:"setup_min" yaml:"setup_min"`
	AttendancePct    float64 `json:"attend_pct" yaml:"attend_pct"`
	EnergyKWhPerUnit float64 `json:"kwh_pc" yaml:"kwh_pc"`
	QATimeMinPerUnit float64 `json:"qa_min_pc" yaml:"qa_min_pc"`
	ScrapPct         float64 `json:"scrap_pct" yaml:"scrap_pct"`
	ParallelMachines int     `json:"parallel_machines" yaml:"parallel_machines"`
	BatchSize        int     `json:"batch_size" yaml:"batch_size"`
	QueueDays        float64 `json:"queue_days" yaml:"queue_days"`
}

// BOMLine is one purchased or subcontracted part.
type BOMLine struct {
	PartName   string  `json:"part" yaml:"part"`
	QtyPerUnit float64 `json:"qty" yaml:"qty"`
	UnitPrice  float64 `json:"unit_price" yaml:"unit_price"`
	ScrapPct   float64 `json:"scrap_pct" yaml:"scrap_pct"`
}

// Rates groups the hourly and energy tariffs applied to a routing.
type Rates struct {
	LaborRate    float64            `json:"labor_rate" yaml:"labor_rate"`
	EnergyPrice  float64            `json:"energy_price" yaml:"energy_price"`
	MachineRates map[string]float64 `json:"machine_rates" yaml:"machine_rates"`
}

// MachineRate returns the hourly rate for process, falling back to the labor rate.
func (r Rates) MachineRate(process string) float64 {
	if rate, ok := r.MachineRates[process]; ok {
		return rate
	}
	return r.LaborRate
}

// LeanParams holds the ancillary storage, transport and rework parameters.
type LeanParams struct {
	StorageDays       float64 `json:"storage_days" yaml:"storage_days"`
	StorageCostPerDay float64 `json:"storage_cost" yaml:"storage_cost"`
	DistanceKm        float64 `json:"km" yaml:"km"`
	CostPerKm         float64 `json:"eur_km" yaml:"eur_km"`
	ReworkProbability float64 `json:"rework" yaml:"rework"`
	ReworkMinutes     float64 `json:"rework_min" yaml:"rework_min"`
}

// Input is everything a single cost evaluation needs.
type Input struct {
	Routing       []RoutingStep `json:"routing"`
	BOM           []BOMLine     `json:"bom"`
	Quantity      int           `json:"quantity"`
	NetMassKg     float64       `json:"net_mass_kg"`
	MaterialPrice float64       `json:"material_price"`
	Rates         Rates         `json:"rates"`
	Lean          LeanParams    `json:"lean"`
}

// CostBreakdown is the result of one cost evaluation.
type CostBreakdown struct {
	MaterialCostPerPiece float64 `json:"material_cost_per_piece"`
	ConversionCostTotal  float64 `json:"conversion_cost_total"`
	LeanCostTotal        float64 `json:"lean_cost_total"`
	PurchasedCostTotal   float64 `json:"purchased_cost_total"`
	TotalCostPerPiece    float64 `json:"total_cost_per_piece"`
}
