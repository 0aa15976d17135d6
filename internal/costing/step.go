package costing

import "math"

// StepCost is the cost detail of one routing step for the full run.
type StepCost struct {
	Step             int     `json:"step"`
	Process          string  `json:"process"`
	QtyPerParent     float64 `json:"qty_per_parent"`
	QtyInput         float64 `json:"qty_input"`
	Batches          int     `json:"batches"`
	ParallelMachines int     `json:"parallel_machines"`
	AttendancePct    float64 `json:"attend_pct"`
	QueueDays        float64 `json:"queue_days"`
	SetupMinutes     float64 `json:"setup_min"`
	CycleMinutes     float64 `json:"cycle_min"`
	QAMinutes        float64 `json:"qa_min"`
	MachineMinutes   float64 `json:"machine_min"`
	LaborMinutes     float64 `json:"labor_min"`
	EnergyKWh        float64 `json:"kwh_total"`
	MachineCost      float64 `json:"cost_machine"`
	LaborCost        float64 `json:"cost_labor"`
	EnergyCost       float64 `json:"cost_energy"`
	LeanCost         float64 `json:"cost_lean"`
}

// ConversionCost is machine + labor + energy.
func (s StepCost) ConversionCost() float64 {
	return s.MachineCost + s.LaborCost + s.EnergyCost
}

// RequiredHours is the machine time the step occupies.
func (s StepCost) RequiredHours() float64 {
	return s.MachineMinutes / 60.0
}

// batchCount is ceil(qty / batchSize) with batchSize floored at one.
func batchCount(qty float64, batchSize int) int {
	return int(math.Ceil(qty / float64(atLeastOne(batchSize))))
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// ComputeStep costs one routing step processing qty input units. Machine time
// is shared across parallel machines; attended labor time is not.
func ComputeStep(step RoutingStep, qty float64, rates Rates) StepCost {
	par := atLeastOne(step.ParallelMachines)
	batches := batchCount(qty, step.BatchSize)

	setup := step.SetupTimeMin * float64(batches)
	cycle := step.CycleTimeMin * qty
	qa := step.QATimeMinPerUnit * qty
	kwh := step.EnergyKWhPerUnit * qty

	machineMin := (setup + cycle) / float64(par)
	laborMin := (setup + cycle + qa) * (step.AttendancePct / 100.0)

	return StepCost{
		Step:             step.StepOrder,
		Process:          step.ProcessName,
		QtyPerParent:     step.QtyPerParent,
		QtyInput:         qty,
		Batches:          batches,
		ParallelMachines: par,
		AttendancePct:    step.AttendancePct,
		QueueDays:        step.QueueDays,
		SetupMinutes:     setup,
		CycleMinutes:     cycle,
		QAMinutes:        qa,
		MachineMinutes:   machineMin,
		LaborMinutes:     laborMin,
		EnergyKWh:        kwh,
		MachineCost:      (machineMin / 60.0) * rates.MachineRate(step.ProcessName),
		LaborCost:        (laborMin / 60.0) * rates.LaborRate,
		EnergyCost:       kwh * rates.EnergyPrice,
	}
}
