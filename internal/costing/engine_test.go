package costing

import (
	"errors"
	"math"
	"testing"
)

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9*math.Max(1, math.Abs(want)) {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func cncStep() RoutingStep {
	return RoutingStep{
		StepOrder:        10,
		ProcessName:      "CNC",
		QtyPerParent:     1,
		CycleTimeMin:     6,
		SetupTimeMin:     20,
		AttendancePct:    100,
		EnergyKWhPerUnit: 0.18,
		QATimeMinPerUnit: 0.5,
		ScrapPct:         0.02,
		ParallelMachines: 1,
		BatchSize:        50,
		QueueDays:        0.5,
	}
}

func cncInput() Input {
	return Input{
		Routing:       []RoutingStep{cncStep()},
		Quantity:      50,
		NetMassKg:     2.0,
		MaterialPrice: 4.20,
		Rates: Rates{
			LaborRate:    45,
			EnergyPrice:  0.20,
			MachineRates: map[string]float64{"CNC": 85},
		},
	}
}

func TestCostOnce_SingleCNCStep(t *testing.T) {
	in := cncInput()

	b, steps, err := Evaluate(in)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	eff := 50 / 0.98
	nearlyEqual(t, "materialCostPerPiece", b.MaterialCostPerPiece, 8.40)
	nearlyEqual(t, "qtyInput", steps[0].QtyInput, eff)
	if steps[0].Batches != 2 {
		t.Fatalf("batches = %d, want 2", steps[0].Batches)
	}
	nearlyEqual(t, "machineCost", steps[0].MachineCost, (40+6*eff)/60*85)
	nearlyEqual(t, "laborCost", steps[0].LaborCost, (40+6.5*eff)/60*45)
	nearlyEqual(t, "energyCost", steps[0].EnergyCost, 0.18*eff*0.20)
	nearlyEqual(t, "conversionCostTotal", b.ConversionCostTotal, 770.9013605442178)
	nearlyEqual(t, "leanCostTotal", b.LeanCostTotal, 0)
	nearlyEqual(t, "purchasedCostTotal", b.PurchasedCostTotal, 0)
	nearlyEqual(t, "totalCostPerPiece", b.TotalCostPerPiece, 23.818027210884356)
}

func TestCostOnce_AdditiveIdentity(t *testing.T) {
	in := cncInput()
	in.Routing = append(in.Routing, RoutingStep{
		StepOrder: 20, ProcessName: "Lassen", CycleTimeMin: 3, SetupTimeMin: 15,
		AttendancePct: 80, ScrapPct: 0.05, ParallelMachines: 2, BatchSize: 20,
	})
	in.BOM = []BOMLine{{PartName: "Bolt", QtyPerUnit: 4, UnitPrice: 0.12, ScrapPct: 0.01}}
	in.Lean = LeanParams{StorageDays: 2, StorageCostPerDay: 3, DistanceKm: 40, CostPerKm: 1.1, ReworkProbability: 0.05, ReworkMinutes: 10}

	b, err := CostOnce(in)
	if err != nil {
		t.Fatalf("CostOnce: %v", err)
	}

	q := float64(in.Quantity)
	sum := b.MaterialCostPerPiece*q + b.ConversionCostTotal + b.LeanCostTotal + b.PurchasedCostTotal
	nearlyEqual(t, "total*Q", b.TotalCostPerPiece*q, sum)
	nearlyEqual(t, "purchasedCostTotal", b.PurchasedCostTotal, 4*0.12*1.01*50)
}

func TestCostOnce_EmptyRoutingAndBOM(t *testing.T) {
	in := Input{Quantity: 10, NetMassKg: 1.5, MaterialPrice: 3, Rates: Rates{LaborRate: 45}}

	b, err := CostOnce(in)
	if err != nil {
		t.Fatalf("CostOnce: %v", err)
	}
	nearlyEqual(t, "totalCostPerPiece", b.TotalCostPerPiece, b.MaterialCostPerPiece)
	nearlyEqual(t, "materialCostPerPiece", b.MaterialCostPerPiece, 4.5)
}

func TestCostOnce_RejectsZeroQuantity(t *testing.T) {
	in := cncInput()
	in.Quantity = 0

	if _, err := CostOnce(in); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("err = %v, want ErrInvalidQuantity", err)
	}
}

func TestComputeStep_UnknownProcessUsesLaborRate(t *testing.T) {
	step := RoutingStep{ProcessName: "Polijsten", CycleTimeMin: 60, ParallelMachines: 1, BatchSize: 1}
	rates := Rates{LaborRate: 45, MachineRates: map[string]float64{"CNC": 85}}

	c := ComputeStep(step, 1, rates)

	nearlyEqual(t, "machineCost", c.MachineCost, 45)
	nearlyEqual(t, "laborCost", c.LaborCost, 0)
}

func TestComputeStep_ParallelMachinesDivideMachineTimeOnly(t *testing.T) {
	step := RoutingStep{ProcessName: "CNC", CycleTimeMin: 10, SetupTimeMin: 30, AttendancePct: 50, ParallelMachines: 3, BatchSize: 10}
	rates := Rates{LaborRate: 60, MachineRates: map[string]float64{"CNC": 90}}

	c := ComputeStep(step, 20, rates)

	if c.Batches != 2 {
		t.Fatalf("batches = %d, want 2", c.Batches)
	}
	nearlyEqual(t, "machineMinutes", c.MachineMinutes, (60+200)/3.0)
	nearlyEqual(t, "laborMinutes", c.LaborMinutes, (60+200)*0.5)
	nearlyEqual(t, "machineCost", c.MachineCost, (260/3.0)/60*90)
	nearlyEqual(t, "laborCost", c.LaborCost, 130.0/60*60)
}

func TestLeanCost_TransportChargedOncePerStep(t *testing.T) {
	p := LeanParams{StorageDays: 2, StorageCostPerDay: 5, DistanceKm: 100, CostPerKm: 0.5, ReworkProbability: 0.1, ReworkMinutes: 30}

	got := LeanCost(25, 10, 40, p)

	// 3 batches of storage, one transport leg, rework on 10% of 25 pieces.
	nearlyEqual(t, "lean", got, 2*5*3+100*0.5+0.1*25*0.5*40)
}

func TestStepCosts_SortsByStepOrder(t *testing.T) {
	in := cncInput()
	in.Routing = []RoutingStep{
		{StepOrder: 30, ProcessName: "Montage", BatchSize: 1, ParallelMachines: 1},
		{StepOrder: 10, ProcessName: "Laser", BatchSize: 1, ParallelMachines: 1},
		{StepOrder: 20, ProcessName: "Buigen", BatchSize: 1, ParallelMachines: 1},
	}

	steps, err := StepCosts(in)
	if err != nil {
		t.Fatalf("StepCosts: %v", err)
	}
	for i, want := range []string{"Laser", "Buigen", "Montage"} {
		if steps[i].Process != want {
			t.Fatalf("steps[%d].Process = %q, want %q", i, steps[i].Process, want)
		}
	}
	if len(in.Routing) != 3 || in.Routing[0].ProcessName != "Montage" {
		t.Fatalf("input routing was reordered: %+v", in.Routing)
	}
}

func TestRatesHelpers(t *testing.T) {
	nearlyEqual(t, "machine", MachineCostPerHour(200000, 10, 0.8, 0.05, 0.2, 15), (10+0.5+3)/0.8)
	nearlyEqual(t, "machine zero utilization", MachineCostPerHour(20000, 1, 0, 0, 0, 0), 10/0.01)
	nearlyEqual(t, "labor", LaborCostPerHour(40, 0.25, 0.10), 55)
}
