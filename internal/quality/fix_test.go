package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/costworks/internal/costing"
)

func TestFixRouting_SortsAndRenumbersDuplicates(t *testing.T) {
	steps := []costing.RoutingStep{goodStep(20, "CNC"), goodStep(10, "Laser"), goodStep(20, "Montage")}
	fixed := FixRouting(steps, DefaultFixOptions())

	require.Len(t, fixed, 3)
	assert.Equal(t, []int{10, 20, 30}, []int{fixed[0].StepOrder, fixed[1].StepOrder, fixed[2].StepOrder})
	assert.Equal(t, "Laser", fixed[0].ProcessName)
	assert.Equal(t, "CNC", fixed[1].ProcessName)
	assert.Equal(t, "Montage", fixed[2].ProcessName)
	assert.Equal(t, 20, steps[0].StepOrder, "input must not be modified")
}

func TestFixRouting_KeepsUniqueNumbers(t *testing.T) {
	fixed := FixRouting([]costing.RoutingStep{goodStep(30, "CNC"), goodStep(5, "Laser")}, DefaultFixOptions())
	assert.Equal(t, 5, fixed[0].StepOrder)
	assert.Equal(t, 30, fixed[1].StepOrder)
}

func TestFixRouting_ClampsAndFloors(t *testing.T) {
	s := goodStep(10, "CNC")
	s.ScrapPct = 0.9
	s.AttendancePct = -10
	s.CycleTimeMin = -2
	s.QueueDays = -1
	s.QtyPerParent = 0
	s.ParallelMachines = 0
	s.BatchSize = -3

	fixed := FixRouting([]costing.RoutingStep{s, {}}, DefaultFixOptions())
	require.Len(t, fixed, 1)

	got := fixed[0]
	assert.Equal(t, MaxScrapPct, got.ScrapPct)
	assert.Equal(t, 0.0, got.AttendancePct)
	assert.Equal(t, 0.0, got.CycleTimeMin)
	assert.Equal(t, 0.0, got.QueueDays)
	assert.Equal(t, 0.001, got.QtyPerParent)
	assert.Equal(t, 1, got.ParallelMachines)
	assert.Equal(t, 1, got.BatchSize)

	assert.Empty(t, NewAuditor(nil, machineRates).Routing(fixed))
}

func TestFixRouting_NoOptionsIsCopy(t *testing.T) {
	s := goodStep(20, "CNC")
	s.ScrapPct = 0.9
	steps := []costing.RoutingStep{s, goodStep(10, "Laser")}

	fixed := FixRouting(steps, FixOptions{})
	assert.Equal(t, steps, fixed)
}

func TestFixBOM(t *testing.T) {
	lines := []costing.BOMLine{
		{PartName: "Bolt", QtyPerUnit: 0, UnitPrice: -1, ScrapPct: 0.5},
		{},
	}
	fixed := FixBOM(lines, DefaultFixOptions())
	require.Len(t, fixed, 1)
	assert.Equal(t, costing.BOMLine{PartName: "Bolt", QtyPerUnit: 0.001, UnitPrice: 0, ScrapPct: MaxScrapPct}, fixed[0])
}
