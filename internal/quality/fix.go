package quality

import (
	"sort"

	"github.com/Simplici0/costworks/internal/costing"
)

const minQtyPerParent = 0.001

// FixOptions selects which automatic repairs are applied.
type FixOptions struct {
	SortSteps       bool `json:"sort_steps"`
	ClampScrap      bool `json:"clamp_scrap"`
	ClampAttendance bool `json:"clamp_attendance"`
	FloorMinimums   bool `json:"floor_minimums"`
	DropEmpty       bool `json:"drop_empty"`
}

// DefaultFixOptions enables every repair.
func DefaultFixOptions() FixOptions {
	return FixOptions{SortSteps: true, ClampScrap: true, ClampAttendance: true, FloorMinimums: true, DropEmpty: true}
}

// FixRouting returns a repaired copy of steps. When sorting uncovers
// duplicate step numbers the steps are renumbered 10, 20, 30, ...
func FixRouting(steps []costing.RoutingStep, opt FixOptions) []costing.RoutingStep {
	out := make([]costing.RoutingStep, 0, len(steps))
	for _, s := range steps {
		if opt.DropEmpty && s == (costing.RoutingStep{}) {
			continue
		}
		out = append(out, s)
	}

	if opt.SortSteps {
		sort.SliceStable(out, func(i, j int) bool { return out[i].StepOrder < out[j].StepOrder })
		dup := false
		for i := 1; i < len(out); i++ {
			if out[i].StepOrder == out[i-1].StepOrder {
				dup = true
				break
			}
		}
		if dup {
			for i := range out {
				out[i].StepOrder = (i + 1) * 10
			}
		}
	}

	for i := range out {
		s := &out[i]
		if opt.ClampScrap {
			s.ScrapPct = clip(s.ScrapPct, 0, MaxScrapPct)
		}
		if opt.ClampAttendance {
			s.AttendancePct = clip(s.AttendancePct, 0, 100)
		}
		if opt.FloorMinimums {
			s.CycleTimeMin = floor(s.CycleTimeMin, 0)
			s.SetupTimeMin = floor(s.SetupTimeMin, 0)
			s.EnergyKWhPerUnit = floor(s.EnergyKWhPerUnit, 0)
			s.QATimeMinPerUnit = floor(s.QATimeMinPerUnit, 0)
			s.QueueDays = floor(s.QueueDays, 0)
			s.QtyPerParent = floor(s.QtyPerParent, minQtyPerParent)
			if s.ParallelMachines < 1 {
				s.ParallelMachines = 1
			}
			if s.BatchSize < 1 {
				s.BatchSize = 1
			}
		}
	}
	return out
}

// FixBOM returns a repaired copy of lines.
func FixBOM(lines []costing.BOMLine, opt FixOptions) []costing.BOMLine {
	out := make([]costing.BOMLine, 0, len(lines))
	for _, l := range lines {
		if opt.DropEmpty && l == (costing.BOMLine{}) {
			continue
		}
		if opt.ClampScrap {
			l.ScrapPct = clip(l.ScrapPct, 0, MaxScrapPct)
		}
		if opt.FloorMinimums {
			l.QtyPerUnit = floor(l.QtyPerUnit, minQtyPerParent)
			l.UnitPrice = floor(l.UnitPrice, 0)
		}
		out = append(out, l)
	}
	return out
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func floor(v, lo float64) float64 {
	if v < lo {
		return lo
	}
	return v
}
