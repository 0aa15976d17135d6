package costing

import (
	"encoding/json"
	"math"
	"sort"
)

// CapacityRow is the aggregated machine load of one process.
type CapacityRow struct {
	Process       string  `json:"process"`
	RequiredHours float64 `json:"hours_need"`
	CapacityHours float64 `json:"hours_cap"`
	Utilization   float64 `json:"util"`
	Batches       int     `json:"batches"`
	SetupMinutes  float64 `json:"setup_min"`
	CycleMinutes  float64 `json:"cycle_min"`
}

// Overloaded reports a utilization above 100%.
func (r CapacityRow) Overloaded() bool {
	return r.Utilization > 1.0
}

// MarshalJSON writes an undefined utilization as null.
func (r CapacityRow) MarshalJSON() ([]byte, error) {
	type row CapacityRow
	out := struct {
		row
		Utilization *float64 `json:"util"`
	}{row: row(r)}
	if !math.IsNaN(r.Utilization) && !math.IsInf(r.Utilization, 0) {
		u := r.Utilization
		out.Utilization = &u
	}
	return json.Marshal(out)
}

// CapacityTable sums the machine hours each process needs to deliver q good
// units and compares them with its daily capacity. Every step contributes its
// process's capacity hours, so a process used by two steps offers twice the
// hours. Processes missing from capacity get hoursPerDay. Utilization is NaN when capacity is not positive.
// Rows are sorted by utilization descending, NaN last.
func CapacityTable(steps []RoutingStep, q int, hoursPerDay float64, capacity map[string]float64) ([]CapacityRow, error) {
	if q < 1 {
		return nil, ErrInvalidQuantity
	}
	rows := []CapacityRow{}
	if len(steps) == 0 {
		return rows, nil
	}

	sorted := SortRouting(steps)
	eff := PropagateScrap(sorted, float64(q))

	index := make(map[string]int)
	for i, step := range sorted {
		par := atLeastOne(step.ParallelMachines)
		batches := batchCount(eff[i], step.BatchSize)
		setup := step.SetupTimeMin * float64(batches)
		cycle := step.CycleTimeMin * eff[i]
		need := ((setup + cycle) / float64(par)) / 60.0

		capHours, found := capacity[step.ProcessName]
		if !found {
			capHours = hoursPerDay
		}

		pos, ok := index[step.ProcessName]
		if !ok {
			index[step.ProcessName] = len(rows)
			rows = append(rows, CapacityRow{Process: step.ProcessName})
			pos = len(rows) - 1
		}
		r := &rows[pos]
		r.RequiredHours += need
		r.CapacityHours += capHours
		r.Batches += batches
		r.SetupMinutes += setup
		r.CycleMinutes += cycle
	}

	for i := range rows {
		rows[i].Utilization = math.NaN()
		if rows[i].CapacityHours > 0 {
			rows[i].Utilization = rows[i].RequiredHours / rows[i].CapacityHours
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		ui, uj := rows[i].Utilization, rows[j].Utilization
		if math.IsNaN(uj) {
			return !math.IsNaN(ui)
		}
		if math.IsNaN(ui) {
			return false
		}
		return ui > uj
	})
	return rows, nil
}
