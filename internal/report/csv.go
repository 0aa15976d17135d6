// Package report renders engine results as CSV downloads and Markdown quotes.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/Simplici0/costworks/internal/costing"
	"github.com/Simplici0/costworks/internal/quality"
)

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeAll(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}

// WriteBreakdownCSV writes the cost breakdown as component,value rows.
func WriteBreakdownCSV(w io.Writer, b costing.CostBreakdown) error {
	return writeAll(w, []string{"component", "value"}, [][]string{
		{"material_cost_per_piece", num(b.MaterialCostPerPiece)},
		{"conversion_cost_total", num(b.ConversionCostTotal)},
		{"lean_cost_total", num(b.LeanCostTotal)},
		{"purchased_cost_total", num(b.PurchasedCostTotal)},
		{"total_cost_per_piece", num(b.TotalCostPerPiece)},
	})
}

// WriteStepsCSV writes one row per routing step.
func WriteStepsCSV(w io.Writer, steps []costing.StepCost) error {
	rows := make([][]string, 0, len(steps))
	for _, s := range steps {
		rows = append(rows, []string{
			strconv.Itoa(s.Step), s.Process, num(s.QtyInput), strconv.Itoa(s.Batches),
			num(s.MachineMinutes), num(s.LaborMinutes), num(s.EnergyKWh),
			num(s.MachineCost), num(s.LaborCost), num(s.EnergyCost), num(s.LeanCost),
			num(s.ConversionCost()),
		})
	}
	return writeAll(w, []string{
		"step", "process", "qty_input", "batches",
		"machine_min", "labor_min", "kwh_total",
		"cost_machine", "cost_labor", "cost_energy", "cost_lean",
		"cost_conversion",
	}, rows)
}

// WriteCapacityCSV writes the capacity table. Undefined utilization is left blank.
func WriteCapacityCSV(w io.Writer, rows []costing.CapacityRow) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		util := ""
		if r.CapacityHours > 0 {
			util = num(r.Utilization)
		}
		out = append(out, []string{
			r.Process, num(r.RequiredHours), num(r.CapacityHours), util,
			strconv.Itoa(r.Batches), num(r.SetupMinutes), num(r.CycleMinutes),
		})
	}
	return writeAll(w, []string{"process", "hours_need", "hours_cap", "util", "batches", "setup_min", "cycle_min"}, out)
}

// WriteSamplesCSV writes Monte-Carlo samples indexed from zero.
func WriteSamplesCSV(w io.Writer, samples []float64) error {
	rows := make([][]string, 0, len(samples))
	for i, v := range samples {
		rows = append(rows, []string{strconv.Itoa(i), num(v)})
	}
	return writeAll(w, []string{"ScenarioIdx", "UnitCost"}, rows)
}

// WriteIssuesCSV writes data quality findings.
func WriteIssuesCSV(w io.Writer, issues []quality.Issue) error {
	rows := make([][]string, 0, len(issues))
	for _, is := range issues {
		row := ""
		if is.Row >= 0 {
			row = strconv.Itoa(is.Row)
		}
		rows = append(rows, []string{string(is.Severity), is.Table, row, is.Rule, is.Details})
	}
	return writeAll(w, []string{"severity", "table", "row", "rule", "details"}, rows)
}

// WriteScenariosCSV writes one row per scenario. Percentile columns are
// blank for scenarios that were not simulated.
func WriteScenariosCSV(w io.Writer, results []costing.ScenarioResult) error {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		p50, p80, p95 := "", "", ""
		if r.Distribution != nil {
			p50, p80, p95 = num(r.Distribution.P50), num(r.Distribution.P80), num(r.Distribution.P95)
		}
		rows = append(rows, []string{
			r.Name, strconv.Itoa(r.Quantity), num(r.MaterialPrice),
			num(r.Breakdown.TotalCostPerPiece), p50, p80, p95,
		})
	}
	return writeAll(w, []string{"scenario", "quantity", "material_price", "total_cost_per_piece", "p50", "p80", "p95"}, rows)
}
