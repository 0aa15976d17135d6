// Package quality audits routing and BOM tables before they are costed and
// applies the safe automatic fixes.
package quality

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/Simplici0/costworks/internal/costing"
)

// Severity ranks an issue.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Table names which input an issue was found in.
const (
	TableRouting = "routing"
	TableBOM     = "bom"
	TableContext = "context"
)

// MaxScrapPct is the ceiling auto-fix clamps scrap fractions to.
const MaxScrapPct = 0.35

// Issue is one audit finding. Row is -1 for table-wide findings.
type Issue struct {
	Severity Severity `json:"severity"`
	Table    string   `json:"table"`
	Row      int      `json:"row"`
	Rule     string   `json:"rule"`
	Details  string   `json:"details"`
}

// Context holds the scalar run inputs that are audited alongside the tables.
type Context struct {
	Quantity      int     `json:"quantity"`
	Material      string  `json:"material"`
	MaterialPrice float64 `json:"material_price"`
	// Aluminium is set when Material is an aluminium grade.
	Aluminium bool `json:"-"`
}

// Auditor runs the audit rules and logs every finding.
type Auditor struct {
	log   *zap.Logger
	known map[string]float64
}

// NewAuditor returns an Auditor that flags processes missing from machineRates.
func NewAuditor(log *zap.Logger, machineRates map[string]float64) *Auditor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Auditor{log: log, known: machineRates}
}

// Run audits all inputs and returns the combined findings in table order.
func (a *Auditor) Run(steps []costing.RoutingStep, lines []costing.BOMLine, ctx Context) []Issue {
	var issues []Issue
	issues = append(issues, a.Routing(steps)...)
	issues = append(issues, a.BOM(lines)...)
	issues = append(issues, a.Context(ctx)...)

	for _, is := range issues {
		a.log.Warn("data quality issue",
			zap.String("type", "data_quality"),
			zap.String("table", is.Table),
			zap.Int("row", is.Row),
			zap.String("rule", is.Rule),
			zap.String("severity", string(is.Severity)),
			zap.String("details", is.Details),
		)
	}
	a.log.Info("data quality audit completed",
		zap.Int("routing_rows", len(steps)),
		zap.Int("bom_rows", len(lines)),
		zap.Int("issues", len(issues)),
	)
	return issues
}

// Routing audits routing rows in input order.
func (a *Auditor) Routing(steps []costing.RoutingStep) []Issue {
	var issues []Issue

	seen := make(map[int]int, len(steps))
	for _, s := range steps {
		seen[s.StepOrder]++
	}
	var dups []int
	for step, n := range seen {
		if n > 1 {
			dups = append(dups, step)
		}
	}
	if len(dups) > 0 {
		sort.Ints(dups)
		issues = append(issues, Issue{SeverityMedium, TableRouting, -1, "DUP_STEP", fmt.Sprintf("duplicate step numbers: %v", dups)})
	}

	for i := 1; i < len(steps); i++ {
		if steps[i].StepOrder < steps[i-1].StepOrder {
			issues = append(issues, Issue{SeverityLow, TableRouting, -1, "ORDER", "steps are not in ascending order"})
			break
		}
	}

	for i, s := range steps {
		if s == (costing.RoutingStep{}) {
			issues = append(issues, Issue{SeverityLow, TableRouting, i, "EMPTY", "empty row"})
			continue
		}

		for _, f := range []struct {
			name string
			v    float64
		}{
			{"cycle_min", s.CycleTimeMin},
			{"setup_min", s.SetupTimeMin},
			{"kwh_pc", s.EnergyKWhPerUnit},
			{"qa_min_pc", s.QATimeMinPerUnit},
			{"queue_days", s.QueueDays},
		} {
			if f.v < 0 {
				issues = append(issues, Issue{SeverityHigh, TableRouting, i, "NEG", fmt.Sprintf("%s < 0 (%g)", f.name, f.v)})
			}
		}
		if s.AttendancePct < 0 || s.AttendancePct > 100 {
			issues = append(issues, Issue{SeverityMedium, TableRouting, i, "ATTEND", fmt.Sprintf("attend_pct outside 0..100 (%g)", s.AttendancePct)})
		}
		if s.ScrapPct < 0 || s.ScrapPct > MaxScrapPct {
			issues = append(issues, Issue{SeverityMedium, TableRouting, i, "SCRAP", fmt.Sprintf("scrap_pct outside 0..%g (%g)", MaxScrapPct, s.ScrapPct)})
		}
		if s.ParallelMachines < 1 || s.BatchSize < 1 {
			issues = append(issues, Issue{SeverityMedium, TableRouting, i, "MIN1", "parallel_machines and batch_size must be >= 1"})
		}
		if s.QtyPerParent <= 0 {
			issues = append(issues, Issue{SeverityMedium, TableRouting, i, "QTY", fmt.Sprintf("qty_per_parent must be > 0 (%g)", s.QtyPerParent)})
		}
		if a.known != nil {
			if _, ok := a.known[s.ProcessName]; !ok {
				issues = append(issues, Issue{SeverityLow, TableRouting, i, "PROC", fmt.Sprintf("process %q has no machine rate", s.ProcessName)})
			}
		}
	}
	return issues
}

// BOM audits purchased-part lines.
func (a *Auditor) BOM(lines []costing.BOMLine) []Issue {
	var issues []Issue

	seen := make(map[string]int, len(lines))
	for _, l := range lines {
		if l.PartName != "" {
			seen[l.PartName]++
		}
	}
	var dups []string
	for part, n := range seen {
		if n > 1 {
			dups = append(dups, part)
		}
	}
	if len(dups) > 0 {
		sort.Strings(dups)
		issues = append(issues, Issue{SeverityLow, TableBOM, -1, "DUP_PART", fmt.Sprintf("duplicate parts: %v", dups)})
	}

	for i, l := range lines {
		if l == (costing.BOMLine{}) {
			issues = append(issues, Issue{SeverityLow, TableBOM, i, "EMPTY", "empty row"})
			continue
		}
		if l.QtyPerUnit <= 0 {
			issues = append(issues, Issue{SeverityMedium, TableBOM, i, "QTY", fmt.Sprintf("qty must be > 0 (%g)", l.QtyPerUnit)})
		}
		if l.UnitPrice < 0 {
			issues = append(issues, Issue{SeverityHigh, TableBOM, i, "PRICE", fmt.Sprintf("unit_price < 0 (%g)", l.UnitPrice)})
		}
		if l.ScrapPct < 0 || l.ScrapPct > MaxScrapPct {
			issues = append(issues, Issue{SeverityMedium, TableBOM, i, "SCRAP", fmt.Sprintf("scrap_pct outside 0..%g (%g)", MaxScrapPct, l.ScrapPct)})
		}
	}
	return issues
}

// Context audits the scalar run inputs.
func (a *Auditor) Context(c Context) []Issue {
	var issues []Issue
	if c.Quantity < 1 {
		issues = append(issues, Issue{SeverityHigh, TableContext, -1, "Q", fmt.Sprintf("quantity must be >= 1 (%d)", c.Quantity)})
	}
	if c.MaterialPrice < 0 || math.IsNaN(c.MaterialPrice) {
		issues = append(issues, Issue{SeverityHigh, TableContext, -1, "MAT_PRICE", fmt.Sprintf("material price must be >= 0 (%g)", c.MaterialPrice)})
	}
	if c.Aluminium && c.MaterialPrice == 0 {
		issues = append(issues, Issue{SeverityMedium, TableContext, -1, "MAT_PRICE", fmt.Sprintf("aluminium grade %q has no price", c.Material)})
	}
	return issues
}

// Summary counts issues per severity.
type Summary struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// Total is the number of issues counted.
func (s Summary) Total() int { return s.High + s.Medium + s.Low }

// Summarize counts issues by severity.
func Summarize(issues []Issue) Summary {
	var s Summary
	for _, is := range issues {
		switch is.Severity {
		case SeverityHigh:
			s.High++
		case SeverityMedium:
			s.Medium++
		default:
			s.Low++
		}
	}
	return s
}

// Blocking reports whether any issue is severe enough to refuse costing.
func Blocking(issues []Issue) bool {
	for _, is := range issues {
		if is.Severity == SeverityHigh {
			return true
		}
	}
	return false
}
