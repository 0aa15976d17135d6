package costing

import (
	"sort"
	"time"
)

// RunMeta labels a set of fact rows.
type RunMeta struct {
	RunDate     time.Time `json:"run_date"`
	Project     string    `json:"project"`
	Material    string    `json:"material"`
	PriceSource string    `json:"price_source"`
}

// FactRun is the single summary row of a calculation.
type FactRun struct {
	RunMeta
	Quantity      int     `json:"q"`
	MaterialPrice float64 `json:"material_eur_kg"`
	UnitCost      float64 `json:"unit_cost"`
	MaterialPc    float64 `json:"mat_pc"`
	Conversion    float64 `json:"conv_total"`
	Lean          float64 `json:"lean_total"`
	Purchased     float64 `json:"buy_total"`
}

// FactBOM is one BOM line scaled to the run.
type FactBOM struct {
	Part      string  `json:"part"`
	QtyPer    float64 `json:"qty_per"`
	UnitPrice float64 `json:"unit_price"`
	ScrapPct  float64 `json:"scrap_pct"`
	QtyRun    float64 `json:"qty_run"`
	CostRun   float64 `json:"cost_run"`
}

// FactMC is one Monte-Carlo sample.
type FactMC struct {
	ScenarioIdx int     `json:"scenario_idx"`
	UnitCost    float64 `json:"unit_cost"`
}

// DimProcess is one machine-rate dimension row.
type DimProcess struct {
	Process     string  `json:"process"`
	MachineRate float64 `json:"machine_rate_eur_h"`
}

// Facts is the flattened, export-ready view of a calculation.
type Facts struct {
	Run       FactRun      `json:"fact_run"`
	Routing   []StepCost   `json:"fact_routing"`
	BOM       []FactBOM    `json:"fact_bom"`
	MC        []FactMC     `json:"fact_mc"`
	Processes []DimProcess `json:"dim_process"`
}

// BuildFacts flattens an evaluated input into fact and dimension rows.
func BuildFacts(in Input, b CostBreakdown, steps []StepCost, samples []float64, meta RunMeta) Facts {
	f := Facts{
		Run: FactRun{
			RunMeta:       meta,
			Quantity:      in.Quantity,
			MaterialPrice: in.MaterialPrice,
			UnitCost:      b.TotalCostPerPiece,
			MaterialPc:    b.MaterialCostPerPiece,
			Conversion:    b.ConversionCostTotal,
			Lean:          b.LeanCostTotal,
			Purchased:     b.PurchasedCostTotal,
		},
		Routing:   steps,
		BOM:       make([]FactBOM, 0, len(in.BOM)),
		MC:        make([]FactMC, 0, len(samples)),
		Processes: make([]DimProcess, 0, len(in.Rates.MachineRates)),
	}

	q := float64(in.Quantity)
	for _, line := range in.BOM {
		f.BOM = append(f.BOM, FactBOM{
			Part:      line.PartName,
			QtyPer:    line.QtyPerUnit,
			UnitPrice: line.UnitPrice,
			ScrapPct:  line.ScrapPct,
			QtyRun:    line.QtyPerUnit * q,
			CostRun:   LineCost(line) * q,
		})
	}
	for i, v := range samples {
		f.MC = append(f.MC, FactMC{ScenarioIdx: i + 1, UnitCost: v})
	}

	names := make([]string, 0, len(in.Rates.MachineRates))
	for name := range in.Rates.MachineRates {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f.Processes = append(f.Processes, DimProcess{Process: name, MachineRate: in.Rates.MachineRate(name)})
	}
	return f
}
