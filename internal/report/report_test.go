package report

import (
	"bytes"
	"encoding/csv"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/costworks/internal/costing"
	"github.com/Simplici0/costworks/internal/pricing"
	"github.com/Simplici0/costworks/internal/quality"
)

func readCSV(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()
	records, err := csv.NewReader(buf).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteBreakdownCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBreakdownCSV(&buf, costing.CostBreakdown{
		MaterialCostPerPiece: 8.4,
		ConversionCostTotal:  770.5,
		TotalCostPerPiece:    23.81,
	}))

	rec := readCSV(t, &buf)
	require.Len(t, rec, 6)
	assert.Equal(t, []string{"component", "value"}, rec[0])
	assert.Equal(t, []string{"material_cost_per_piece", "8.4"}, rec[1])
	assert.Equal(t, []string{"total_cost_per_piece", "23.81"}, rec[5])
}

func TestWriteStepsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStepsCSV(&buf, []costing.StepCost{
		{Step: 10, Process: "CNC", QtyInput: 51.5, Batches: 2, MachineCost: 10, LaborCost: 5, EnergyCost: 1, LeanCost: 3},
	}))

	rec := readCSV(t, &buf)
	require.Len(t, rec, 2)
	assert.Equal(t, "10", rec[1][0])
	assert.Equal(t, "CNC", rec[1][1])
	assert.Equal(t, "51.5", rec[1][2])
	assert.Equal(t, "16", rec[1][11])
}

func TestWriteCapacityCSV_BlankUtilizationWithoutCapacity(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCapacityCSV(&buf, []costing.CapacityRow{
		{Process: "CNC", RequiredHours: 4, CapacityHours: 8, Utilization: 0.5, Batches: 1},
		{Process: "Casting", RequiredHours: 2, CapacityHours: 0, Utilization: math.NaN()},
	}))

	rec := readCSV(t, &buf)
	require.Len(t, rec, 3)
	assert.Equal(t, "0.5", rec[1][3])
	assert.Equal(t, "", rec[2][3])
}

func TestWriteSamplesCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSamplesCSV(&buf, []float64{1.25, 2}))
	assert.Equal(t, "ScenarioIdx,UnitCost\n0,1.25\n1,2\n", buf.String())
}

func TestWriteIssuesCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteIssuesCSV(&buf, []quality.Issue{
		{Severity: quality.SeverityMedium, Table: quality.TableRouting, Row: -1, Rule: "DUP_STEP", Details: "duplicate step numbers: [10 20]"},
		{Severity: quality.SeverityHigh, Table: quality.TableRouting, Row: 2, Rule: "NEG", Details: "cycle_min < 0 (-1)"},
	}))

	rec := readCSV(t, &buf)
	require.Len(t, rec, 3)
	assert.Equal(t, []string{"medium", "routing", "", "DUP_STEP", "duplicate step numbers: [10 20]"}, rec[1])
	assert.Equal(t, "2", rec[2][2])
}

func TestWriteScenariosCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteScenariosCSV(&buf, []costing.ScenarioResult{
		{Name: "base", Quantity: 50, MaterialPrice: 4.2, Breakdown: costing.CostBreakdown{TotalCostPerPiece: 20}},
		{Name: "worst", Quantity: 50, MaterialPrice: 5, Breakdown: costing.CostBreakdown{TotalCostPerPiece: 25}, Distribution: &costing.Summary{P50: 24, P80: 26, P95: 28}},
	}))

	rec := readCSV(t, &buf)
	require.Len(t, rec, 3)
	assert.Equal(t, []string{"base", "50", "4.2", "20", "", "", ""}, rec[1])
	assert.Equal(t, []string{"worst", "50", "5", "25", "24", "26", "28"}, rec[2])
}

func TestWriteQuote(t *testing.T) {
	q := Quote{
		Client:      "Acme BV",
		Contact:     "J. Janssen",
		Email:       "sales@acme.test",
		ProjectCode: "RFQ-2026-001",
		Project:     "Bracket",
		Date:        time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC),
		LeadWeeks:   4,
		Quantity:    1500,
		Breakdown: costing.CostBreakdown{
			MaterialCostPerPiece: 8.4,
			ConversionCostTotal:  1500 * 10,
			LeanCostTotal:        1500 * 1,
			PurchasedCostTotal:   1500 * 0.5,
			TotalCostPerPiece:    19.9,
		},
		Steps:   []costing.StepCost{{Step: 10, Process: "CNC", Batches: 30, MachineCost: 12000, LaborCost: 3000}},
		Summary: &costing.Summary{Count: 5000, P50: 19.5, P80: 20.25, P95: 21.75},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteQuote(&buf, q))
	out := buf.String()

	for _, want := range []string{
		"# Quote RFQ-2026-001",
		"| Contact | J. Janssen (sales@acme.test) |",
		"| Date | 2026-10-17 |",
		"| Quantity | 1,500 pcs |",
		"| Conversion | 10.00 |",
		"| **Total** | **19.90** |",
		"| 10 | CNC | 30 | 15,000.00 |",
		"## Cost range (5000 simulations)",
		"| 19.50 | 20.25 | 21.75 |",
		"Order value: **EUR 29,850.00**",
		"Lead time: 4 weeks.",
	} {
		assert.True(t, strings.Contains(out, want), "missing %q in:\n%s", want, out)
	}
}

func TestWriteQuote_WithoutSimulationOrSteps(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteQuote(&buf, Quote{ProjectCode: "X", Quantity: 1, Currency: "USD"}))
	assert.NotContains(t, buf.String(), "Cost range")
	assert.NotContains(t, buf.String(), "## Routing")
	assert.NotContains(t, buf.String(), "## Price")
	assert.Contains(t, buf.String(), "| Component | USD |")

	assert.Error(t, WriteQuote(&buf, Quote{ProjectCode: "X"}))
}

func TestWriteQuote_WithPricing(t *testing.T) {
	b := costing.CostBreakdown{TotalCostPerPiece: 19.9}
	priced, err := pricing.Calculate(b, 1500, pricing.Terms{MarginPercent: 20})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteQuote(&buf, Quote{ProjectCode: "P", Quantity: 1500, Breakdown: b, Pricing: &priced}))
	out := buf.String()

	assert.Contains(t, out, "| Cost | 29,850.00 |")
	assert.Contains(t, out, "| Margin | 5,970.00 |")
	assert.NotContains(t, out, "| Tax |")
	assert.Contains(t, out, "| **Price per piece** | **23.88** |")
	assert.Contains(t, out, "Order value: **EUR 35,820.00**")
}
