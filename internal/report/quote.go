package report

import (
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Simplici0/costworks/internal/costing"
	"github.com/Simplici0/costworks/internal/pricing"
)

// Quote is the data behind a Markdown customer quote.
type Quote struct {
	Client      string
	Contact     string
	Email       string
	ProjectCode string
	Project     string
	Date        time.Time
	LeadWeeks   int
	Currency    string
	Quantity    int
	Breakdown   costing.CostBreakdown
	Steps       []costing.StepCost
	Summary     *costing.Summary
	// Pricing, when set, turns the quote from cost into selling price.
	Pricing *pricing.Result
}

// Total is the order value for the full quantity.
func (q Quote) Total() float64 {
	if q.Pricing != nil {
		return q.Pricing.Totals.Total
	}
	return q.Breakdown.TotalCostPerPiece * float64(q.Quantity)
}

var quoteTmpl = template.Must(template.New("quote").Funcs(template.FuncMap{
	"money": money,
	"date":  func(t time.Time) string { return t.Format("2006-01-02") },
	"qty":   func(n int) string { return humanize.Comma(int64(n)) },
}).Parse(`# Quote {{ .ProjectCode }}

| | |
|---|---|
| Client | {{ .Client }} |
| Contact | {{ .Contact }}{{ if .Email }} ({{ .Email }}){{ end }} |
| Project | {{ .Project }} |
| Date | {{ date .Date }} |
| Quantity | {{ qty .Quantity }} pcs |

## Cost per piece

| Component | {{ .Currency }} |
|---|---:|
| Material | {{ money .Breakdown.MaterialCostPerPiece }} |
| Conversion | {{ money .PerPiece.Conversion }} |
| Lean | {{ money .PerPiece.Lean }} |
| Purchased parts | {{ money .PerPiece.Purchased }} |
| **Total** | **{{ money .Breakdown.TotalCostPerPiece }}** |
{{ if .Steps }}
## Routing

| Step | Process | Batches | Conversion |
|---:|---|---:|---:|
{{ range .Steps }}| {{ .Step }} | {{ .Process }} | {{ .Batches }} | {{ money .ConversionCost }} |
{{ end }}{{ end }}{{ with .Summary }}
## Cost range ({{ .Count }} simulations)

| P50 | P80 | P95 |
|---:|---:|---:|
| {{ money .P50 }} | {{ money .P80 }} | {{ money .P95 }} |
{{ end }}{{ with .Pricing }}
## Price

| Item | {{ $.Currency }} |
|---|---:|
| Cost | {{ money .Breakdown.Cost }} |
{{ if .Breakdown.Overhead }}| Overhead | {{ money .Breakdown.Overhead }} |
{{ end }}{{ if .Breakdown.Contingency }}| Contingency | {{ money .Breakdown.Contingency }} |
{{ end }}{{ if .Breakdown.Margin }}| Margin | {{ money .Breakdown.Margin }} |
{{ end }}{{ if .Breakdown.Packaging }}| Packaging | {{ money .Breakdown.Packaging }} |
{{ end }}{{ if .Breakdown.Shipping }}| Shipping | {{ money .Breakdown.Shipping }} |
{{ end }}| Net | {{ money .Totals.Net }} |
{{ if .Breakdown.Tax }}| Tax | {{ money .Breakdown.Tax }} |
{{ end }}| **Price per piece** | **{{ money .Totals.PerPiece }}** |
{{ end }}
Order value: **{{ .Currency }} {{ money .Total }}**. Lead time: {{ .LeadWeeks }} weeks.
`))

// PerPiece spreads the run totals over the quantity.
type PerPiece struct {
	Conversion float64
	Lean       float64
	Purchased  float64
}

type quoteView struct {
	Quote
	PerPiece PerPiece
}

// WriteQuote renders q as Markdown.
func WriteQuote(w io.Writer, q Quote) error {
	if q.Quantity < 1 {
		return fmt.Errorf("quote %s: %w", q.ProjectCode, costing.ErrInvalidQuantity)
	}
	if q.Currency == "" {
		q.Currency = "EUR"
	}
	if q.Date.IsZero() {
		q.Date = time.Now()
	}
	n := float64(q.Quantity)
	v := quoteView{
		Quote: q,
		PerPiece: PerPiece{
			Conversion: q.Breakdown.ConversionCostTotal / n,
			Lean:       q.Breakdown.LeanCostTotal / n,
			Purchased:  q.Breakdown.PurchasedCostTotal / n,
		},
	}
	if err := quoteTmpl.Execute(w, v); err != nil {
		return fmt.Errorf("render quote: %w", err)
	}
	return nil
}

func money(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}
