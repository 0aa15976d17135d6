// Package pricing turns the cost of a run into a selling price.
package pricing

import (
	"fmt"

	"github.com/Simplici0/costworks/internal/costing"
)

// Terms are the commercial terms applied on top of manufacturing cost.
// Percentages are whole numbers (30 = 30%).
type Terms struct {
	OverheadFixed      float64 `json:"overhead_fixed"`
	OverheadPercent    float64 `json:"overhead_pct"`
	ContingencyPercent float64 `json:"contingency_pct"`
	MarginPercent      float64 `json:"margin_pct"`
	TaxEnabled         bool    `json:"tax_enabled"`
	TaxPercent         float64 `json:"tax_pct"`
	PackagingCost      float64 `json:"packaging"`
	ShippingCost       float64 `json:"shipping"`
}

// Validate rejects negative terms.
func (t Terms) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"overhead_fixed", t.OverheadFixed},
		{"overhead_pct", t.OverheadPercent},
		{"contingency_pct", t.ContingencyPercent},
		{"margin_pct", t.MarginPercent},
		{"tax_pct", t.TaxPercent},
		{"packaging", t.PackagingCost},
		{"shipping", t.ShippingCost},
	} {
		if f.v < 0 {
			return fmt.Errorf("%s must be >= 0, got %g", f.name, f.v)
		}
	}
	return nil
}

// Breakdown lists every amount added on the way from cost to price, for the
// whole run.
type Breakdown struct {
	Cost        float64 `json:"cost"`
	Overhead    float64 `json:"overhead"`
	Contingency float64 `json:"contingency"`
	Packaging   float64 `json:"packaging"`
	Shipping    float64 `json:"shipping"`
	Margin      float64 `json:"margin"`
	Tax         float64 `json:"tax"`
}

// Totals contains roll-up values from the pricing calculation.
type Totals struct {
	Net      float64 `json:"net"`
	Total    float64 `json:"total"`
	PerPiece float64 `json:"per_piece"`
}

// Result groups the full pricing output.
type Result struct {
	Breakdown Breakdown `json:"breakdown"`
	Totals    Totals    `json:"totals"`
}

// Calculate prices a run of quantity pieces costed at b. Margin is applied
// to cost plus overhead and contingency; tax additionally covers the margin
// but not packaging or shipping.
func Calculate(b costing.CostBreakdown, quantity int, t Terms) (Result, error) {
	if quantity < 1 {
		return Result{}, costing.ErrInvalidQuantity
	}
	if err := t.Validate(); err != nil {
		return Result{}, err
	}

	cost := b.TotalCostPerPiece * float64(quantity)
	overhead := t.OverheadFixed + cost*(t.OverheadPercent/100.0)
	contingency := cost * (t.ContingencyPercent / 100.0)
	margin := (t.MarginPercent / 100.0) * (cost + overhead + contingency)

	tax := 0.0
	if t.TaxEnabled {
		tax = (t.TaxPercent / 100.0) * (cost + overhead + contingency + margin)
	}

	net := cost + overhead + contingency + t.PackagingCost + t.ShippingCost + margin
	total := net + tax

	return Result{
		Breakdown: Breakdown{
			Cost:        cost,
			Overhead:    overhead,
			Contingency: contingency,
			Packaging:   t.PackagingCost,
			Shipping:    t.ShippingCost,
			Margin:      margin,
			Tax:         tax,
		},
		Totals: Totals{Net: net, Total: total, PerPiece: total / float64(quantity)},
	}, nil
}
