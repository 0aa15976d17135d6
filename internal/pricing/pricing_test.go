package pricing

import (
	"errors"
	"math"
	"testing"

	"github.com/Simplici0/costworks/internal/costing"
)

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func perPiece(v float64) costing.CostBreakdown {
	return costing.CostBreakdown{TotalCostPerPiece: v}
}

func mustCalculate(t *testing.T, b costing.CostBreakdown, q int, terms Terms) Result {
	t.Helper()
	r, err := Calculate(b, q, terms)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	return r
}

func TestCalculate_CostOnly(t *testing.T) {
	result := mustCalculate(t, perPiece(39), 3, Terms{})

	nearlyEqual(t, "cost", result.Breakdown.Cost, 117)
	nearlyEqual(t, "total", result.Totals.Total, 117)
	nearlyEqual(t, "per piece", result.Totals.PerPiece, 39)
}

func TestCalculate_MarginPercent_ZeroAndThirty(t *testing.T) {
	withoutMargin := mustCalculate(t, perPiece(10), 1, Terms{MarginPercent: 0})
	withMargin := mustCalculate(t, perPiece(10), 1, Terms{MarginPercent: 30})

	nearlyEqual(t, "withoutMargin margin", withoutMargin.Breakdown.Margin, 0)
	nearlyEqual(t, "withMargin margin", withMargin.Breakdown.Margin, 3)
	nearlyEqual(t, "withoutMargin total", withoutMargin.Totals.Total, 10)
	nearlyEqual(t, "withMargin total", withMargin.Totals.Total, 13)
}

func TestCalculate_TaxEnabledOnAndOff(t *testing.T) {
	withoutTax := mustCalculate(t, perPiece(10), 1, Terms{MarginPercent: 30, TaxPercent: 16})
	withTax := mustCalculate(t, perPiece(10), 1, Terms{MarginPercent: 30, TaxEnabled: true, TaxPercent: 16})

	nearlyEqual(t, "withoutTax tax", withoutTax.Breakdown.Tax, 0)
	nearlyEqual(t, "withTax tax", withTax.Breakdown.Tax, 2.08)
	nearlyEqual(t, "withoutTax total", withoutTax.Totals.Total, 13)
	nearlyEqual(t, "withTax total", withTax.Totals.Total, 15.08)
	nearlyEqual(t, "withTax net", withTax.Totals.Net, 13)
}

func TestCalculate_OverheadFixedAndPercent(t *testing.T) {
	result := mustCalculate(t, perPiece(55), 2, Terms{OverheadFixed: 10, OverheadPercent: 20})

	nearlyEqual(t, "cost", result.Breakdown.Cost, 110)
	nearlyEqual(t, "overhead", result.Breakdown.Overhead, 32)
	nearlyEqual(t, "total", result.Totals.Total, 142)
	nearlyEqual(t, "per piece", result.Totals.PerPiece, 71)
}

func TestCalculate_PackagingAndShippingAreNotTaxed(t *testing.T) {
	result := mustCalculate(t, perPiece(100), 1, Terms{
		ContingencyPercent: 5,
		PackagingCost:      7,
		ShippingCost:       13,
		TaxEnabled:         true,
		TaxPercent:         10,
	})

	nearlyEqual(t, "contingency", result.Breakdown.Contingency, 5)
	nearlyEqual(t, "tax", result.Breakdown.Tax, 10.5)
	nearlyEqual(t, "total", result.Totals.Total, 135.5)
}

func TestCalculate_Errors(t *testing.T) {
	if _, err := Calculate(perPiece(1), 0, Terms{}); !errors.Is(err, costing.ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	if _, err := Calculate(perPiece(1), 1, Terms{MarginPercent: -5}); err == nil {
		t.Fatal("expected error for negative margin")
	}
}
