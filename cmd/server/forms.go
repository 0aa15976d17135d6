package main

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Simplici0/costworks/internal/pricing"
	"github.com/Simplici0/costworks/internal/store"
)

func parseRateConfigForm(r *http.Request) (store.RateConfig, error) {
	rc := store.RateConfig{Currency: strings.ToUpper(strings.TrimSpace(r.FormValue("currency")))}
	if rc.Currency == "" {
		rc.Currency = "EUR"
	}

	var err error
	if rc.LaborRate, err = parseNonNegativeFloat(r.FormValue("labor_rate"), "labor_rate"); err != nil {
		return rc, err
	}
	if rc.EnergyPrice, err = parseNonNegativeFloat(r.FormValue("energy_price"), "energy_price"); err != nil {
		return rc, err
	}
	if rc.HoursPerDay, err = parseHours(r.FormValue("hours_per_day"), "hours_per_day"); err != nil {
		return rc, err
	}
	return rc, nil
}

func parseMachineRateForm(r *http.Request) (store.MachineRate, error) {
	m := store.MachineRate{
		Process: strings.TrimSpace(r.FormValue("process")),
		Active:  r.FormValue("active") == "1",
	}
	if m.Process == "" {
		return m, fmt.Errorf("process is required")
	}

	var err error
	if m.RatePerHour, err = parseNonNegativeFloat(r.FormValue("rate_per_hour"), "rate_per_hour"); err != nil {
		return m, err
	}
	raw := r.FormValue("capacity_hours_per_day")
	if raw == "" {
		raw = "8"
	}
	if m.CapacityHoursPerDay, err = parseHours(raw, "capacity_hours_per_day"); err != nil {
		return m, err
	}
	return m, nil
}

func parseNonNegativeFloat(raw, field string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be numeric", field)
	}
	if value < 0 {
		return 0, fmt.Errorf("%s must be >= 0", field)
	}
	return value, nil
}

// parseHours accepts a per-day hour count.
func parseHours(raw, field string) (float64, error) {
	value, err := parseNonNegativeFloat(raw, field)
	if err != nil {
		return 0, err
	}
	if value > 24 {
		return 0, fmt.Errorf("%s must be between 0 and 24", field)
	}
	return value, nil
}

// parsePricingTerms reads commercial terms from query parameters. A positive
// tax_pct enables tax. It reports false when no term is present.
func parsePricingTerms(q url.Values) (pricing.Terms, bool, error) {
	var t pricing.Terms
	fields := []struct {
		key string
		dst *float64
	}{
		{"overhead_fixed", &t.OverheadFixed},
		{"overhead_pct", &t.OverheadPercent},
		{"contingency_pct", &t.ContingencyPercent},
		{"margin_pct", &t.MarginPercent},
		{"tax_pct", &t.TaxPercent},
		{"packaging", &t.PackagingCost},
		{"shipping", &t.ShippingCost},
	}

	found := false
	for _, f := range fields {
		raw := q.Get(f.key)
		if raw == "" {
			continue
		}
		v, err := parseNonNegativeFloat(raw, f.key)
		if err != nil {
			return pricing.Terms{}, false, err
		}
		*f.dst = v
		found = true
	}
	t.TaxEnabled = t.TaxPercent > 0
	return t, found, nil
}
