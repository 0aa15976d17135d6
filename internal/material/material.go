// Package material holds the material catalogue and the price and mass
// estimates used to fill in the per-piece material cost.
package material

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Kind groups grades by how their price is composed.
type Kind string

const (
	KindStainless Kind = "stainless"
	KindAluminium Kind = "aluminium"
	KindOther     Kind = "other"
)

// Family is the metallurgical family used for density lookups.
type Family string

const (
	FamilyStainless   Family = "stainless"
	FamilyDuplex      Family = "duplex"
	FamilyAluminum    Family = "aluminum"
	FamilyCarbonSteel Family = "carbon_steel"
)

// Grade is one catalogue entry.
type Grade struct {
	Name      string  `json:"name" yaml:"name"`
	Kind      Kind    `json:"kind" yaml:"kind"`
	Family    Family  `json:"family" yaml:"family"`
	BaseEURKg float64 `json:"base_eur_kg" yaml:"base_eur_kg"`
	// SurchargeKey is the alloy code a stainless surcharge table is keyed on.
	SurchargeKey string `json:"surcharge_key,omitempty" yaml:"surcharge_key,omitempty"`
}

// Catalogue maps grade names to their entries.
type Catalogue map[string]Grade

// DefaultCatalogue returns the built-in grades.
func DefaultCatalogue() Catalogue {
	return Catalogue{
		"SS304":            {Name: "SS304", Kind: KindStainless, Family: FamilyStainless, BaseEURKg: 2.8, SurchargeKey: "304"},
		"SS316L":           {Name: "SS316L", Kind: KindStainless, Family: FamilyStainless, BaseEURKg: 3.4, SurchargeKey: "316L"},
		"1.4462_Duplex":    {Name: "1.4462_Duplex", Kind: KindStainless, Family: FamilyDuplex, BaseEURKg: 4.2, SurchargeKey: "2205"},
		"SuperDuplex_2507": {Name: "SuperDuplex_2507", Kind: KindStainless, Family: FamilyDuplex, BaseEURKg: 5.4, SurchargeKey: "2507"},
		"SS904L":           {Name: "SS904L", Kind: KindStainless, Family: FamilyStainless, BaseEURKg: 6.1, SurchargeKey: "904L"},
		"Al_6082":          {Name: "Al_6082", Kind: KindAluminium, Family: FamilyAluminum},
		"Extruded_Al_6060": {Name: "Extruded_Al_6060", Kind: KindAluminium, Family: FamilyAluminum},
		"Cast_Aluminium":   {Name: "Cast_Aluminium", Kind: KindAluminium, Family: FamilyAluminum},
		"S235JR_steel":     {Name: "S235JR_steel", Kind: KindOther, Family: FamilyCarbonSteel, BaseEURKg: 1.4},
		"S355J2_steel":     {Name: "S355J2_steel", Kind: KindOther, Family: FamilyCarbonSteel, BaseEURKg: 1.7},
	}
}

// Names returns the grade names in sorted order.
func (c Catalogue) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsAluminium reports whether grade is an aluminium grade of the catalogue.
func (c Catalogue) IsAluminium(grade string) bool {
	g, ok := c[grade]
	return ok && g.Kind == KindAluminium
}

// PriceInputs carries the market figures a price may depend on.
type PriceInputs struct {
	// SurchargeEURTon is the stainless alloy surcharge.
	SurchargeEURTon float64 `json:"surcharge_eur_ton"`
	// LMEEURTon is the aluminium exchange price.
	LMEEURTon float64 `json:"lme_eur_ton"`
	// PremiumEURKg is the regional aluminium premium.
	PremiumEURKg float64 `json:"premium_eur_kg"`
	// ConversionEURKg covers extrusion or rolling.
	ConversionEURKg float64 `json:"conversion_eur_kg"`
	// Source labels where the market figures came from.
	Source string `json:"source"`
}

// Price composes the €/kg price of grade and describes its source.
func (c Catalogue) Price(grade string, in PriceInputs) (float64, string, error) {
	g, ok := c[grade]
	if !ok {
		return 0, "", fmt.Errorf("unknown material grade %q", grade)
	}

	src := in.Source
	switch g.Kind {
	case KindStainless:
		if src == "" {
			src = "surcharge manual"
		}
		return g.BaseEURKg + PerKg(in.SurchargeEURTon), src, nil
	case KindAluminium:
		if src == "" {
			src = "LME manual"
		}
		return PerKg(in.LMEEURTon) + in.PremiumEURKg + in.ConversionEURKg, src + " + prem+conv", nil
	default:
		return g.BaseEURKg, "fixed", nil
	}
}

// PerKg converts a €/ton figure to €/kg.
func PerKg(eurTon float64) float64 {
	return eurTon / 1000.0
}

var densityKgPerMM3 = map[Family]float64{
	FamilyStainless:   7.9e-6,
	FamilyDuplex:      7.8e-6,
	FamilyAluminum:    2.7e-6,
	FamilyCarbonSteel: 7.85e-6,
}

// Density returns kg/mm³ for family, defaulting to carbon steel.
func Density(f Family) float64 {
	if d, ok := densityKgPerMM3[f]; ok {
		return d
	}
	return densityKgPerMM3[FamilyCarbonSteel]
}

// FamilyFromGrade infers the family from a free-text grade designation.
func FamilyFromGrade(grade string) Family {
	g := strings.ToLower(grade)
	switch {
	case containsAny(g, "1.44", "2205", "s31803", "s32205"):
		return FamilyDuplex
	case containsAny(g, "304", "316", "1.43", "1.45"):
		return FamilyStainless
	case containsAny(g, "6082", "6061", "5754", "1050", "alu", "aluminium"):
		return FamilyAluminum
	default:
		return FamilyCarbonSteel
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Shape describes the raw stock of a part in millimetres.
type Shape struct {
	Form        string  `json:"form"`
	Grade       string  `json:"material_grade"`
	Family      Family  `json:"material_family,omitempty"`
	ThicknessMM float64 `json:"thickness_mm"`
	LengthMM    float64 `json:"length_mm"`
	WidthMM     float64 `json:"width_mm"`
	DiameterMM  float64 `json:"diameter_mm"`
}

// MassKg estimates the mass of s from its form and density.
func MassKg(s Shape) float64 {
	fam := s.Family
	if fam == "" {
		fam = FamilyFromGrade(s.Grade)
	}

	var vol float64
	switch strings.ToLower(s.Form) {
	case "bar", "staf", "round", "rod":
		if s.DiameterMM > 0 && s.LengthMM > 0 {
			r := s.DiameterMM / 2
			vol = math.Pi * r * r * s.LengthMM
			break
		}
		vol = s.ThicknessMM * s.LengthMM * s.WidthMM
	default:
		vol = s.ThicknessMM * s.LengthMM * s.WidthMM
	}

	if vol <= 0 {
		return 0
	}
	return vol * Density(fam)
}
