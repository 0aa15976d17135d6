// Package preset saves and restores complete calculation inputs as JSON or
// YAML snapshots.
package preset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Simplici0/costworks/internal/costing"
)

// AppName is written into every snapshot's metadata.
const AppName = "costworks"

// Format is a snapshot encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnsupportedFormat is returned for encodings other than JSON and YAML.
var ErrUnsupportedFormat = errors.New("unsupported preset format")

// Meta records when and by what a snapshot was written.
type Meta struct {
	TS  time.Time `json:"ts" yaml:"ts"`
	App string    `json:"app" yaml:"app"`
}

// Snapshot is a full calculation input.
type Snapshot struct {
	Project       string  `json:"project" yaml:"project"`
	Quantity      int     `json:"Q" yaml:"Q"`
	Material      string  `json:"mat" yaml:"mat"`
	NetMassKg     float64 `json:"netkg" yaml:"netkg"`
	MaterialPrice float64 `json:"price" yaml:"price"`
	PriceSource   string  `json:"price_src" yaml:"price_src"`
	EnergyPrice   float64 `json:"energy" yaml:"energy"`

	costing.LeanParams `yaml:",inline"`

	Routing []costing.RoutingStep `json:"routing" yaml:"routing"`
	BOM     []costing.BOMLine     `json:"bom" yaml:"bom"`

	Meta Meta `json:"_meta" yaml:"_meta"`
}

// FromInput captures in as a snapshot stamped with now.
func FromInput(project, material, priceSource string, in costing.Input, now time.Time) Snapshot {
	return Snapshot{
		Project:       project,
		Quantity:      in.Quantity,
		Material:      material,
		NetMassKg:     in.NetMassKg,
		MaterialPrice: in.MaterialPrice,
		PriceSource:   priceSource,
		EnergyPrice:   in.Rates.EnergyPrice,
		LeanParams:    in.Lean,
		Routing:       append([]costing.RoutingStep(nil), in.Routing...),
		BOM:           append([]costing.BOMLine(nil), in.BOM...),
		Meta:          Meta{TS: now.UTC(), App: AppName},
	}
}

// Input turns the snapshot into an engine input using rates for the
// tariffs a snapshot does not carry. A non-zero snapshot energy price wins.
func (s Snapshot) Input(rates costing.Rates) costing.Input {
	if s.EnergyPrice > 0 {
		rates.EnergyPrice = s.EnergyPrice
	}
	return costing.Input{
		Routing:       s.Routing,
		BOM:           s.BOM,
		Quantity:      s.Quantity,
		NetMassKg:     s.NetMassKg,
		MaterialPrice: s.MaterialPrice,
		Rates:         rates,
		Lean:          s.LeanParams,
	}
}

// Validate rejects snapshots the engine cannot cost.
func (s Snapshot) Validate() error {
	if s.Quantity < 1 {
		return fmt.Errorf("preset %q: %w", s.Project, costing.ErrInvalidQuantity)
	}
	return nil
}

// FormatFromFilename picks the format by file extension.
func FormatFromFilename(name string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// ParseFormat accepts "json", "yaml" or "yml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Encode writes snap to w.
func Encode(w io.Writer, snap Snapshot, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("encode JSON preset: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("encode YAML preset: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
}

// Decode reads a snapshot from r.
func Decode(r io.Reader, f Format) (Snapshot, error) {
	var snap Snapshot
	switch f {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&snap); err != nil {
			return Snapshot{}, fmt.Errorf("failed to parse JSON: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&snap); err != nil {
			return Snapshot{}, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		return Snapshot{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
	return snap, nil
}
