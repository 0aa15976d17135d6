// Package store persists tariffs, saved calculations and supplier quotes in
// SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Simplici0/costworks/internal/costing"
	"github.com/Simplici0/costworks/internal/material"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

const dateLayout = "2006-01-02"

// Store wraps the database handle.
type Store struct {
	db *sql.DB
}

// New returns a Store backed by db.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// RateConfig is the singleton tariff row.
type RateConfig struct {
	LaborRate   float64 `json:"labor_rate"`
	EnergyPrice float64 `json:"energy_price"`
	HoursPerDay float64 `json:"hours_per_day"`
	Currency    string  `json:"currency"`
}

// MachineRate is one process tariff.
type MachineRate struct {
	Process             string  `json:"process"`
	RatePerHour         float64 `json:"rate_per_hour"`
	CapacityHoursPerDay float64 `json:"capacity_hours_per_day"`
	Active              bool    `json:"active"`
}

// Tariffs is everything the engine needs from the rate tables.
type Tariffs struct {
	Rates       costing.Rates
	Capacity    map[string]float64
	HoursPerDay float64
	Currency    string
}

// RateConfig loads the singleton tariff row.
func (s *Store) RateConfig(ctx context.Context) (RateConfig, error) {
	var rc RateConfig
	err := s.db.QueryRowContext(ctx, `
		SELECT labor_rate, energy_price, hours_per_day, currency
		FROM rate_config
		WHERE id = 1
	`).Scan(&rc.LaborRate, &rc.EnergyPrice, &rc.HoursPerDay, &rc.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return RateConfig{}, ErrNotFound
	}
	if err != nil {
		return RateConfig{}, fmt.Errorf("query rate config: %w", err)
	}
	return rc, nil
}

// UpdateRateConfig writes the singleton tariff row, creating it if needed.
func (s *Store) UpdateRateConfig(ctx context.Context, rc RateConfig) error {
	if rc.LaborRate < 0 || rc.EnergyPrice < 0 || rc.HoursPerDay < 0 {
		return fmt.Errorf("rates must not be negative")
	}
	if rc.Currency == "" {
		rc.Currency = "EUR"
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO rate_config (id, labor_rate, energy_price, hours_per_day, currency, updated_at)
		VALUES (1, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			labor_rate = excluded.labor_rate,
			energy_price = excluded.energy_price,
			hours_per_day = excluded.hours_per_day,
			currency = excluded.currency,
			updated_at = CURRENT_TIMESTAMP
	`, rc.LaborRate, rc.EnergyPrice, rc.HoursPerDay, rc.Currency); err != nil {
		return fmt.Errorf("update rate config: %w", err)
	}
	return nil
}

// MachineRates lists all process tariffs ordered by process.
func (s *Store) MachineRates(ctx context.Context) ([]MachineRate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT process, rate_per_hour, capacity_hours_per_day, active
		FROM machine_rates
		ORDER BY process
	`)
	if err != nil {
		return nil, fmt.Errorf("query machine rates: %w", err)
	}
	defer rows.Close()

	var out []MachineRate
	for rows.Next() {
		var m MachineRate
		if err := rows.Scan(&m.Process, &m.RatePerHour, &m.CapacityHoursPerDay, &m.Active); err != nil {
			return nil, fmt.Errorf("scan machine rate: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate machine rates: %w", err)
	}
	return out, nil
}

// UpsertMachineRate creates or replaces the tariff for m.Process.
func (s *Store) UpsertMachineRate(ctx context.Context, m MachineRate) error {
	if m.Process == "" {
		return fmt.Errorf("process is required")
	}
	if m.RatePerHour < 0 || m.CapacityHoursPerDay < 0 {
		return fmt.Errorf("machine rate for %s must not be negative", m.Process)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO machine_rates (process, rate_per_hour, capacity_hours_per_day, active)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (process) DO UPDATE SET
			rate_per_hour = excluded.rate_per_hour,
			capacity_hours_per_day = excluded.capacity_hours_per_day,
			active = excluded.active
	`, m.Process, m.RatePerHour, m.CapacityHoursPerDay, m.Active); err != nil {
		return fmt.Errorf("upsert machine rate %s: %w", m.Process, err)
	}
	return nil
}

// Tariffs combines the rate config with the active machine rates.
func (s *Store) Tariffs(ctx context.Context) (Tariffs, error) {
	rc, err := s.RateConfig(ctx)
	if err != nil {
		return Tariffs{}, err
	}
	machines, err := s.MachineRates(ctx)
	if err != nil {
		return Tariffs{}, err
	}

	t := Tariffs{
		Rates: costing.Rates{
			LaborRate:    rc.LaborRate,
			EnergyPrice:  rc.EnergyPrice,
			MachineRates: make(map[string]float64, len(machines)),
		},
		Capacity:    make(map[string]float64, len(machines)),
		HoursPerDay: rc.HoursPerDay,
		Currency:    rc.Currency,
	}
	for _, m := range machines {
		if !m.Active {
			continue
		}
		t.Rates.MachineRates[m.Process] = m.RatePerHour
		t.Capacity[m.Process] = m.CapacityHoursPerDay
	}
	return t, nil
}

// Materials loads the active material grades.
func (s *Store) Materials(ctx context.Context) (material.Catalogue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT grade, kind, family, base_eur_kg
		FROM materials
		WHERE active = 1
	`)
	if err != nil {
		return nil, fmt.Errorf("query materials: %w", err)
	}
	defer rows.Close()

	out := material.Catalogue{}
	for rows.Next() {
		var (
			g            material.Grade
			kind, family string
		)
		if err := rows.Scan(&g.Name, &kind, &family, &g.BaseEURKg); err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		g.Kind = material.Kind(kind)
		g.Family = material.Family(family)
		out[g.Name] = g
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate materials: %w", err)
	}
	return out, nil
}

// PasswordHash returns the stored bcrypt hash for email.
func (s *Store) PasswordHash(ctx context.Context, email string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE email = ?`, email).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query user: %w", err)
	}
	return hash, nil
}

func parseTime(v string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05", dateLayout} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", v)
}
