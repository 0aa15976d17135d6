package seed

import (
	"database/sql"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/Simplici0/costworks/internal/material"
)

const (
	defaultLaborRate   = 45.0
	defaultEnergyPrice = 0.20
	defaultHoursPerDay = 8.0
	defaultCurrency    = "EUR"
)

// DefaultMachineRates are the €/h rates seeded for the standard processes.
var DefaultMachineRates = map[string]float64{
	"CNC":     85,
	"Laser":   110,
	"Lassen":  55,
	"Buigen":  75,
	"Montage": 40,
	"Casting": 65,
}

// Config contains the values required by startup seed.
type Config struct {
	AdminEmail    string
	AdminPassword string
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

// Run executes the startup seed in an idempotent way.
func Run(db *sql.DB, cfg Config) (Stats, error) {
	tx, err := db.Begin()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	steps := []func(*sql.Tx, *Stats) error{
		func(tx *sql.Tx, s *Stats) error { return seedAdmin(tx, cfg.AdminEmail, cfg.AdminPassword, s) },
		ensureRateConfig,
		ensureMachineRates,
		ensureMaterials,
	}
	for _, step := range steps {
		if err := step(tx, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func seedAdmin(tx *sql.Tx, email, password string, stats *Stats) error {
	if email == "" || password == "" {
		return nil
	}

	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM users WHERE email = ? LIMIT 1)`, email).Scan(&exists); err != nil {
		return fmt.Errorf("check admin user existence: %w", err)
	}
	if exists {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	if _, err := tx.Exec(`INSERT INTO users (email, password_hash) VALUES (?, ?)`, email, string(hash)); err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}
	stats.Inserts++
	return nil
}

func ensureRateConfig(tx *sql.Tx, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM rate_config WHERE id = 1)`).Scan(&exists); err != nil {
		return fmt.Errorf("check rate config existence: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := tx.Exec(`
		INSERT INTO rate_config (id, labor_rate, energy_price, hours_per_day, currency)
		VALUES (1, ?, ?, ?, ?)
	`, defaultLaborRate, defaultEnergyPrice, defaultHoursPerDay, defaultCurrency); err != nil {
		return fmt.Errorf("insert rate config singleton: %w", err)
	}
	stats.Inserts++
	return nil
}

func ensureMachineRates(tx *sql.Tx, stats *Stats) error {
	for process, rate := range DefaultMachineRates {
		res, err := tx.Exec(`
			INSERT INTO machine_rates (process, rate_per_hour, capacity_hours_per_day, active)
			VALUES (?, ?, ?, 1)
			ON CONFLICT (process) DO NOTHING
		`, process, rate, defaultHoursPerDay)
		if err != nil {
			return fmt.Errorf("insert machine rate %s: %w", process, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			stats.Inserts++
		}
	}
	return nil
}

func ensureMaterials(tx *sql.Tx, stats *Stats) error {
	cat := material.DefaultCatalogue()
	for _, name := range cat.Names() {
		g := cat[name]
		res, err := tx.Exec(`
			INSERT INTO materials (grade, kind, family, base_eur_kg, notes, active)
			VALUES (?, ?, ?, ?, '', 1)
			ON CONFLICT (grade) DO NOTHING
		`, g.Name, string(g.Kind), string(g.Family), g.BaseEURKg)
		if err != nil {
			return fmt.Errorf("insert material %s: %w", name, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			stats.Inserts++
		}
	}
	return nil
}
