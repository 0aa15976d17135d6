package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/Simplici0/costworks/internal/costing"
)

// Calculation is a saved costing run.
type Calculation struct {
	ID        uuid.UUID             `json:"id"`
	Project   string                `json:"project"`
	CreatedAt time.Time             `json:"created_at"`
	Input     costing.Input         `json:"input"`
	Breakdown costing.CostBreakdown `json:"breakdown"`
	Summary   *costing.Summary      `json:"summary,omitempty"`
	Samples   []float64             `json:"samples,omitempty"`
}

// CalculationHeader is the list view of a saved run.
type CalculationHeader struct {
	ID            uuid.UUID `json:"id"`
	Project       string    `json:"project"`
	CreatedAt     time.Time `json:"created_at"`
	Quantity      int       `json:"quantity"`
	TotalPerPiece float64   `json:"total_per_piece"`
	Simulated     bool      `json:"simulated"`
}

// ListFilter narrows ListCalculations. Project matches as a substring.
type ListFilter struct {
	Project string
	Limit   int
}

const (
	defaultListLimit = 50
	// createdLayout keeps a fixed-width fraction so stored values sort by time.
	createdLayout = "2006-01-02T15:04:05.000000000Z"
)

// SaveCalculation inserts c, assigning an ID and timestamp when unset.
func (s *Store) SaveCalculation(ctx context.Context, c *Calculation) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	input, err := json.Marshal(c.Input)
	if err != nil {
		return fmt.Errorf("encode calculation input: %w", err)
	}
	breakdown, err := json.Marshal(c.Breakdown)
	if err != nil {
		return fmt.Errorf("encode calculation breakdown: %w", err)
	}

	var summary sql.NullString
	if c.Summary != nil {
		raw, err := json.Marshal(c.Summary)
		if err != nil {
			return fmt.Errorf("encode calculation summary: %w", err)
		}
		summary = sql.NullString{String: string(raw), Valid: true}
	}

	var samples []byte
	if len(c.Samples) > 0 {
		samples, err = msgpack.Marshal(c.Samples)
		if err != nil {
			return fmt.Errorf("encode calculation samples: %w", err)
		}
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO calculations (
			id, project, created_at, quantity, total_per_piece,
			input_json, breakdown_json, summary_json, samples_msgpack
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.ID.String(), c.Project, c.CreatedAt.UTC().Format(createdLayout), c.Input.Quantity,
		c.Breakdown.TotalCostPerPiece, string(input), string(breakdown), summary, samples,
	); err != nil {
		return fmt.Errorf("insert calculation: %w", err)
	}
	return nil
}

// GetCalculation loads one saved run.
func (s *Store) GetCalculation(ctx context.Context, id uuid.UUID) (Calculation, error) {
	var (
		c                Calculation
		rawID, created   string
		input, breakdown string
		summary          sql.NullString
		samples          []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, project, created_at, input_json, breakdown_json, summary_json, samples_msgpack
		FROM calculations
		WHERE id = ?
	`, id.String()).Scan(&rawID, &c.Project, &created, &input, &breakdown, &summary, &samples)
	if errors.Is(err, sql.ErrNoRows) {
		return Calculation{}, ErrNotFound
	}
	if err != nil {
		return Calculation{}, fmt.Errorf("query calculation %s: %w", id, err)
	}

	if c.ID, err = uuid.Parse(rawID); err != nil {
		return Calculation{}, fmt.Errorf("parse calculation id: %w", err)
	}
	if c.CreatedAt, err = parseTime(created); err != nil {
		return Calculation{}, err
	}
	if err := json.Unmarshal([]byte(input), &c.Input); err != nil {
		return Calculation{}, fmt.Errorf("decode calculation input: %w", err)
	}
	if err := json.Unmarshal([]byte(breakdown), &c.Breakdown); err != nil {
		return Calculation{}, fmt.Errorf("decode calculation breakdown: %w", err)
	}
	if summary.Valid {
		c.Summary = &costing.Summary{}
		if err := json.Unmarshal([]byte(summary.String), c.Summary); err != nil {
			return Calculation{}, fmt.Errorf("decode calculation summary: %w", err)
		}
	}
	if len(samples) > 0 {
		if err := msgpack.Unmarshal(samples, &c.Samples); err != nil {
			return Calculation{}, fmt.Errorf("decode calculation samples: %w", err)
		}
	}
	return c, nil
}

// ListCalculations returns saved runs, newest first.
func (s *Store) ListCalculations(ctx context.Context, f ListFilter) ([]CalculationHeader, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
		SELECT id, project, created_at, quantity, total_per_piece, samples_msgpack IS NOT NULL
		FROM calculations
	`
	args := []any{}
	if p := strings.TrimSpace(f.Project); p != "" {
		query += ` WHERE project LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(p)+"%")
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query calculations: %w", err)
	}
	defer rows.Close()

	var out []CalculationHeader
	for rows.Next() {
		var (
			h              CalculationHeader
			rawID, created string
		)
		if err := rows.Scan(&rawID, &h.Project, &created, &h.Quantity, &h.TotalPerPiece, &h.Simulated); err != nil {
			return nil, fmt.Errorf("scan calculation: %w", err)
		}
		if h.ID, err = uuid.Parse(rawID); err != nil {
			return nil, fmt.Errorf("parse calculation id: %w", err)
		}
		if h.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calculations: %w", err)
	}
	return out, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
