package store

import (
	"context"
	"fmt"
	"time"
)

// SupplierQuote is a purchased-part price with an expiry date.
type SupplierQuote struct {
	ID         int64     `json:"id"`
	Supplier   string    `json:"supplier"`
	Item       string    `json:"item"`
	UOM        string    `json:"uom"`
	Price      float64   `json:"price"`
	ValidUntil time.Time `json:"valid_until"`
	Notes      string    `json:"notes"`
}

// AddSupplierQuote inserts q and returns its ID.
func (s *Store) AddSupplierQuote(ctx context.Context, q SupplierQuote) (int64, error) {
	if q.Supplier == "" || q.Item == "" {
		return 0, fmt.Errorf("supplier and item are required")
	}
	if q.UOM == "" {
		q.UOM = "pc"
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO supplier_quotes (supplier, item, uom, price, valid_until, notes)
		VALUES (?, ?, ?, ?, ?, ?)
	`, q.Supplier, q.Item, q.UOM, q.Price, q.ValidUntil.Format(dateLayout), q.Notes)
	if err != nil {
		return 0, fmt.Errorf("insert supplier quote: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("supplier quote id: %w", err)
	}
	return id, nil
}

// ExpiringQuotes lists quotes whose validity ends between now and
// now+within, both days inclusive, soonest first.
func (s *Store) ExpiringQuotes(ctx context.Context, now time.Time, within time.Duration) ([]SupplierQuote, error) {
	from := now.Format(dateLayout)
	to := now.Add(within).Format(dateLayout)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, supplier, item, uom, price, valid_until, notes
		FROM supplier_quotes
		WHERE valid_until BETWEEN ? AND ?
		ORDER BY valid_until, supplier, item
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query expiring quotes: %w", err)
	}
	defer rows.Close()

	var out []SupplierQuote
	for rows.Next() {
		var (
			q     SupplierQuote
			until string
		)
		if err := rows.Scan(&q.ID, &q.Supplier, &q.Item, &q.UOM, &q.Price, &until, &q.Notes); err != nil {
			return nil, fmt.Errorf("scan supplier quote: %w", err)
		}
		if q.ValidUntil, err = parseTime(until); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expiring quotes: %w", err)
	}
	return out, nil
}
