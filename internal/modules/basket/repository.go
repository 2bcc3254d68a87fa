package basket

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Repository handles basket database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new basket repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "basket").Logger(),
	}
}

// GetActive returns the single active basket, or nil when none exists
func (r *Repository) GetActive() (*Basket, error) {
	row := r.db.QueryRow(`
		SELECT id, name, active, created_at, deactivated_at
		FROM baskets
		WHERE active = 1
	`)

	b, err := r.scanBasket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active basket: %w", err)
	}

	if err := r.loadItems(&b); err != nil {
		return nil, err
	}

	return &b, nil
}

// GetAll returns every basket version, newest first
func (r *Repository) GetAll() ([]Basket, error) {
	rows, err := r.db.Query(`
		SELECT id, name, active, created_at, deactivated_at
		FROM baskets
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query baskets: %w", err)
	}
	defer rows.Close()

	var baskets []Basket
	for rows.Next() {
		b, err := r.scanBasket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan basket: %w", err)
		}
		baskets = append(baskets, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating baskets: %w", err)
	}

	for i := range baskets {
		if err := r.loadItems(&baskets[i]); err != nil {
			return nil, err
		}
	}

	return baskets, nil
}

// Register deactivates the current active basket (if any) and inserts the
// new one as active, in a single transaction. The at-most-one-active
// invariant never breaks between the two writes.
func (r *Repository) Register(b *Basket) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if _, err := tx.Exec(`
		UPDATE baskets SET active = 0, deactivated_at = ?
		WHERE active = 1
	`, now.Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to deactivate previous basket: %w", err)
	}

	res, err := tx.Exec(`
		INSERT INTO baskets (name, active, created_at)
		VALUES (?, 1, ?)
	`, b.Name, now.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert basket: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read basket id: %w", err)
	}

	for i := range b.Items {
		b.Items[i].Ticker = strings.ToUpper(strings.TrimSpace(b.Items[i].Ticker))
		itemRes, err := tx.Exec(`
			INSERT INTO basket_items (basket_id, ticker, weight_percent)
			VALUES (?, ?, ?)
		`, id, b.Items[i].Ticker, b.Items[i].WeightPercent.String())
		if err != nil {
			return fmt.Errorf("failed to insert basket item: %w", err)
		}
		itemID, err := itemRes.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read basket item id: %w", err)
		}
		b.Items[i].ID = itemID
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit basket registration: %w", err)
	}

	b.ID = id
	b.Active = true
	b.CreatedAt = now

	r.log.Info().Int64("basket_id", id).Str("name", b.Name).Msg("Basket registered")
	return nil
}

func (r *Repository) loadItems(b *Basket) error {
	rows, err := r.db.Query(`
		SELECT id, ticker, weight_percent
		FROM basket_items
		WHERE basket_id = ?
		ORDER BY id
	`, b.ID)
	if err != nil {
		return fmt.Errorf("failed to query basket items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item Item
		var weight string
		if err := rows.Scan(&item.ID, &item.Ticker, &weight); err != nil {
			return fmt.Errorf("failed to scan basket item: %w", err)
		}
		w, err := decimal.NewFromString(weight)
		if err != nil {
			return fmt.Errorf("invalid weight %q: %w", weight, err)
		}
		item.WeightPercent = w
		b.Items = append(b.Items, item)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating basket items: %w", err)
	}

	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func (r *Repository) scanBasket(s scanner) (Basket, error) {
	var b Basket
	var active int
	var createdAt string
	var deactivatedAt sql.NullString

	if err := s.Scan(&b.ID, &b.Name, &active, &createdAt, &deactivatedAt); err != nil {
		return Basket{}, err
	}

	b.Active = active == 1

	created, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Basket{}, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	b.CreatedAt = created

	if deactivatedAt.Valid {
		t, err := time.Parse(time.RFC3339, deactivatedAt.String)
		if err != nil {
			return Basket{}, fmt.Errorf("invalid deactivated_at %q: %w", deactivatedAt.String, err)
		}
		b.DeactivatedAt = &t
	}

	return b, nil
}
