package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Store provides durable access to holdings, the house pool and the
// operation history. All mutations go through a Tx so that one engine
// invocation commits as a single unit.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewStore creates a new ledger store
func NewStore(db *sql.DB, log zerolog.Logger) *Store {
	return &Store{
		db:  db,
		log: log.With().Str("repo", "ledger").Logger(),
	}
}

// Begin opens a ledger transaction. Every write made through the returned
// Tx is discarded unless Commit succeeds.
func (s *Store) Begin() (*Tx, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin ledger transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// HoldingsBySubAccount returns all holdings for one sub-account
func (s *Store) HoldingsBySubAccount(subAccountID int64) ([]Holding, error) {
	rows, err := s.db.Query(`
		SELECT id, sub_account_id, ticker, quantity, average_cost
		FROM holdings
		WHERE sub_account_id = ?
		ORDER BY ticker
	`, subAccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}

	return holdings, nil
}

// PoolEntries returns the full house residual pool
func (s *Store) PoolEntries() ([]PoolEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, ticker, quantity, average_cost, origin
		FROM house_pool
		ORDER BY ticker
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query house pool: %w", err)
	}
	defer rows.Close()

	var entries []PoolEntry
	for rows.Next() {
		e, err := scanPoolEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pool entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating house pool: %w", err)
	}

	return entries, nil
}

// HistoryByClient returns a client's operations, most recent first
func (s *Store) HistoryByClient(clientID int64, limit int) ([]Operation, error) {
	rows, err := s.db.Query(`
		SELECT id, client_id, ticker, operation_type, quantity, unit_price, total_value, operation_date, reason
		FROM operation_history
		WHERE client_id = ?
		ORDER BY operation_date DESC, id DESC
		LIMIT ?
	`, clientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query operation history: %w", err)
	}
	defer rows.Close()

	var ops []Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		ops = append(ops, op)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating operations: %w", err)
	}

	return ops, nil
}

// HasScheduledPurchaseOn reports whether a scheduled purchase already ran
// on the given calendar day (UTC). Used by the scheduler's once-per-day guard.
func (s *Store) HasScheduledPurchaseOn(day time.Time) (bool, error) {
	dayStr := day.UTC().Format("2006-01-02")

	var one int
	err := s.db.QueryRow(`
		SELECT 1 FROM operation_history
		WHERE reason = ? AND operation_date LIKE ?
		LIMIT 1
	`, string(ReasonScheduledPurchase), dayStr+"%").Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check scheduled purchase: %w", err)
	}

	return true, nil
}

// Tx is one atomic batch of ledger writes. The house pool rows are
// read-modified-written inside the same transaction, which serializes
// concurrent invocations against the shared per-ticker resource.
type Tx struct {
	tx *sql.Tx
}

// Commit commits every pending write
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ledger transaction: %w", err)
	}
	return nil
}

// Rollback discards every pending write. Safe to call after Commit.
func (t *Tx) Rollback() {
	_ = t.tx.Rollback()
}

// HoldingsBySubAccount returns all holdings for one sub-account, read
// inside the transaction so later writes see a consistent snapshot.
func (t *Tx) HoldingsBySubAccount(subAccountID int64) ([]Holding, error) {
	rows, err := t.tx.Query(`
		SELECT id, sub_account_id, ticker, quantity, average_cost
		FROM holdings
		WHERE sub_account_id = ?
		ORDER BY ticker
	`, subAccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}

	return holdings, nil
}

// GetHolding returns the holding for (subAccount, ticker), or nil when absent
func (t *Tx) GetHolding(subAccountID int64, ticker string) (*Holding, error) {
	row := t.tx.QueryRow(`
		SELECT id, sub_account_id, ticker, quantity, average_cost
		FROM holdings
		WHERE sub_account_id = ? AND ticker = ?
	`, subAccountID, strings.ToUpper(ticker))

	h, err := scanHolding(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}

	return &h, nil
}

// PutHolding inserts or updates a holding keyed by (subAccount, ticker)
func (t *Tx) PutHolding(h *Holding) error {
	if h.Quantity < 0 {
		return fmt.Errorf("holding quantity must not be negative: %s %d", h.Ticker, h.Quantity)
	}

	_, err := t.tx.Exec(`
		INSERT INTO holdings (sub_account_id, ticker, quantity, average_cost)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (sub_account_id, ticker)
		DO UPDATE SET quantity = excluded.quantity, average_cost = excluded.average_cost
	`, h.SubAccountID, strings.ToUpper(h.Ticker), h.Quantity, h.AverageCost.String())
	if err != nil {
		return fmt.Errorf("failed to put holding: %w", err)
	}

	return nil
}

// GetPoolEntry returns the house pool entry for a ticker, or nil when absent
func (t *Tx) GetPoolEntry(ticker string) (*PoolEntry, error) {
	row := t.tx.QueryRow(`
		SELECT id, ticker, quantity, average_cost, origin
		FROM house_pool
		WHERE ticker = ?
	`, strings.ToUpper(ticker))

	e, err := scanPoolEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pool entry: %w", err)
	}

	return &e, nil
}

// PutPoolEntry inserts or updates the house pool entry for a ticker
func (t *Tx) PutPoolEntry(e *PoolEntry) error {
	if e.Quantity < 0 {
		return fmt.Errorf("pool quantity must not be negative: %s %d", e.Ticker, e.Quantity)
	}

	_, err := t.tx.Exec(`
		INSERT INTO house_pool (ticker, quantity, average_cost, origin)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (ticker)
		DO UPDATE SET quantity = excluded.quantity, average_cost = excluded.average_cost, origin = excluded.origin
	`, strings.ToUpper(e.Ticker), e.Quantity, e.AverageCost.String(), e.Origin)
	if err != nil {
		return fmt.Errorf("failed to put pool entry: %w", err)
	}

	return nil
}

// AppendOperation inserts one history row. History is append-only;
// there is no update or delete path.
func (t *Tx) AppendOperation(op *Operation) error {
	_, err := t.tx.Exec(`
		INSERT INTO operation_history
		(client_id, ticker, operation_type, quantity, unit_price, total_value, operation_date, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		op.ClientID,
		strings.ToUpper(op.Ticker),
		string(op.OperationType),
		op.Quantity,
		op.UnitPrice.String(),
		op.TotalValue.String(),
		op.OperationDate.UTC().Format(time.RFC3339),
		string(op.Reason),
	)
	if err != nil {
		return fmt.Errorf("failed to append operation: %w", err)
	}

	return nil
}

// scanner abstracts *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanHolding(s scanner) (Holding, error) {
	var h Holding
	var avgCost string

	if err := s.Scan(&h.ID, &h.SubAccountID, &h.Ticker, &h.Quantity, &avgCost); err != nil {
		return Holding{}, err
	}

	avg, err := decimal.NewFromString(avgCost)
	if err != nil {
		return Holding{}, fmt.Errorf("invalid average cost %q: %w", avgCost, err)
	}
	h.AverageCost = avg

	return h, nil
}

func scanPoolEntry(s scanner) (PoolEntry, error) {
	var e PoolEntry
	var avgCost string
	var origin sql.NullString

	if err := s.Scan(&e.ID, &e.Ticker, &e.Quantity, &avgCost, &origin); err != nil {
		return PoolEntry{}, err
	}

	avg, err := decimal.NewFromString(avgCost)
	if err != nil {
		return PoolEntry{}, fmt.Errorf("invalid average cost %q: %w", avgCost, err)
	}
	e.AverageCost = avg
	e.Origin = origin.String

	return e, nil
}

func scanOperation(s scanner) (Operation, error) {
	var op Operation
	var opType, reason, unitPrice, totalValue, opDate string

	if err := s.Scan(&op.ID, &op.ClientID, &op.Ticker, &opType, &op.Quantity, &unitPrice, &totalValue, &opDate, &reason); err != nil {
		return Operation{}, err
	}

	price, err := decimal.NewFromString(unitPrice)
	if err != nil {
		return Operation{}, fmt.Errorf("invalid unit price %q: %w", unitPrice, err)
	}
	total, err := decimal.NewFromString(totalValue)
	if err != nil {
		return Operation{}, fmt.Errorf("invalid total value %q: %w", totalValue, err)
	}
	when, err := time.Parse(time.RFC3339, opDate)
	if err != nil {
		return Operation{}, fmt.Errorf("invalid operation date %q: %w", opDate, err)
	}

	op.OperationType = OperationType(opType)
	op.Reason = Reason(reason)
	op.UnitPrice = price
	op.TotalValue = total
	op.OperationDate = when

	return op, nil
}
