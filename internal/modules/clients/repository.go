package clients

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Repository handles client and sub-account database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new client repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "clients").Logger(),
	}
}

// Create inserts a new client (inactive, no sub-account yet)
func (r *Repository) Create(c *Client) error {
	res, err := r.db.Exec(`
		INSERT INTO clients (name, document, email, monthly_value, active, join_date)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		c.Name,
		c.Document,
		c.Email,
		c.MonthlyValue.String(),
		boolToInt(c.Active),
		c.JoinDate.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read client id: %w", err)
	}
	c.ID = id

	r.log.Info().Int64("client_id", id).Str("document", c.Document).Msg("Client created")
	return nil
}

// GetByID returns one client with its sub-account, or nil when absent
func (r *Repository) GetByID(id int64) (*Client, error) {
	row := r.db.QueryRow(clientSelect+" WHERE c.id = ?", id)

	c, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	return &c, nil
}

// GetByDocument returns one client by document, or nil when absent
func (r *Repository) GetByDocument(document string) (*Client, error) {
	row := r.db.QueryRow(clientSelect+" WHERE c.document = ?", document)

	c, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client by document: %w", err)
	}

	return &c, nil
}

// ListActive returns all active clients with their sub-accounts
func (r *Repository) ListActive() ([]Client, error) {
	rows, err := r.db.Query(clientSelect + " WHERE c.active = 1 ORDER BY c.id")
	if err != nil {
		return nil, fmt.Errorf("failed to list active clients: %w", err)
	}
	defer rows.Close()

	var list []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		list = append(list, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clients: %w", err)
	}

	return list, nil
}

// Activate marks a client active and creates its sub-account in one transaction
func (r *Repository) Activate(clientID int64, accountNumber string) (*SubAccount, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("UPDATE clients SET active = 1 WHERE id = ?", clientID); err != nil {
		return nil, fmt.Errorf("failed to activate client: %w", err)
	}

	now := time.Now().UTC()
	res, err := tx.Exec(`
		INSERT INTO sub_accounts (client_id, account_number, created_at)
		VALUES (?, ?, ?)
	`, clientID, accountNumber, now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to create sub-account: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read sub-account id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit activation: %w", err)
	}

	r.log.Info().Int64("client_id", clientID).Str("account", accountNumber).Msg("Client activated")

	return &SubAccount{
		ID:            id,
		ClientID:      clientID,
		AccountNumber: accountNumber,
		CreatedAt:     now,
	}, nil
}

const clientSelect = `
	SELECT c.id, c.name, c.document, c.email, c.monthly_value, c.active, c.join_date, c.exit_date,
	       s.id, s.account_number, s.created_at
	FROM clients c
	LEFT JOIN sub_accounts s ON s.client_id = c.id
`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanClient(s scanner) (Client, error) {
	var c Client
	var monthlyValue, joinDate string
	var active int
	var exitDate sql.NullString
	var subID sql.NullInt64
	var subNumber, subCreatedAt sql.NullString

	err := s.Scan(&c.ID, &c.Name, &c.Document, &c.Email, &monthlyValue, &active, &joinDate, &exitDate,
		&subID, &subNumber, &subCreatedAt)
	if err != nil {
		return Client{}, err
	}

	mv, err := decimal.NewFromString(monthlyValue)
	if err != nil {
		return Client{}, fmt.Errorf("invalid monthly value %q: %w", monthlyValue, err)
	}
	c.MonthlyValue = mv
	c.Active = active == 1

	if c.JoinDate, err = time.Parse(time.RFC3339, joinDate); err != nil {
		return Client{}, fmt.Errorf("invalid join date %q: %w", joinDate, err)
	}
	if exitDate.Valid {
		t, err := time.Parse(time.RFC3339, exitDate.String)
		if err != nil {
			return Client{}, fmt.Errorf("invalid exit date %q: %w", exitDate.String, err)
		}
		c.ExitDate = &t
	}

	if subID.Valid {
		createdAt, err := time.Parse(time.RFC3339, subCreatedAt.String)
		if err != nil {
			return Client{}, fmt.Errorf("invalid sub-account date %q: %w", subCreatedAt.String, err)
		}
		c.SubAccount = &SubAccount{
			ID:            subID.Int64,
			ClientID:      c.ID,
			AccountNumber: subNumber.String,
			CreatedAt:     createdAt,
		}
	}

	return c, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
