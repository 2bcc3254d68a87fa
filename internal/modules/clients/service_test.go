package clients

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/index5/index5/internal/modules/ledger"
	"github.com/index5/index5/internal/modules/quotes"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(Schema)
	require.NoError(t, err)
	_, err = db.Exec(ledger.Schema)
	require.NoError(t, err)

	return db
}

func newTestService(t *testing.T, src quotes.Source) (*Service, *ledger.Store) {
	t.Helper()

	db := setupTestDB(t)
	store := ledger.NewStore(db, zerolog.Nop())
	repo := NewRepository(db, zerolog.Nop())
	if src == nil {
		src = quotes.Static{}
	}
	return NewService(repo, store, src, zerolog.Nop()), store
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRegister(t *testing.T) {
	svc, _ := newTestService(t, nil)

	client, err := svc.Register("Alice", "12345678901", "alice@mail.com", dec("1000"))
	require.NoError(t, err)

	assert.NotZero(t, client.ID)
	assert.False(t, client.Active, "registration never activates")
	assert.Nil(t, client.SubAccount)
	assert.Equal(t, int64(0), client.SubAccountID())
	assert.False(t, client.JoinDate.IsZero())
}

func TestRegister_RejectsNonPositiveMonthlyValue(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.Register("Alice", "12345678901", "alice@mail.com", decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidMonthlyValue)

	_, err = svc.Register("Alice", "12345678901", "alice@mail.com", dec("-10"))
	assert.ErrorIs(t, err, ErrInvalidMonthlyValue)
}

func TestRegister_RejectsDuplicateDocument(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.Register("Alice", "12345678901", "alice@mail.com", dec("1000"))
	require.NoError(t, err)

	_, err = svc.Register("Alice Again", "12345678901", "alice2@mail.com", dec("500"))
	assert.ErrorIs(t, err, ErrDocumentTaken)
}

func TestApprove(t *testing.T) {
	svc, _ := newTestService(t, nil)

	registered, err := svc.Register("Alice", "12345678901", "alice@mail.com", dec("1000"))
	require.NoError(t, err)

	approved, err := svc.Approve(registered.ID)
	require.NoError(t, err)

	assert.True(t, approved.Active)
	require.NotNil(t, approved.SubAccount)
	assert.Equal(t, registered.ID, approved.SubAccount.ClientID)
	assert.True(t, strings.HasPrefix(approved.SubAccount.AccountNumber, "SUB-"))
	assert.NotZero(t, approved.SubAccountID())

	// Approval makes the client eligible for purchase cycles
	active, err := svc.ListActive()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, registered.ID, active[0].ID)
	require.NotNil(t, active[0].SubAccount)
}

func TestApprove_Twice(t *testing.T) {
	svc, _ := newTestService(t, nil)

	registered, err := svc.Register("Alice", "12345678901", "alice@mail.com", dec("1000"))
	require.NoError(t, err)

	_, err = svc.Approve(registered.ID)
	require.NoError(t, err)

	_, err = svc.Approve(registered.ID)
	assert.ErrorIs(t, err, ErrAlreadyApproved)
}

func TestApprove_UnknownClient(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.Approve(9999)
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestListActive_ExcludesPending(t *testing.T) {
	svc, _ := newTestService(t, nil)

	approved, err := svc.Register("Alice", "12345678901", "alice@mail.com", dec("1000"))
	require.NoError(t, err)
	_, err = svc.Approve(approved.ID)
	require.NoError(t, err)

	_, err = svc.Register("Bob", "22345678901", "bob@mail.com", dec("500"))
	require.NoError(t, err)

	active, err := svc.ListActive()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Alice", active[0].Name)
}

func TestPortfolio(t *testing.T) {
	src := quotes.Static{"AAAA3": dec("12")}
	svc, store := newTestService(t, src)

	registered, err := svc.Register("Alice", "12345678901", "alice@mail.com", dec("1000"))
	require.NoError(t, err)
	approved, err := svc.Approve(registered.ID)
	require.NoError(t, err)

	tx, err := store.Begin()
	require.NoError(t, err)
	require.NoError(t, tx.PutHolding(&ledger.Holding{
		SubAccountID: approved.SubAccount.ID,
		Ticker:       "AAAA3",
		Quantity:     10,
		AverageCost:  dec("10"),
	}))
	require.NoError(t, tx.PutHolding(&ledger.Holding{
		SubAccountID: approved.SubAccount.ID,
		Ticker:       "BBBB3", // unquoted: valued at its own average cost
		Quantity:     4,
		AverageCost:  dec("5"),
	}))
	require.NoError(t, tx.PutHolding(&ledger.Holding{
		SubAccountID: approved.SubAccount.ID,
		Ticker:       "CCCC3", // fully sold: hidden from the view
		Quantity:     0,
		AverageCost:  dec("7"),
	}))
	require.NoError(t, tx.Commit())

	p, err := svc.Portfolio(registered.ID)
	require.NoError(t, err)

	assert.Equal(t, approved.SubAccount.AccountNumber, p.Account)
	require.Len(t, p.Positions, 2)

	byTicker := make(map[string]PortfolioPosition)
	for _, pos := range p.Positions {
		byTicker[pos.Ticker] = pos
	}

	quoted := byTicker["AAAA3"]
	assert.True(t, quoted.CurrentPrice.Equal(dec("12")))
	assert.True(t, quoted.MarketValue.Equal(dec("120")))
	assert.True(t, quoted.UnrealizedPnL.Equal(dec("20")))

	fallback := byTicker["BBBB3"]
	assert.True(t, fallback.CurrentPrice.Equal(dec("5")))
	assert.True(t, fallback.UnrealizedPnL.IsZero(), "no gain against its own cost")

	assert.True(t, p.TotalValue.Equal(dec("140")))
}

func TestPortfolio_PendingClientIsEmpty(t *testing.T) {
	svc, _ := newTestService(t, nil)

	registered, err := svc.Register("Bob", "22345678901", "bob@mail.com", dec("500"))
	require.NoError(t, err)

	p, err := svc.Portfolio(registered.ID)
	require.NoError(t, err)

	assert.Empty(t, p.Account)
	assert.Empty(t, p.Positions)
	assert.True(t, p.TotalValue.IsZero())
}

func TestPortfolio_UnknownClient(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.Portfolio(404)
	assert.ErrorIs(t, err, ErrClientNotFound)
}
