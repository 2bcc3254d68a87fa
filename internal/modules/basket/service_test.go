package basket

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

type stubRebalancer struct {
	calls   int
	lastNew *Basket
	lastOld *Basket
	err     error
}

func (s *stubRebalancer) Run(newBasket, oldBasket *Basket) (*RebalanceSummary, error) {
	s.calls++
	s.lastNew = newBasket
	s.lastOld = oldBasket
	if s.err != nil {
		return nil, s.err
	}
	return &RebalanceSummary{ClientsAffected: 2}, nil
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(Schema)
	require.NoError(t, err)

	return db
}

func newTestService(t *testing.T) (*Service, *stubRebalancer, *Repository) {
	t.Helper()

	repo := NewRepository(setupTestDB(t), zerolog.Nop())
	reb := &stubRebalancer{}
	return NewService(repo, reb, zerolog.Nop()), reb, repo
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func fiveItems(weights ...string) []Item {
	items := make([]Item, len(weights))
	for i, w := range weights {
		items[i] = Item{Ticker: fmt.Sprintf("TST%d3", i+1), WeightPercent: dec(w)}
	}
	return items
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		items   []Item
		wantErr error
	}{
		{
			name:  "valid composition",
			items: fiveItems("30", "25", "20", "15", "10"),
		},
		{
			name:  "weights with decimals summing to 100",
			items: fiveItems("33.5", "16.5", "20", "20", "10"),
		},
		{
			name:    "too few assets",
			items:   fiveItems("50", "50"),
			wantErr: ErrInvalidAssetCount,
		},
		{
			name:    "too many assets",
			items:   fiveItems("20", "20", "20", "20", "10", "10"),
			wantErr: ErrInvalidAssetCount,
		},
		{
			name:    "weights above 100",
			items:   fiveItems("30", "30", "20", "15", "10"),
			wantErr: ErrInvalidPercentages,
		},
		{
			name:    "weights below 100",
			items:   fiveItems("30", "20", "20", "15", "10"),
			wantErr: ErrInvalidPercentages,
		},
		{
			name: "duplicate ticker",
			items: []Item{
				{Ticker: "TST13", WeightPercent: dec("30")},
				{Ticker: "TST13", WeightPercent: dec("25")},
				{Ticker: "TST33", WeightPercent: dec("20")},
				{Ticker: "TST43", WeightPercent: dec("15")},
				{Ticker: "TST53", WeightPercent: dec("10")},
			},
			wantErr: ErrDuplicateTicker,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.items)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegister_FirstBasketSkipsRebalancing(t *testing.T) {
	svc, reb, _ := newTestService(t)

	result, err := svc.Register("launch", fiveItems("30", "25", "20", "15", "10"))
	require.NoError(t, err)

	assert.Nil(t, result.Previous)
	assert.Nil(t, result.Rebalancing)
	assert.Equal(t, 0, reb.calls, "nothing to converge from on the first registration")
	assert.True(t, result.Basket.Active)
	assert.NotZero(t, result.Basket.ID)
}

func TestRegister_SwitchDeactivatesPreviousAndRebalances(t *testing.T) {
	svc, reb, repo := newTestService(t)

	first, err := svc.Register("v1", fiveItems("30", "25", "20", "15", "10"))
	require.NoError(t, err)

	second, err := svc.Register("v2", fiveItems("20", "20", "20", "20", "20"))
	require.NoError(t, err)

	require.NotNil(t, second.Previous)
	assert.Equal(t, first.Basket.ID, second.Previous.ID)

	assert.Equal(t, 1, reb.calls)
	assert.Equal(t, second.Basket.ID, reb.lastNew.ID)
	assert.Equal(t, first.Basket.ID, reb.lastOld.ID)
	require.NotNil(t, second.Rebalancing)
	assert.Equal(t, 2, second.Rebalancing.ClientsAffected)

	// At most one active basket at any time
	active, err := repo.GetActive()
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, second.Basket.ID, active.ID)

	history, err := repo.GetAll()
	require.NoError(t, err)
	require.Len(t, history, 2)

	activeCount := 0
	for _, b := range history {
		if b.Active {
			activeCount++
		} else {
			assert.NotNil(t, b.DeactivatedAt)
		}
	}
	assert.Equal(t, 1, activeCount)
}

func TestRegister_InvalidBasketWritesNothing(t *testing.T) {
	svc, reb, repo := newTestService(t)

	_, err := svc.Register("bad", fiveItems("50", "50"))
	assert.ErrorIs(t, err, ErrInvalidAssetCount)
	assert.Equal(t, 0, reb.calls)

	active, err := repo.GetActive()
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestRegister_RebalancingFailureKeepsSwitch(t *testing.T) {
	svc, reb, repo := newTestService(t)

	_, err := svc.Register("v1", fiveItems("30", "25", "20", "15", "10"))
	require.NoError(t, err)

	reb.err = fmt.Errorf("quotes unavailable")
	result, err := svc.Register("v2", fiveItems("20", "20", "20", "20", "20"))
	require.Error(t, err)
	require.NotNil(t, result, "the committed switch is still reported")

	// The new basket stays active even though rebalancing failed
	active, getErr := repo.GetActive()
	require.NoError(t, getErr)
	require.NotNil(t, active)
	assert.Equal(t, "v2", active.Name)
}

func TestRegister_NormalizesTickers(t *testing.T) {
	svc, _, _ := newTestService(t)

	items := fiveItems("30", "25", "20", "15", "10")
	items[0].Ticker = "  abcd3 "

	result, err := svc.Register("normalized", items)
	require.NoError(t, err)
	assert.Equal(t, "ABCD3", result.Basket.Items[0].Ticker)
}

func TestBasketAccessors(t *testing.T) {
	b := &Basket{Items: fiveItems("30", "25", "20", "15", "10")}

	assert.Equal(t, []string{"TST13", "TST23", "TST33", "TST43", "TST53"}, b.Tickers())
	assert.True(t, b.WeightFor("TST13").Equal(dec("30")))
	assert.True(t, b.WeightFor("ZZZZ3").IsZero(), "absent ticker weighs zero")
}
