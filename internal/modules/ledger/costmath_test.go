package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestBlendAverageCost(t *testing.T) {
	tests := []struct {
		name     string
		prevQty  int64
		prevAvg  string
		qty      int64
		price    string
		expected string
	}{
		{
			name:     "first buy degenerates to price",
			prevQty:  0,
			prevAvg:  "0",
			qty:      10,
			price:    "29",
			expected: "29",
		},
		{
			name:     "equal quantities average the prices",
			prevQty:  10,
			prevAvg:  "10",
			qty:      10,
			price:    "20",
			expected: "15",
		},
		{
			name:     "weighted blend",
			prevQty:  3,
			prevAvg:  "29",
			qty:      2,
			price:    "30",
			expected: "29.4",
		},
		{
			name:     "result rounds to cents",
			prevQty:  3,
			prevAvg:  "10",
			qty:      1,
			price:    "11",
			expected: "10.25",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prevAvg := decimal.RequireFromString(tt.prevAvg)
			price := decimal.RequireFromString(tt.price)
			expected := decimal.RequireFromString(tt.expected)

			got := BlendAverageCost(tt.prevQty, prevAvg, tt.qty, price)
			if !got.Equal(expected) {
				t.Errorf("Expected %s, got %s", expected, got)
			}
		})
	}
}

func TestRealizedProfit(t *testing.T) {
	tests := []struct {
		name     string
		qty      int64
		price    string
		avg      string
		expected string
	}{
		{"gain", 10, "15", "10", "50"},
		{"loss", 10, "8", "10", "-20"},
		{"flat", 5, "10", "10", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RealizedProfit(tt.qty, decimal.RequireFromString(tt.price), decimal.RequireFromString(tt.avg))
			if !got.Equal(decimal.RequireFromString(tt.expected)) {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}
