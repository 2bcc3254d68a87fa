package ledger

import "github.com/shopspring/decimal"

// MoneyPlaces is the precision every persisted money value is rounded to
const MoneyPlaces = 2

// BlendAverageCost returns the weighted average cost after buying qty
// shares at price onto an existing position of prevQty at prevAvg:
//
//	(prevQty*prevAvg + qty*price) / (prevQty + qty)
//
// rounded to MoneyPlaces. With prevQty == 0 this degenerates to price.
func BlendAverageCost(prevQty int64, prevAvg decimal.Decimal, qty int64, price decimal.Decimal) decimal.Decimal {
	if prevQty <= 0 {
		return price.Round(MoneyPlaces)
	}

	prev := decimal.NewFromInt(prevQty)
	bought := decimal.NewFromInt(qty)

	total := prev.Mul(prevAvg).Add(bought.Mul(price))
	return total.DivRound(prev.Add(bought), MoneyPlaces)
}

// RealizedProfit returns qty * (salePrice - averageCost). Selling never
// touches the average cost itself.
func RealizedProfit(qty int64, salePrice, averageCost decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(qty).Mul(salePrice.Sub(averageCost))
}
