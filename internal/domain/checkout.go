package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrWeightRequired   = errors.New("weight required for by-weight product")
	ErrQuantityRequired = errors.New("quantity must be at least 1")
	ErrNoPricePerKg     = errors.New("by-weight product has no price per kg")
)

// PriceLine snapshots a catalog product into a transaction line. For unit
// goods the sale price and cost are per piece; for by-weight goods the line
// is recorded as a single item whose price and cost cover the weighed amount.
func PriceLine(p Product, item CheckoutItem) (TransactionItem, error) {
	line := TransactionItem{ProductID: p.ID, Name: p.Name, IsByWeight: p.IsByWeight}

	if p.IsByWeight {
		if item.Weight == nil || item.Weight.LessThanOrEqual(decimal.Zero) {
			return TransactionItem{}, ErrWeightRequired
		}
		if p.PricePerKg == nil {
			return TransactionItem{}, ErrNoPricePerKg
		}
		line.Quantity = 1
		line.Weight = item.Weight
		line.PriceAtSale = p.PricePerKg.Mul(*item.Weight)
		line.CostAtSale = p.PriceBuy.Mul(*item.Weight)
		return line, nil
	}

	if item.Quantity < 1 {
		return TransactionItem{}, ErrQuantityRequired
	}
	line.Quantity = item.Quantity
	line.PriceAtSale = p.PriceSell
	line.CostAtSale = p.PriceBuy
	return line, nil
}

// CheckoutTotals sums line revenue and profit across priced lines.
func CheckoutTotals(items []TransactionItem) (amount, profit decimal.Decimal) {
	for _, it := range items {
		qty := decimal.NewFromInt(int64(it.Quantity))
		amount = amount.Add(it.PriceAtSale.Mul(qty))
		profit = profit.Add(it.PriceAtSale.Sub(it.CostAtSale).Mul(qty))
	}
	return amount, profit
}
