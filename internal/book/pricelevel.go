// Package book holds the per-symbol order book: price levels sorted by
// price, FIFO within a level, and the match-candidate projection the
// engine's order-type state machines consume.
package book

import (
	"github.com/shopspring/decimal"

	"drakon/internal/domain"
)

// PriceLevel is an ordered FIFO queue of resting orders at one exact
// price, with a cached total of their remaining quantity. Fields are
// exported so callers (tests, depth snapshots) can inspect a level
// directly; mutation should go through Add/Remove.
type PriceLevel struct {
	Price  decimal.Decimal
	Orders []*domain.Order

	total decimal.Decimal
}

// NewPriceLevel creates an empty level at price.
func NewPriceLevel(price decimal.Decimal) *PriceLevel {
	return &PriceLevel{Price: price, total: decimal.Zero}
}

// Add appends order to the tail of the level (admission order is FIFO
// order) and folds its remaining quantity into the cached total.
func (l *PriceLevel) Add(order *domain.Order) {
	l.Orders = append(l.Orders, order)
	l.total = l.total.Add(order.RemainingQuantity)
}

// Remove unlinks order by identity, preserving the order of the
// remainder. Returns whether the order was present.
func (l *PriceLevel) Remove(orderID string) bool {
	for i, o := range l.Orders {
		if o.ID == orderID {
			l.total = l.total.Sub(o.RemainingQuantity)
			l.Orders = append(l.Orders[:i], l.Orders[i+1:]...)
			return true
		}
	}
	return false
}

// Fill is one projected or executed match against a resting maker order.
type Fill struct {
	Maker    *domain.Order
	Quantity decimal.Decimal
}

// PeekFillable projects, without mutating the level, the prefix of
// resting orders that would satisfy up to maxQty of incoming demand. The
// last included fill may cover less than its maker's full remaining
// quantity. The sum of returned quantities never exceeds maxQty.
func (l *PriceLevel) PeekFillable(maxQty decimal.Decimal) ([]Fill, decimal.Decimal) {
	var fills []Fill
	covered := decimal.Zero
	for _, o := range l.Orders {
		if covered.GreaterThanOrEqual(maxQty) {
			break
		}
		remaining := maxQty.Sub(covered)
		qty := o.RemainingQuantity
		if qty.GreaterThan(remaining) {
			qty = remaining
		}
		fills = append(fills, Fill{Maker: o, Quantity: qty})
		covered = covered.Add(qty)
	}
	return fills, covered
}

// IsEmpty reports whether the level has no resting orders.
func (l *PriceLevel) IsEmpty() bool {
	return len(l.Orders) == 0
}

// TotalRemaining returns the cached sum of resting orders' remaining
// quantity at this level.
func (l *PriceLevel) TotalRemaining() decimal.Decimal {
	return l.total
}
