package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Construction errors. NewOrder returns one of these (and no Order) when
// it refuses an order, so nothing reaches a book. ErrDuplicateOrder is
// instead returned by the book's AddOrder; the engine reports a duplicate
// id as status Rejected and leaves the book untouched (SPEC_FULL §7).
var (
	ErrNonPositiveQuantity = errors.New("drakon: quantity must be positive")
	ErrNonPositivePrice    = errors.New("drakon: price must be positive")
	ErrMissingPrice        = errors.New("drakon: price is required for this order type")
	ErrUnexpectedPrice     = errors.New("drakon: market orders do not carry a price")
	ErrUnknownOrderType    = errors.New("drakon: unknown order type")
	ErrUnknownSide         = errors.New("drakon: unknown side")
	ErrEmptyOrderID        = errors.New("drakon: order id must not be empty")
	ErrEmptySymbol         = errors.New("drakon: symbol must not be empty")
	ErrDuplicateOrder      = errors.New("drakon: order id already known to this book")
)

// Order is a single order submitted to the matching core. The core is the
// sole owner of an Order once it rests on a book; a collaborator holding a
// reference to one after submission observes mutation of Status,
// FilledQuantity, and RemainingQuantity as it is matched.
type Order struct {
	ID        string
	Symbol    string
	Type      OrderType
	Side      Side
	Quantity  decimal.Decimal
	Price     *decimal.Decimal // nil for Market orders
	Timestamp time.Time
	// Sequence is a monotonically increasing counter value issued by the
	// engine and stamped at construction. Matching does not read it: FIFO
	// priority within a price level is the level's append order.
	Sequence uint64

	Status           OrderStatus
	FilledQuantity   decimal.Decimal
	RemainingQuantity decimal.Decimal
}

// NewOrder validates and constructs an Order in status Pending with its
// full quantity remaining and nothing filled. now is the admission instant;
// sequence is the engine's per-process admission counter.
func NewOrder(id, symbol string, typ OrderType, side Side, quantity decimal.Decimal, price *decimal.Decimal, now time.Time, sequence uint64) (*Order, error) {
	if id == "" {
		return nil, ErrEmptyOrderID
	}
	if symbol == "" {
		return nil, ErrEmptySymbol
	}
	switch side {
	case Buy, Sell:
	default:
		return nil, ErrUnknownSide
	}
	switch typ {
	case Limit, Market, IOC, FOK:
	default:
		return nil, ErrUnknownOrderType
	}
	if quantity.Sign() <= 0 {
		return nil, ErrNonPositiveQuantity
	}
	if typ == Market {
		if price != nil {
			return nil, ErrUnexpectedPrice
		}
	} else if price == nil {
		return nil, ErrMissingPrice
	} else if price.Sign() <= 0 {
		return nil, ErrNonPositivePrice
	}

	return &Order{
		ID:                id,
		Symbol:            symbol,
		Type:              typ,
		Side:              side,
		Quantity:          quantity,
		Price:             price,
		Timestamp:         now,
		Sequence:          sequence,
		Status:            Pending,
		FilledQuantity:    decimal.Zero,
		RemainingQuantity: quantity,
	}, nil
}

// RestingEligible reports whether this order's type may be admitted to the
// book as a resting maker once partially or wholly unfilled.
func (o *Order) RestingEligible() bool {
	return o.Type.restingEligible()
}

// PartialFill applies a fill of qty to the order, moving quantity from
// remaining to filled and advancing status. qty must be <= RemainingQuantity;
// callers (book/engine matching code) are responsible for never calling
// this with more than what is actually available, since this method does
// not reject an overfill — it is an internal invariant, not input
// validation.
func (o *Order) PartialFill(qty decimal.Decimal) {
	o.FilledQuantity = o.FilledQuantity.Add(qty)
	o.RemainingQuantity = o.RemainingQuantity.Sub(qty)
	if o.RemainingQuantity.Sign() <= 0 {
		o.RemainingQuantity = decimal.Zero
		o.Status = Filled
		return
	}
	if o.FilledQuantity.Sign() > 0 {
		o.Status = PartiallyFilled
	}
}

// Cancel marks the order Cancelled. It is a no-op if the order is already
// in a terminal state.
func (o *Order) Cancel() bool {
	if o.Status.Terminal() {
		return false
	}
	o.Status = Cancelled
	return true
}
