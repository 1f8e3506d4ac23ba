package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is an immutable record of one execution between a resting maker
// order and an incoming taker order. Trades are appended to the engine's
// trade log in execution order and are never mutated after construction.
type Trade struct {
	ID           string
	Symbol       string
	Price        decimal.Decimal
	Quantity     decimal.Decimal
	Timestamp    time.Time
	Aggressor    Side
	MakerOrderID string
	TakerOrderID string
}

// NewTrade constructs a Trade priced at the maker's resting price, per
// SPEC_FULL §4.3: execution price is always the maker's resting price,
// never the taker's.
func NewTrade(id string, maker, taker *Order, quantity decimal.Decimal, now time.Time) *Trade {
	// maker.Price is never nil: only Limit orders rest (RestingEligible),
	// and Limit requires a price at construction.
	return &Trade{
		ID:           id,
		Symbol:       maker.Symbol,
		Price:        *maker.Price,
		Quantity:     quantity,
		Timestamp:    now,
		Aggressor:    taker.Side,
		MakerOrderID: maker.ID,
		TakerOrderID: taker.ID,
	}
}
