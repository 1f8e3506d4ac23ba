package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BBO is the best bid and offer for a symbol at a point in time. BestBid
// and BestOffer (and their paired quantities) are nil when that side of
// the book is empty.
type BBO struct {
	Symbol       string
	BestBid      *decimal.Decimal
	BestOffer    *decimal.Decimal
	BidQuantity  *decimal.Decimal
	OfferQuantity *decimal.Decimal
	Timestamp    time.Time
}

// DepthLevel is one aggregated price level in a depth snapshot.
type DepthLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// DepthSnapshot is the top-K levels of each side of a symbol's book. Bids
// are ordered best (highest price) first; asks are ordered best (lowest
// price) first.
type DepthSnapshot struct {
	Symbol    string
	Bids      []DepthLevel
	Asks      []DepthLevel
	Timestamp time.Time
}
