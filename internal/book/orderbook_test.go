package book

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drakon/internal/domain"
)

// placeResting inserts a resting limit order directly (bypassing matching,
// since these tests exercise the book's level bookkeeping in isolation).
func placeResting(t *testing.T, b *OrderBook, id string, side domain.Side, price, qty string) {
	t.Helper()
	require.NoError(t, b.AddOrder(mustOrder(t, id, side, price, qty)))
}

func askPrices(b *OrderBook) []string {
	var out []string
	b.asks.Scan(func(l *PriceLevel) bool {
		out = append(out, l.Price.String())
		return true
	})
	return out
}

func bidPrices(b *OrderBook) []string {
	var out []string
	b.bids.Scan(func(l *PriceLevel) bool {
		out = append(out, l.Price.String())
		return true
	})
	return out
}

func TestOrderBook_AddOrder_SortsLevelsByPricePriority(t *testing.T) {
	b := NewOrderBook("AAPL")

	placeResting(t, b, "bid-99-a", domain.Buy, "99", "100")
	placeResting(t, b, "bid-99-b", domain.Buy, "99", "90")
	placeResting(t, b, "bid-98", domain.Buy, "98", "50")

	placeResting(t, b, "ask-100", domain.Sell, "100", "100")
	placeResting(t, b, "ask-101", domain.Sell, "101", "20")

	assert.Equal(t, []string{"100", "101"}, askPrices(b), "asks should be sorted low to high")
	assert.Equal(t, []string{"99", "98"}, bidPrices(b), "bids should be sorted high to low")
}

func TestOrderBook_AddOrder_RejectsDuplicateID(t *testing.T) {
	b := NewOrderBook("AAPL")
	placeResting(t, b, "dup", domain.Buy, "99", "10")

	err := b.AddOrder(mustOrder(t, "dup", domain.Buy, "99", "5"))
	assert.ErrorIs(t, err, domain.ErrDuplicateOrder)
}

func TestOrderBook_RemoveOrder_DeletesEmptyLevel(t *testing.T) {
	b := NewOrderBook("AAPL")
	placeResting(t, b, "only", domain.Buy, "99", "10")

	removed, ok := b.RemoveOrder("only")
	require.True(t, ok)
	assert.Equal(t, "only", removed.ID)
	assert.Empty(t, bidPrices(b))

	_, ok = b.RemoveOrder("only")
	assert.False(t, ok, "removing an unknown id is a benign no-op")
}

func TestOrderBook_MatchCandidates_CompleteMatch(t *testing.T) {
	b := NewOrderBook("AAPL")
	placeResting(t, b, "ask-100-a", domain.Sell, "100", "100")
	placeResting(t, b, "ask-100-b", domain.Sell, "100", "90")
	placeResting(t, b, "ask-101", domain.Sell, "101", "20")

	incoming := mustOrder(t, "buy-1", domain.Buy, "100", "100")
	fills, covered := b.MatchCandidates(incoming)

	require.Len(t, fills, 1)
	assert.Equal(t, "ask-100-a", fills[0].Maker.ID)
	assert.True(t, fills[0].Quantity.Equal(decimal.RequireFromString("100")))
	assert.True(t, covered.Equal(decimal.RequireFromString("100")))

	for _, f := range fills {
		b.ApplyFill(f.Maker, f.Quantity)
	}
	assert.Equal(t, []string{"100", "101"}, askPrices(b))
}

func TestOrderBook_MatchCandidates_PartialThenSweep(t *testing.T) {
	b := NewOrderBook("AAPL")
	placeResting(t, b, "ask-100", domain.Sell, "100", "90")
	placeResting(t, b, "ask-101", domain.Sell, "101", "30")

	incoming := mustOrder(t, "buy-1", domain.Buy, "103", "110")
	fills, covered := b.MatchCandidates(incoming)

	require.Len(t, fills, 2)
	assert.True(t, covered.Equal(decimal.RequireFromString("110")))
	for _, f := range fills {
		b.ApplyFill(f.Maker, f.Quantity)
	}

	// ask-100 fully consumed and removed; ask-101 left with 10 remaining.
	assert.Equal(t, []string{"101"}, askPrices(b))
	level, ok := b.asks.Min()
	require.True(t, ok)
	assert.True(t, level.TotalRemaining().Equal(decimal.RequireFromString("10")))
}

func TestOrderBook_MatchCandidates_StopsAtNonCrossingLevel(t *testing.T) {
	b := NewOrderBook("AAPL")
	placeResting(t, b, "ask-100", domain.Sell, "100", "10")
	placeResting(t, b, "ask-105", domain.Sell, "105", "10")

	incoming := mustOrder(t, "buy-1", domain.Buy, "100", "50")
	_, covered := b.MatchCandidates(incoming)

	assert.True(t, covered.Equal(decimal.RequireFromString("10")), "must not cross the 105 level at a 100 limit")
}

func TestOrderBook_BBO_EmptySideIsNil(t *testing.T) {
	b := NewOrderBook("AAPL")
	placeResting(t, b, "bid", domain.Buy, "99", "10")

	bbo := b.BBO()
	require.NotNil(t, bbo.BestBid)
	assert.True(t, bbo.BestBid.Equal(decimal.RequireFromString("99")))
	assert.Nil(t, bbo.BestOffer)
	assert.Nil(t, bbo.OfferQuantity)
}

func TestOrderBook_Depth_RespectsLimitAndOrdering(t *testing.T) {
	b := NewOrderBook("AAPL")
	placeResting(t, b, "bid-99", domain.Buy, "99", "10")
	placeResting(t, b, "bid-98", domain.Buy, "98", "10")
	placeResting(t, b, "bid-97", domain.Buy, "97", "10")

	snap := b.Depth(2)
	require.Len(t, snap.Bids, 2)
	assert.Equal(t, "99", snap.Bids[0].Price.String())
	assert.Equal(t, "98", snap.Bids[1].Price.String())
	assert.WithinDuration(t, time.Now().UTC(), snap.Timestamp, time.Second)
}
