package engine

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drakon/internal/domain"
)

func newTestEngine() *MatchingEngine {
	return New(zerolog.Nop(), nil)
}

func limit(t *testing.T, e *MatchingEngine, id, symbol string, side domain.Side, qty, px string) *domain.Order {
	t.Helper()
	p := decimal.RequireFromString(px)
	o, err := domain.NewOrder(id, symbol, domain.Limit, side, decimal.RequireFromString(qty), &p, time.Now(), e.NextSequence())
	require.NoError(t, err)
	return o
}

func market(t *testing.T, e *MatchingEngine, id, symbol string, side domain.Side, qty string) *domain.Order {
	t.Helper()
	o, err := domain.NewOrder(id, symbol, domain.Market, side, decimal.RequireFromString(qty), nil, time.Now(), e.NextSequence())
	require.NoError(t, err)
	return o
}

func ioc(t *testing.T, e *MatchingEngine, id, symbol string, side domain.Side, qty, px string) *domain.Order {
	t.Helper()
	p := decimal.RequireFromString(px)
	o, err := domain.NewOrder(id, symbol, domain.IOC, side, decimal.RequireFromString(qty), &p, time.Now(), e.NextSequence())
	require.NoError(t, err)
	return o
}

func fok(t *testing.T, e *MatchingEngine, id, symbol string, side domain.Side, qty, px string) *domain.Order {
	t.Helper()
	p := decimal.RequireFromString(px)
	o, err := domain.NewOrder(id, symbol, domain.FOK, side, decimal.RequireFromString(qty), &p, time.Now(), e.NextSequence())
	require.NoError(t, err)
	return o
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// TestSimpleCross reproduces scenario 1: a resting sell partially filled by
// a smaller crossing buy.
func TestSimpleCross(t *testing.T) {
	e := newTestEngine()
	s1 := limit(t, e, "s1", "BTC-USD", domain.Sell, "1.0", "50000")
	_, trades := e.SubmitOrder(s1)
	assert.Empty(t, trades)

	b1 := limit(t, e, "b1", "BTC-USD", domain.Buy, "0.5", "50000")
	_, trades = e.SubmitOrder(b1)

	require.Len(t, trades, 1)
	tr := trades[0]
	assert.True(t, tr.Price.Equal(d("50000")))
	assert.True(t, tr.Quantity.Equal(d("0.5")))
	assert.Equal(t, "s1", tr.MakerOrderID)
	assert.Equal(t, "b1", tr.TakerOrderID)
	assert.Equal(t, domain.Buy, tr.Aggressor)

	assert.Equal(t, domain.Filled, b1.Status)
	assert.Equal(t, domain.PartiallyFilled, s1.Status)
	assert.True(t, s1.RemainingQuantity.Equal(d("0.5")))

	bbo := e.BBO("BTC-USD")
	require.NotNil(t, bbo.BestOffer)
	assert.True(t, bbo.BestOffer.Equal(d("50000")))
	assert.True(t, bbo.OfferQuantity.Equal(d("0.5")))
	assert.Nil(t, bbo.BestBid)
}

// TestPriceImprovement reproduces scenario 2: a market buy fills against
// the cheaper resting level first.
func TestPriceImprovement(t *testing.T) {
	e := newTestEngine()
	e.SubmitOrder(limit(t, e, "s1", "BTC-USD", domain.Sell, "0.5", "49000"))
	e.SubmitOrder(limit(t, e, "s2", "BTC-USD", domain.Sell, "0.5", "50000"))

	_, trades := e.SubmitOrder(market(t, e, "b1", "BTC-USD", domain.Buy, "0.3"))

	require.Len(t, trades, 1)
	assert.True(t, trades[0].Price.Equal(d("49000")))
	assert.True(t, trades[0].Quantity.Equal(d("0.3")))

	bbo := e.BBO("BTC-USD")
	require.NotNil(t, bbo.BestOffer)
	assert.True(t, bbo.BestOffer.Equal(d("49000")))
	assert.True(t, bbo.OfferQuantity.Equal(d("0.2")))
}

// TestFIFOAtEqualPrice reproduces scenario 3: admission order breaks ties
// between resting orders at an identical price.
func TestFIFOAtEqualPrice(t *testing.T) {
	e := newTestEngine()
	pt1 := limit(t, e, "pt1", "XYZ", domain.Sell, "1.0", "100")
	pt2 := limit(t, e, "pt2", "XYZ", domain.Sell, "1.0", "100")
	e.SubmitOrder(pt1)
	e.SubmitOrder(pt2)

	_, trades := e.SubmitOrder(market(t, e, "b1", "XYZ", domain.Buy, "0.5"))

	require.Len(t, trades, 1)
	assert.Equal(t, "pt1", trades[0].MakerOrderID)
	assert.True(t, trades[0].Quantity.Equal(d("0.5")))
	assert.Equal(t, domain.PartiallyFilled, pt1.Status)
	assert.True(t, pt1.RemainingQuantity.Equal(d("0.5")))
	assert.Equal(t, domain.Pending, pt2.Status)
	assert.True(t, pt2.RemainingQuantity.Equal(d("1.0")))
}

// TestIOCPartial reproduces scenario 4: an IOC taker fills what it can and
// cancels the remainder instead of resting.
func TestIOCPartial(t *testing.T) {
	e := newTestEngine()
	e.SubmitOrder(limit(t, e, "s1", "XYZ", domain.Sell, "0.5", "50000"))

	taker := ioc(t, e, "b1", "XYZ", domain.Buy, "1.0", "50000")
	_, trades := e.SubmitOrder(taker)

	require.Len(t, trades, 1)
	assert.True(t, trades[0].Quantity.Equal(d("0.5")))
	assert.Equal(t, domain.Cancelled, taker.Status)
	assert.True(t, taker.FilledQuantity.Equal(d("0.5")))

	depth := e.Depth("XYZ", 10)
	assert.Empty(t, depth.Asks)
}

// TestFOKInsufficient reproduces scenario 5: an unsatisfiable FOK kills
// with zero trades, leaves the book untouched, and fires no BBO/depth event.
func TestFOKInsufficient(t *testing.T) {
	e := newTestEngine()
	e.SubmitOrder(limit(t, e, "s1", "XYZ", domain.Sell, "0.5", "50000"))

	var bboEvents, depthEvents int
	e.OnBBO(func(domain.BBO) { bboEvents++ })
	e.OnDepth(func(domain.DepthSnapshot) { depthEvents++ })

	taker := fok(t, e, "b1", "XYZ", domain.Buy, "1.0", "50000")
	_, trades := e.SubmitOrder(taker)

	assert.Empty(t, trades)
	assert.Equal(t, domain.Cancelled, taker.Status)
	assert.Equal(t, 0, bboEvents, "a FOK kill must not dispatch a BBO event")
	assert.Equal(t, 0, depthEvents, "a FOK kill must not dispatch a depth event")

	depth := e.Depth("XYZ", 10)
	require.Len(t, depth.Asks, 1)
	assert.True(t, depth.Asks[0].Quantity.Equal(d("0.5")))
}

// TestFOKSufficientSpansLevels reproduces scenario 6: a satisfiable FOK
// sweeps two price levels and prices each trade at its own maker's level.
func TestFOKSufficientSpansLevels(t *testing.T) {
	e := newTestEngine()
	s1 := limit(t, e, "s1", "XYZ", domain.Sell, "1.0", "50000")
	s2 := limit(t, e, "s2", "XYZ", domain.Sell, "1.0", "50100")
	e.SubmitOrder(s1)
	e.SubmitOrder(s2)

	taker := fok(t, e, "b1", "XYZ", domain.Buy, "1.5", "50100")
	_, trades := e.SubmitOrder(taker)

	require.Len(t, trades, 2)
	assert.Equal(t, "s1", trades[0].MakerOrderID)
	assert.True(t, trades[0].Quantity.Equal(d("1.0")))
	assert.True(t, trades[0].Price.Equal(d("50000")))
	assert.Equal(t, "s2", trades[1].MakerOrderID)
	assert.True(t, trades[1].Quantity.Equal(d("0.5")))
	assert.True(t, trades[1].Price.Equal(d("50100")))

	assert.Equal(t, domain.Filled, taker.Status)
	assert.True(t, s2.RemainingQuantity.Equal(d("0.5")))
}

// TestCancelOrder_UnknownIsNoop exercises the idempotent-cancel invariant.
func TestCancelOrder_UnknownIsNoop(t *testing.T) {
	e := newTestEngine()
	assert.False(t, e.CancelOrder("XYZ", "nope"))
}

// TestCancelOrder_RestoresBookAfterAddRemove exercises the round-trip
// invariant: add then remove restores BBO to its prior state.
func TestCancelOrder_RestoresBookAfterAddRemove(t *testing.T) {
	e := newTestEngine()
	before := e.BBO("XYZ")

	o := limit(t, e, "o1", "XYZ", domain.Buy, "1.0", "100")
	e.SubmitOrder(o)
	assert.True(t, e.CancelOrder("XYZ", "o1"))

	after := e.BBO("XYZ")
	assert.Equal(t, before.BestBid, after.BestBid)
	assert.Equal(t, before.BestOffer, after.BestOffer)
}

// TestSubmitOrder_DuplicateID rejects a second order admitted under an id
// already resting on the book, without mutating it.
func TestSubmitOrder_DuplicateID(t *testing.T) {
	e := newTestEngine()
	first := limit(t, e, "dup", "XYZ", domain.Buy, "1.0", "100")
	e.SubmitOrder(first)

	second := limit(t, e, "dup", "XYZ", domain.Buy, "1.0", "100")
	_, trades := e.SubmitOrder(second)

	assert.Empty(t, trades)
	assert.Equal(t, domain.Rejected, second.Status)
	assert.Equal(t, domain.Pending, first.Status)
}
