package book

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"

	"drakon/internal/domain"
)

// levels is a price-sorted tree of price levels for one side of a book.
// Both sides use the same type; only the less-function at construction
// differs, so that Min always yields the side's best price.
type levels = btree.BTreeG[*PriceLevel]

// OrderBook is the per-symbol container of resting orders. It owns every
// resting Order by identity: callers outside this package should retain
// only an order id, never a pointer obtained before submission.
type OrderBook struct {
	Symbol string

	mu sync.Mutex

	bids *levels // sorted best (highest price) first
	asks *levels // sorted best (lowest price) first

	byID map[string]*domain.Order
}

// NewOrderBook creates an empty book for symbol.
func NewOrderBook(symbol string) *OrderBook {
	bids := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price.GreaterThan(b.Price)
	})
	asks := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price.LessThan(b.Price)
	})
	return &OrderBook{
		Symbol: symbol,
		bids:   bids,
		asks:   asks,
		byID:   make(map[string]*domain.Order),
	}
}

// Lock acquires the book's per-symbol serializer. The engine holds this
// for the duration of one submit/cancel/read operation against the
// symbol (SPEC_FULL §5).
func (b *OrderBook) Lock() { b.mu.Lock() }

// Unlock releases the book's per-symbol serializer.
func (b *OrderBook) Unlock() { b.mu.Unlock() }

func (b *OrderBook) sideTrees(side domain.Side) (own, opposite *levels) {
	if side == domain.Buy {
		return b.bids, b.asks
	}
	return b.asks, b.bids
}

// HasOrder reports whether orderID currently identifies a resting order
// in this book.
func (b *OrderBook) HasOrder(orderID string) bool {
	_, ok := b.byID[orderID]
	return ok
}

// AddOrder admits order as a resting maker on its own side. Fails if the
// order id is already known to this book.
func (b *OrderBook) AddOrder(order *domain.Order) error {
	if _, exists := b.byID[order.ID]; exists {
		return domain.ErrDuplicateOrder
	}
	own, _ := b.sideTrees(order.Side)
	key := &PriceLevel{Price: *order.Price}
	if level, ok := own.GetMut(key); ok {
		level.Add(order)
	} else {
		level = NewPriceLevel(*order.Price)
		level.Add(order)
		own.Set(level)
	}
	b.byID[order.ID] = order
	return nil
}

// RemoveOrder detaches order by id from its resting level and this book's
// index, returning it. Returns (nil, false) if the id is unknown — this is
// the benign no-op cancel-of-unknown path (SPEC_FULL §7).
func (b *OrderBook) RemoveOrder(orderID string) (*domain.Order, bool) {
	order, ok := b.byID[orderID]
	if !ok {
		return nil, false
	}
	own, _ := b.sideTrees(order.Side)
	key := &PriceLevel{Price: *order.Price}
	if level, ok := own.GetMut(key); ok {
		level.Remove(orderID)
		if level.IsEmpty() {
			own.Delete(level)
		}
	}
	delete(b.byID, orderID)
	return order, true
}

// ApplyFill records that maker has been matched for qty: it applies the
// partial fill to the maker order and, if the maker is now fully filled,
// removes it from its resting level (and the level, if now empty). The
// level's cached total is adjusted by exactly qty regardless, since
// PeekFillable (used to decide qty) never mutated it.
func (b *OrderBook) ApplyFill(maker *domain.Order, qty decimal.Decimal) {
	maker.PartialFill(qty)

	own, _ := b.sideTrees(maker.Side)
	key := &PriceLevel{Price: *maker.Price}
	level, ok := own.GetMut(key)
	if !ok {
		return
	}
	level.total = level.total.Sub(qty)
	if maker.RemainingQuantity.Sign() == 0 {
		level.Remove(maker.ID)
		delete(b.byID, maker.ID)
		if level.IsEmpty() {
			own.Delete(level)
		}
	}
}

func crosses(incoming *domain.Order, levelPrice decimal.Decimal) bool {
	if incoming.Type == domain.Market {
		return true
	}
	switch incoming.Side {
	case domain.Buy:
		return incoming.Price.GreaterThanOrEqual(levelPrice)
	case domain.Sell:
		return incoming.Price.LessThanOrEqual(levelPrice)
	default:
		return false
	}
}

// MatchCandidates projects, without mutating the book, the sequence of
// (maker, fill quantity) pairs that would satisfy incoming's remaining
// quantity, walking the opposite side best-price-first and stopping at
// the first level that fails the crossing predicate. The returned
// quantities sum to at most incoming.RemainingQuantity.
func (b *OrderBook) MatchCandidates(incoming *domain.Order) ([]Fill, decimal.Decimal) {
	_, opposite := b.sideTrees(incoming.Side)

	var fills []Fill
	covered := decimal.Zero
	opposite.Scan(func(level *PriceLevel) bool {
		if covered.GreaterThanOrEqual(incoming.RemainingQuantity) {
			return false
		}
		if !crosses(incoming, level.Price) {
			return false
		}
		need := incoming.RemainingQuantity.Sub(covered)
		levelFills, levelCovered := level.PeekFillable(need)
		fills = append(fills, levelFills...)
		covered = covered.Add(levelCovered)
		return true
	})
	return fills, covered
}

// BBO reports the current best bid and offer for this book. BestBid/
// BestOffer (and their quantities) are nil when that side is empty.
func (b *OrderBook) BBO() domain.BBO {
	bbo := domain.BBO{Symbol: b.Symbol, Timestamp: time.Now().UTC()}
	if level, ok := b.bids.Min(); ok {
		price := level.Price
		qty := level.TotalRemaining()
		bbo.BestBid = &price
		bbo.BidQuantity = &qty
	}
	if level, ok := b.asks.Min(); ok {
		price := level.Price
		qty := level.TotalRemaining()
		bbo.BestOffer = &price
		bbo.OfferQuantity = &qty
	}
	return bbo
}

// Depth reports the top k levels of each side, best price first.
func (b *OrderBook) Depth(k int) domain.DepthSnapshot {
	snap := domain.DepthSnapshot{Symbol: b.Symbol, Timestamp: time.Now().UTC()}
	snap.Bids = collectLevels(b.bids, k)
	snap.Asks = collectLevels(b.asks, k)
	return snap
}

func collectLevels(tree *levels, k int) []domain.DepthLevel {
	if k <= 0 {
		return nil
	}
	out := make([]domain.DepthLevel, 0, k)
	tree.Scan(func(level *PriceLevel) bool {
		out = append(out, domain.DepthLevel{Price: level.Price, Quantity: level.TotalRemaining()})
		return len(out) < k
	})
	return out
}
