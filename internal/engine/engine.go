// Package engine is the multi-symbol matching engine: it routes a
// submitted order to its symbol's book, runs the order-type state
// machine, constructs trades, and dispatches the resulting events.
package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"drakon/internal/book"
	"drakon/internal/domain"
	"drakon/internal/metrics"
)

// MatchingEngine owns every symbol's OrderBook and the registered event
// listeners. A symbol's book is created lazily on first reference and
// persists for the process lifetime (SPEC_FULL §3 lifecycles).
type MatchingEngine struct {
	booksMu sync.RWMutex
	books   map[string]*book.OrderBook

	dispatcher *dispatcher
	logger     zerolog.Logger
	metrics    *metrics.Metrics

	sequence uint64 // admission counter, shared across all symbols

	tradeLogMu sync.Mutex
	tradeLog   []*domain.Trade
}

// New creates an empty engine. logger receives isolated listener panics.
// m may be nil, in which case metrics recording is skipped entirely.
func New(logger zerolog.Logger, m *metrics.Metrics) *MatchingEngine {
	return &MatchingEngine{
		books:      make(map[string]*book.OrderBook),
		dispatcher: newDispatcher(logger),
		logger:     logger,
		metrics:    m,
	}
}

// OnTrade, OnBBO, and OnDepth register listeners invoked at the dispatch
// points described in SPEC_FULL §4.4. Registration is not itself
// serialized per symbol; register listeners before traffic starts.
func (e *MatchingEngine) OnTrade(fn TradeListener) { e.dispatcher.onTrade(fn) }
func (e *MatchingEngine) OnBBO(fn BBOListener)      { e.dispatcher.onBBO(fn) }
func (e *MatchingEngine) OnDepth(fn DepthListener)  { e.dispatcher.onDepth(fn) }

// NextSequence hands out the next sequence number, which collaborators
// stamp onto an Order alongside its timestamp before calling SubmitOrder.
// Matching does not consult it; FIFO within a level is append order.
func (e *MatchingEngine) NextSequence() uint64 {
	return atomic.AddUint64(&e.sequence, 1)
}

func (e *MatchingEngine) bookFor(symbol string) *book.OrderBook {
	e.booksMu.RLock()
	b, ok := e.books[symbol]
	e.booksMu.RUnlock()
	if ok {
		return b
	}

	e.booksMu.Lock()
	defer e.booksMu.Unlock()
	if b, ok = e.books[symbol]; ok {
		return b
	}
	b = book.NewOrderBook(symbol)
	e.books[symbol] = b
	return b
}

// HasBook reports whether symbol has ever been referenced.
func (e *MatchingEngine) HasBook(symbol string) bool {
	e.booksMu.RLock()
	defer e.booksMu.RUnlock()
	_, ok := e.books[symbol]
	return ok
}

// SubmitOrder runs order's state machine against its symbol's book and
// returns the final order state plus the trades produced, in execution
// order. It never returns an error: outcomes that are not construction
// failures (SPEC_FULL §7) are reflected entirely in order.Status.
func (e *MatchingEngine) SubmitOrder(order *domain.Order) (*domain.Order, []*domain.Trade) {
	if e.metrics != nil {
		start := now()
		defer func() { e.metrics.MatchDuration.Observe(time.Since(start).Seconds()) }()
	}

	b := e.bookFor(order.Symbol)
	b.Lock()
	defer b.Unlock()

	trades, killed := e.match(b, order)

	for _, t := range trades {
		e.appendTrade(t)
		e.dispatcher.dispatchTrade(t)
	}
	if !killed {
		e.dispatcher.dispatchBBO(b.BBO())
		e.dispatcher.dispatchDepth(b.Depth(defaultDepth))
	}
	return order, trades
}

// CancelOrder removes orderID from symbol's book if it is still resting.
// Returns whether a cancellation actually occurred; cancelling an
// unknown, already-filled, or already-cancelled order is a benign no-op.
func (e *MatchingEngine) CancelOrder(symbol, orderID string) bool {
	b := e.bookFor(symbol)
	b.Lock()
	defer b.Unlock()

	order, ok := b.RemoveOrder(orderID)
	if !ok {
		return false
	}
	order.Cancel()
	e.decResting()
	e.dispatcher.dispatchBBO(b.BBO())
	e.dispatcher.dispatchDepth(b.Depth(defaultDepth))
	return true
}

// incResting and decResting track OrdersRestingGauge across every place an
// order is admitted to or removed from a book: a fresh resting LIMIT
// (matchCrossing), a maker fully consumed by a fill (executeFills), and an
// explicit cancel (CancelOrder above). A nil e.metrics makes both no-ops.
func (e *MatchingEngine) incResting() {
	if e.metrics != nil {
		e.metrics.OrdersRestingGauge.Inc()
	}
}

func (e *MatchingEngine) decResting() {
	if e.metrics != nil {
		e.metrics.OrdersRestingGauge.Dec()
	}
}

// BBO reports the current best bid/offer for symbol. For a symbol with no
// book yet, it creates an empty book and reports no sides set.
func (e *MatchingEngine) BBO(symbol string) domain.BBO {
	b := e.bookFor(symbol)
	b.Lock()
	defer b.Unlock()
	return b.BBO()
}

// Depth reports the top k levels of each side of symbol's book.
func (e *MatchingEngine) Depth(symbol string, k int) domain.DepthSnapshot {
	b := e.bookFor(symbol)
	b.Lock()
	defer b.Unlock()
	return b.Depth(k)
}

// Trades returns a snapshot of the append-only global trade log.
func (e *MatchingEngine) Trades() []*domain.Trade {
	e.tradeLogMu.Lock()
	defer e.tradeLogMu.Unlock()
	out := make([]*domain.Trade, len(e.tradeLog))
	copy(out, e.tradeLog)
	return out
}

func (e *MatchingEngine) appendTrade(t *domain.Trade) {
	e.tradeLogMu.Lock()
	e.tradeLog = append(e.tradeLog, t)
	e.tradeLogMu.Unlock()
}

func (e *MatchingEngine) newTradeID() string {
	return uuid.NewString()
}

func now() time.Time { return time.Now().UTC() }

const defaultDepth = 10
