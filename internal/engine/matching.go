package engine

import (
	"drakon/internal/book"
	"drakon/internal/domain"
)

// match dispatches order to its order-type state machine and returns the
// trades produced (in execution order) plus whether the submission left
// the book untouched — a FOK kill or a duplicate-id rejection, the two
// cases in which SubmitOrder suppresses BBO/depth dispatch (SPEC_FULL
// §4.3/§4.4/§7).
func (e *MatchingEngine) match(b *book.OrderBook, order *domain.Order) ([]*domain.Trade, bool) {
	if b.HasOrder(order.ID) {
		// Duplicate order id: refuse before touching the book at all, so
		// this leaves no trace (SPEC_FULL §7 internal invariant rule).
		order.Status = domain.Rejected
		return nil, true
	}

	switch order.Type {
	case domain.FOK:
		return e.matchFOK(b, order)
	default:
		return e.matchCrossing(b, order), false
	}
}

// matchCrossing executes every candidate fill against order, then applies
// the order-type-specific disposition of any unfilled remainder. It
// covers LIMIT, MARKET, and IOC, which share the "match what crosses,
// then decide what to do with the rest" shape and differ only in that
// disposition.
func (e *MatchingEngine) matchCrossing(b *book.OrderBook, order *domain.Order) []*domain.Trade {
	candidates, _ := b.MatchCandidates(order)
	trades := e.executeFills(b, order, candidates)

	if order.RemainingQuantity.Sign() > 0 {
		switch order.Type {
		case domain.Limit:
			// AddOrder cannot fail here: the duplicate case was already
			// refused in match before any matching occurred.
			_ = b.AddOrder(order)
			e.incResting()
		case domain.Market, domain.IOC:
			order.Status = domain.Cancelled
		}
	}
	return trades
}

// matchFOK implements Fill-or-Kill: the entire quantity must be
// satisfiable right now, or nothing executes at all.
func (e *MatchingEngine) matchFOK(b *book.OrderBook, order *domain.Order) ([]*domain.Trade, bool) {
	candidates, covered := b.MatchCandidates(order)
	if covered.LessThan(order.RemainingQuantity) {
		order.Status = domain.Cancelled
		return nil, true
	}
	trades := e.executeFills(b, order, candidates)
	return trades, false
}

// executeFills applies each candidate fill to its maker and to order,
// constructing a Trade per fill in execution order.
func (e *MatchingEngine) executeFills(b *book.OrderBook, order *domain.Order, candidates []book.Fill) []*domain.Trade {
	if len(candidates) == 0 {
		return nil
	}
	trades := make([]*domain.Trade, 0, len(candidates))
	for _, fill := range candidates {
		qty := fill.Quantity
		if qty.Sign() <= 0 {
			continue
		}
		maker := fill.Maker
		b.ApplyFill(maker, qty)
		order.PartialFill(qty)
		if maker.RemainingQuantity.Sign() == 0 {
			// maker has just been removed from the book by ApplyFill.
			e.decResting()
		}
		trades = append(trades, domain.NewTrade(e.newTradeID(), maker, order, qty, now()))
	}
	return trades
}
