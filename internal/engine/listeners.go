package engine

import (
	"github.com/rs/zerolog"

	"drakon/internal/domain"
)

// TradeListener, BBOListener, and DepthListener are the three dispatch
// channels external collaborators register against (SPEC_FULL §4.4/§6).
type TradeListener func(*domain.Trade)
type BBOListener func(domain.BBO)
type DepthListener func(domain.DepthSnapshot)

// dispatcher holds the registered listeners for one engine and invokes
// them synchronously, in registration order, isolating a panicking
// listener with recover so it cannot take down the submission that
// triggered it or block sibling listeners.
type dispatcher struct {
	logger zerolog.Logger

	trades []TradeListener
	bbos   []BBOListener
	depths []DepthListener
}

func newDispatcher(logger zerolog.Logger) *dispatcher {
	return &dispatcher{logger: logger}
}

func (d *dispatcher) onTrade(fn TradeListener) { d.trades = append(d.trades, fn) }
func (d *dispatcher) onBBO(fn BBOListener)      { d.bbos = append(d.bbos, fn) }
func (d *dispatcher) onDepth(fn DepthListener)  { d.depths = append(d.depths, fn) }

func (d *dispatcher) dispatchTrade(trade *domain.Trade) {
	for _, fn := range d.trades {
		d.safeCall(func() { fn(trade) })
	}
}

func (d *dispatcher) dispatchBBO(bbo domain.BBO) {
	for _, fn := range d.bbos {
		d.safeCall(func() { fn(bbo) })
	}
}

func (d *dispatcher) dispatchDepth(depth domain.DepthSnapshot) {
	for _, fn := range d.depths {
		d.safeCall(func() { fn(depth) })
	}
}

func (d *dispatcher) safeCall(call func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().Interface("panic", r).Msg("listener panicked, isolating")
		}
	}()
	call()
}
