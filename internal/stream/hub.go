package stream

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"drakon/internal/domain"
	"drakon/internal/engine"
	"drakon/internal/metrics"
)

// Hub fans events out to subscribed websocket clients. Its register/
// unregister/broadcast channels are served by a single goroutine
// (Run), so client bookkeeping never needs its own lock.
type Hub struct {
	logger  zerolog.Logger
	metrics *metrics.Metrics

	register    chan *client
	unregister  chan *client
	broadcast   chan symbolEnvelope
	subscribeCh chan subscription

	clients map[*client]map[string]bool
}

type symbolEnvelope struct {
	symbol   string
	envelope Envelope
}

// subscription is a subscribe/unsubscribe control frame relayed from a
// client's readPump goroutine to the hub's single mutator goroutine, so
// per-client subscription state is only ever touched from Run — the same
// reason register/unregister are channels rather than a locked map.
type subscription struct {
	client  *client
	symbol  string
	enabled bool
}

// NewHub creates a Hub. Call Run in its own goroutine before Serve
// receives traffic, and register it against an engine with
// RegisterListeners.
func NewHub(logger zerolog.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		logger:      logger,
		metrics:     m,
		register:    make(chan *client),
		unregister:  make(chan *client),
		broadcast:   make(chan symbolEnvelope, 256),
		subscribeCh: make(chan subscription),
		clients:     make(map[*client]map[string]bool),
	}
}

// Run processes register/unregister/subscribe/broadcast events until
// ctx-like stop is requested by closing done. It is the hub's single
// mutator goroutine; no client bookkeeping, including subscriptions, is
// ever touched outside it.
func (h *Hub) Run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			for c := range h.clients {
				close(c.send)
			}
			return
		case c := <-h.register:
			h.clients[c] = make(map[string]bool)
			if h.metrics != nil {
				h.metrics.StreamClientsGauge.Set(float64(len(h.clients)))
			}
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				if h.metrics != nil {
					h.metrics.StreamClientsGauge.Set(float64(len(h.clients)))
				}
			}
		case sub := <-h.subscribeCh:
			subs, ok := h.clients[sub.client]
			if !ok {
				continue
			}
			if sub.enabled {
				subs[sub.symbol] = true
			} else {
				delete(subs, sub.symbol)
			}
		case se := <-h.broadcast:
			for c, subs := range h.clients {
				if !subs[se.symbol] {
					continue
				}
				select {
				case c.send <- se.envelope:
				default:
					// Slow consumer: drop rather than block the hub loop.
					h.logger.Warn().Msg("dropping frame for slow websocket client")
				}
			}
		}
	}
}

// Serve upgrades an HTTP request to a websocket connection and starts its
// read/write pumps. Mount it under gin with router.GET("/v1/stream",
// gin.WrapF(hub.Serve)) or directly as a gin.HandlerFunc via ServeGin.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	c := newClient(h, conn)
	h.register <- c

	go c.writePump()
	go c.readPump(h.logger)
}

// ServeGin adapts Serve to a gin.HandlerFunc.
func (h *Hub) ServeGin(c *gin.Context) {
	h.Serve(c.Writer, c.Request)
}

// RegisterRoutes mounts GET /v1/stream on router.
func (h *Hub) RegisterRoutes(router *gin.Engine) {
	router.GET("/v1/stream", h.ServeGin)
}

// RegisterListeners wires the hub as e's trade/BBO/depth listener set,
// matching SPEC_FULL §6's websocket envelope shape. Each listener only
// enqueues onto the hub's buffered broadcast channel; it blocks the
// per-symbol critical section the engine dispatches from under only while
// that buffer is full, and Run drops frames for slow clients rather than
// waiting on them (SPEC_FULL §9's concurrency note).
func (h *Hub) RegisterListeners(e *engine.MatchingEngine) {
	e.OnTrade(func(t *domain.Trade) {
		h.broadcast <- symbolEnvelope{symbol: t.Symbol, envelope: Envelope{Type: "trade", Payload: t}}
	})
	e.OnBBO(func(b domain.BBO) {
		h.broadcast <- symbolEnvelope{symbol: b.Symbol, envelope: Envelope{Type: "bbo", Payload: b}}
	})
	e.OnDepth(func(d domain.DepthSnapshot) {
		h.broadcast <- symbolEnvelope{symbol: d.Symbol, envelope: Envelope{Type: "depth", Payload: d}}
	})
}
